package logger

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// BackendLog is the logging backend used to create all subsystem loggers.
var BackendLog = NewBackend()

// SubsystemTags is an enum of all sub system tags
var SubsystemTags = struct {
	GLTR,
	OPER,
	WKFL,
	ASMB,
	CHCL,
	IDXC,
	JRNL,
	WLLT string
}{
	GLTR: "GLTR",
	OPER: "OPER",
	WKFL: "WKFL",
	ASMB: "ASMB",
	CHCL: "CHCL",
	IDXC: "IDXC",
	JRNL: "JRNL",
	WLLT: "WLLT",
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]*Logger{
	SubsystemTags.GLTR: BackendLog.Logger(SubsystemTags.GLTR),
	SubsystemTags.OPER: BackendLog.Logger(SubsystemTags.OPER),
	SubsystemTags.WKFL: BackendLog.Logger(SubsystemTags.WKFL),
	SubsystemTags.ASMB: BackendLog.Logger(SubsystemTags.ASMB),
	SubsystemTags.CHCL: BackendLog.Logger(SubsystemTags.CHCL),
	SubsystemTags.IDXC: BackendLog.Logger(SubsystemTags.IDXC),
	SubsystemTags.JRNL: BackendLog.Logger(SubsystemTags.JRNL),
	SubsystemTags.WLLT: BackendLog.Logger(SubsystemTags.WLLT),
}

// InitLog attaches a rotating log file to the backend, optionally mirrors
// entries at or above stdoutLevel to stdout, and starts the backend.
func InitLog(logFile string, stdoutLevel Level) error {
	if logFile != "" {
		err := BackendLog.AddLogFile(logFile, LevelTrace)
		if err != nil {
			return errors.Wrapf(err, "error adding log file %s as log rotator for level %s", logFile, LevelTrace)
		}
	}
	if stdoutLevel < LevelOff {
		err := BackendLog.AddLogWriter(stdoutWriter{}, stdoutLevel)
		if err != nil {
			return err
		}
	}
	return BackendLog.Run()
}

// SetLogLevel sets the logging level for provided subsystem. Invalid
// subsystems are ignored.
func SetLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}

	level, _ := LevelFromString(logLevel)
	logger.SetLevel(level)
}

// SetLogLevels sets the log level for all subsystem loggers to the passed
// level.
func SetLogLevels(logLevel string) error {
	if _, ok := LevelFromString(logLevel); !ok {
		return errors.Errorf("invalid log level %s, expected one of %s",
			logLevel, strings.Join(LevelNames(), ", "))
	}
	for subsystemID := range subsystemLoggers {
		SetLogLevel(subsystemID, logLevel)
	}
	return nil
}

// SupportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func SupportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}
	sort.Strings(subsystems)
	return subsystems
}

// Get returns a logger of a specific sub system
func Get(tag string) (logger *Logger, ok bool) {
	logger, ok = subsystemLoggers[tag]
	return
}
