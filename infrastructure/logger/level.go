package logger

import "strings"

// Level is the minimum severity a logger or writer lets through.
type Level uint32

// Level constants, in increasing severity.
const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelOff
)

// levels maps every Level to the tag written in log lines and the name
// accepted by --loglevel.
var levels = [...]struct {
	tag, name string
}{
	LevelTrace:    {"TRC", "trace"},
	LevelDebug:    {"DBG", "debug"},
	LevelInfo:     {"INF", "info"},
	LevelWarn:     {"WRN", "warn"},
	LevelError:    {"ERR", "error"},
	LevelCritical: {"CRT", "critical"},
	LevelOff:      {"OFF", "off"},
}

// LevelFromString parses a level name or tag, case insensitively. Unknown
// input yields LevelInfo and false.
func LevelFromString(s string) (l Level, ok bool) {
	s = strings.ToLower(s)
	if s == "warning" {
		return LevelWarn, true
	}
	for level, names := range levels {
		if s == names.name || s == strings.ToLower(names.tag) {
			return Level(level), true
		}
	}
	return LevelInfo, false
}

// LevelNames returns the accepted level names from trace to off.
func LevelNames() []string {
	names := make([]string, len(levels))
	for i, level := range levels {
		names[i] = level.name
	}
	return names
}

// String returns the three letter tag of l.
func (l Level) String() string {
	if l >= LevelOff {
		return levels[LevelOff].tag
	}
	return levels[l].tag
}
