// Package config holds the configuration shared by glittr commands:
// service endpoints, network selection, fee policy and polling.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcutil"
	"github.com/glittrfi/glittr-go/domain/workflow"
	"github.com/glittrfi/glittr-go/infrastructure/network/httpclient"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	// DefaultFee is the fee, in satoshis, paid by every operation.
	DefaultFee = 1000

	// DefaultDustThreshold is the value a funding output must exceed.
	DefaultDustThreshold = 1000

	defaultAppDirName     = "glittr"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "glittr.log"
	defaultJournalDirname = "journal"
)

// DefaultAppDir is the default directory for logs, the journal and keys.
var DefaultAppDir = btcutil.AppDataDir(defaultAppDirName, false)

// ServiceFlags configures the chain and indexer services.
type ServiceFlags struct {
	ChainAPI       string        `long:"chain-api" env:"GLITTR_CHAIN_API" description:"Esplora compatible chain API (defaults to mempool.space for mainnet and testnet)" validate:"omitempty,url"`
	IndexerAPI     string        `long:"indexer-api" env:"GLITTR_INDEXER_API" description:"Glittr indexer API" validate:"required,url"`
	Proxy          string        `long:"proxy" env:"GLITTR_PROXY" description:"Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)" validate:"omitempty,hostname_port"`
	ProxyUser      string        `long:"proxyuser" description:"Username for proxy server"`
	ProxyPass      string        `long:"proxypass" default-mask:"-" description:"Password for proxy server"`
	RequestTimeout time.Duration `long:"request-timeout" default:"30s" description:"Timeout of a single HTTP request" validate:"gte=0"`
}

// FeeFlags configures funding selection and fees.
type FeeFlags struct {
	Fee           uint64 `long:"fee" default:"1000" description:"Fee in satoshis paid by the operation"`
	DustThreshold uint64 `long:"dust-threshold" default:"1000" description:"Only outputs worth more than this many satoshis fund operations"`
}

// PollFlags configures the confirmation poll.
type PollFlags struct {
	PollInterval      time.Duration `long:"poll-interval" default:"1500ms" description:"Wait between polls while the indexer has not seen the transaction" validate:"gt=0"`
	PollErrorInterval time.Duration `long:"poll-error-interval" default:"1s" description:"Wait between polls after a failed request" validate:"gt=0"`
	PollTimeout       time.Duration `long:"poll-timeout" default:"0" description:"Give up polling after this long (0 waits forever)" validate:"gte=0"`
	PollMaxAttempts   int           `long:"poll-max-attempts" default:"0" description:"Give up polling after this many attempts (0 polls forever)" validate:"gte=0"`
}

// AppFlags configures local state.
type AppFlags struct {
	AppDir    string `long:"appdir" env:"GLITTR_APPDIR" description:"Directory for logs, the operation journal and keys"`
	LogLevel  string `long:"loglevel" default:"info" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical, off}" validate:"oneof=trace debug info warn error critical off"`
	LogStdout bool   `long:"logstdout" description:"Mirror log entries to stdout"`
}

// ResolvedAppDir returns AppDir, or DefaultAppDir when it is not set.
func (appFlags *AppFlags) ResolvedAppDir() string {
	if appFlags.AppDir == "" {
		return DefaultAppDir
	}
	return cleanAndExpandPath(appFlags.AppDir)
}

// LogFile returns the path of the rotating log file.
func (appFlags *AppFlags) LogFile() string {
	return filepath.Join(appFlags.ResolvedAppDir(), defaultLogDirname, defaultLogFilename)
}

// JournalDir returns the path of the operation journal database.
func (appFlags *AppFlags) JournalDir() string {
	return filepath.Join(appFlags.ResolvedAppDir(), defaultJournalDirname)
}

// ChainClientConfig returns the HTTP configuration of the chain service.
func (serviceFlags *ServiceFlags) ChainClientConfig(networkFlags *NetworkFlags) (httpclient.Config, error) {
	chainAPI := serviceFlags.ChainAPI
	if chainAPI == "" {
		chainAPI = networkFlags.DefaultChainAPI()
	}
	if chainAPI == "" {
		return httpclient.Config{}, errors.Errorf("--chain-api is required on %s", networkFlags.NetParams().Name)
	}
	return serviceFlags.httpConfig(chainAPI), nil
}

// IndexerClientConfig returns the HTTP configuration of the indexer.
func (serviceFlags *ServiceFlags) IndexerClientConfig() httpclient.Config {
	return serviceFlags.httpConfig(serviceFlags.IndexerAPI)
}

func (serviceFlags *ServiceFlags) httpConfig(baseURL string) httpclient.Config {
	return httpclient.Config{
		BaseURL:   baseURL,
		Proxy:     serviceFlags.Proxy,
		ProxyUser: serviceFlags.ProxyUser,
		ProxyPass: serviceFlags.ProxyPass,
		Timeout:   serviceFlags.RequestTimeout,
	}
}

// PollPolicy returns the workflow poll policy.
func (pollFlags *PollFlags) PollPolicy() workflow.PollPolicy {
	return workflow.PollPolicy{
		NotFoundInterval: pollFlags.PollInterval,
		ErrorInterval:    pollFlags.PollErrorInterval,
		MaxAttempts:      pollFlags.PollMaxAttempts,
		Timeout:          pollFlags.PollTimeout,
	}
}

// LoadEnvFiles loads environment variables from the given files, .env in
// the working directory when none are given. Missing files are skipped and
// variables already set in the environment win.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		_, err := os.Stat(path)
		if os.IsNotExist(err) {
			continue
		}
		err = godotenv.Load(path)
		if err != nil {
			return errors.Wrapf(err, "failed to load environment file %s", path)
		}
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the validate tags of cfg.
func Validate(cfg interface{}) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		first := validationErrors[0]
		return errors.Errorf("invalid value %v for %s (%s)", first.Value(), first.Namespace(), first.Tag())
	}
	return errors.WithStack(err)
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if homeDir, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(homeDir, path[1:])
		}
	}
	return filepath.Clean(os.ExpandEnv(path))
}
