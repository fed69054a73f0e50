// Package config loads the client configuration from a config file,
// DISK_ANALYZER_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nathsou/disk-analyzer/pkg/query"
	"github.com/nathsou/disk-analyzer/pkg/sizefmt"
)

// EnvPrefix prefixes every environment variable, e.g. DISK_ANALYZER_SERVER.
const EnvPrefix = "DISK_ANALYZER"

// Keys
const (
	KeyServer       = "server"
	KeyTimeout      = "timeout"
	KeyRetries      = "retries"
	KeyAuthToken    = "auth_token"
	KeyUnits        = "units"
	KeyPrecision    = "precision"
	KeyStaleTime    = "stale_time"
	KeyTopFiles     = "top.files"
	KeyTopDirs      = "top.dirs"
	KeyCachePersist = "cache.persist"
	KeyCacheDir     = "cache.dir"
	KeyCacheMaxSize = "cache.max_size"
	KeyLogLevel     = "log.level"
	KeyLogFormat    = "log.format"
	KeyLogFile      = "log.file"
	KeyMetricsAddr  = "metrics_addr"
	KeyOutput       = "output"
)

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// Config holds all client configuration.
type Config struct {
	// Backend
	Server    string
	Timeout   time.Duration
	Retries   int
	AuthToken string

	// Display
	Units     sizefmt.Base
	Precision int
	Output    string
	TopFiles  int
	TopDirs   int

	// Caching
	StaleTime    time.Duration
	CachePersist bool
	CacheDir     string
	CacheMaxSize int64

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string

	MetricsAddr string
}

// DefaultDir returns the directory holding the config file.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".disk-analyzer"
	}
	return filepath.Join(home, ".config", "disk-analyzer")
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "disk-analyzer")
	}
	return filepath.Join(DefaultDir(), "cache")
}

// SetDefaults registers the default of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyServer, "http://localhost:7621/api")
	v.SetDefault(KeyTimeout, "5m")
	v.SetDefault(KeyRetries, 0)
	v.SetDefault(KeyAuthToken, "")
	v.SetDefault(KeyUnits, "decimal")
	v.SetDefault(KeyPrecision, sizefmt.DefaultPrecision)
	v.SetDefault(KeyStaleTime, query.DefaultStaleTime.String())
	v.SetDefault(KeyTopFiles, 0)
	v.SetDefault(KeyTopDirs, 0)
	v.SetDefault(KeyCachePersist, true)
	v.SetDefault(KeyCacheDir, defaultCacheDir())
	v.SetDefault(KeyCacheMaxSize, "64MB")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyMetricsAddr, "")
	v.SetDefault(KeyOutput, OutputTable)
}

// Init points v at the config file and the environment. cfgFile overrides
// the default $HOME/.config/disk-analyzer/config.yaml. A missing default
// config file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(DefaultDir())
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load reads and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	units, err := sizefmt.ParseBase(v.GetString(KeyUnits))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyUnits, err)
	}

	cfg := &Config{
		Server:       strings.TrimRight(v.GetString(KeyServer), "/"),
		Timeout:      v.GetDuration(KeyTimeout),
		Retries:      v.GetInt(KeyRetries),
		AuthToken:    v.GetString(KeyAuthToken),
		Units:        units,
		Precision:    v.GetInt(KeyPrecision),
		Output:       strings.ToLower(v.GetString(KeyOutput)),
		TopFiles:     v.GetInt(KeyTopFiles),
		TopDirs:      v.GetInt(KeyTopDirs),
		StaleTime:    v.GetDuration(KeyStaleTime),
		CachePersist: v.GetBool(KeyCachePersist),
		CacheDir:     v.GetString(KeyCacheDir),
		CacheMaxSize: int64(v.GetSizeInBytes(KeyCacheMaxSize)),
		LogLevel:     v.GetString(KeyLogLevel),
		LogFormat:    v.GetString(KeyLogFormat),
		LogFile:      v.GetString(KeyLogFile),
		MetricsAddr:  v.GetString(KeyMetricsAddr),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the client cannot use.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s: %q is not an http(s) URL", KeyServer, c.Server)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", KeyTimeout)
	}
	if c.Retries < 0 {
		return fmt.Errorf("%s must not be negative", KeyRetries)
	}
	if c.Precision < 0 || c.Precision > 10 {
		return fmt.Errorf("%s must be between 0 and 10", KeyPrecision)
	}
	if c.StaleTime <= 0 {
		return fmt.Errorf("%s must be positive", KeyStaleTime)
	}
	if c.TopFiles < 0 || c.TopDirs < 0 {
		return fmt.Errorf("top counts must not be negative")
	}
	switch c.Output {
	case OutputTable, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("%s: unknown format %q (want table, json or yaml)", KeyOutput, c.Output)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("%s: unknown format %q (want json or console)", KeyLogFormat, c.LogFormat)
	}
	if c.CachePersist && c.CacheDir == "" {
		return fmt.Errorf("%s is required when %s is set", KeyCacheDir, KeyCachePersist)
	}
	return nil
}

// Attempts returns how many times a failed request is tried.
func (c *Config) Attempts() int {
	return c.Retries + 1
}
