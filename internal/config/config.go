// Package config loads scoutbin configuration from file, environment
// and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/scout-sh/scoutbin/internal/cache"
)

// EnvBinaryPath points at a pre-installed scout binary and is the
// highest-priority resolution source. Setting it expresses operator
// intent: a path that fails validation is fatal, never bypassed.
const EnvBinaryPath = "SCOUT_BINARY_PATH"

// Config holds all scoutbin settings.
type Config struct {
	// Repository is the "owner/name" slug of the release registry repo.
	Repository string `mapstructure:"repository"`
	// BinaryName is the base name of the managed executable.
	BinaryName string `mapstructure:"binary_name"`
	// TargetRange pins the compatible major.minor band, e.g. "1.4".
	TargetRange string `mapstructure:"target_range"`
	// UpdateCheckDays is the opportunistic update-poll cadence.
	UpdateCheckDays int `mapstructure:"update_check_days"`
	// CacheDir overrides the cache root directory.
	CacheDir string `mapstructure:"cache_dir"`
	// RequestTimeoutSeconds bounds registry metadata calls.
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
	// DownloadTimeoutMinutes bounds asset payload downloads.
	DownloadTimeoutMinutes int `mapstructure:"download_timeout_minutes"`
	// ExecTimeoutSeconds bounds version-query subprocess invocations.
	ExecTimeoutSeconds int `mapstructure:"exec_timeout_seconds"`
	// LogLevel is the logrus level name.
	LogLevel string `mapstructure:"log_level"`

	// OverridePath comes from SCOUT_BINARY_PATH, never from file.
	OverridePath string `mapstructure:"-"`
}

// UpdateCheckInterval returns the update-poll cadence as a duration.
func (c *Config) UpdateCheckInterval() time.Duration {
	return time.Duration(c.UpdateCheckDays) * 24 * time.Hour
}

// RequestTimeout returns the registry metadata call timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// DownloadTimeout returns the asset download timeout.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.DownloadTimeoutMinutes) * time.Minute
}

// ExecTimeout returns the version-query subprocess timeout.
func (c *Config) ExecTimeout() time.Duration {
	return time.Duration(c.ExecTimeoutSeconds) * time.Second
}

// Load reads configuration from the cache root's config.yaml, the
// SCOUT_* environment, and built-in defaults. A missing config file is
// created with commented defaults on a best-effort basis.
func Load() (*Config, error) {
	configDir := cache.DefaultDir()
	_ = os.MkdirAll(configDir, 0o755)
	configFile := filepath.Join(configDir, "config.yaml")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.SetConfigFile(configFile)

	setDefaults(v)

	v.SetEnvPrefix("SCOUT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
			_ = createDefaultConfig(configFile) // best-effort
			_ = v.ReadInConfig()
		}
		// Any other read error: proceed with defaults and env.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.OverridePath = os.Getenv(EnvBinaryPath)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("repository", "scout-sh/scout")
	v.SetDefault("binary_name", "scout")
	v.SetDefault("target_range", "1.4")
	v.SetDefault("update_check_days", 7)
	v.SetDefault("cache_dir", "")
	v.SetDefault("request_timeout_seconds", 30)
	v.SetDefault("download_timeout_minutes", 5)
	v.SetDefault("exec_timeout_seconds", 10)
	v.SetDefault("log_level", "info")
}

func createDefaultConfig(configFile string) error {
	defaultConfig := `# scoutbin configuration

# Release registry repository (owner/name)
repository: scout-sh/scout

# Managed executable base name
binary_name: scout

# Compatible major.minor version band
target_range: "1.4"

# Days between opportunistic update checks
update_check_days: 7

# Cache root override (empty = ~/.scout or %LOCALAPPDATA%\scout)
cache_dir: ""

# Network and subprocess timeouts
request_timeout_seconds: 30
download_timeout_minutes: 5
exec_timeout_seconds: 10

# Log level: debug, info, warn, error
log_level: info
`
	return os.WriteFile(configFile, []byte(defaultConfig), 0o644)
}
