// Package config provides configuration management for broadcastd using
// Viper. It supports configuration from files, environment variables,
// and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort         = 8080
	defaultServerTimeout      = 30 * time.Second
	defaultShutdownTimeout    = 10 * time.Second
	defaultMaxOpenConns       = 25
	defaultMaxIdleConns       = 10
	defaultConnMaxIdleTime    = 30 * time.Minute
	defaultSessionAttemptCap  = 5
	defaultSessionWindow      = 30 * time.Second
	defaultHLSDeleteThreshold = 6
	defaultEncoderStartupWait = 5 * time.Second
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging LoggingConfig `mapstructure:"logging"`
	FFmpeg  FFmpegConfig  `mapstructure:"ffmpeg"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Janitor JanitorConfig `mapstructure:"janitor"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds the connection settings for the reference Store
// implementation. The Channel Streaming Core itself only depends on the
// minimal store.Store interface; this struct configures the concrete
// GORM-backed implementation this repository ships for local running.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level             string `mapstructure:"level"`  // debug, info, warn, error
	Format            string `mapstructure:"format"` // json, text
	AddSource         bool   `mapstructure:"add_source"`
	TimeFormat        string `mapstructure:"time_format"`
	EnableRequestLogs bool   `mapstructure:"enable_request_logs"`
}

// FFmpegConfig holds FFmpeg binary and encoder plan configuration.
type FFmpegConfig struct {
	BinaryPath      string   `mapstructure:"binary_path"`      // Path to ffmpeg binary (empty = auto-detect)
	ProbePath       string   `mapstructure:"probe_path"`       // Path to ffprobe binary (empty = auto-detect)
	HWAccelPriority []string `mapstructure:"hwaccel_priority"` // Priority order: vaapi, nvenc, qsv, amf
	// HLSDeleteThreshold is the -hls_delete_threshold value the
	// EncoderPlanBuilder writes for HLS output. Always authoritative;
	// see the Open Question decision in DESIGN.md.
	HLSDeleteThreshold int `mapstructure:"hls_delete_threshold"`
	// StartupWait is loaded and passed on in store.FFmpegSettings, but
	// no encoder code reads it: EncoderProcess has no startup timeout.
	StartupWait time.Duration `mapstructure:"startup_wait"`
}

// StreamConfig holds StreamController/PlaybackCache tuning that is
// operationally adjustable without being part of the resolver algorithm
// itself (the resolver's own SLACK constant is spec-literal, not
// configurable).
type StreamConfig struct {
	// SessionAttemptCap is loaded and validated (must be at least 1) but
	// is not read by the session throttle: internal/concat applies its
	// own MaxAttempts and ThrottleWindow constants.
	SessionAttemptCap int `mapstructure:"session_attempt_cap"`
	// SessionAttemptWindow is loaded but not read by the session
	// throttle (see SessionAttemptCap).
	SessionAttemptWindow time.Duration `mapstructure:"session_attempt_window"`
	// OutputBufferSize is loaded but not read by StreamController.
	// Supports human-readable values like "256KB".
	OutputBufferSize ByteSize `mapstructure:"output_buffer_size"`
}

// JanitorConfig holds background cache-pruning schedule configuration.
type JanitorConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"` // robfig/cron/v3 expression
	// StaleEntryAge is how long a PlaybackCache entry survives without
	// being touched before the janitor prunes it. Accepts "7d", "2w",
	// or standard Go duration strings.
	StaleEntryAge Duration `mapstructure:"stale_entry_age"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with BROADCASTCORE_ and use
// underscores for nesting, e.g. BROADCASTCORE_SERVER_PORT=8080.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/broadcastd")
		v.AddConfigPath("$HOME/.broadcastd")
	}

	v.SetEnvPrefix("BROADCASTCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "broadcastd.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)
	v.SetDefault("logging.enable_request_logs", true)

	v.SetDefault("ffmpeg.binary_path", "")
	v.SetDefault("ffmpeg.probe_path", "")
	v.SetDefault("ffmpeg.hwaccel_priority", []string{"vaapi", "nvenc", "qsv", "amf"})
	v.SetDefault("ffmpeg.hls_delete_threshold", defaultHLSDeleteThreshold)
	v.SetDefault("ffmpeg.startup_wait", defaultEncoderStartupWait)

	v.SetDefault("stream.session_attempt_cap", defaultSessionAttemptCap)
	v.SetDefault("stream.session_attempt_window", defaultSessionWindow)
	v.SetDefault("stream.output_buffer_size", 64*1024)

	v.SetDefault("janitor.enabled", true)
	v.SetDefault("janitor.cron", "*/5 * * * *")
	v.SetDefault("janitor.stale_entry_age", "7d")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.FFmpeg.HLSDeleteThreshold < 0 {
		return fmt.Errorf("ffmpeg.hls_delete_threshold must be non-negative")
	}

	if c.Stream.SessionAttemptCap < 1 {
		return fmt.Errorf("stream.session_attempt_cap must be at least 1")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
