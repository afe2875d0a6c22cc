package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration. Any deploy parameter left
// empty here is collected interactively at startup.
type Config struct {
	Deploy DeployConfig `mapstructure:"deploy"`
	SSH    SSHConfig    `mapstructure:"ssh"`
	Log    LogConfig    `mapstructure:"log"`
}

// DeployConfig holds deployment parameters.
type DeployConfig struct {
	RepoURL    string `mapstructure:"repo_url"`
	Token      string `mapstructure:"token"` // set via DOCKPORT_DEPLOY_TOKEN, never a file
	Branch     string `mapstructure:"branch"`
	RemoteUser string `mapstructure:"remote_user"`
	RemoteHost string `mapstructure:"remote_host"`
	KeyPath    string `mapstructure:"key_path"`
	AppPort    int    `mapstructure:"app_port"`
	WorkDir    string `mapstructure:"work_dir"` // parent dir for local clones
}

// SSHConfig holds transport timeouts.
type SSHConfig struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Dir    string `mapstructure:"dir"` // directory for per-run log files
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("deploy.repo_url", "")
	v.SetDefault("deploy.token", "")
	v.SetDefault("deploy.branch", "")
	v.SetDefault("deploy.remote_user", "")
	v.SetDefault("deploy.remote_host", "")
	v.SetDefault("deploy.key_path", "")
	v.SetDefault("deploy.app_port", 0)
	v.SetDefault("deploy.work_dir", "./workspace")
	v.SetDefault("ssh.connect_timeout", "10s")
	v.SetDefault("ssh.command_timeout", "10m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.dir", "./logs")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	v.SetEnvPrefix("DOCKPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format, writing
// to w (stdout mirrored into the per-run log file).
func SetupLogger(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
