package model

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DatabaseConfig locates the ledger database.
type DatabaseConfig struct {
	// Path is the SQLite file; ":memory:" keeps the ledger in RAM.
	Path string `mapstructure:"path" yaml:"path"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig controls structured logging output.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `mapstructure:"level" yaml:"level"`

	// File, when set, receives a rotated copy of every log line.
	File string `mapstructure:"file" yaml:"file"`

	MaxSizeMB  int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
}

// CalendarConfig tunes the terminal calendar.
type CalendarConfig struct {
	// PollIntervalSec is how often the open calendar re-reads the ledger.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Calendar CalendarConfig `mapstructure:"calendar" yaml:"calendar"`
}

// envPrefix namespaces environment overrides, e.g. GOALS_SERVER_PORT.
const envPrefix = "GOALS"

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/goals/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "goals", "config.yaml")
}

// DefaultDatabasePath returns ~/.local/share/goals/goals.db, falling back to
// goals.db in the working directory.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "goals.db"
	}
	return filepath.Join(home, ".local", "share", "goals", "goals.db")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Database: DatabaseConfig{Path: DefaultDatabasePath()},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 5000,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Calendar: CalendarConfig{PollIntervalSec: 10},
	}
}

// ValidatePort rejects ports outside 1-65535.
func ValidatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", port)
	}
	return nil
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, defaults are used. GOALS_* environment
// variables override both.
func LoadConfig(path string) (*AppConfig, error) {
	def := DefaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.file", def.Log.File)
	v.SetDefault("log.max_size_mb", def.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", def.Log.MaxBackups)
	v.SetDefault("calendar.poll_interval_sec", def.Calendar.PollIntervalSec)

	// A missing file is not an error: defaults and environment still apply.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := ValidatePort(cfg.Server.Port); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database.path", cfg.Database.Path)
	v.Set("server.host", cfg.Server.Host)
	v.Set("server.port", cfg.Server.Port)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.file", cfg.Log.File)
	v.Set("log.max_size_mb", cfg.Log.MaxSizeMB)
	v.Set("log.max_backups", cfg.Log.MaxBackups)
	v.Set("calendar.poll_interval_sec", cfg.Calendar.PollIntervalSec)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
