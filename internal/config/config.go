// Package config loads taskflow settings.
//
// Priority (highest to lowest):
//  1. Environment variables (TASKFLOW_ prefix, "." replaced by "_"),
//     including those read from a local .env file
//  2. The YAML file passed to LoadFromFile or named by TASKFLOW_CONFIG
//  3. [DefaultConfig] defaults
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TASKFLOW"

// Config is the root configuration container.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
}

type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"static_dir"`
}

// DatabaseConfig selects the SQL driver. Driver is sqlite3 or pgx; for
// sqlite3 the DSN is a file path.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// WorkflowConfig tunes the step engine.
type WorkflowConfig struct {
	CutoffStep   int  `mapstructure:"cutoff_step"`
	CutoffHour   int  `mapstructure:"cutoff_hour"`
	EnforceRoles bool `mapstructure:"enforce_roles"`
}

// DefaultConfig returns settings that run a local single-node instance.
func DefaultConfig() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8080", StaticDir: "web"},
		Database: DatabaseConfig{Driver: "sqlite3", DSN: "data/taskflow.db"},
		Auth:     AuthConfig{Issuer: "taskflow", TokenTTL: 24 * time.Hour},
		Log:      LogConfig{Level: "info", Format: "json"},
		Workflow: WorkflowConfig{CutoffStep: 12, CutoffHour: 16},
	}
}

// Loader wraps a viper instance seeded with the defaults.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader reading TASKFLOW_* environment variables.
func NewLoader() *Loader {
	v := viper.New()
	d := DefaultConfig()
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.static_dir", d.Server.StaticDir)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("auth.secret", d.Auth.Secret)
	v.SetDefault("auth.issuer", d.Auth.Issuer)
	v.SetDefault("auth.token_ttl", d.Auth.TokenTTL)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("workflow.cutoff_step", d.Workflow.CutoffStep)
	v.SetDefault("workflow.cutoff_hour", d.Workflow.CutoffHour)
	v.SetDefault("workflow.enforce_roles", d.Workflow.EnforceRoles)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// Viper exposes the underlying instance so command flags can be bound to keys.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads .env (if present), the file named by TASKFLOW_CONFIG (if set)
// and the environment.
func (l *Loader) Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("error reading .env: %w", err)
	}
	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		return l.LoadFromFile(path)
	}
	return l.decode()
}

// LoadFromFile merges a YAML config file over the defaults.
func (l *Loader) LoadFromFile(path string) (Config, error) {
	l.v.SetConfigFile(path)
	l.v.SetConfigType("yaml")
	if err := l.v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("error reading config file: %w", err)
	}
	return l.decode()
}

func (l *Loader) decode() (Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at startup.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "pgx":
	default:
		return fmt.Errorf("database.driver must be sqlite3 or pgx, got %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn must not be empty")
	}
	if c.Workflow.CutoffHour < 0 || c.Workflow.CutoffHour > 23 {
		return fmt.Errorf("workflow.cutoff_hour must be within 0-23, got %d", c.Workflow.CutoffHour)
	}
	if c.Workflow.CutoffStep < 0 {
		return fmt.Errorf("workflow.cutoff_step must not be negative, got %d", c.Workflow.CutoffStep)
	}
	return nil
}
