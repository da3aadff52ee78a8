package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Logging   LoggingConfig  `mapstructure:"logging"`
	Run       RunConfig      `mapstructure:"run"`
	Executor  ExecutorConfig `mapstructure:"executor"`
	Languages LanguageConfig `mapstructure:"languages"`
	Server    ServerConfig   `mapstructure:"server"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// RunConfig holds per-run limits
type RunConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// ExecutorConfig holds wasm runtime settings
type ExecutorConfig struct {
	DiskCache        bool   `mapstructure:"disk_cache"`
	CacheDir         string `mapstructure:"cache_dir"`
	MemoryLimitPages uint32 `mapstructure:"memory_limit_pages"`
}

// LanguageConfig holds language-specific settings
type LanguageConfig struct {
	Python         PythonConfig     `mapstructure:"python"`
	JavaScript     JavaScriptConfig `mapstructure:"javascript"`
	QuickJSEnabled bool             `mapstructure:"quickjs_enabled"`
}

// PythonConfig holds Python-specific configuration
type PythonConfig struct {
	WasmPath string `mapstructure:"wasm_path"`
}

// JavaScriptConfig holds settings of the restricted evaluator
type JavaScriptConfig struct {
	MaxCallStackSize int `mapstructure:"max_call_stack_size"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port       int           `mapstructure:"port"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.mode", "development")
	v.SetDefault("logging.level", "warn")
	v.SetDefault("run.timeout", 30*time.Second)
	v.SetDefault("executor.disk_cache", true)
	v.SetDefault("executor.cache_dir", "")
	v.SetDefault("executor.memory_limit_pages", 4096)
	v.SetDefault("languages.python.wasm_path", "python.wasm")
	v.SetDefault("languages.javascript.max_call_stack_size", 4096)
	v.SetDefault("languages.quickjs_enabled", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.session_ttl", 15*time.Minute)
}

// Load reads configuration. An empty path searches ./runpad.yaml and
// ./config/runpad.yaml; a missing file is not an error unless path was
// given explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RUNPAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("runpad")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration with no file and no environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Logging.Mode != "development" && c.Logging.Mode != "production" {
		return fmt.Errorf("invalid logging.mode: %s, must be 'development' or 'production'", c.Logging.Mode)
	}

	if c.Run.Timeout < 0 {
		return fmt.Errorf("run.timeout must not be negative, got: %s", c.Run.Timeout)
	}

	if c.Languages.JavaScript.MaxCallStackSize < 0 {
		return fmt.Errorf("languages.javascript.max_call_stack_size must not be negative, got: %d", c.Languages.JavaScript.MaxCallStackSize)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}

	if c.Server.SessionTTL <= 0 {
		return fmt.Errorf("server.session_ttl must be positive, got: %s", c.Server.SessionTTL)
	}

	return nil
}
