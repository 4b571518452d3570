// Package config loads service settings from a YAML file, KPX_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/duynguyendang/kpextract/pkg/knowledge"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// KPX_EXTRACTOR_MODEL for extractor.model.
const EnvPrefix = "KPX"

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Extractor knowledge.Config `mapstructure:"extractor"`
	Guard     GuardConfig      `mapstructure:"guard"`
	Cache     CacheConfig      `mapstructure:"cache"`
	Log       LogConfig        `mapstructure:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// Mode is the gin mode: "release", "debug" or "test".
	Mode string `mapstructure:"mode"`
}

// GuardConfig controls how the shared extractor is called.
type GuardConfig struct {
	// Serialize runs one extraction at a time.
	Serialize bool `mapstructure:"serialize"`
	// Timeout bounds one extraction call; zero disables it.
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig controls result caching. Size zero disables the cache.
type CacheConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `mapstructure:"level"`
	// File enables rotating file output in addition to stderr.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	// Console forces human-readable output instead of JSON.
	Console bool `mapstructure:"console"`
}

// DefaultConfig returns a default configuration. The model location has no
// default and must be supplied.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr: "0.0.0.0:5000",
			Mode: "release",
		},
		Extractor: knowledge.Config{
			Backend:          knowledge.BackendOpenAI,
			MaxDocumentChars: 20000,
		},
		Guard: GuardConfig{
			Serialize: true,
			Timeout:   5 * time.Minute,
		},
		Cache: CacheConfig{
			Size: 128,
			TTL:  10 * time.Minute,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// New returns a viper instance primed with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("extractor.backend", d.Extractor.Backend)
	v.SetDefault("extractor.model", "")
	v.SetDefault("extractor.api_key", "")
	v.SetDefault("extractor.base_url", "")
	// no default: unset means the prompt's temperature, and zero is a valid setting
	_ = v.BindEnv("extractor.temperature")
	v.SetDefault("extractor.max_tokens", d.Extractor.MaxTokens)
	v.SetDefault("extractor.prompt_file", "")
	v.SetDefault("extractor.max_document_chars", d.Extractor.MaxDocumentChars)
	v.SetDefault("guard.serialize", d.Guard.Serialize)
	v.SetDefault("guard.timeout", d.Guard.Timeout)
	v.SetDefault("cache.size", d.Cache.Size)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.console", false)
	return v
}

// Load reads .env (if present), then configFile (optional), and decodes the
// result. Flags bound to v before Load take precedence over both.
func Load(v *viper.Viper, configFile string) (Config, error) {
	_ = godotenv.Load()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings needed before the extractor can be built.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Extractor.Model) == "" {
		errs = append(errs, fmt.Errorf("extractor.model (model location) is required; set it in the config file or %s_EXTRACTOR_MODEL", EnvPrefix))
	}
	switch strings.ToLower(c.Extractor.Backend) {
	case knowledge.BackendGemini, knowledge.BackendOpenAI, knowledge.BackendAnthropic:
	default:
		errs = append(errs, fmt.Errorf("extractor.backend %q is not one of gemini, openai, anthropic", c.Extractor.Backend))
	}
	switch c.Server.Mode {
	case "release", "debug", "test":
	default:
		errs = append(errs, fmt.Errorf("server.mode %q is not one of release, debug, test", c.Server.Mode))
	}
	if c.Guard.Timeout < 0 {
		errs = append(errs, errors.New("guard.timeout must not be negative"))
	}
	if c.Cache.Size < 0 {
		errs = append(errs, errors.New("cache.size must not be negative"))
	}
	return errors.Join(errs...)
}
