// Package config loads bntran settings from defaults, an optional YAML file,
// BNTRAN_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/valpere/bntran/internal/translator"
)

const (
	EnvPrefix             = "BNTRAN"
	ConfigName            = ".bntran"
	BackendJSON           = "json"
	BackendSQLite         = "sqlite"
	DefaultDictionaryPath = "custom_translations.json"
)

type Config struct {
	// Services lists providers in fallback order.
	Services   []string         `mapstructure:"services"`
	Log        LogConfig        `mapstructure:"log"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Dictionary DictionaryConfig `mapstructure:"dictionary"`
	Output     OutputConfig     `mapstructure:"output"`

	Google     translator.ServiceConfig `mapstructure:"google"`
	OpenAI     translator.ServiceConfig `mapstructure:"openai"`
	OpenRouter translator.ServiceConfig `mapstructure:"openrouter"`
	Systran    translator.ServiceConfig `mapstructure:"systran"`
	Ollama     translator.ServiceConfig `mapstructure:"ollama"`
	MyMemory   MyMemoryConfig           `mapstructure:"mymemory"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type EngineConfig struct {
	Concurrency      int           `mapstructure:"concurrency"`
	BatchSize        int           `mapstructure:"batch_size"`
	StartOffset      int           `mapstructure:"start_offset"`
	Timeout          time.Duration `mapstructure:"timeout"`
	RateLimitDelay   time.Duration `mapstructure:"rate_limit_delay"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
	// Validate rejects provider output that is not Bengali script.
	Validate bool `mapstructure:"validate"`
}

type DictionaryConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	// DBPath is the SQLite translation memory. Session history is kept
	// there whichever backend holds the dictionary.
	DBPath   string `mapstructure:"db_path"`
	AutoSave bool   `mapstructure:"auto_save"`
	History  bool   `mapstructure:"history"`
}

type OutputConfig struct {
	BOM bool `mapstructure:"bom"`
}

type MyMemoryConfig struct {
	Email string `mapstructure:"email"`
}

// Defaults returns every setting with its default value, keyed the way the
// YAML file and viper see them.
func Defaults() map[string]any {
	return map[string]any{
		"services":                 []string{"googleweb", "mymemory"},
		"log.level":                "info",
		"log.format":               "text",
		"engine.concurrency":       0,
		"engine.batch_size":        0,
		"engine.start_offset":      0,
		"engine.timeout":           20 * time.Second,
		"engine.rate_limit_delay":  500 * time.Millisecond,
		"engine.progress_interval": 200 * time.Millisecond,
		"engine.validate":          false,
		"dictionary.backend":       BackendJSON,
		"dictionary.path":          DefaultDictionaryPath,
		"dictionary.db_path":       "./data/bntran.db",
		"dictionary.auto_save":     true,
		"dictionary.history":       true,
		"output.bom":               true,
		"google.credentials":       "",
		"google.api_key":           "",
		"google.project_id":        "",
		"openai.api_key":           "",
		"openai.base_url":          "",
		"openai.model":             "",
		"openrouter.api_key":       "",
		"openrouter.base_url":      "",
		"openrouter.model":         "",
		"systran.api_key":          "",
		"ollama.base_url":          "http://localhost:11434",
		"ollama.model":             translator.DefaultOllamaModel,
		"mymemory.email":           "",
	}
}

// New returns a viper instance carrying the defaults and the environment
// binding. Every known key can be overridden as BNTRAN_<KEY>, with dots
// replaced by underscores (BNTRAN_ENGINE_TIMEOUT=5s).
func New() *viper.Viper {
	v := viper.New()
	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds viper keys to flags of fs. bindings maps key to flag name.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		flag := fs.Lookup(name)
		if flag == nil {
			return fmt.Errorf("bind %s: no flag named %q", key, name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// Load reads configFile, or .bntran.yaml from the home or working directory
// when configFile is empty, and decodes the merged settings. A missing
// default file is not an error; a missing explicit one is. The second
// return value is the file actually used, if any.
func Load(v *viper.Viper, configFile string) (*Config, string, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(ConfigName)
	}

	used := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		used = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, used, nil
}

func (c *Config) Validate() error {
	switch c.Dictionary.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("unknown dictionary backend %q (want %s or %s)", c.Dictionary.Backend, BackendJSON, BackendSQLite)
	}
	if len(c.Services) == 0 {
		return errors.New("no translation services configured")
	}
	if c.Engine.Concurrency < 0 || c.Engine.BatchSize < 0 {
		return errors.New("concurrency and batch size must not be negative")
	}
	return nil
}
