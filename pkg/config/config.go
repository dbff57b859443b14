package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the application configuration
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Render  RenderConfig  `mapstructure:"render"`
	Parser  ParserConfig  `mapstructure:"parser"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Ollama  OllamaConfig  `mapstructure:"ollama"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	LogFile  string `mapstructure:"log_file"`
	Preserve bool   `mapstructure:"preserve"`
	Level    string `mapstructure:"level"`
}

// RenderConfig holds terminal rendering configuration
type RenderConfig struct {
	Width        int    `mapstructure:"width"`
	ShowThinking bool   `mapstructure:"show_thinking"`
	CodeStyle    string `mapstructure:"code_style"`
	Color        bool   `mapstructure:"color"`
}

// ParserConfig holds parsing pipeline configuration
type ParserConfig struct {
	ThinkingTags        []string `mapstructure:"thinking_tags"`
	CitationHeaders     []string `mapstructure:"citation_headers"`
	ExecutableLanguages []string `mapstructure:"executable_languages"`
	Incremental         bool     `mapstructure:"incremental"`
}

// StreamConfig holds replay configuration for the streaming session
type StreamConfig struct {
	ChunkSize int           `mapstructure:"chunk_size"`
	Delay     time.Duration `mapstructure:"-"`
	DelayStr  string        `mapstructure:"delay"` // For parsing string duration
}

// OllamaConfig holds the model endpoint used by the ask command
type OllamaConfig struct {
	URL          string        `mapstructure:"url"`
	DefaultModel string        `mapstructure:"default_model"`
	Timeout      time.Duration `mapstructure:"-"`
	TimeoutStr   string        `mapstructure:"timeout"`
}

var cfg *Config

// Get returns the global config instance
func Get() *Config {
	if cfg == nil {
		panic("config not initialized")
	}
	return cfg
}

// IsLoaded reports whether Load has populated the global config
func IsLoaded() bool {
	return cfg != nil
}

// Load loads configuration from file and environment
func Load(cfgFile string) (*Config, error) {
	setDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome == "" {
			xdgConfigHome = filepath.Join(home, ".config")
		}

		viper.AddConfigPath("./.markstream")
		viper.AddConfigPath(filepath.Join(xdgConfigHome, "markstream"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("settings")
	}

	viper.SetEnvPrefix("MARKSTREAM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindEnvironmentVariables(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		// A missing settings file is fine, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	loaded, err := unmarshal(viper.GetViper())
	if err != nil {
		return nil, err
	}

	cfg = loaded
	return cfg, nil
}

// Default returns a configuration built only from defaults, without touching the
// global viper instance
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	c, err := unmarshal(v)
	if err != nil {
		// defaults are static; failing here is a programming error
		panic(err)
	}
	return c
}

// Set replaces the global config instance (used by tests and embedders)
func Set(c *Config) {
	cfg = c
}

func unmarshal(v *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := processDurations(c); err != nil {
		return nil, fmt.Errorf("failed to process durations: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// setDefaults sets all default configuration values
func setDefaults(v *viper.Viper) {
	// Logging defaults
	v.SetDefault("logging.log_file", "")
	v.SetDefault("logging.preserve", false)
	v.SetDefault("logging.level", "info")

	// Render defaults
	v.SetDefault("render.width", 100)
	v.SetDefault("render.show_thinking", true)
	v.SetDefault("render.code_style", "monokai")
	v.SetDefault("render.color", true)

	// Parser defaults
	v.SetDefault("parser.thinking_tags", []string{"think", "thinking"})
	v.SetDefault("parser.citation_headers", []string{"sources", "references", "citations"})
	v.SetDefault("parser.executable_languages", []string{"python", "javascript", "bash"})
	v.SetDefault("parser.incremental", false)

	// Stream replay defaults
	v.SetDefault("stream.chunk_size", 4)
	v.SetDefault("stream.delay", "15ms")

	// Ollama defaults
	v.SetDefault("ollama.url", "http://localhost:11434")
	v.SetDefault("ollama.default_model", "qwen3:latest")
	v.SetDefault("ollama.timeout", "90s")
}

// bindEnvironmentVariables binds specific environment variables to Viper keys
func bindEnvironmentVariables(v *viper.Viper) {
	v.BindEnv("logging.level", "MARKSTREAM_LOG_LEVEL")
	v.BindEnv("logging.log_file", "MARKSTREAM_LOG_FILE")
	v.BindEnv("render.width", "MARKSTREAM_WIDTH")
	v.BindEnv("render.show_thinking", "MARKSTREAM_SHOW_THINKING")
	v.BindEnv("render.color", "MARKSTREAM_COLOR")
	v.BindEnv("parser.incremental", "MARKSTREAM_INCREMENTAL")
}

// processDurations converts string durations to time.Duration
func processDurations(c *Config) error {
	if c.Stream.DelayStr != "" {
		d, err := time.ParseDuration(c.Stream.DelayStr)
		if err != nil {
			return fmt.Errorf("invalid stream.delay: %w", err)
		}
		c.Stream.Delay = d
	}
	if c.Ollama.TimeoutStr != "" {
		d, err := time.ParseDuration(c.Ollama.TimeoutStr)
		if err != nil {
			return fmt.Errorf("invalid ollama.timeout: %w", err)
		}
		c.Ollama.Timeout = d
	}
	return nil
}

// Validate checks value ranges that viper cannot express
func (c *Config) Validate() error {
	if c.Render.Width < 20 {
		return fmt.Errorf("%w: render.width must be at least 20, got %d", ErrInvalidConfig, c.Render.Width)
	}
	if c.Stream.ChunkSize <= 0 {
		return fmt.Errorf("%w: stream.chunk_size must be positive, got %d", ErrInvalidConfig, c.Stream.ChunkSize)
	}
	if c.Stream.Delay < 0 {
		return fmt.Errorf("%w: stream.delay must not be negative", ErrInvalidConfig)
	}
	for _, tag := range c.Parser.ThinkingTags {
		if strings.TrimSpace(tag) == "" || strings.ContainsAny(tag, "<>/ ") {
			return fmt.Errorf("%w: parser.thinking_tags contains invalid tag %q", ErrInvalidConfig, tag)
		}
	}
	return nil
}

// GetConfigFileUsed returns the path to the config file being used
func GetConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// InitializeDefaults writes a default settings file to path if none exists
func InitializeDefaults(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.SafeWriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write default configuration: %w", err)
	}

	return nil
}
