// Package config resolves runtime configuration from defaults, an optional
// config.yml, a .env file and FORYOU_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"foryou/internal/locale"
	"foryou/internal/logger"
)

const envPrefix = "FORYOU"

// Config stores runtime configuration for the page server.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  logger.Config  `mapstructure:"logging"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Nav      NavConfig      `mapstructure:"nav"`
	Speech   SpeechConfig   `mapstructure:"speech"`
	Deepgram DeepgramConfig `mapstructure:"deepgram"`
	Audio    AudioConfig    `mapstructure:"audio"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port" validate:"min=0,max=65535"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" validate:"min=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type FeedConfig struct {
	UpdatesURL  string        `mapstructure:"updates_url" validate:"omitempty,url"`
	UpdatesFile string        `mapstructure:"updates_file"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"min=0"`
}

type NavConfig struct {
	File string `mapstructure:"file"`
}

type SpeechConfig struct {
	// Locale is the platform locale; empty means derive it from LANG.
	Locale         string `mapstructure:"locale"`
	FallbackLocale string `mapstructure:"fallback_locale" validate:"required"`
	InterimResults bool   `mapstructure:"interim_results"`
}

type DeepgramConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	APIBaseURL    string        `mapstructure:"api_base_url" validate:"required,url"`
	Model         string        `mapstructure:"model" validate:"required"`
	SmartFormat   bool          `mapstructure:"smart_format"`
	EndpointingMS int           `mapstructure:"endpointing_ms" validate:"min=0"`
	ChunkSize     int           `mapstructure:"chunk_size" validate:"min=256"`
	DrainTimeout  time.Duration `mapstructure:"drain_timeout" validate:"min=0"`
}

type AudioConfig struct {
	RecorderCommand string `mapstructure:"recorder_command" validate:"required"`
	InputFormat     string `mapstructure:"input_format"`
	InputDevice     string `mapstructure:"input_device"`
	SampleRate      int    `mapstructure:"sample_rate" validate:"gt=0"`
	Channels        int    `mapstructure:"channels" validate:"gt=0"`
}

type loaderOptions struct {
	configFile string
	envFile    string
}

// Option customizes Load.
type Option func(*loaderOptions)

// WithConfigFile reads an explicit YAML file; a missing file is an error.
func WithConfigFile(path string) Option {
	return func(o *loaderOptions) { o.configFile = path }
}

// WithEnvFile loads an explicit .env file instead of ./.env.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// Load resolves configuration. Environment variables override the file, and
// values already present in the environment win over .env entries.
func Load(opts ...Option) (Config, error) {
	o := loaderOptions{envFile: ".env"}
	for _, opt := range opts {
		opt(&o)
	}

	if err := loadEnvFile(o.envFile); err != nil {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("deepgram.api_key", envPrefix+"_DEEPGRAM_API_KEY", "DEEPGRAM_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind deepgram api key: %w", err)
	}

	if o.configFile != "" {
		v.SetConfigFile(o.configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", o.configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Deepgram.APIKey = strings.TrimSpace(cfg.Deepgram.APIKey)
	cfg.Speech.Locale = resolvePlatformLocale(cfg.Speech.Locale)
	cfg.Speech.FallbackLocale = locale.Normalize(cfg.Speech.FallbackLocale)
	cfg.Logging.ApplyDefaults()

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_header_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.no_color", false)
	v.SetDefault("logging.caller", false)

	v.SetDefault("feed.updates_url", "")
	v.SetDefault("feed.updates_file", "")
	v.SetDefault("feed.timeout", 3*time.Second)
	v.SetDefault("nav.file", "")

	v.SetDefault("speech.locale", "")
	v.SetDefault("speech.fallback_locale", locale.DefaultFallback)
	v.SetDefault("speech.interim_results", true)

	v.SetDefault("deepgram.api_key", "")
	v.SetDefault("deepgram.api_base_url", "https://api.deepgram.com/v1")
	v.SetDefault("deepgram.model", "nova-2")
	v.SetDefault("deepgram.smart_format", true)
	v.SetDefault("deepgram.endpointing_ms", 0)
	v.SetDefault("deepgram.chunk_size", 4096)
	v.SetDefault("deepgram.drain_timeout", 4*time.Second)

	v.SetDefault("audio.recorder_command", "ffmpeg")
	v.SetDefault("audio.input_format", "pulse")
	v.SetDefault("audio.input_device", "default")
	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.channels", 1)
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// resolvePlatformLocale prefers the configured locale, then LANG, then en-US.
func resolvePlatformLocale(configured string) string {
	if configured = strings.TrimSpace(configured); configured != "" {
		return locale.Normalize(configured)
	}
	if fromEnv := locale.FromEnvironment(os.Getenv("LANG")); fromEnv != "" {
		return locale.Normalize(fromEnv)
	}
	return locale.DefaultFallback
}
