package config

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// DefaultUserAgent is the default User-Agent string sent with all HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:147.0) Gecko/20100101 Firefox/147.0"

type Config struct {
	// AlternateLanguage is the audio locale of the original-language
	// version used as the authoritative caption and timing source.
	AlternateLanguage string `mapstructure:"alternate_language"`

	// EmptyScriptThreshold is the caption byte length at or below which a
	// present dub caption is treated as functionally absent (credits or
	// signage-only scripts) and replaced.
	EmptyScriptThreshold int `mapstructure:"empty_script_threshold"`

	// OffsetValidationBoundMs is the maximum allowed distance in
	// milliseconds between the text-matched offset and the duration-diff
	// offset before the text offset is discarded.
	OffsetValidationBoundMs int64 `mapstructure:"offset_validation_bound_ms"`

	// MinMatchLength is the minimum normalized dialogue length considered
	// unambiguous enough for cross-script matching.
	MinMatchLength int `mapstructure:"min_match_length"`

	// RegistryCapacity bounds the pending-rewrite registry; the
	// oldest-registered entry is evicted when full.
	RegistryCapacity int `mapstructure:"registry_capacity"`

	PlatformBaseURL       string `mapstructure:"platform_base_url"`
	ProxyConnectionString string `mapstructure:"proxy_connection_string"`
	ClientTimeout         string `mapstructure:"client_timeout"` // Go duration string like "30s", "1h", etc.
	UserAgent             string `mapstructure:"user_agent"`
	LogLevel              string `mapstructure:"log_level"`

	Server struct {
		Port    int    `mapstructure:"port"`
		Address string `mapstructure:"address"`
	} `mapstructure:"server"`

	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`

	Cache struct {
		Provider      string `mapstructure:"provider"` // "memory" or "redis"
		Size          int    `mapstructure:"size"`
		TTL           string `mapstructure:"ttl"` // Go duration string like "1h", "24h", etc.
		RedisAddress  string `mapstructure:"redis_address"`
		RedisPassword string `mapstructure:"redis_password"`
		RedisDB       int    `mapstructure:"redis_db"`
	} `mapstructure:"cache"`
}

var (
	globalConfig *Config
	logger       zerolog.Logger
)

func init() {
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     os.Stdout,
		NoColor: false,
	}).With().Timestamp().Logger()

	config, err := LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	level := zerolog.InfoLevel // default
	if config.LogLevel != "" {
		if parsedLevel, err := zerolog.ParseLevel(config.LogLevel); err == nil {
			level = parsedLevel
		} else {
			logger.Warn().Str("invalid_level", config.LogLevel).Msg("Invalid log level, using default 'info'")
		}
	}

	zerolog.SetGlobalLevel(level)
	logger = logger.Level(level)

	globalConfig = config
	logger.Info().Str("level", level.String()).Msg("Configuration loaded")
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variable support
	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = viper.BindEnv("log_level", "LOG_LEVEL")

	viper.SetDefault("alternate_language", "ja-JP")
	viper.SetDefault("empty_script_threshold", 7500)
	viper.SetDefault("offset_validation_bound_ms", 60000)
	viper.SetDefault("min_match_length", 6)
	viper.SetDefault("registry_capacity", 50)
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.address", "localhost")
	viper.SetDefault("metrics.port", 9090)
	viper.SetDefault("cache.provider", "memory")
	viper.SetDefault("cache.size", 100)
	viper.SetDefault("cache.ttl", "1h")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	return &config, nil
}

func GetConfig() *Config {
	return globalConfig
}

func GetUserAgent() string {
	if globalConfig != nil && globalConfig.UserAgent != "" {
		return globalConfig.UserAgent
	}

	return DefaultUserAgent
}

func GetLogger() zerolog.Logger {
	return logger
}
