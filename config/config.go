package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string           `mapstructure:"port"`
	Environment    string           `mapstructure:"environment"`
	AllowedOrigins []string         `mapstructure:"-"`
	JWTSecret      string           `mapstructure:"jwt_secret"`
	TokenTTL       time.Duration    `mapstructure:"token_ttl"`
	AdminKey       string           `mapstructure:"admin_key"`
	Moderation     ModerationConfig `mapstructure:"moderation"`
	Redis          RedisConfig      `mapstructure:"redis"`
	Log            LogConfig        `mapstructure:"log"`
}

type ModerationConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	Timeout         time.Duration `mapstructure:"timeout"`
	StrikeThreshold int           `mapstructure:"strike_threshold"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads config/config.yaml when present and lets environment variables
// override every key (moderation.timeout -> MODERATION_TIMEOUT).
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Parse allowed origins (comma-separated)
	cfg.AllowedOrigins = splitOrigins(v.GetString("allowed_origins"))

	if cfg.Moderation.StrikeThreshold < 1 {
		return nil, fmt.Errorf("moderation.strike_threshold must be positive, got %d", cfg.Moderation.StrikeThreshold)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "3000")
	v.SetDefault("environment", "development")
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("jwt_secret", "devsecret")
	v.SetDefault("token_ttl", "168h")
	v.SetDefault("admin_key", "adminkey")
	v.SetDefault("moderation.endpoint", "https://nsfw-demo.onrender.com/api/moderate")
	v.SetDefault("moderation.timeout", "10s")
	v.SetDefault("moderation.strike_threshold", 3)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
