// Package config loads client configuration from defaults, an optional
// config file, and IGAIT_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"igait-client/internal/validation"
)

type Config struct {
	// HTTP API
	APIBaseURL     string        `mapstructure:"api_base_url" validate:"required,url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"required"`

	// Assistant WebSocket
	AssistantURL          string        `mapstructure:"assistant_url" validate:"required"`
	AssistantPingInterval time.Duration `mapstructure:"assistant_ping_interval"`
	AssistantPongTimeout  time.Duration `mapstructure:"assistant_pong_timeout"`

	// Realtime store
	StoreBackend string `mapstructure:"store_backend" validate:"oneof=firebase redis"`
	DatabaseURL  string `mapstructure:"database_url" validate:"required,url"`
	DatabaseAuth string `mapstructure:"database_auth"`

	// Firebase auth
	FirebaseAPIKey string `mapstructure:"firebase_api_key"`

	// Redis mirror (development backend)
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	// Upload limits
	MaxVideoSizeMB  int64    `mapstructure:"max_video_size_mb" validate:"min=1"`
	VideoExtensions []string `mapstructure:"video_extensions" validate:"min=1"`

	// Local status server
	ServeAddr string `mapstructure:"serve_addr"`

	// Session cache written by `igait login`
	SessionPath string `mapstructure:"session_path"`
}

// Load reads configuration with viper: defaults first, then an optional
// config.yaml, then environment variables prefixed IGAIT_.
func Load() (*Config, error) {
	viper.SetDefault("api_base_url", "https://api.igaitapp.com/api/v1")
	viper.SetDefault("request_timeout", 60*time.Second)
	viper.SetDefault("assistant_url", "wss://api.igaitapp.com/api/v1/assistant_proxied")
	viper.SetDefault("assistant_ping_interval", 5*time.Second)
	viper.SetDefault("assistant_pong_timeout", 15*time.Second)
	viper.SetDefault("store_backend", "firebase")
	viper.SetDefault("database_url", "https://igait-default-rtdb.firebaseio.com")
	viper.SetDefault("database_auth", "")
	viper.SetDefault("firebase_api_key", "")
	viper.SetDefault("redis_addr", "localhost:6379")
	viper.SetDefault("redis_password", "")
	viper.SetDefault("redis_db", 0)
	viper.SetDefault("max_video_size_mb", 500)
	viper.SetDefault("video_extensions", []string{
		".mp4", ".mov", ".avi", ".mkv", ".webm", ".m4v", ".wmv", ".flv",
	})
	viper.SetDefault("serve_addr", ":8091")
	viper.SetDefault("session_path", "")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/igait/")

	viper.SetEnvPrefix("igait")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No file is fine; defaults and env cover everything.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validation.New(cfg.MaxVideoSizeMB, cfg.VideoExtensions).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// UploadURL returns the full-form submission endpoint.
func (c *Config) UploadURL() string {
	return c.APIBaseURL + "/upload"
}

// ContributeURL returns the research submission endpoint.
func (c *Config) ContributeURL() string {
	return c.APIBaseURL + "/contribute"
}
