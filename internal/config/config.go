package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	DatabaseURL       string
	RedisURL          string
	NatsURL           string
	SessionCookieName string
	SessionKeyPrefix  string
	ChatHistoryLimit  int
	ChatLinkBase      string
	PushDebounceDelay time.Duration
	VapidPublicKey    string
	VapidPrivateKey   string
	VapidSubject      string
	FanoutChannelBase string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CHESS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Chess Master API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("session.cookie_name", "connect.sid")
	v.SetDefault("session.key_prefix", "myapp:")
	v.SetDefault("chat.history_limit", 100)
	v.SetDefault("chat.link_base", "http://localhost:3000")
	v.SetDefault("push.debounce_delay", "8s")
	v.SetDefault("push.vapid_subject", "mailto:admin@chesswithmasters.com")
	v.SetDefault("fanout.channel_base", "chess-mater")

	delayString := v.GetString("push.debounce_delay")
	if delayString == "" {
		delayString = "8s"
	}

	delay, err := time.ParseDuration(delayString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid push debounce delay: %w", err)
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseURL:       v.GetString("database.url"),
		RedisURL:          v.GetString("redis.url"),
		NatsURL:           v.GetString("nats.url"),
		SessionCookieName: v.GetString("session.cookie_name"),
		SessionKeyPrefix:  v.GetString("session.key_prefix"),
		ChatHistoryLimit:  v.GetInt("chat.history_limit"),
		ChatLinkBase:      strings.TrimRight(v.GetString("chat.link_base"), "/"),
		PushDebounceDelay: delay,
		VapidPublicKey:    v.GetString("push.vapid_public_key"),
		VapidPrivateKey:   v.GetString("push.vapid_private_key"),
		VapidSubject:      v.GetString("push.vapid_subject"),
		FanoutChannelBase: v.GetString("fanout.channel_base"),
	}

	if cfg.ChatHistoryLimit <= 0 {
		cfg.ChatHistoryLimit = 100
	}

	if cfg.PushDebounceDelay <= 0 {
		cfg.PushDebounceDelay = 8 * time.Second
	}

	return cfg, nil
}
