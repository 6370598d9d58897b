package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the rubric API service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	LogLevel         string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	JWTSecret        string
	StagingTTL       time.Duration
	MaxUploadMB      int
	UploadRateLimit  int
	UploadRateWindow time.Duration
	EventsChannel    string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// BodyLimit returns the request body cap in bytes, leaving headroom for multipart framing.
func (c Config) BodyLimit() int {
	return (c.MaxUploadMB + 1) * 1024 * 1024
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Rubric API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("rubric.staging_ttl", "30m")
	v.SetDefault("rubric.max_upload_mb", 5)
	v.SetDefault("rubric.upload_rate_limit", 10)
	v.SetDefault("rubric.upload_rate_window", "1m")
	v.SetDefault("events.channel", "gema:rubric")

	stagingTTL, err := parseDuration(v, "rubric.staging_ttl", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}

	rateWindow, err := parseDuration(v, "rubric.upload_rate_window", time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		LogLevel:         strings.ToLower(v.GetString("log.level")),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		JWTSecret:        v.GetString("jwt.secret"),
		StagingTTL:       stagingTTL,
		MaxUploadMB:      v.GetInt("rubric.max_upload_mb"),
		UploadRateLimit:  v.GetInt("rubric.upload_rate_limit"),
		UploadRateWindow: rateWindow,
		EventsChannel:    v.GetString("events.channel"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 5
	}

	if cfg.UploadRateLimit <= 0 {
		cfg.UploadRateLimit = 10
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed <= 0 {
		return fallback, nil
	}
	return parsed, nil
}
