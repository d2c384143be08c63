package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHoldMinutes        = 10
	DefaultSeatCapacity       = 7
	DefaultReaperInterval     = 30 * time.Second
	DefaultStreamPollInterval = 5 * time.Second
)

type Env struct {
	AppAddr string `yaml:"app_addr"`
	GinMode string `yaml:"gin_mode"`
	DBDSN   string `yaml:"db_dsn"`

	HoldMinutes        int           `yaml:"hold_minutes"`
	SeatCapacity       int           `yaml:"seat_capacity"`
	ReaperInterval     time.Duration `yaml:"reaper_interval"`
	StreamPollInterval time.Duration `yaml:"stream_poll_interval"`

	JWTSecret string `yaml:"jwt_secret"`

	PaymentBaseURL   string `yaml:"payment_base_url"`
	PaymentSecretKey string `yaml:"payment_secret_key"`

	CharterDailyRate int64    `yaml:"charter_daily_rate"`
	AllowedOrigins   []string `yaml:"cors_allowed_origins"`
}

// HoldDuration is the lifetime of a fresh hold set.
func (e Env) HoldDuration() time.Duration {
	return time.Duration(e.HoldMinutes) * time.Minute
}

// LoadEnv reads configuration from the environment only.
func LoadEnv() Env {
	env, _ := Load("")
	return env
}

// Load reads an optional YAML file and then applies environment overrides.
// An empty path falls back to CONFIG_FILE; no file at all is fine.
func Load(path string) (Env, error) {
	env := Env{}
	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	}
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return env, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &env); err != nil {
			return env, fmt.Errorf("parse config file: %w", err)
		}
	}

	overrideString(&env.AppAddr, "APP_ADDR")
	overrideString(&env.GinMode, "GIN_MODE")
	overrideString(&env.DBDSN, "DB_DSN")
	overrideString(&env.JWTSecret, "JWT_SECRET")
	overrideString(&env.PaymentBaseURL, "PAYMENT_BASE_URL")
	overrideString(&env.PaymentSecretKey, "PAYMENT_SECRET_KEY")

	if v, ok := lookupInt("HOLD_MINUTES"); ok {
		env.HoldMinutes = v
	}
	if v, ok := lookupInt("SEAT_CAPACITY"); ok {
		env.SeatCapacity = v
	}
	if v, ok := lookupInt("CHARTER_DAILY_RATE"); ok {
		env.CharterDailyRate = int64(v)
	}
	if v, ok := lookupDuration("REAPER_INTERVAL"); ok {
		env.ReaperInterval = v
	}
	if v, ok := lookupDuration("STREAM_POLL_INTERVAL"); ok {
		env.StreamPollInterval = v
	}
	if raw := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); raw != "" {
		env.AllowedOrigins = nil
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				env.AllowedOrigins = append(env.AllowedOrigins, o)
			}
		}
	}

	env.applyDefaults()
	return env, nil
}

func (e *Env) applyDefaults() {
	if e.AppAddr == "" {
		e.AppAddr = ":8080"
	}
	if e.DBDSN == "" {
		e.DBDSN = "root:@tcp(127.0.0.1:3306)/shuttlebook?parseTime=true&loc=UTC&charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s"
	}
	if e.HoldMinutes <= 0 {
		e.HoldMinutes = DefaultHoldMinutes
	}
	if e.SeatCapacity <= 0 {
		e.SeatCapacity = DefaultSeatCapacity
	}
	if e.ReaperInterval <= 0 {
		e.ReaperInterval = DefaultReaperInterval
	}
	if e.StreamPollInterval <= 0 {
		e.StreamPollInterval = DefaultStreamPollInterval
	}
	if e.JWTSecret == "" {
		e.JWTSecret = "super-secret-key-change-me"
	}
	if e.PaymentBaseURL == "" {
		e.PaymentBaseURL = "https://api.paystack.co"
	}
	if e.CharterDailyRate <= 0 {
		e.CharterDailyRate = 150_000
	}
	if len(e.AllowedOrigins) == 0 {
		e.AllowedOrigins = []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		}
	}
}

func overrideString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func lookupInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func lookupDuration(key string) (time.Duration, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}
