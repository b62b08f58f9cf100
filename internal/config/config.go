package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address string `yaml:"address"`
	} `yaml:"server"`
	Database struct {
		Driver string `yaml:"driver"`
		URL    string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Telegram struct {
		Token          string `yaml:"token"`
		AllowedChatID  int64  `yaml:"allowed_chat_id"`
		PollTimeoutSec int    `yaml:"poll_timeout_sec"`
	} `yaml:"telegram"`
	Billing struct {
		Timezone    string `yaml:"timezone"`
		DueDay      int    `yaml:"due_day"`
		DueHour     int    `yaml:"due_hour"`
		AmountCents int64  `yaml:"amount_cents"`
	} `yaml:"billing"`
	Payments struct {
		WebhookSecret string `yaml:"webhook_secret"`
	} `yaml:"payments"`
	Admin struct {
		PasswordHash string `yaml:"password_hash"`
		JWTSecret    string `yaml:"jwt_secret"`
	} `yaml:"admin"`
	Queue struct {
		TickSec         int `yaml:"tick_sec"`
		BatchSize       int `yaml:"batch_size"`
		MaxAttempts     int `yaml:"max_attempts"`
		RetryBackoffSec int `yaml:"retry_backoff_sec"`
		VisibilitySec   int `yaml:"visibility_sec"`
	} `yaml:"queue"`
}

func LoadConfig() Config {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		log.Fatalf("Failed to unmarshal config data: %v", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	return cfg
}

// applyEnvOverrides lets secrets come from the environment instead of the
// yaml file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("ALLOWED_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Fatalf("Invalid ALLOWED_CHAT_ID: %v", err)
		}
		cfg.Telegram.AllowedChatID = id
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		cfg.Payments.WebhookSecret = v
	}
	if v := os.Getenv("ADMIN_PASSWORD_HASH"); v != "" {
		cfg.Admin.PasswordHash = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Admin.JWTSecret = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":4000"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "pgx"
	}
	if cfg.Billing.Timezone == "" {
		cfg.Billing.Timezone = "Europe/Berlin"
	}
	if cfg.Billing.DueDay == 0 {
		cfg.Billing.DueDay = 5
	}
	if cfg.Billing.DueHour == 0 {
		cfg.Billing.DueHour = 18
	}
	if cfg.Billing.AmountCents == 0 {
		cfg.Billing.AmountCents = 50000
	}
	if cfg.Telegram.PollTimeoutSec == 0 {
		cfg.Telegram.PollTimeoutSec = 30
	}
}
