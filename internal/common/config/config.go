package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Telegram struct {
		BotToken  string  `env:"BOT_TOKEN,required"`
		ChannelID int64   `env:"CHANNEL_ID,required"`
		AdminIDs  []int64 `env:"ADMIN_IDS" envSeparator:","`
	}

	YooMoney struct {
		AccessToken string `env:"YOOMONEY_ACCESS_TOKEN,required"`
		Receiver    string `env:"YOOMONEY_RECEIVER,required"`
	}

	Database struct {
		Path string `env:"DATABASE_PATH" envDefault:"bot.db"`
	}

	// Sweep is the single store-driven reconciliation interval. Each pass
	// is idempotent and safe to overlap, so the value only tunes latency.
	Sweep struct {
		Interval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
	}

	Server struct {
		Addr string `env:"HTTP_ADDR" envDefault:":8080"`
	}
}

func Load() (*Config, error) {
	// Missing .env is fine; in production the variables are set directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	return cfg, nil
}

// IsAdmin reports whether the given Telegram user ID is in the
// configured administrator list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Telegram.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
