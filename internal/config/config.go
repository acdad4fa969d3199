package config

import (
	"fmt"
	"time"

	coreconfig "github.com/go-core-fx/config"
)

type Config struct {
	CoreURL       string        `koanf:"core_url"`
	TerminalToken string        `koanf:"terminal_token"`
	PaymentURL    string        `koanf:"payment_url"`
	PaymentToken  string        `koanf:"payment_token"`
	Timeout       time.Duration `koanf:"timeout"`
	LogFile       string        `koanf:"log_file"`
	Debug         bool          `koanf:"debug"`
}

func Default() Config {
	return Config{
		Timeout: 20 * time.Second,
		LogFile: "./eventpos.log",
		Debug:   false,
	}
}

func New() (Config, error) {
	cfg := Default()

	if err := coreconfig.Load(&cfg); err != nil {
		return Config{}, fmt.Errorf("loading config: %w", err)
	}

	return cfg, nil
}
