// Package config loads the service configuration from the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	State struct {
		Path string `env:"STATE_PATH" envDefault:"data/tuner_state.json"`
	}
	Tuning struct {
		PhaseBudget     int     `env:"TUNE_PHASE_BUDGET" envDefault:"60"`
		NInit           int     `env:"TUNE_N_INIT" envDefault:"5"`
		CandidatePool   int     `env:"TUNE_CANDIDATE_POOL" envDefault:"100"`
		WarmStartMargin float64 `env:"TUNE_WARM_START_MARGIN" envDefault:"0.05"`
		Kernel          string  `env:"TUNE_KERNEL" envDefault:"matern52"`
		Seed            int64   `env:"TUNE_SEED" envDefault:"0"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	return cfg, nil
}
