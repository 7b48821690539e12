package simulateloan

import (
	"fmt"
	"time"

	"sales-orchestrator/internal/common/config"
)

type Config struct {
	Enabled            bool
	MaxJobsActive      int
	Timeout            time.Duration
	DefaultTermMonths  int
	DefaultCreditScore int
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:            true,
		MaxJobsActive:      10,
		Timeout:            5 * time.Second,
		DefaultTermMonths:  72,
		DefaultCreditScore: 720,
	}
}

func ConfigFromApp(app *config.Config) *Config {
	cfg := DefaultConfig()
	if app == nil {
		return cfg
	}
	w := config.GetWorkerConfig(app, TaskType)
	cfg.Enabled = w.Enabled
	if w.MaxJobsActive > 0 {
		cfg.MaxJobsActive = w.MaxJobsActive
	}
	if w.Timeout > 0 {
		cfg.Timeout = config.GetDuration(w.Timeout)
	}
	if app.Orchestrator.DefaultTermMonths > 0 {
		cfg.DefaultTermMonths = app.Orchestrator.DefaultTermMonths
	}
	if app.Orchestrator.DefaultCreditScore > 0 {
		cfg.DefaultCreditScore = app.Orchestrator.DefaultCreditScore
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.DefaultTermMonths <= 0 {
		return fmt.Errorf("default_term_months must be positive")
	}
	return nil
}
