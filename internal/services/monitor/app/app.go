package app

import (
	"log"
	"time"
)

type Config struct {
	BaseURL     string
	HTTPTimeout time.Duration
	UserAgent   string

	PollInterval time.Duration
	Placeholder  string
	OperatorName string
	AdvisorTerse bool

	BreakerFailures int
	BreakerOpenFor  time.Duration
	BreakerInterval time.Duration

	Logger *log.Logger
}

const (
	defaultPollInterval = 5 * time.Second
	defaultHTTPTimeout  = 10 * time.Second
	defaultUserAgent    = "invernadero-monitor/1.0"
	defaultOperator     = "Android Operario"
)

// withDefaults riempie i campi non impostati; BaseURL resta obbligatorio.
func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = defaultHTTPTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.OperatorName == "" {
		c.OperatorName = defaultOperator
	}
	if c.BreakerFailures < 1 {
		c.BreakerFailures = 5
	}
	if c.BreakerOpenFor <= 0 {
		c.BreakerOpenFor = 10 * time.Second
	}
	return c
}
