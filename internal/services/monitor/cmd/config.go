package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendRemote = "remote"
	BackendOpenAI = "openai"
)

type Config struct {
	BaseURL       string
	PollInterval  time.Duration
	HTTPTimeoutMs int
	Placeholder   string
	OperatorName  string
	AdvisorTerse  bool

	AdvisorBackend string // remote | openai
	OpenAIKey      string
	OpenAIModel    string
	OpenAIBaseURL  string

	CBFails      int
	CBOpenMs     int
	CBIntervalMs int

	// Mirror MQTT (disabilitato se MQTTHost è vuoto)
	MQTTHost     string
	MQTTPort     int
	MQTTUser     string
	MQTTPassword string
	MQTTClientID string
	MQTTPrefix   string
	MQTTDedupS   int

	OpsPort string // vuoto: niente /healthz /readyz /metrics
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getenvBool(k string, d bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return d
}

// getenvDuration accetta "5s", "1m" oppure secondi interi ("5").
func getenvDuration(k string, d time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}

// loadConfig reads the environment, then lets command-line flags override it.
func loadConfig(args []string) (Config, error) {
	cfg := Config{
		BaseURL:       getenv("BASE_URL", ""),
		PollInterval:  getenvDuration("POLL_INTERVAL", 5*time.Second),
		HTTPTimeoutMs: getenvInt("HTTP_TIMEOUT_MS", 10000),
		Placeholder:   getenv("PLACEHOLDER", "--"),
		OperatorName:  getenv("OPERATOR_NAME", "Android Operario"),
		AdvisorTerse:  getenvBool("ADVISOR_TERSE", true),

		AdvisorBackend: getenv("ADVISOR_BACKEND", BackendRemote),
		OpenAIKey:      getenv("OPENAI_API_KEY", ""),
		OpenAIModel:    getenv("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL:  getenv("OPENAI_BASE_URL", ""),

		CBFails:      getenvInt("CB_FAILS", 5),
		CBOpenMs:     getenvInt("CB_OPEN_MS", 10000),
		CBIntervalMs: getenvInt("CB_INTERVAL_MS", 0),

		MQTTHost:     getenv("MQTT_HOST", ""),
		MQTTPort:     getenvInt("MQTT_PORT", 1883),
		MQTTUser:     getenv("MQTT_USER", ""),
		MQTTPassword: getenv("MQTT_PASSWORD", ""),
		MQTTClientID: getenv("MQTT_CLIENT_ID", "invernadero-monitor"),
		MQTTPrefix:   getenv("MQTT_PREFIX", "invernadero"),
		MQTTDedupS:   getenvInt("MQTT_DEDUP_S", 300),

		OpsPort: getenv("OPS_PORT", "9100"),
	}

	fs := flag.NewFlagSet("monitor", flag.ContinueOnError)
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "backend base URL, e.g. http://192.168.1.50:5000")
	fs.DurationVar(&cfg.PollInterval, "interval", cfg.PollInterval, "background poll interval")
	fs.StringVar(&cfg.AdvisorBackend, "advisor", cfg.AdvisorBackend, "advisor backend: remote | openai")
	fs.StringVar(&cfg.MQTTHost, "mqtt-host", cfg.MQTTHost, "MQTT broker host for the mirror (empty: disabled)")
	fs.StringVar(&cfg.OpsPort, "ops-port", cfg.OpsPort, "port for /healthz /readyz /metrics (empty: disabled)")
	fs.StringVar(&cfg.OperatorName, "operator", cfg.OperatorName, "author name sent with reports")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(cfg.BaseURL) == "" {
		return Config{}, errors.New("BASE_URL (or -base-url) is required")
	}
	if cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("invalid poll interval %s", cfg.PollInterval)
	}
	switch cfg.AdvisorBackend {
	case BackendRemote:
	case BackendOpenAI:
		if cfg.OpenAIKey == "" {
			return Config{}, errors.New("ADVISOR_BACKEND=openai needs OPENAI_API_KEY")
		}
	default:
		return Config{}, fmt.Errorf("unknown advisor backend %q", cfg.AdvisorBackend)
	}
	return cfg, nil
}
