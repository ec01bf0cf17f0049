package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envStacksDir       = "SY_STACKS_DIR"
	envDefinitionFile  = "SY_DEFINITION_FILE"
	envRuntimeBinary   = "SY_RUNTIME_BINARY"
	envRuntimeTimeout  = "SY_RUNTIME_TIMEOUT"
	envLogTail         = "SY_LOG_TAIL"
	envHTTPAddr        = "SY_HTTP_ADDR"
	envMetricsPort     = "SY_METRICS_PORT"
	envWatchInterval   = "SY_WATCH_INTERVAL"
	envLogLevel        = "SY_LOG_LEVEL"
	envSlackWebhookURL = "SY_SLACK_WEBHOOK_URL"
	envWebhookURL      = "SY_WEBHOOK_URL"
	envWebhookTemplate = "SY_WEBHOOK_TEMPLATE"
	envDryRun          = "SY_DRY_RUN"
	envDockerHost      = "SY_DOCKER_HOST"
)

const (
	defaultStacksDir      = "./stacks"
	defaultDefinitionFile = "docker-compose.yml"
	defaultRuntimeBinary  = "docker"
	defaultRuntimeTimeout = 60 * time.Second
	defaultLogTail        = 100
	defaultHTTPAddr       = ":8080"
	defaultWatchInterval  = 30 * time.Second
	defaultLogLevel       = "info"
)

// Config describes runtime configuration loaded from the environment.
type Config struct {
	StacksDir       string
	DefinitionFile  string
	RuntimeBinary   string
	RuntimeTimeout  time.Duration
	LogTail         int
	HTTPAddr        string
	MetricsPort     int
	WatchInterval   time.Duration
	LogLevel        string
	SlackWebhookURL string
	WebhookURL      string
	WebhookTemplate string
	DryRun          bool
	DockerHost      string
}

// Load reads configuration from environment variables and a local .env file if present.
// Existing environment variables take precedence over values in .env.
func Load() (Config, error) {
	if err := loadDotEnvIfPresent(".env"); err != nil {
		return Config{}, err
	}

	cfg := Config{
		StacksDir:      defaultStacksDir,
		DefinitionFile: defaultDefinitionFile,
		RuntimeBinary:  defaultRuntimeBinary,
		RuntimeTimeout: defaultRuntimeTimeout,
		LogTail:        defaultLogTail,
		HTTPAddr:       defaultHTTPAddr,
		WatchInterval:  defaultWatchInterval,
		LogLevel:       defaultLogLevel,
	}

	if value, ok := lookupTrimmed(envStacksDir); ok && value != "" {
		cfg.StacksDir = value
	}

	if value, ok := lookupTrimmed(envDefinitionFile); ok && value != "" {
		if strings.ContainsAny(value, `/\`) || value == "." || value == ".." {
			return Config{}, fmt.Errorf("%s must be a file name, got %q", envDefinitionFile, value)
		}
		cfg.DefinitionFile = value
	}

	if value, ok := lookupTrimmed(envRuntimeBinary); ok && value != "" {
		cfg.RuntimeBinary = value
	}

	if value, ok := lookupTrimmed(envRuntimeTimeout); ok {
		timeout, err := parsePositiveDuration(envRuntimeTimeout, value)
		if err != nil {
			return Config{}, err
		}
		cfg.RuntimeTimeout = timeout
	}

	if value, ok := lookupTrimmed(envLogTail); ok {
		tail, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envLogTail, err)
		}
		if tail <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than zero", envLogTail)
		}
		cfg.LogTail = tail
	}

	if value, ok := lookupTrimmed(envHTTPAddr); ok && value != "" {
		cfg.HTTPAddr = value
	}

	if value, ok := lookupTrimmed(envMetricsPort); ok && value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envMetricsPort, err)
		}
		if port < 0 || port > 65535 {
			return Config{}, fmt.Errorf("%s must be between 0 and 65535", envMetricsPort)
		}
		cfg.MetricsPort = port
	}

	if value, ok := lookupTrimmed(envWatchInterval); ok {
		interval, err := parsePositiveDuration(envWatchInterval, value)
		if err != nil {
			return Config{}, err
		}
		cfg.WatchInterval = interval
	}

	if value, ok := lookupTrimmed(envLogLevel); ok && value != "" {
		cfg.LogLevel = value
	}

	if value, ok := lookupTrimmed(envSlackWebhookURL); ok && value != "" {
		if err := validateURL(value, envSlackWebhookURL); err != nil {
			return Config{}, err
		}
		cfg.SlackWebhookURL = value
	}

	if value, ok := lookupTrimmed(envWebhookURL); ok && value != "" {
		if err := validateURL(value, envWebhookURL); err != nil {
			return Config{}, err
		}
		cfg.WebhookURL = value
	}

	if value, ok := os.LookupEnv(envWebhookTemplate); ok {
		cfg.WebhookTemplate = value
	}

	if value, ok := lookupTrimmed(envDryRun); ok && value != "" {
		dryRun, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envDryRun, err)
		}
		cfg.DryRun = dryRun
	}

	if value, ok := lookupTrimmed(envDockerHost); ok {
		cfg.DockerHost = value
	}

	return cfg, nil
}

func parsePositiveDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero", name)
	}
	return d, nil
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func loadDotEnvIfPresent(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return nil
	}

	return err
}

func validateURL(value, name string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid %s: must include scheme and host", name)
	}
	return nil
}
