package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Переменные окружения.
const (
	EnvConfigPath      = "BGJOB_CONFIG"
	EnvRetries         = "BGJOB_RETRIES"
	EnvRetryDelay      = "BGJOB_RETRY_DELAY"
	EnvApprovedTargets = "BGJOB_APPROVED_TARGETS"
	EnvLogFile         = "BGJOB_LOG_FILE"
	EnvMetricsAddr     = "BGJOB_METRICS_ADDR"
	EnvDatabaseURL     = "DB_URL"
	EnvRabbitMQURL     = "RABBITMQ_URL"
	EnvPushgatewayURL  = "PUSHGATEWAY_URL"
)

// ErrInvalidConfig — конфигурация не прошла проверку.
var ErrInvalidConfig = errors.New("invalid config")

// fileConfig — формат YAML-файла.
// Указатели отличают отсутствующее значение от нуля.
type fileConfig struct {
	Retries             *int       `yaml:"retries"`
	RetryDelay          *float64   `yaml:"retry_delay"`
	ApprovedTargets     []string   `yaml:"approved_targets"`
	ForbiddenOperations []string   `yaml:"forbidden_operations"`
	LogFile             string     `yaml:"log_file"`
	DatabaseURL         string     `yaml:"database_url"`
	RabbitMQURL         string     `yaml:"rabbitmq_url"`
	PushgatewayURL      string     `yaml:"pushgateway_url"`
	MetricsAddr         string     `yaml:"metrics_addr"`
	Schedules           []Schedule `yaml:"schedules"`
}

// Load загружает конфигурацию.
//
// path может быть пустым: тогда используется BGJOB_CONFIG, а если нет и его —
// только окружение и значения по умолчанию.
func Load(path string) (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	cfg := Default()

	if path != "" {
		fc, err := readFile(path)
		if err != nil {
			return nil, err
		}
		fc.apply(cfg)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &fc, nil
}

func (fc *fileConfig) apply(cfg *Config) {
	if fc.Retries != nil {
		cfg.Retries = *fc.Retries
	}
	if fc.RetryDelay != nil {
		cfg.RetryDelay = seconds(*fc.RetryDelay)
	}
	if fc.ApprovedTargets != nil {
		cfg.ApprovedTargets = fc.ApprovedTargets
	}
	cfg.ForbiddenOperations = fc.ForbiddenOperations
	cfg.Schedules = fc.Schedules

	if fc.LogFile != "" {
		cfg.LogFile = fc.LogFile
	}
	if fc.DatabaseURL != "" {
		cfg.DatabaseURL = fc.DatabaseURL
	}
	if fc.RabbitMQURL != "" {
		cfg.RabbitMQURL = fc.RabbitMQURL
	}
	if fc.PushgatewayURL != "" {
		cfg.PushgatewayURL = fc.PushgatewayURL
	}
	if fc.MetricsAddr != "" {
		cfg.MetricsAddr = fc.MetricsAddr
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvRetries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvRetries, err)
		}
		cfg.Retries = n
	}

	if v := os.Getenv(EnvRetryDelay); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvRetryDelay, err)
		}
		cfg.RetryDelay = seconds(f)
	}

	if v := os.Getenv(EnvApprovedTargets); v != "" {
		cfg.ApprovedTargets = splitList(v)
	}

	if v := os.Getenv(EnvLogFile); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv(EnvRabbitMQURL); v != "" {
		cfg.RabbitMQURL = v
	}
	if v := os.Getenv(EnvPushgatewayURL); v != "" {
		cfg.PushgatewayURL = v
	}
	return nil
}

// Validate проверяет конфигурацию.
func (c *Config) Validate() error {
	if c.Retries < 0 {
		return fmt.Errorf("%w: retries must be >= 0, got %d", ErrInvalidConfig, c.Retries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry_delay must be >= 0, got %s", ErrInvalidConfig, c.RetryDelay)
	}

	names := make(map[string]bool, len(c.Schedules))
	for i, s := range c.Schedules {
		if s.Name == "" {
			return fmt.Errorf("%w: schedules[%d]: name is required", ErrInvalidConfig, i)
		}
		if names[s.Name] {
			return fmt.Errorf("%w: schedule %q: duplicate name", ErrInvalidConfig, s.Name)
		}
		names[s.Name] = true

		if (s.Cron == "") == (s.Interval <= 0) {
			return fmt.Errorf("%w: schedule %q: exactly one of cron or interval is required", ErrInvalidConfig, s.Name)
		}
		if s.Target == "" || s.Operation == "" {
			return fmt.Errorf("%w: schedule %q: target and operation are required", ErrInvalidConfig, s.Name)
		}
	}
	return nil
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

// splitList разбирает список через запятую, пропуская пустые элементы.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
