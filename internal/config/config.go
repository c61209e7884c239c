package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	SourceWorkbook = "workbook"
	SourceSQLite   = "sqlite"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds all configuration for the application.
type Config struct {
	AppEnv                string
	HTTPAddr              string
	GRPCPort              int
	GRPCReflectionEnabled bool

	WorkbookPath    string
	WeightsPath     string
	IndicatorsPath  string
	SupervisorsPath string
	QuarterMonths   []string
	QuarterLabel    string

	RecordSource string
	DBDriver     string
	DBPath       string

	CacheEnabled bool
	RedisAddr    string
	CacheTTL     time.Duration
}

// LoadFromEnv loads configuration from environment variables. Unparseable
// values fall back to their defaults.
func LoadFromEnv() *Config {
	return &Config{
		AppEnv:                getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		GRPCPort:              getEnvInt("GRPC_PORT", 50051),
		GRPCReflectionEnabled: getEnvBool("GRPC_REFLECTION_ENABLED", false),

		WorkbookPath:    getEnv("WORKBOOK_PATH", "./data/bonus.xlsx"),
		WeightsPath:     getEnv("WEIGHTS_PATH", "./data/pesos_log.json"),
		IndicatorsPath:  getEnv("INDICATORS_PATH", "./data/indicadores.json"),
		SupervisorsPath: getEnv("SUPERVISORS_PATH", "./data/supervisores.yaml"),
		QuarterMonths:   getEnvList("QUARTER_MONTHS", []string{"JULHO", "AGOSTO", "SETEMBRO"}),
		QuarterLabel:    getEnv("QUARTER_LABEL", "TRIMESTRE"),

		RecordSource: strings.ToLower(getEnv("RECORD_SOURCE", SourceWorkbook)),
		DBDriver:     getEnv("DB_DRIVER", "sqlite3"),
		DBPath:       getEnv("DB_PATH", "./data/bonus.db"),

		CacheEnabled: getEnvBool("CACHE_ENABLED", false),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		CacheTTL:     getEnvDuration("CACHE_TTL", 10*time.Minute),
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if c.HTTPAddr == "" {
		problems = append(problems, "HTTP_ADDR is required")
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		problems = append(problems, fmt.Sprintf("GRPC_PORT %d out of range", c.GRPCPort))
	}
	if c.WeightsPath == "" {
		problems = append(problems, "WEIGHTS_PATH is required")
	}
	if c.IndicatorsPath == "" {
		problems = append(problems, "INDICATORS_PATH is required")
	}
	if len(c.QuarterMonths) == 0 {
		problems = append(problems, "QUARTER_MONTHS is required")
	}

	switch c.RecordSource {
	case SourceWorkbook:
		if c.WorkbookPath == "" {
			problems = append(problems, "WORKBOOK_PATH is required when RECORD_SOURCE=workbook")
		}
	case SourceSQLite:
		if c.DBPath == "" {
			problems = append(problems, "DB_PATH is required when RECORD_SOURCE=sqlite")
		}
	default:
		problems = append(problems, fmt.Sprintf("RECORD_SOURCE %q must be %q or %q", c.RecordSource, SourceWorkbook, SourceSQLite))
	}

	if c.CacheEnabled {
		if c.RedisAddr == "" {
			problems = append(problems, "REDIS_ADDR is required when CACHE_ENABLED=true")
		}
		if c.CacheTTL <= 0 {
			problems = append(problems, "CACHE_TTL must be positive")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, fallback []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
