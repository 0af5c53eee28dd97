package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Xendit   XenditConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Payroll  PayrollConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	Version        string
	AllowedOrigins []string
}

type XenditConfig struct {
	APIKey       string
	WebhookToken string
	Environment  string

	// PayoutChannelCode is used for destinations without a CHANNEL:account prefix.
	PayoutChannelCode string
}

// KafkaConfig enables event publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Async   bool
}

// RedisConfig enables the reconcile job lock when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PayrollConfig struct {
	Currency                       string
	DefaultStandardWorkingHours    decimal.Decimal
	OvertimeApprovalThresholdHours decimal.Decimal
	WeeklyHoursLimit               decimal.Decimal
	PremiumOvertimeLimitHours      decimal.Decimal
	MinimumBasicSalary             decimal.Decimal
	ReconcileInterval              time.Duration
	ReconcileBatchSize             int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file loaded, using process environment", "error", err)
	}

	config := &Config{}
	var errs []error

	// Database configuration
	dbPort := getEnvInt("DB_PORT", 5432, &errs)
	config.Database = DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            dbPort,
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		Name:            getEnv("DB_NAME", "cmlabs-hris"),
		SSLMode:         getEnv("DB_SSL_MODE", "disable"),
		MaxConns:        int32(getEnvInt("DB_MAX_CONNS", 25, &errs)),
		MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", time.Hour, &errs),
	}

	// Application configuration
	config.App = AppConfig{
		Port:           getEnvInt("APP_PORT", 8080, &errs),
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Version:        getEnv("APP_VERSION", "v1.0.0"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnvDuration("JWT_ACCESS_EXPIRATION_TIME", time.Hour, &errs),
	}

	// Xendit configuration
	config.Xendit = XenditConfig{
		APIKey:            getEnv("XENDIT_API_KEY", ""),
		WebhookToken:      getEnv("XENDIT_WEBHOOK_TOKEN", ""),
		Environment:       getEnv("XENDIT_ENVIRONMENT", "sandbox"),
		PayoutChannelCode: getEnv("XENDIT_PAYOUT_CHANNEL_CODE", ""),
	}

	// Kafka configuration
	config.Kafka = KafkaConfig{
		Brokers: getEnvSlice("KAFKA_BROKERS", nil),
		Topic:   getEnv("KAFKA_PAYROLL_TOPIC", "hris.payroll.events"),
		Async:   getEnv("KAFKA_ASYNC", "true") == "true",
	}

	// Redis configuration
	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0, &errs),
	}

	// Payroll policy
	config.Payroll = PayrollConfig{
		Currency:                       getEnv("PAYROLL_CURRENCY", "KES"),
		DefaultStandardWorkingHours:    getEnvDecimal("PAYROLL_STANDARD_WORKING_HOURS", "160", &errs),
		OvertimeApprovalThresholdHours: getEnvDecimal("PAYROLL_OVERTIME_APPROVAL_THRESHOLD", "30", &errs),
		WeeklyHoursLimit:               getEnvDecimal("PAYROLL_WEEKLY_HOURS_LIMIT", "60", &errs),
		PremiumOvertimeLimitHours:      getEnvDecimal("PAYROLL_PREMIUM_OVERTIME_LIMIT", "15", &errs),
		MinimumBasicSalary:             getEnvDecimal("PAYROLL_MINIMUM_BASIC_SALARY", "15000", &errs),
		ReconcileInterval:              getEnvDuration("PAYROLL_RECONCILE_INTERVAL", 5*time.Minute, &errs),
		ReconcileBatchSize:             getEnvInt("PAYROLL_RECONCILE_BATCH_SIZE", 100, &errs),
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Xendit.APIKey == "" {
		return fmt.Errorf("XENDIT_API_KEY is required")
	}
	if c.Xendit.WebhookToken == "" {
		return fmt.Errorf("XENDIT_WEBHOOK_TOKEN is required")
	}
	if c.Payroll.DefaultStandardWorkingHours.Sign() <= 0 {
		return fmt.Errorf("PAYROLL_STANDARD_WORKING_HOURS must be positive")
	}
	if c.Payroll.ReconcileInterval <= 0 {
		return fmt.Errorf("PAYROLL_RECONCILE_INTERVAL must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (a AppConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return d
}

func getEnvDecimal(key, fallback string, errs *[]error) decimal.Decimal {
	d, err := decimal.NewFromString(getEnv(key, fallback))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return decimal.RequireFromString(fallback)
	}
	return d
}

func getEnvSlice(key string, fallback []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
