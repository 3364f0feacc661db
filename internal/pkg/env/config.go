package env

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the validated process configuration. Everything the entry point wires
// together is derived from it.
type Config struct {
	AppEnv  string `validate:"required"`
	AppHost string `validate:"required"`
	AppPort string `validate:"required,numeric"`

	DBDriver   string `validate:"oneof=mysql postgres"`
	DBHost     string `validate:"required"`
	DBPort     string `validate:"required,numeric"`
	DBUser     string `validate:"required"`
	DBPassword string
	DBName     string `validate:"required"`

	CacheHost     string
	CachePort     string `validate:"omitempty,numeric"`
	CachePassword string

	IdentitySecretKey    string `validate:"required"`
	IdentityWebhookKey   string `validate:"required"`
	IdentityAPIBaseURL   string `validate:"required,url"`
	IdentityJWTPublicKey string `validate:"required"`

	PaymentSecretKey  string `validate:"required"`
	PaymentWebhookKey string `validate:"required"`
	PaymentAPIBaseURL string `validate:"required,url"`

	ServerURL string `validate:"required,url"`
	AMQPURL   string `validate:"omitempty,url"`

	WebhookTolerance time.Duration
}

// Load reads and validates the configuration.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read builds the configuration from the loaded .env map and the process environment
// without validating it. Tools that need only part of it, like the migrator, use this.
func Read() (*Config, error) {
	cfg := &Config{
		AppEnv:  GetEnv("APP_ENV", "prod"),
		AppHost: GetEnv("APP_HOST", "localhost"),
		AppPort: GetEnv("APP_PORT", "4000"),

		DBDriver:   strings.ToLower(GetEnv("DB_DRIVER", "mysql")),
		DBHost:     GetEnv("DB_HOST", "127.0.0.1"),
		DBPort:     GetEnv("DB_PORT", "3306"),
		DBUser:     GetEnv("DB_USER", ""),
		DBPassword: GetEnv("DB_PASSWORD", ""),
		DBName:     GetEnv("DB_NAME", ""),

		CacheHost:     GetEnv("CACHE_HOST", ""),
		CachePort:     GetEnv("CACHE_PORT", "6379"),
		CachePassword: GetEnv("CACHE_PASSWORD", ""),

		IdentitySecretKey:    GetEnv("IDENTITY_SECRET_KEY", ""),
		IdentityWebhookKey:   GetEnv("IDENTITY_WEBHOOK_SECRET", ""),
		IdentityAPIBaseURL:   GetEnv("IDENTITY_API_BASE_URL", "https://api.clerk.com/v1"),
		IdentityJWTPublicKey: GetEnv("IDENTITY_JWT_PUBLIC_KEY", ""),

		PaymentSecretKey:  GetEnv("PAYMENT_SECRET_KEY", ""),
		PaymentWebhookKey: GetEnv("PAYMENT_WEBHOOK_SECRET", ""),
		PaymentAPIBaseURL: GetEnv("PAYMENT_API_BASE_URL", "https://test.dodopayments.com"),

		ServerURL: strings.TrimRight(GetEnv("SERVER_URL", ""), "/"),
		AMQPURL:   GetEnv("AMQP_URL", ""),

		WebhookTolerance: 5 * time.Minute,
	}

	if raw := GetEnv("WEBHOOK_TOLERANCE", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid WEBHOOK_TOLERANCE: %w", err)
		}
		cfg.WebhookTolerance = d
	}
	return cfg, nil
}

// Validate checks the struct tags and reports every invalid field in one error.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid environment variables: %s", strings.Join(fields, ", "))
}

// DSN builds the driver specific data source name.
func (c *Config) DSN() string {
	if c.DBDriver == "postgres" {
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// MigrationURL is the golang-migrate database URL for the configured driver.
func (c *Config) MigrationURL() string {
	if c.DBDriver == "postgres" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
	}
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func (c *Config) IsDev() bool {
	return c.AppEnv == "dev"
}
