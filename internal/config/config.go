package config

import (
	"fmt"
	"strings"

	"github.com/dojobill/dojobill/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig
	Notify     NotifyConfig
	Billing    BillingConfig
	Dunning    DunningConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type NotifyConfig struct {
	Topic string
}

// BillingConfig holds the tunables of the schedule engine and charge ledger
type BillingConfig struct {
	// LeadTimeDays is how far past today charges are materialized
	LeadTimeDays int `validate:"gte=0"`
	// TerminationPolicy is applied to every contract ending mid-period
	TerminationPolicy types.TerminationPolicy `validate:"required"`
	// MaxAttempts is the retry budget for retryable failures before a
	// charge escalates into dunning
	MaxAttempts int `validate:"gte=1"`
	// ReconcileSLADays bounds how long a submitted charge may wait for a
	// bank callback before it is flagged for manual review
	ReconcileSLADays int `validate:"gte=1"`
	// MandateRetentionDays is how long a created mandate may stay
	// unactivated before ExpireStale expires it
	MandateRetentionDays int `validate:"gte=1"`
}

// DunningLevel configures one rung of the escalation ladder
type DunningLevel struct {
	// GraceDays is the wait before the case advances past this level
	GraceDays int `validate:"gte=0"`
	// Fee is added to the member's next charge, not to the failed one
	Fee decimal.Decimal
	// Template is the notification template reference published to the
	// dispatcher for this level
	Template string
}

type DunningConfig struct {
	// Levels is the escalation ladder, lowest level first. When empty the
	// default three-step ladder is used.
	Levels []DunningLevel
}

// MaxLevel is the highest level of the configured ladder
func (c DunningConfig) MaxLevel() int {
	return len(c.Levels)
}

// Level returns the configuration for a 1-based level
func (c DunningConfig) Level(level int) (DunningLevel, bool) {
	if level < 1 || level > len(c.Levels) {
		return DunningLevel{}, false
	}
	return c.Levels[level-1], true
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/dojobill")

	v.SetEnvPrefix("DOJOBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; env vars and defaults are enough to boot
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", types.ModeLocal)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", types.LogLevelInfo)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("notify.topic", "billing_notifications")
	v.SetDefault("billing.leadtimedays", 14)
	v.SetDefault("billing.terminationpolicy", types.TerminationPolicyFullPeriod)
	v.SetDefault("billing.maxattempts", 3)
	v.SetDefault("billing.reconcilesladays", 5)
	v.SetDefault("billing.mandateretentiondays", 90)
}

func (c Configuration) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if err := c.Billing.TerminationPolicy.Validate(); err != nil {
		return err
	}
	for i, level := range c.Dunning.Levels {
		if level.Fee.IsNegative() {
			return fmt.Errorf("dunning level %d: fee must not be negative", i+1)
		}
	}
	return nil
}

// DSN returns the postgres connection string
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// DefaultDunningLevels is the ladder used when no levels are configured:
// a friendly reminder, a firm reminder carrying a fee, and a final notice.
func DefaultDunningLevels() []DunningLevel {
	return []DunningLevel{
		{GraceDays: 7, Fee: decimal.Zero, Template: "dunning_friendly"},
		{GraceDays: 14, Fee: decimal.NewFromFloat(5.00), Template: "dunning_firm"},
		{GraceDays: 14, Fee: decimal.NewFromFloat(10.00), Template: "dunning_final"},
	}
}
