package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger driver names accepted by Config.Ledger.Driver.
const (
	DriverCSV      = "csv"
	DriverPostgres = "postgres"
)

// SerialConfig describes the terminal transport.
type SerialConfig struct {
	Port        string `yaml:"port" env:"SERIAL_PORT"`
	BaudRate    int    `yaml:"baud_rate" env:"SERIAL_BAUD_RATE"`
	ReadTimeout string `yaml:"read_timeout" env:"SERIAL_READ_TIMEOUT"`
	SettleDelay string `yaml:"settle_delay" env:"SERIAL_SETTLE_DELAY"`
}

// LedgerConfig selects and parameterizes the session store.
type LedgerConfig struct {
	Driver string `yaml:"driver" env:"LEDGER_DRIVER"`
	Path   string `yaml:"path" env:"LEDGER_PATH"`
	DSN    string `yaml:"dsn" env:"LEDGER_POSTGRES_DSN"`
}

// TariffConfig sets the flat parking rate.
type TariffConfig struct {
	RatePerHour string `yaml:"rate_per_hour" env:"TARIFF_RATE_PER_HOUR"`
	Currency    string `yaml:"currency" env:"TARIFF_CURRENCY"`
}

// Config defines exit terminal configuration.
type Config struct {
	Serial SerialConfig `yaml:"serial"`
	Ledger LedgerConfig `yaml:"ledger"`
	Tariff TariffConfig `yaml:"tariff"`

	readTimeout time.Duration
	settleDelay time.Duration
	rate        decimal.Decimal
}

// Load configuration from file/env and validate it.
func Load() (*Config, error) {
	cfg := &Config{
		Serial: SerialConfig{
			BaudRate:    9600,
			ReadTimeout: "2s",
			SettleDelay: "2s",
		},
		Ledger: LedgerConfig{
			Driver: DriverCSV,
			Path:   "plates_log.csv",
		},
		Tariff: TariffConfig{
			RatePerHour: "200",
			Currency:    "RWF",
		},
	}

	if err := loadInto(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Serial.Port) == "" {
		return nil, errors.New("config: serial port required")
	}
	if cfg.Serial.BaudRate <= 0 {
		return nil, fmt.Errorf("config: invalid baud rate %d", cfg.Serial.BaudRate)
	}

	var err error
	if cfg.readTimeout, err = time.ParseDuration(cfg.Serial.ReadTimeout); err != nil {
		return nil, fmt.Errorf("config: parse read timeout: %w", err)
	}
	if cfg.settleDelay, err = time.ParseDuration(cfg.Serial.SettleDelay); err != nil {
		return nil, fmt.Errorf("config: parse settle delay: %w", err)
	}
	if cfg.readTimeout <= 0 {
		return nil, errors.New("config: read timeout must be positive")
	}

	switch cfg.Ledger.Driver {
	case DriverCSV:
		if strings.TrimSpace(cfg.Ledger.Path) == "" {
			return nil, errors.New("config: ledger path required for csv driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(cfg.Ledger.DSN) == "" {
			return nil, errors.New("config: ledger dsn required for postgres driver")
		}
	default:
		return nil, fmt.Errorf("config: unknown ledger driver %q", cfg.Ledger.Driver)
	}

	if cfg.rate, err = decimal.NewFromString(cfg.Tariff.RatePerHour); err != nil {
		return nil, fmt.Errorf("config: parse rate per hour: %w", err)
	}
	if cfg.rate.IsNegative() {
		return nil, errors.New("config: rate per hour must not be negative")
	}

	return cfg, nil
}

// ReadTimeout bounds a single serial read attempt.
func (c *Config) ReadTimeout() time.Duration { return c.readTimeout }

// SettleDelay is the pause after opening the port before first use.
func (c *Config) SettleDelay() time.Duration { return c.settleDelay }

// RatePerHour is the flat hourly parking rate.
func (c *Config) RatePerHour() decimal.Decimal { return c.rate }
