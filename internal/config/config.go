package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
)

const (
	LockLocal = "local"
	LockRedis = "redis"
)

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"8080"`

	MySQLHost string `env:"MYSQL_HOST" envDefault:"mysql"`
	MySQLPort string `env:"MYSQL_PORT" envDefault:"3306"`
	MySQLDB   string `env:"MYSQL_DB" envDefault:"loans"`
	MySQLUser string `env:"MYSQL_USER" envDefault:"loans"`
	MySQLPass string `env:"MYSQL_PASS" envDefault:"loans"`

	AutoMigrate bool `env:"AUTO_MIGRATE" envDefault:"true"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"redis:6379"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	IdempTTLSecs int `env:"IDEMPOTENCY_TTL_SECONDS" envDefault:"300"`

	// engine
	CustodyAddress    string        `env:"CUSTODY_ADDRESS"`
	BootstrapAdmin    string        `env:"BOOTSTRAP_ADMIN"`
	BootstrapFeeClaim string        `env:"BOOTSTRAP_FEE_CLAIMER"`
	OriginationFeeBps uint64        `env:"ORIGINATION_FEE_BPS" envDefault:"0"`
	LockBackend       string        `env:"LOCK_BACKEND" envDefault:"local"`
	LockKey           string        `env:"LOCK_KEY" envDefault:"loans:engine:lock"`
	LockTTL           time.Duration `env:"LOCK_TTL" envDefault:"30s"`
	LockWait          time.Duration `env:"LOCK_WAIT" envDefault:"10s"`

	// outbox relay
	EventStream   string        `env:"EVENT_STREAM" envDefault:"loan-events"`
	RelayInterval time.Duration `env:"RELAY_INTERVAL" envDefault:"1s"`
	RelayBatch    int           `env:"RELAY_BATCH" envDefault:"100"`
}

func Load() (*Config, error) {
	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	// ensure port is valid
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if !common.IsHexAddress(c.CustodyAddress) {
		return fmt.Errorf("invalid CUSTODY_ADDRESS %q", c.CustodyAddress)
	}
	for name, v := range map[string]string{
		"BOOTSTRAP_ADMIN":       c.BootstrapAdmin,
		"BOOTSTRAP_FEE_CLAIMER": c.BootstrapFeeClaim,
	} {
		if v != "" && !common.IsHexAddress(v) {
			return fmt.Errorf("invalid %s %q", name, v)
		}
	}
	if c.OriginationFeeBps > 10_000 {
		return fmt.Errorf("ORIGINATION_FEE_BPS %d exceeds 10000", c.OriginationFeeBps)
	}
	switch c.LockBackend {
	case LockLocal, LockRedis:
	default:
		return fmt.Errorf("invalid LOCK_BACKEND %q (want local or redis)", c.LockBackend)
	}
	if c.RelayInterval <= 0 || c.RelayBatch <= 0 {
		return errors.New("RELAY_INTERVAL and RELAY_BATCH must be positive")
	}
	return nil
}

func (c *Config) Custody() common.Address { return common.HexToAddress(c.CustodyAddress) }

// BootstrapAccounts reports the configured initial admin and fee claimer, if both are set.
func (c *Config) BootstrapAccounts() (admin, feeClaimer common.Address, ok bool) {
	if c.BootstrapAdmin == "" || c.BootstrapFeeClaim == "" {
		return common.Address{}, common.Address{}, false
	}
	return common.HexToAddress(c.BootstrapAdmin), common.HexToAddress(c.BootstrapFeeClaim), true
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
