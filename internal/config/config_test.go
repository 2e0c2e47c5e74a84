package config

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const custody = "0x00000000000000000000000000000000000000c0"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CUSTODY_ADDRESS", custody)

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "mysql", c.MySQLHost)
	assert.Equal(t, 300, c.IdempTTLSecs)
	assert.Equal(t, LockLocal, c.LockBackend)
	assert.Equal(t, time.Second, c.RelayInterval)
	assert.Equal(t, "loan-events", c.EventStream)
	assert.True(t, c.AutoMigrate)
	require.NoError(t, c.Validate())
	assert.Equal(t, common.HexToAddress(custody), c.Custody())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CUSTODY_ADDRESS", custody)
	t.Setenv("REDIS_DB", "3")
	t.Setenv("LOCK_BACKEND", "redis")
	t.Setenv("LOCK_TTL", "5s")
	t.Setenv("ORIGINATION_FEE_BPS", "250")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, c.RedisDB)
	assert.Equal(t, LockRedis, c.LockBackend)
	assert.Equal(t, 5*time.Second, c.LockTTL)
	assert.EqualValues(t, 250, c.OriginationFeeBps)
	require.NoError(t, c.Validate())
}

func TestLoad_MalformedNumber(t *testing.T) {
	t.Setenv("REDIS_DB", "three")
	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			AppPort: "8080", MySQLHost: "h", MySQLPort: "3306", MySQLDB: "d", MySQLUser: "u",
			CustodyAddress: custody, LockBackend: LockLocal,
			RelayInterval: time.Second, RelayBatch: 10,
		}
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(c *Config){
		"missing host":    func(c *Config) { c.MySQLHost = "" },
		"bad port":        func(c *Config) { c.MySQLPort = "not-a-port" },
		"missing app":     func(c *Config) { c.AppPort = "" },
		"bad custody":     func(c *Config) { c.CustodyAddress = "0x12" },
		"bad admin":       func(c *Config) { c.BootstrapAdmin = "admin" },
		"fee above 100%":  func(c *Config) { c.OriginationFeeBps = 10_001 },
		"unknown backend": func(c *Config) { c.LockBackend = "etcd" },
		"zero interval":   func(c *Config) { c.RelayInterval = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestBootstrapAccounts(t *testing.T) {
	c := &Config{BootstrapAdmin: "0x00000000000000000000000000000000000000a1"}
	_, _, ok := c.BootstrapAccounts()
	assert.False(t, ok)

	c.BootstrapFeeClaim = "0x00000000000000000000000000000000000000f1"
	admin, fee, ok := c.BootstrapAccounts()
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress("0xa1"), admin)
	assert.Equal(t, common.HexToAddress("0xf1"), fee)
}

func TestMySQLDSN(t *testing.T) {
	c := &Config{MySQLHost: "db", MySQLPort: "3307", MySQLDB: "loans", MySQLUser: "u", MySQLPass: "p"}
	assert.Equal(t, "u:p@tcp(db:3307)/loans?multiStatements=true&parseTime=true&charset=utf8mb4,utf8", c.MySQLDSN())
}
