package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port    int           `env:"TEST_CFG_PORT" envDefault:"8080"`
	Brokers []string      `env:"TEST_CFG_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	TTL     time.Duration `env:"TEST_CFG_TTL" envDefault:"5m"`
	Debug   bool          `env:"TEST_CFG_DEBUG" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, 5*time.Minute, cfg.TTL)
	assert.False(t, cfg.Debug)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TEST_CFG_TTL", "30s")
	t.Setenv("TEST_CFG_DEBUG", "true")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
	assert.Equal(t, 30*time.Second, cfg.TTL)
	assert.True(t, cfg.Debug)
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

type requiredConfig struct {
	APIKey string `env:"TEST_CFG_API_KEY,required"`
}

func TestLoad_RequiredField(t *testing.T) {
	var missing requiredConfig
	err := Load(&missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")

	t.Setenv("TEST_CFG_API_KEY", "secret-123")
	var present requiredConfig
	require.NoError(t, Load(&present))
	assert.Equal(t, "secret-123", present.APIKey)
}

type validatedConfig struct {
	Port int `env:"PORT" envDefault:"8080"`
}

var errPortRange = errors.New("port out of range")

func (c *validatedConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errPortRange
	}
	return nil
}

func TestLoad_RunsValidate(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "70000")

	var cfg validatedConfig
	err := LoadWithPrefix(&cfg, "TEST_CFG_")

	require.ErrorIs(t, err, errPortRange)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLoadWithPrefix(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "8443")

	var cfg validatedConfig
	require.NoError(t, LoadWithPrefix(&cfg, "TEST_CFG_"))
	assert.Equal(t, 8443, cfg.Port)
}
