package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, "GB", cfg.Booking.ReferencePrefix)
	assert.Equal(t, "gbp", cfg.Booking.Currency)
	assert.Equal(t, int64(50), cfg.Payment.MinAmount)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "mot", cfg.Pricing.InspectionService)
	assert.False(t, cfg.Payment.Configured())
	assert.False(t, cfg.Kafka.Enabled())
	require.NoError(t, cfg.Validate())
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse([]byte(`
http:
  address: ":9090"
booking:
  reference_prefix: ab
  currency: EUR
kafka:
  brokers: ["kafka:9092"]
  notifications_topic: garage.notifications
registry:
  timeout: 750ms
pricing:
  combo_discounts:
    interim: 500
`))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Address)
	assert.Equal(t, "AB", cfg.Booking.ReferencePrefix)
	assert.Equal(t, "eur", cfg.Booking.Currency)
	assert.Equal(t, 750*time.Millisecond, cfg.Registry.Timeout)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, int64(500), cfg.Pricing.ComboDiscounts["interim"])
}

func TestParse_PricingMapsReplaceDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
pricing:
  combo_discounts:
    full: 2000
  fuel_adjustments:
    full: {diesel: 2500}
`))
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"full": 2000}, cfg.Pricing.ComboDiscounts)
	assert.Equal(t, map[string]map[string]int64{"full": {"diesel": 2500}}, cfg.Pricing.FuelAdjustments)

	cfg, err = Parse([]byte("pricing:\n  inspection_service: mot\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPricing().ComboDiscounts, cfg.Pricing.ComboDiscounts)
}

func TestConfig_ApplyEnv(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		"DATABASE_PASSWORD":  "pg-secret",
		"PAYMENT_SECRET_KEY": " sk_test_123 ",
		"REGISTRY_API_KEY":   "",
	}
	cfg.Registry.APIKey = "from-file"

	cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "pg-secret", cfg.Database.Password)
	assert.Equal(t, "sk_test_123", cfg.Payment.SecretKey)
	assert.True(t, cfg.Payment.Configured())
	assert.Equal(t, "from-file", cfg.Registry.APIKey)
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "tiers not increasing",
			mutate: func(c *Config) { c.Pricing.Tiers = []int{1400, 1000, 1600, 2000, 2500, 3000, 0} },
			want:   "strictly increasing",
		},
		{
			name:   "last tier bounded",
			mutate: func(c *Config) { c.Pricing.Tiers[len(c.Pricing.Tiers)-1] = 4000 },
			want:   "must end with 0",
		},
		{
			name:   "price count mismatch",
			mutate: func(c *Config) { c.Pricing.Services[1].Prices = []int64{8900} },
			want:   "pricing.services[interim] needs 7 prices",
		},
		{
			name:   "unknown inspection service",
			mutate: func(c *Config) { c.Pricing.InspectionService = "inspection" },
			want:   "inspection_service",
		},
		{
			name:   "bad currency",
			mutate: func(c *Config) { c.Booking.Currency = "pounds" },
			want:   "ISO 4217",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))
	t.Setenv("SMTP_PASSWORD", "mail-secret")

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "mail-secret", cfg.SMTP.Password)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_DSNAndAddr(t *testing.T) {
	cfg := Default()
	cfg.Database.Password = "pw"

	assert.Equal(t, "host=localhost port=5432 user=garage password=pw dbname=garage sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, "localhost:25", cfg.SMTP.Addr())
}
