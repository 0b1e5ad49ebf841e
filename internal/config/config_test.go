package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":      "postgres://localhost/pos",
		"REDIS_URL":         "redis://localhost:6379",
		"JWT_SECRET":        "secret",
		"UPSTREAM_BASE_URL": "http://retail-api.local",
	}
}

func TestLoadRequiredFields(t *testing.T) {
	for _, missing := range []string{"DATABASE_URL", "REDIS_URL", "JWT_SECRET", "UPSTREAM_BASE_URL"} {
		env := baseEnv()
		env[missing] = ""
		_, err := LoadForTests(env)
		require.Error(t, err, "expected error when %s is missing", missing)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, 4*time.Hour, cfg.SessionTTL)
	require.InDelta(t, 0.01, cfg.PointsRate, 1e-9)
	require.Nil(t, cfg.TierPercents, "tier table falls back to the built-in default")
	require.Equal(t, 30, cfg.SearchRateMax)
}

func TestParseTierPercents(t *testing.T) {
	env := baseEnv()
	env["MEMBERSHIP_TIER_PERCENTS"] = "Normal:0, Silver:5, gold:10,platinum:15, broken"
	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, map[string]float64{
		"normal": 0, "silver": 5, "gold": 10, "platinum": 15,
	}, cfg.TierPercents)
}

func TestPortNormalisation(t *testing.T) {
	env := baseEnv()
	env["PORT"] = ":9000"
	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.HTTPAddr())
}
