package feeders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	PoolSize      int           `env:"POOL_SIZE"`
	EnableMetrics bool          `env:"ENABLE_METRICS"`
	Timeout       time.Duration `env:"TIMEOUT"`
	Untagged      string
}

func TestEnvFeeder_FeedsTaggedFields(t *testing.T) {
	t.Setenv("POOL_SIZE", "16")
	t.Setenv("ENABLE_METRICS", "true")
	t.Setenv("TIMEOUT", "5s")

	cfg := &testConfig{Untagged: "unchanged"}
	require.NoError(t, NewEnvFeeder().Feed(cfg))

	assert.Equal(t, 16, cfg.PoolSize)
	assert.True(t, cfg.EnableMetrics)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "unchanged", cfg.Untagged)
}

func TestEnvFeeder_LeavesFieldsWithoutEnvVarUntouched(t *testing.T) {
	cfg := &testConfig{PoolSize: 8}
	require.NoError(t, NewEnvFeeder().Feed(cfg))
	assert.Equal(t, 8, cfg.PoolSize)
}

func TestEnvFeeder_Prefix(t *testing.T) {
	t.Setenv("ORCH_POOL_SIZE", "32")
	cfg := &testConfig{}
	require.NoError(t, NewPrefixedEnvFeeder("ORCH_").Feed(cfg))
	assert.Equal(t, 32, cfg.PoolSize)
}

func TestEnvFeeder_RejectsNonPointer(t *testing.T) {
	err := NewEnvFeeder().Feed(testConfig{})
	assert.ErrorIs(t, err, ErrEnvInvalidStructureType)
}
