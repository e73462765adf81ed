package atomcheck

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	require.Nil(t, cfg.Output)
	require.Equal(t, uint64(100000), cfg.ProgressInterval)
	require.Equal(t, uint64(0), cfg.MaxRuns)
	require.Nil(t, cfg.Metrics)
}

func TestValidateConfig(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, validateConfig(&cfg))
	require.NoError(t, validateConfig(&Config{}))
}
