package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "resolvd", cfg.Fields["service"])
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "bad format",
			mutate:  func(c *Config) { c.Format = "xml" },
			wantErr: "format must be",
		},
		{
			name:    "bad level",
			mutate:  func(c *Config) { c.Level = "loud" },
			wantErr: "invalid level",
		},
		{
			name:    "empty field value",
			mutate:  func(c *Config) { c.Fields = map[string]string{"env": ""} },
			wantErr: "empty value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("defaults when nil", func(t *testing.T) {
		logger, err := New(nil)
		require.NoError(t, err)
		require.NotNil(t, logger)
	})

	t.Run("console format", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Format = "console"
		cfg.Level = "debug"

		logger, err := New(cfg)
		require.NoError(t, err)
		require.NotNil(t, logger)
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Format = "binary"

		_, err := New(cfg)
		require.Error(t, err)
	})
}
