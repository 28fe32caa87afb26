package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled default", Config{}, false},
		{"enabled with endpoint", Config{Enabled: true, Endpoint: "localhost:4317"}, false},
		{"enabled without endpoint", Config{Enabled: true}, true},
		{"sample rate out of range", Config{SampleRate: 1.5}, true},
		{"negative sample rate", Config{SampleRate: -0.1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, "resolvd", cfg.ServiceName)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestNewDisabled(t *testing.T) {
	tel, err := New(context.Background(), Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, tel.Degraded())
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(context.Background(), Config{Enabled: true}, zap.NewNop())
	require.Error(t, err)
}

func TestShutdownNil(t *testing.T) {
	var tel *Telemetry
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.False(t, tel.Degraded())
}
