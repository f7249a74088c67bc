package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "amp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("amplifier:\n  host: 10.0.0.5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "amp-gateway", cfg.App.Name)
	assert.Equal(t, "10.0.0.5", cfg.Amplifier.Host)
	assert.Equal(t, DefaultAmplifierPort, cfg.Amplifier.Port)
	assert.Equal(t, 5*time.Second, cfg.Amplifier.RequestTimeout)
	assert.Equal(t, 30*time.Second, cfg.Amplifier.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.Amplifier.ReconnectDelay)
	assert.Equal(t, 3, cfg.Amplifier.FailureThreshold)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Database.Enable)
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "amp.yaml")
	content := `
amplifier:
  host: 192.168.1.50
  port: 4321
  pollInterval: 12s
api:
  auth:
    enabled: true
    apiKeys: ["k1", "k2"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4321, cfg.Amplifier.Port)
	assert.Equal(t, 12*time.Second, cfg.Amplifier.PollInterval)
	assert.True(t, cfg.API.Auth.Enabled)
	assert.Equal(t, []string{"k1", "k2"}, cfg.API.Auth.APIKeys)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "amp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("amplifier:\n  host: 10.0.0.5\n"), 0o644))
	t.Setenv("AMP_AMPLIFIER_HOST", "10.9.9.9")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "10.9.9.9", cfg.Amplifier.Host)
}

func TestLoad_BadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "amp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("amplifier: [broken"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestAmplifierConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AmplifierConfig
		wantErr bool
	}{
		{"正常", AmplifierConfig{Host: "10.0.0.1", Port: 1234}, false},
		{"主机名", AmplifierConfig{Host: "amp.local", Port: 1234}, false},
		{"缺少主机", AmplifierConfig{Host: "", Port: 1234}, true},
		{"端口为0", AmplifierConfig{Host: "10.0.0.1", Port: 0}, true},
		{"端口越界", AmplifierConfig{Host: "10.0.0.1", Port: 70000}, true},
		{"非法主机", AmplifierConfig{Host: "a b", Port: 1234}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "err=%v", err)
		})
	}

	assert.ErrorIs(t, AmplifierConfig{Port: 1234}.Validate(), ErrNoHost)
}

func TestEffectivePollInterval(t *testing.T) {
	assert.Equal(t, 30*time.Second, AmplifierConfig{}.EffectivePollInterval())
	assert.Equal(t, MinPollInterval, AmplifierConfig{PollInterval: time.Second}.EffectivePollInterval())
	assert.Equal(t, MaxPollInterval, AmplifierConfig{PollInterval: time.Hour}.EffectivePollInterval())
	assert.Equal(t, 42*time.Second, AmplifierConfig{PollInterval: 42 * time.Second}.EffectivePollInterval())
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "10.0.0.1:1234", AmplifierConfig{Host: "10.0.0.1", Port: 1234}.Endpoint())
}
