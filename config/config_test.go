package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setKeys(t *testing.T) {
	t.Helper()
	t.Setenv("SUPERADMIN_KEY", "root")
	t.Setenv("ADMIN_KEY", "mod")
	t.Setenv("BROADCAST_KEY", "feed")
}

func TestLoad_Defaults(t *testing.T) {
	setKeys(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "rooms.db", cfg.DBPath)
	assert.Equal(t, "*", cfg.CORSAllowOrigins)
	assert.Equal(t, 5.0, cfg.SendRatePerSec)
	assert.Equal(t, 10, cfg.SendBurst)
	assert.Equal(t, 64, cfg.WSSendBuffer)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 200, cfg.AuditCapacity)

	creds := cfg.Credentials()
	assert.Equal(t, "root", creds.Superadmin)
	assert.Equal(t, "mod", creds.Admin)
	assert.Equal(t, "feed", creds.Broadcast)
}

func TestLoad_Overrides(t *testing.T) {
	setKeys(t)
	t.Setenv("PORT", "8080")
	t.Setenv("STORE_TIMEOUT", "250ms")
	t.Setenv("SEND_BURST", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.StoreTimeout)
	assert.Equal(t, 3, cfg.SendBurst)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing key", env: map[string]string{"SUPERADMIN_KEY": ""}},
		{name: "bad duration", env: map[string]string{"STORE_TIMEOUT": "soon"}},
		{name: "zero burst", env: map[string]string{"SEND_BURST": "0"}},
		{name: "zero buffer", env: map[string]string{"WS_SEND_BUFFER": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setKeys(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "parse env")
		})
	}
}
