package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, 15*time.Minute, cfg.AccessTTL)
	require.Equal(t, 168*time.Hour, cfg.RefreshTTL)
	require.Equal(t, 168*time.Hour, cfg.InviteTTL)
}

func TestLoadConfigRejectsNonPositiveDurations(t *testing.T) {
	for _, key := range []string{
		"ACCESS_TOKEN_TTL",
		"REFRESH_TOKEN_TTL",
		"INVITE_TTL",
		"SHUTDOWN_GRACE_PERIOD",
		"HOUSEKEEPING_INTERVAL",
		"SESSION_RETENTION",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, "-1m")
			_, err := LoadConfig()
			require.ErrorContains(t, err, key)
		})
	}
}
