package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("does-not-exist.yaml")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8181", cfg.Host)
	assert.True(t, cfg.Frontend.Enabled)
	assert.Equal(t, "My Tracks", cfg.Sync.Folder)
	assert.Equal(t, "Logging", cfg.Sync.Calendar)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TRACKS2CAL_SYNC_FOLDER", "Recorded Tracks")
	t.Setenv("TRACKS2CAL_SYNC_CALENDAR", "Workouts")
	t.Setenv("TRACKS2CAL_GOOGLE_CLIENTID", "client-id")

	cfg, err := Load("does-not-exist.yaml")
	require.NoError(t, err)

	assert.Equal(t, "Recorded Tracks", cfg.Sync.Folder)
	assert.Equal(t, "Workouts", cfg.Sync.Calendar)
	assert.Equal(t, "client-id", cfg.Google.ClientId)
}
