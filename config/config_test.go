package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/action-calendar/config"
	"github.com/warp/action-calendar/schedule"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	// GIVEN: No config file
	path := filepath.Join(t.TempDir(), "etc", "actioncal.yaml")

	// WHEN: Loading
	cfg, err := config.Load(path)
	require.NoError(t, err)

	// THEN: Defaults are returned and written with private perms
	assert.Equal(t, config.DefaultConfig(), cfg)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_PartialFileIsNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actioncal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
week_start: Monday
timezone: UTC
storage:
  driver: file
retention:
  categories: [meeting, call]
  mode: drop
upcoming:
  days_ahead: 14
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, time.Monday, cfg.Weekday())
	assert.Equal(t, config.DriverFile, cfg.Storage.Driver)
	assert.Equal(t, "./data", cfg.Storage.Path)
	assert.Equal(t, schedule.DefaultBlobKey, cfg.Storage.Key)
	assert.Equal(t, []string{"meeting", "call"}, cfg.Retention.Categories)
	assert.Equal(t, "drop", cfg.Retention.Mode)
	assert.Equal(t, 14, cfg.Upcoming.DaysAhead)
	assert.Equal(t, schedule.DefaultUpcomingLimit, cfg.Upcoming.Limit)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_Invalid(t *testing.T) {
	for name, body := range map[string]string{
		"driver":   "storage:\n  driver: postgres\n",
		"mode":     "retention:\n  mode: maybe\n",
		"timezone": "timezone: Mars/Olympus\n",
		"yaml":     "listen: [unclosed\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "actioncal.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

			_, err := config.Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actioncal.yaml")
	cfg := config.DefaultConfig()
	cfg.Listen = ":9090"
	cfg.Retention.Categories = []string{"meeting"}
	cfg.Upcoming.TruncateBeforeFilter = true

	require.NoError(t, config.Save(path, cfg))
	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	assert.Error(t, config.Save("", cfg))
	assert.Error(t, config.Save(path, nil))
}
