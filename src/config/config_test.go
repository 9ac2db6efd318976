package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

const minimalYAML = `
name: enrollment-observer
host: 127.0.0.1
port: 8181
storage:
  db_type: sqlite
  db_path: observer.db
`

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// -----------------------------------------------------------------------------

func TestNewConfigAppliesDefaults(t *testing.T) {
	cfg, err := NewConfig(writeConfigFile(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "daily_enrollments", cfg.Detection.MetricName)
	assert.Equal(t, 90, cfg.Detection.LookbackDays)
	assert.Equal(t, 3.0, cfg.Detection.ZScoreThreshold)
	assert.Equal(t, 30, cfg.Detection.RollingWindow)
	assert.Equal(t, 0.5, cfg.Detection.RollingDeviationThreshold)
	assert.Equal(t, 4, cfg.Scan.Workers)
	assert.Equal(t, 365, cfg.Scan.AlertRetentionDays)
}

// -----------------------------------------------------------------------------

func TestNewConfigOverridesDefaults(t *testing.T) {
	cfg, err := NewConfig(writeConfigFile(t, minimalYAML+`
detection:
  lookback_days: 30
  zscore_threshold: 2.5
  rolling_window: 7
  rolling_deviation_threshold: 0.25
scan:
  workers: 8
`))
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Detection.LookbackDays)
	assert.Equal(t, 2.5, cfg.Detection.ZScoreThreshold)
	assert.Equal(t, 7, cfg.Detection.RollingWindow)
	assert.Equal(t, 0.25, cfg.Detection.RollingDeviationThreshold)
	assert.Equal(t, 8, cfg.Scan.Workers)
}

// -----------------------------------------------------------------------------

func TestNewConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing name", `
host: 127.0.0.1
port: 8181
storage: {db_type: sqlite, db_path: x.db}
`},
		{"privileged port", `
name: observer
host: 127.0.0.1
port: 80
storage: {db_type: sqlite, db_path: x.db}
`},
		{"sqlite without path", `
name: observer
host: 127.0.0.1
port: 8181
storage: {db_type: sqlite}
`},
		{"postgres without connection string", `
name: observer
host: 127.0.0.1
port: 8181
storage: {db_type: postgres}
`},
		{"lookback too small", `
name: observer
host: 127.0.0.1
port: 8181
storage: {db_type: sqlite, db_path: x.db}
detection: {lookback_days: 2}
`},
		{"rolling deviation out of range", `
name: observer
host: 127.0.0.1
port: 8181
storage: {db_type: sqlite, db_path: x.db}
detection: {rolling_deviation_threshold: 1.5}
`},
		{"scheduled hour out of range", `
name: observer
host: 127.0.0.1
port: 8181
storage: {db_type: sqlite, db_path: x.db}
scan: {scheduled_hour_utc: 24}
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(writeConfigFile(t, tc.yaml))
			assert.Error(t, err)
		})
	}
}

// -----------------------------------------------------------------------------

func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestConfigSaveRoundTrip(t *testing.T) {
	cfg, err := NewConfig(writeConfigFile(t, minimalYAML))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.Save(out))

	reloaded, err := NewConfig(out)
	require.NoError(t, err)
	assert.Equal(t, cfg.Name, reloaded.Name)
	assert.Equal(t, cfg.Detection, reloaded.Detection)
}
