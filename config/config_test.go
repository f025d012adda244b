package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJSONConfig_EconomySection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"app": {"AppPort": "9090", "AllowedOrigins": ["https://pomtime.app"]},
		"database": {"Driver": "postgres", "DBName": "rewards"},
		"economy": {"DailyPointCap": 80, "RollCost": 2, "ReleaseXP": {"3": 10, "5": 500, "x": 1}}
	}`), 0o644))

	var c AppConfig
	require.NoError(t, loadJSONConfig(path, &c))
	applyDefaults(&c)

	assert.Equal(t, "9090", c.AppPort)
	assert.Equal(t, []string{"https://pomtime.app"}, c.AllowedOrigins)
	assert.Equal(t, "postgres", c.DBDriver)
	assert.Equal(t, "5432", c.DBPort)
	assert.Equal(t, 80.0, c.DailyPointCap)
	assert.Equal(t, 2.0, c.RollCost)
	assert.Equal(t, map[int]int64{3: 10, 5: 500}, c.ReleaseXP)
	assert.Equal(t, 5.0, c.CheckinRewardPoints)
	assert.Equal(t, 24, c.CheckinCooldownHours)
}

func TestLoadJSONConfig_MissingAndInvalid(t *testing.T) {
	var c AppConfig
	assert.NoError(t, loadJSONConfig(filepath.Join(t.TempDir(), "absent.json"), &c))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	assert.Error(t, loadJSONConfig(bad, &c))
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DAILY_POINT_CAP", "75.5")
	t.Setenv("LOCK_WAIT_MS", "500")
	t.Setenv("RAND_SEED", "99")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a, http://b ,")

	c := AppConfig{DailyPointCap: 50}
	applyEnvOverrides(&c)
	assert.Equal(t, 75.5, c.DailyPointCap)
	assert.Equal(t, 500, c.LockWaitMillis)
	assert.Equal(t, int64(99), c.RandSeed)
	assert.Equal(t, []string{"http://a", "http://b"}, c.AllowedOrigins)
}

func TestOpenDialector(t *testing.T) {
	d, err := openDialector(AppConfig{DBDriver: "postgres", DBHost: "db", DBPort: "5432"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	d, err = openDialector(AppConfig{})
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())

	_, err = openDialector(AppConfig{DBDriver: "oracle"})
	assert.Error(t, err)
}
