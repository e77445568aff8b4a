package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/ravlen/aquamon/internal/config"
	"codeberg.org/ravlen/aquamon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setArgs(t *testing.T, args ...string) {
	t.Helper()
	oldArgs := os.Args
	os.Args = append([]string{"aquamon"}, args...)
	t.Cleanup(func() { os.Args = oldArgs })
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "aquamon.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	return configPath
}

func TestLoad(t *testing.T) {
	setArgs(t)

	configPath := writeConfig(t, `
interval = 120
leak_threshold = 7.5
consecutive_readings = 5
alert_cooldown = 1800
database = "/path/to/readings.db"
retention_days = 14
log_level = "debug"

[adc]
address = 73

[slack]
enabled = true
bot_token = "xoxb-test"
channel = "leaks"
`)
	t.Setenv("AQUAMON_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.Interval, "Expected Interval 120")
	assert.InDelta(t, 7.5, cfg.LeakThreshold, 0.001, "Expected LeakThreshold 7.5")
	assert.Equal(t, 5, cfg.ConsecutiveReadings, "Expected ConsecutiveReadings 5")
	assert.Equal(t, 1800, cfg.AlertCooldown, "Expected AlertCooldown 1800")
	assert.Equal(t, "/path/to/readings.db", cfg.Database, "Expected Database /path/to/readings.db")
	assert.Equal(t, 14, cfg.RetentionDays, "Expected RetentionDays 14")
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel debug")
	assert.Equal(t, 0x49, cfg.ADC.Address, "Expected ADC address 0x49")
	assert.True(t, cfg.Slack.Enabled, "Expected Slack enabled")
	assert.Equal(t, "#leaks", cfg.Slack.Channel, "Expected channel normalized with #")
}

func TestLoadDefaults(t *testing.T) {
	setArgs(t)
	t.Setenv("AQUAMON_CONFIG", writeConfig(t, ""))

	cfg, err := config.Load()
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, 60, cfg.Interval, "Expected default Interval 60")
	assert.InDelta(t, 5.0, cfg.LeakThreshold, 0.001, "Expected default LeakThreshold 5.0")
	assert.Equal(t, 3, cfg.ConsecutiveReadings, "Expected default ConsecutiveReadings 3")
	assert.Equal(t, 3600, cfg.AlertCooldown, "Expected default AlertCooldown 3600")
	assert.Equal(t, 30, cfg.RetentionDays, "Expected default RetentionDays 30")
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel, "Expected default LogLevel info")
	assert.Equal(t, 0x48, cfg.ADC.Address, "Expected default ADC address 0x48")
	assert.False(t, cfg.Slack.Enabled, "Expected Slack disabled by default")
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	setArgs(t)
	t.Setenv("AQUAMON_CONFIG", writeConfig(t, `
This is not a valid TOML file
`))

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"interval too short", "interval = 10"},
		{"interval too long", "interval = 601"},
		{"threshold too low", "leak_threshold = 0.5"},
		{"threshold too high", "leak_threshold = 25"},
		{"consecutive zero", "consecutive_readings = 0"},
		{"consecutive too high", "consecutive_readings = 11"},
		{"cooldown too short", "alert_cooldown = 60"},
		{"cooldown too long", "alert_cooldown = 9000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setArgs(t)
			t.Setenv("AQUAMON_CONFIG", writeConfig(t, tt.content))

			_, err := config.Load()
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, config.ErrOutOfRange),
				"Expected config_value_out_of_range, got %v", err)
		})
	}
}

func TestValidateSingleReadingHysteresisIsLegal(t *testing.T) {
	setArgs(t)
	t.Setenv("AQUAMON_CONFIG", writeConfig(t, "consecutive_readings = 1"))

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.ConsecutiveReadings)
}

func TestValidateSlackRequiresToken(t *testing.T) {
	setArgs(t)
	t.Setenv("AQUAMON_CONFIG", writeConfig(t, `
[slack]
enabled = true
channel = "#leaks"
`))

	_, err := config.Load()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, config.ErrSlackIncomplete))
}

func TestLogLevelFlag(t *testing.T) {
	setArgs(t, "--log-level", "debug")
	t.Setenv("AQUAMON_CONFIG", writeConfig(t, ""))

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel to be set by flag")
}
