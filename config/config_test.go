package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"APP_PORT", "DB_PATH", "WORKDAY_START_HOUR", "TIMEZONE",
		"REMINDER_INTERVAL", "REMINDER_ENABLED", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestParse_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := parse(nil)

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "worktime.db", cfg.DBPath)
	assert.Equal(t, 9, cfg.WorkdayStartHour)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 24*time.Hour, cfg.ReminderInterval)
	assert.True(t, cfg.ReminderEnabled)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
}

func TestParse_EnvThenFlags(t *testing.T) {
	// GIVEN: Environment overrides
	clearEnv(t)
	t.Setenv("APP_PORT", "3000")
	t.Setenv("DB_PATH", ":memory:")
	t.Setenv("TIMEZONE", "Europe/Brussels")
	t.Setenv("REMINDER_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "debug")

	// WHEN: A flag overrides the port again
	cfg, err := parse([]string{"-port", "4000", "-start", "8"})

	// THEN: Flags win over the environment
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Equal(t, 8, cfg.WorkdayStartHour)
	assert.Equal(t, "Europe/Brussels", cfg.Location.String())
	assert.False(t, cfg.ReminderEnabled)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"unknown timezone", map[string]string{"TIMEZONE": "Mars/Olympus"}, nil},
		{"unknown log level", map[string]string{"LOG_LEVEL": "loud"}, nil},
		{"start hour out of range", nil, []string{"-start", "24"}},
		{"zero interval", nil, []string{"-remind", "0s"}},
		{"unknown flag", nil, []string{"-nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := parse(tt.args)
			assert.Error(t, err)
		})
	}
}
