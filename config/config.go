/*
config.go - Server configuration

PURPOSE:
  Collects the settings of the server from three layers, the later one
  winning:
    1. a .env file in the working directory (optional)
    2. environment variables
    3. command-line flags

KEYS:
  APP_PORT            -port      HTTP port (8080)
  DB_PATH             -db        SQLite database path (worktime.db)
  WORKDAY_START_HOUR  -start     Hour full-day leave spans start at, 1-23 (9)
  TIMEZONE            -tz        Business timezone (UTC)
  REMINDER_INTERVAL   -remind    Reminder check interval (24h)
  REMINDER_ENABLED    -reminders Whether reminders run (true)
  LOG_LEVEL           -log       logrus level (info)

SEE ALSO:
  - cmd/server/main.go: Consumer
*/
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port             int
	DBPath           string
	WorkdayStartHour int
	Location         *time.Location
	ReminderInterval time.Duration
	ReminderEnabled  bool
	LogLevel         logrus.Level
}

// Load reads .env, the environment and then args (without program name).
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return parse(args)
}

func parse(args []string) (*Config, error) {
	flags := flag.NewFlagSet("worktime", flag.ContinueOnError)
	port := flags.Int("port", getEnvAsInt("APP_PORT", 8080), "HTTP server port")
	dbPath := flags.String("db", getEnv("DB_PATH", "worktime.db"), "SQLite database path")
	start := flags.Int("start", getEnvAsInt("WORKDAY_START_HOUR", 9), "workday start hour")
	tz := flags.String("tz", getEnv("TIMEZONE", "UTC"), "business timezone")
	remind := flags.Duration("remind", getEnvAsDuration("REMINDER_INTERVAL", 24*time.Hour), "reminder check interval")
	reminders := flags.Bool("reminders", getEnvAsBool("REMINDER_ENABLED", true), "enable timesheet reminders")
	level := flags.String("log", getEnv("LOG_LEVEL", "info"), "log level")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if *start < 1 || *start > 23 {
		return nil, fmt.Errorf("invalid workday start hour %d", *start)
	}
	if *remind <= 0 {
		return nil, fmt.Errorf("invalid reminder interval %s", *remind)
	}
	loc, err := time.LoadLocation(*tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	lvl, err := logrus.ParseLevel(*level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return &Config{
		Port:             *port,
		DBPath:           *dbPath,
		WorkdayStartHour: *start,
		Location:         loc,
		ReminderInterval: *remind,
		ReminderEnabled:  *reminders,
		LogLevel:         lvl,
	}, nil
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(name string, defaultVal int) int {
	if val, err := strconv.Atoi(getEnv(name, "")); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsBool(name string, defaultVal bool) bool {
	if val, err := strconv.ParseBool(getEnv(name, "")); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	if val, err := time.ParseDuration(getEnv(name, "")); err == nil {
		return val
	}
	return defaultVal
}
