package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env             string
	HTTPPort        string
	DBPath          string
	TimeZone        string
	LogLevel        string
	LogFormat       string
	LogRequests     bool
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	WebDir          string
	PassingGrade    float64
}

// Load reads an optional .env file and returns the configuration with sensible defaults.
// Variables already set in the environment win over the file.
func Load() App {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read .env file", "error", err)
	}
	return App{
		Env:             getEnv("APP_ENV", "dev"),
		HTTPPort:        getEnv("HTTP_PORT", "8081"),
		DBPath:          getEnv("DB_PATH", "./dashboard.db"),
		TimeZone:        getEnv("DASHBOARD_TZ", "Local"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
		LogRequests:     boolEnv("LOG_REQUESTS", true),
		ShutdownTimeout: durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),
		CORSOrigins:     listEnv("CORS_ORIGINS", []string{"*"}),
		WebDir:          getEnv("WEB_DIR", ""),
		PassingGrade:    floatEnv("PASSING_GRADE", 5),
	}
}

// Production reports whether the app runs in a production environment.
func (a App) Production() bool {
	return a.Env == "production" || a.Env == "prod"
}

// Location resolves TimeZone. Unknown zones fall back to time.Local.
func (a App) Location() *time.Location {
	if a.TimeZone == "" || a.TimeZone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil {
		slog.Warn("invalid time zone, using local", "zone", a.TimeZone, "error", err)
		return time.Local
	}
	return loc
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			slog.Warn("invalid duration, using fallback", "key", key, "error", err, "fallback", fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if val == "1" || val == "true" || val == "TRUE" {
			return true
		}
		if val == "0" || val == "false" || val == "FALSE" {
			return false
		}
		slog.Warn("invalid bool, using fallback", "key", key, "fallback", fallback)
	}
	return fallback
}

func floatEnv(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
		slog.Warn("invalid number, using fallback", "key", key, "fallback", fallback)
	}
	return fallback
}

func listEnv(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
