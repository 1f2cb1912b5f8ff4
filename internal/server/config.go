package server

import (
	"os"
	"strconv"
	"time"
)

// Roles select which schedulers a process runs. The usual deployment is
// a single process running both; split roles exist so the background
// notifier can outlive foreground restarts.
const (
	RoleAll        = "all"
	RoleForeground = "foreground"
	RoleBackground = "background"
)

// Config holds server configuration from environment variables.
type Config struct {
	Port     string
	GRPCPort string
	NatsURL  string
	Role     string

	// Audio disables the sound device when false; firing still works,
	// playback is silently skipped.
	Audio bool

	// JanitorSchedule is a cron expression for the maintenance sweep.
	JanitorSchedule string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// LoadConfig reads configuration from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		Port:            getEnv("ALARMD_PORT", "8080"),
		GRPCPort:        getEnv("ALARMD_GRPC_PORT", "9090"),
		NatsURL:         getEnv("NATS_URL", "nats://localhost:4222"),
		Role:            getEnv("ALARMD_ROLE", RoleAll),
		Audio:           getEnvBool("ALARMD_AUDIO", true),
		JanitorSchedule: getEnv("ALARMD_JANITOR_SCHEDULE", "17 3 * * *"),
		ReadTimeout:     getEnvDuration("ALARMD_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getEnvDuration("ALARMD_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:     getEnvDuration("ALARMD_IDLE_TIMEOUT", 120*time.Second),
		ShutdownTimeout: getEnvDuration("ALARMD_SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

// RunsForeground reports whether this process hosts the foreground
// scheduler, the ringing surface and the HTTP API.
func (c Config) RunsForeground() bool {
	return c.Role == RoleAll || c.Role == RoleForeground
}

// RunsBackground reports whether this process hosts the background
// scheduler and notification delivery.
func (c Config) RunsBackground() bool {
	return c.Role == RoleAll || c.Role == RoleBackground
}

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
