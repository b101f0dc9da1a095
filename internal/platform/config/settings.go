package config

import (
	"strconv"
	"time"
)

// Settings is the resolved runtime configuration of the server.
type Settings struct {
	Port               string
	RegistryFile       string
	OutputDir          string
	FFmpegBin          string
	TunnelAPIURL       string
	PublicBaseURL      string
	MaxWorkers         int
	StartupConcurrency int
	WorkerStopGrace    time.Duration
	ShutdownTimeout    time.Duration
	AddCameraRateLimit int
	LogLevel           string
	LogFormat          string
}

// FromEnv builds Settings from the process environment. Call Load first to
// merge a .env file.
func FromEnv() Settings {
	return Settings{
		Port:               GetEnv("PORT", "8000"),
		RegistryFile:       GetEnv("CONFIG_FILE", "config/cameras.json"),
		OutputDir:          GetEnv("OUTPUT_DIR", "streams"),
		FFmpegBin:          GetEnv("FFMPEG_BIN", "ffmpeg"),
		TunnelAPIURL:       GetEnv("TUNNEL_API_URL", "http://127.0.0.1:4040/api/tunnels"),
		PublicBaseURL:      GetEnv("PUBLIC_BASE_URL", ""),
		MaxWorkers:         GetEnvInt("MAX_WORKERS", 32),
		StartupConcurrency: GetEnvInt("STARTUP_CONCURRENCY", 4),
		WorkerStopGrace:    GetEnvDuration("WORKER_STOP_GRACE", 5*time.Second),
		ShutdownTimeout:    GetEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		AddCameraRateLimit: GetEnvInt("ADD_CAMERA_RATE_LIMIT", 60),
		LogLevel:           GetEnv("LOG_LEVEL", "info"),
		LogFormat:          GetEnv("LOG_FORMAT", "json"),
	}
}

// LocalBaseURL is the address the server is reachable at when no public
// tunnel is available.
func (s Settings) LocalBaseURL() string {
	if _, err := strconv.Atoi(s.Port); err != nil {
		return "http://localhost:8000"
	}
	return "http://localhost:" + s.Port
}
