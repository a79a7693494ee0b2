package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Database DatabaseConfig
	Roster   RosterConfig
	Detector DetectorConfig
	Camera   CameraConfig
	Matching MatchingConfig
	Session  SessionConfig
	Web      WebConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// RosterConfig points at an optional external student information system.
// When DatabaseURL is empty, rosters come from the classes stored in PostgreSQL.
type RosterConfig struct {
	DatabaseURL string // MariaDB DSN (e.g., sis:sis@tcp(mariadb:3306)/school)
	Table       string // table with class_id and student_name columns
}

type DetectorConfig struct {
	Kind      string // "http" (default) or "goface"
	URL       string // face embedding service, defaults to http://localhost:8000
	ModelsDir string // dlib model directory for the goface detector
}

type CameraConfig struct {
	Source string // device index ("0"), MJPEG URL, or directory of JPEG frames
}

type MatchingConfig struct {
	Tolerance       float64       // maximum embedding distance for a match
	Policy          string        // "first" or "nearest"
	Metric          string        // "euclidean" or "cosine"
	FrameScale      float64       // downscale factor applied before detection
	ProcessEvery    int           // run detection on every Nth frame
	VerifyDwell     time.Duration // how long a candidate must stay stable before marking
	DefaultLateTime string        // cutoff used when a subject has none
}

// SessionConfig controls the active attendance session.
type SessionConfig struct {
	RolloverSchedule string // cron spec that re-opens the active session on a new day
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // extra CORS origins besides localhost
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a positive float, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration accepts Go duration strings ("2s", "1500ms").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Roster: RosterConfig{
			DatabaseURL: os.Getenv("ROSTER_DATABASE_URL"),
			Table:       envString("ROSTER_TABLE", "class_enrollments"),
		},
		Detector: DetectorConfig{
			Kind:      envString("DETECTOR", "http"),
			URL:       os.Getenv("EMBEDDING_URL"),
			ModelsDir: envString("GOFACE_MODELS_DIR", "models"),
		},
		Camera: CameraConfig{
			Source: envString("CAMERA_SOURCE", "0"),
		},
		Matching: MatchingConfig{
			Tolerance:       envFloat("MATCH_TOLERANCE", 0.50),
			Policy:          strings.ToLower(envString("MATCH_POLICY", "first")),
			Metric:          strings.ToLower(envString("MATCH_METRIC", "euclidean")),
			FrameScale:      envFloat("FRAME_SCALE", 0.25),
			ProcessEvery:    envInt("PROCESS_EVERY", 6),
			VerifyDwell:     envDuration("VERIFY_DWELL", 2*time.Second),
			DefaultLateTime: envString("DEFAULT_LATE_TIME", "11:59 PM"),
		},
		Session: SessionConfig{
			RolloverSchedule: envString("ROLLOVER_SCHEDULE", "0 0 * * *"),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
	}
}

// UpscaleFactor returns how much detector coordinates must be multiplied by
// to map back onto the full-size frame.
func (m *MatchingConfig) UpscaleFactor() float64 {
	if m.FrameScale <= 0 || m.FrameScale > 1 {
		return 1
	}
	return 1 / m.FrameScale
}
