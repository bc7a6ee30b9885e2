package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Face      FaceConfig      `yaml:"face"`
	Geofence  GeofenceConfig  `yaml:"geofence"`
	Storage   StorageConfig   `yaml:"storage"`
	Journal   JournalConfig   `yaml:"journal"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Camera    CameraConfig    `yaml:"camera"`
	Location  LocationConfig  `yaml:"location"`
	Web       WebConfig       `yaml:"web"`
}

type FaceConfig struct {
	Tolerance      float64 `yaml:"tolerance"`       // maximum embedding distance for a match
	Metric         string  `yaml:"metric"`          // euclidean or cosine
	MinDetScore    float64 `yaml:"min_det_score"`   // detections below this score are ignored
	DuplicateCheck bool    `yaml:"duplicate_check"` // refuse a face already registered to another agent
}

type GeofenceConfig struct {
	RadiusMeters float64 `yaml:"radius_m"`
}

type StorageConfig struct {
	Backend      string `yaml:"backend"` // file or postgres
	TemplatesDir string `yaml:"templates_dir"`
}

type JournalConfig struct {
	Backend    string `yaml:"backend"`  // csv, postgres or mariadb
	Path       string `yaml:"path"`     // CSV journal file
	Language   string `yaml:"language"` // fr or en, selects column names and status labels
	Timezone   string `yaml:"timezone"` // IANA name used for journal timestamps
	MariaDBDSN string `yaml:"-"`
}

// TimeLocation resolves the journal timezone.
func (c *JournalConfig) TimeLocation() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("journal timezone: %w", err)
	}
	return loc, nil
}

type DatabaseConfig struct {
	URL          string `yaml:"-"`              // PostgreSQL connection URL
	MaxOpenConns int    `yaml:"max_open_conns"` // Maximum open connections (default 25)
	MaxIdleConns int    `yaml:"max_idle_conns"` // Maximum idle connections (default 5)
}

type EmbeddingConfig struct {
	URL string `yaml:"url"` // face embedding service
}

type CameraConfig struct {
	SnapshotURL string `yaml:"-"` // HTTP snapshot endpoint (optional)
}

type LocationConfig struct {
	URL string `yaml:"-"` // JSON position endpoint (optional)
}

type WebConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"-"`
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

// envFloat reads a non-negative finite float. Returns the default value if
// the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return defaultVal
	}
	return f
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return defaultVal
	}
	return b
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Defaults returns the embedded defaults without environment overrides.
func Defaults() Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return cfg
}

func Load() *Config {
	d := Defaults()

	return &Config{
		Face: FaceConfig{
			Tolerance:      envFloat("FACE_TOLERANCE", d.Face.Tolerance),
			Metric:         envString("FACE_METRIC", d.Face.Metric),
			MinDetScore:    envFloat("FACE_MIN_DET_SCORE", d.Face.MinDetScore),
			DuplicateCheck: envBool("DUPLICATE_FACE_CHECK", d.Face.DuplicateCheck),
		},
		Geofence: GeofenceConfig{
			RadiusMeters: envFloat("GEOFENCE_RADIUS_M", d.Geofence.RadiusMeters),
		},
		Storage: StorageConfig{
			Backend:      envString("STORAGE_BACKEND", d.Storage.Backend),
			TemplatesDir: envString("TEMPLATES_DIR", d.Storage.TemplatesDir),
		},
		Journal: JournalConfig{
			Backend:    envString("JOURNAL_BACKEND", d.Journal.Backend),
			Path:       envString("JOURNAL_PATH", d.Journal.Path),
			Language:   envString("JOURNAL_LANGUAGE", d.Journal.Language),
			Timezone:   envString("JOURNAL_TIMEZONE", d.Journal.Timezone),
			MariaDBDSN: os.Getenv("JOURNAL_MARIADB_DSN"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", d.Database.MaxOpenConns),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", d.Database.MaxIdleConns),
		},
		Embedding: EmbeddingConfig{
			URL: envString("EMBEDDING_URL", d.Embedding.URL),
		},
		Camera: CameraConfig{
			SnapshotURL: os.Getenv("CAMERA_SNAPSHOT_URL"),
		},
		Location: LocationConfig{
			URL: os.Getenv("LOCATION_URL"),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", d.Web.Host),
			Port:           envInt("WEB_PORT", d.Web.Port),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
	}
}

// Validate checks backend names and the settings each backend needs.
func (c *Config) Validate() error {
	switch c.Face.Metric {
	case "euclidean", "cosine":
	default:
		return fmt.Errorf("FACE_METRIC must be euclidean or cosine, got %q", c.Face.Metric)
	}

	switch c.Storage.Backend {
	case "file":
		if c.Storage.TemplatesDir == "" {
			return fmt.Errorf("TEMPLATES_DIR is required for the file backend")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres storage backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be file or postgres, got %q", c.Storage.Backend)
	}

	switch c.Journal.Backend {
	case "csv":
		if c.Journal.Path == "" {
			return fmt.Errorf("JOURNAL_PATH is required for the csv journal")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres journal")
		}
	case "mariadb":
		if c.Journal.MariaDBDSN == "" {
			return fmt.Errorf("JOURNAL_MARIADB_DSN is required for the mariadb journal")
		}
	default:
		return fmt.Errorf("JOURNAL_BACKEND must be csv, postgres or mariadb, got %q", c.Journal.Backend)
	}

	switch c.Journal.Language {
	case "fr", "en":
	default:
		return fmt.Errorf("JOURNAL_LANGUAGE must be fr or en, got %q", c.Journal.Language)
	}

	if _, err := c.Journal.TimeLocation(); err != nil {
		return err
	}
	return nil
}
