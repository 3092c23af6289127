// Package config provides configuration management for the storyreel editor.
// Configuration is loaded from environment variables (optionally seeded from a
// .env file) with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort     = 8790
	DefaultLogLevel = "info"
	DefaultDataDir  = ".storyreel"

	// Environment variable names
	EnvPort     = "STORYREEL_PORT"
	EnvLogLevel = "STORYREEL_LOG_LEVEL"
	EnvDataDir  = "STORYREEL_DATA_DIR"
	EnvHeadless = "STORYREEL_HEADLESS"

	// Probe environment variable names
	EnvFFprobe          = "STORYREEL_FFPROBE"
	EnvProbeTimeout     = "STORYREEL_PROBE_TIMEOUT"
	EnvProbeConcurrency = "STORYREEL_PROBE_CONCURRENCY"

	// Editor environment variable names
	EnvMaxClipDuration      = "STORYREEL_MAX_CLIP_DURATION"
	EnvDefaultMediaDuration = "STORYREEL_DEFAULT_MEDIA_DURATION"
	EnvSnapThresholdPx      = "STORYREEL_SNAP_THRESHOLD_PX"
	EnvEditorFile           = "STORYREEL_EDITOR_FILE"
	EnvFrameRate            = "STORYREEL_FRAME_RATE"
	EnvPruneOnRemove        = "STORYREEL_PRUNE_ON_REMOVE"

	// HTTP environment variable names
	EnvMaxUploadMB    = "STORYREEL_MAX_UPLOAD_MB"
	EnvAllowedOrigins = "STORYREEL_ALLOWED_ORIGINS"

	// Session environment variable names
	EnvSessionTTL      = "STORYREEL_SESSION_TTL"
	EnvSessionMaxBytes = "STORYREEL_SESSION_MAX_BYTES"

	// Database filename
	DBFilename = "storyreel.db"

	// EditorFilename is the optional YAML file with the track template and keymap.
	EditorFilename = "editor.yaml"

	DefaultFFprobe              = "ffprobe"
	DefaultProbeTimeout         = 30 // seconds
	DefaultProbeConcurrency     = 4
	DefaultMaxClipDuration      = 60.0 // seconds
	DefaultMediaDuration        = 5.0  // seconds
	DefaultSnapThresholdPx      = 10.0
	DefaultFrameRate            = 30.0
	DefaultMaxUploadMB          = 2048
	DefaultSessionTTLHours      = 24
	DefaultSessionMaxBytes      = 10 * 1024 * 1024
	defaultEnvFilename          = ".env"
	maxProbeConcurrency         = 32
	minSnapThresholdPx          = 0.0
	defaultSessionTTLUpperHours = 24 * 30
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	MediaDir() string
	Headless() bool
	FFprobePath() string
	ProbeTimeout() time.Duration
	ProbeConcurrency() int
	MaxClipDuration() float64
	DefaultMediaDuration() float64
	SnapThresholdPx() float64
	SessionTTL() time.Duration
	SessionMaxBytes() int
	EditorFile() string
	FrameRate() float64
	PruneOnRemove() bool
	MaxUploadBytes() int64
	AllowedOrigins() []string
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string
	headless bool

	ffprobe          string
	probeTimeout     time.Duration
	probeConcurrency int

	maxClipDuration      float64
	defaultMediaDuration float64
	snapThresholdPx      float64
	editorFile           string
	frameRate            float64
	pruneOnRemove        bool

	maxUploadBytes int64
	allowedOrigins []string

	sessionTTL      time.Duration
	sessionMaxBytes int
}

// New creates a new EnvConfig with defaults and environment variable overrides.
// A .env file in the data directory or the working directory seeds variables
// that are not already present in the environment.
func New() (*EnvConfig, error) {
	loadDotEnv()

	cfg := &EnvConfig{
		port:                 DefaultPort,
		logLevel:             DefaultLogLevel,
		dataDir:              defaultDataDir(),
		ffprobe:              DefaultFFprobe,
		probeTimeout:         DefaultProbeTimeout * time.Second,
		probeConcurrency:     DefaultProbeConcurrency,
		maxClipDuration:      DefaultMaxClipDuration,
		defaultMediaDuration: DefaultMediaDuration,
		snapThresholdPx:      DefaultSnapThresholdPx,
		frameRate:            DefaultFrameRate,
		maxUploadBytes:       DefaultMaxUploadMB << 20,
		sessionTTL:           DefaultSessionTTLHours * time.Hour,
		sessionMaxBytes:      DefaultSessionMaxBytes,
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	if fp := os.Getenv(EnvFFprobe); fp != "" {
		cfg.ffprobe = fp
	}

	if v := os.Getenv(EnvProbeTimeout); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid %s: must be a positive number of seconds", EnvProbeTimeout)
		}
		cfg.probeTimeout = time.Duration(secs) * time.Second
	}

	if v := os.Getenv(EnvProbeConcurrency); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxProbeConcurrency {
			return nil, fmt.Errorf("invalid %s: must be between 1 and %d", EnvProbeConcurrency, maxProbeConcurrency)
		}
		cfg.probeConcurrency = n
	}

	var err error
	if cfg.maxClipDuration, err = positiveFloat(EnvMaxClipDuration, cfg.maxClipDuration); err != nil {
		return nil, err
	}
	if cfg.defaultMediaDuration, err = positiveFloat(EnvDefaultMediaDuration, cfg.defaultMediaDuration); err != nil {
		return nil, err
	}

	if v := os.Getenv(EnvSnapThresholdPx); v != "" {
		px, err := strconv.ParseFloat(v, 64)
		if err != nil || px < minSnapThresholdPx {
			return nil, fmt.Errorf("invalid %s: must be a non-negative number", EnvSnapThresholdPx)
		}
		cfg.snapThresholdPx = px
	}

	if cfg.frameRate, err = positiveFloat(EnvFrameRate, cfg.frameRate); err != nil {
		return nil, err
	}

	if v := os.Getenv(EnvPruneOnRemove); v != "" {
		prune, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPruneOnRemove, err)
		}
		cfg.pruneOnRemove = prune
	}

	cfg.editorFile = os.Getenv(EnvEditorFile)

	if v := os.Getenv(EnvMaxUploadMB); v != "" {
		mb, err := strconv.ParseInt(v, 10, 64)
		if err != nil || mb < 0 {
			return nil, fmt.Errorf("invalid %s: must be a non-negative number of megabytes", EnvMaxUploadMB)
		}
		cfg.maxUploadBytes = mb << 20
	}

	for _, o := range strings.Split(os.Getenv(EnvAllowedOrigins), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.allowedOrigins = append(cfg.allowedOrigins, strings.TrimSuffix(o, "/"))
		}
	}

	if v := os.Getenv(EnvSessionTTL); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours < 1 || hours > defaultSessionTTLUpperHours {
			return nil, fmt.Errorf("invalid %s: must be between 1 and %d hours", EnvSessionTTL, defaultSessionTTLUpperHours)
		}
		cfg.sessionTTL = time.Duration(hours) * time.Hour
	}

	if v := os.Getenv(EnvSessionMaxBytes); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid %s: must be a positive byte count", EnvSessionMaxBytes)
		}
		cfg.sessionMaxBytes = n
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// MediaDir returns the directory holding locally imported media
func (c *EnvConfig) MediaDir() string {
	return filepath.Join(c.dataDir, "media")
}

// Headless reports whether the system tray should be skipped
func (c *EnvConfig) Headless() bool {
	return c.headless
}

func (c *EnvConfig) FFprobePath() string {
	return c.ffprobe
}

func (c *EnvConfig) ProbeTimeout() time.Duration {
	return c.probeTimeout
}

func (c *EnvConfig) ProbeConcurrency() int {
	return c.probeConcurrency
}

// MaxClipDuration caps the duration of a clip created from a media item, in seconds.
func (c *EnvConfig) MaxClipDuration() float64 {
	return c.maxClipDuration
}

// DefaultMediaDuration is the fallback duration used until probing resolves.
func (c *EnvConfig) DefaultMediaDuration() float64 {
	return c.defaultMediaDuration
}

func (c *EnvConfig) SnapThresholdPx() float64 {
	return c.snapThresholdPx
}

func (c *EnvConfig) SessionTTL() time.Duration {
	return c.sessionTTL
}

func (c *EnvConfig) SessionMaxBytes() int {
	return c.sessionMaxBytes
}

// EditorFile returns the path of the editor YAML file
func (c *EnvConfig) EditorFile() string {
	if c.editorFile != "" {
		return c.editorFile
	}
	return filepath.Join(c.dataDir, EditorFilename)
}

// FrameRate is the timebase for frame stepping and EDL export.
func (c *EnvConfig) FrameRate() float64 {
	return c.frameRate
}

// PruneOnRemove reports whether removing media also deletes the clips that use it.
func (c *EnvConfig) PruneOnRemove() bool {
	return c.pruneOnRemove
}

// MaxUploadBytes caps a single media upload. Zero means unlimited.
func (c *EnvConfig) MaxUploadBytes() int64 {
	return c.maxUploadBytes
}

// AllowedOrigins are browser origins trusted in addition to loopback ones.
func (c *EnvConfig) AllowedOrigins() []string {
	return c.allowedOrigins
}

func positiveFloat(env string, def float64) (float64, error) {
	v := os.Getenv(env)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive number", env)
	}
	return f, nil
}

// loadDotEnv seeds the environment from .env files. Variables that are
// already set win over file values.
func loadDotEnv() {
	candidates := []string{defaultEnvFilename}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		candidates = append([]string{filepath.Join(dd, defaultEnvFilename)}, candidates...)
	} else {
		candidates = append([]string{filepath.Join(defaultDataDir(), defaultEnvFilename)}, candidates...)
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
