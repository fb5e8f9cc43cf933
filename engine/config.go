package tempora

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	Mt "github.com/maroda/tempora/types"
)

// Config holds every engine option.
// Precedence, lowest first: DefaultConfig, the JSON config file, the environment.
type Config struct {
	SlotCount              int              `json:"slotCount" env:"TEMPORA_SLOT_COUNT"`
	DetectionRadiusDegrees float64          `json:"detectionRadiusDegrees" env:"TEMPORA_DETECTION_DEGREES"`
	DetectionRadiusPixels  float64          `json:"detectionRadiusPixels" env:"TEMPORA_DETECTION_PIXELS"`
	MinCollisionIntensity  float64          `json:"minCollisionIntensity" env:"TEMPORA_MIN_COLLISION_INTENSITY"`
	DetectionMode          Mt.DetectionMode `json:"detectionMode" env:"TEMPORA_DETECTION_MODE"`
	GraceWindowMs          int              `json:"graceWindowMs" env:"TEMPORA_GRACE_WINDOW_MS"`
	TransitionDurationMs   int              `json:"transitionDurationMs" env:"TEMPORA_TRANSITION_MS"`
	TransitionTickMs       int              `json:"transitionTickMs" env:"TEMPORA_TRANSITION_TICK_MS"`
	RippleTTLMinMs         int              `json:"rippleTtlMinMs" env:"TEMPORA_RIPPLE_TTL_MIN_MS"`
	RippleTTLMaxMs         int              `json:"rippleTtlMaxMs" env:"TEMPORA_RIPPLE_TTL_MAX_MS"`
	NeighborAttenuation    float64          `json:"neighborAttenuation" env:"TEMPORA_NEIGHBOR_ATTENUATION"`
	NeighborMinIntensity   float64          `json:"neighborMinIntensity" env:"TEMPORA_NEIGHBOR_MIN_INTENSITY"`
	InitialScale           string           `json:"initialScale" env:"TEMPORA_INITIAL_SCALE"`
	Timezone               string           `json:"timezone" env:"TEMPORA_TIMEZONE"`
	CenterX                float64          `json:"centerX" env:"TEMPORA_CENTER_X"`
	CenterY                float64          `json:"centerY" env:"TEMPORA_CENTER_Y"`
	Radius                 float64          `json:"radius" env:"TEMPORA_RADIUS"`
}

// DefaultConfig is the configuration used when nothing else is set
func DefaultConfig() Config {
	return Config{
		SlotCount:              24,
		DetectionRadiusDegrees: 8,
		DetectionRadiusPixels:  18,
		MinCollisionIntensity:  0.1,
		DetectionMode:          Mt.SlotScan,
		GraceWindowMs:          100,
		TransitionDurationMs:   1500,
		TransitionTickMs:       16,
		RippleTTLMinMs:         1000,
		RippleTTLMaxMs:         2500,
		NeighborAttenuation:    0.3,
		NeighborMinIntensity:   0.05,
		InitialScale:           "day",
		Timezone:               "Local",
		CenterX:                250,
		CenterY:                250,
		Radius:                 200,
	}
}

// ConfigFile is the on-disk JSON document.
// Glyphs is an optional initial registry snapshot.
type ConfigFile struct {
	Engine Config     `json:"engine"`
	Glyphs []Mt.Glyph `json:"glyphs"`
}

// Validate checks ranges and names, returning every problem found
func (c Config) Validate() error {
	var errs []error

	if c.SlotCount <= 0 {
		errs = append(errs, fmt.Errorf("slotCount must be positive, got %d", c.SlotCount))
	}
	if c.DetectionRadiusDegrees <= 0 || c.DetectionRadiusDegrees > 180 {
		errs = append(errs, fmt.Errorf("detectionRadiusDegrees must be in (0, 180], got %v", c.DetectionRadiusDegrees))
	}
	if c.DetectionRadiusPixels <= 0 {
		errs = append(errs, fmt.Errorf("detectionRadiusPixels must be positive, got %v", c.DetectionRadiusPixels))
	}
	if c.MinCollisionIntensity < 0 || c.MinCollisionIntensity >= 1 {
		errs = append(errs, fmt.Errorf("minCollisionIntensity must be in [0, 1), got %v", c.MinCollisionIntensity))
	}
	if c.DetectionMode != Mt.SlotScan && c.DetectionMode != Mt.PointProximity {
		errs = append(errs, fmt.Errorf("unknown detectionMode %q", c.DetectionMode))
	}
	if c.GraceWindowMs < 0 {
		errs = append(errs, fmt.Errorf("graceWindowMs must not be negative, got %d", c.GraceWindowMs))
	}
	if c.TransitionDurationMs <= 0 || c.TransitionTickMs <= 0 {
		errs = append(errs, fmt.Errorf("transition duration and tick must be positive, got %d/%d", c.TransitionDurationMs, c.TransitionTickMs))
	}
	if c.RippleTTLMinMs <= 0 || c.RippleTTLMaxMs < c.RippleTTLMinMs {
		errs = append(errs, fmt.Errorf("ripple ttl range invalid: %d-%d", c.RippleTTLMinMs, c.RippleTTLMaxMs))
	}
	if c.NeighborAttenuation < 0 || c.NeighborAttenuation > 1 {
		errs = append(errs, fmt.Errorf("neighborAttenuation must be in [0, 1], got %v", c.NeighborAttenuation))
	}
	if c.NeighborMinIntensity < 0 {
		errs = append(errs, fmt.Errorf("neighborMinIntensity must not be negative, got %v", c.NeighborMinIntensity))
	}
	if c.Radius <= 0 {
		errs = append(errs, fmt.Errorf("radius must be positive, got %v", c.Radius))
	}
	if _, err := Mt.ParseTimeScale(c.InitialScale); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Location resolves Timezone; empty and "Local" mean the system zone
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Scale is the parsed InitialScale, Day when unparseable
func (c Config) Scale() Mt.TimeScale {
	s, err := Mt.ParseTimeScale(c.InitialScale)
	if err != nil {
		return Mt.Day
	}
	return s
}

func (c Config) Geometry() Geometry {
	return NewGeometry(c.CenterX, c.CenterY, c.Radius)
}

func (c Config) RippleConfig() RippleConfig {
	return RippleConfig{
		Slots:                c.SlotCount,
		TTLMin:               ms(c.RippleTTLMinMs),
		TTLMax:               ms(c.RippleTTLMaxMs),
		NeighborAttenuation:  c.NeighborAttenuation,
		NeighborMinIntensity: c.NeighborMinIntensity,
	}
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// ApplyEnv overrides c with any TEMPORA_* variables that are set
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadConfigFileName pulls a given filename config off local disk.
// Validation is performed on the file before decoding.
func LoadConfigFileName(filename string) (*ConfigFile, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := validateLoad(file); err != nil {
		slog.Error("Validation failed", slog.Any("Error", err))
		return nil, err
	}

	return LoadConfig(file)
}

func validateLoad(file *os.File) error {
	info, err := file.Stat()
	if err != nil {
		slog.Error("could not stat file")
		return err
	}
	if info.Size() == 0 {
		slog.Error("file is empty")
		return errors.New("file is empty")
	}
	return nil
}

// LoadConfig decodes a config document on top of DefaultConfig,
// so options left out of the file keep their defaults
func LoadConfig(r io.Reader) (*ConfigFile, error) {
	cf := &ConfigFile{Engine: DefaultConfig()}
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cf); err != nil {
		slog.Error("could not decode file", slog.Any("Error", err))
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cf, nil
}

// ResolveConfig layers defaults, the optional file and the environment,
// then validates the result. An empty filename or ENOENT skips the file.
func ResolveConfig(filename string) (Config, []Mt.Glyph, error) {
	cfg := DefaultConfig()
	var glyphs []Mt.Glyph

	if filename != "" && filename != "ENOENT" {
		cf, err := LoadConfigFileName(filename)
		if err != nil {
			return cfg, nil, fmt.Errorf("load config %s: %w", filename, err)
		}
		cfg = cf.Engine
		glyphs = cf.Glyphs
	}

	if err := cfg.ApplyEnv(); err != nil {
		return cfg, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, glyphs, nil
}
