package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// InputConfig points at the panorama(s) to split.
type InputConfig struct {
	Path string `yaml:"path"` // a single image or a directory of images
}

// OutputConfig describes where and how perspective views are written.
type OutputConfig struct {
	Path        string `yaml:"path"`         // output directory
	Format      string `yaml:"format"`       // png, jpg, jpeg, bmp, tiff; empty = same as input
	Width       int    `yaml:"width"`        // output view width in pixels
	Height      int    `yaml:"height"`       // output view height in pixels
	JPEGQuality int    `yaml:"jpeg_quality"` // 1-100
}

// LensConfig describes the virtual lens of the output camera.
type LensConfig struct {
	Name          string  `yaml:"name"`            // e.g., "24mm equivalent"
	FocalLengthMm float64 `yaml:"focal_length_mm"` // derives the FOV together with the sensor
}

// SensorConfig is optional: physical sensor size in mm.
type SensorConfig struct {
	WidthMm  float64 `yaml:"width_mm"`  // e.g., 36 for full frame
	HeightMm float64 `yaml:"height_mm"` // e.g., 24
}

// CameraConfig describes the rectilinear camera used for every view.
// When both Lens and Sensor are set, they take precedence over FOVDeg.
type CameraConfig struct {
	FOVDeg         float64       `yaml:"fov_deg"`          // horizontal field of view
	VerticalFOVDeg float64       `yaml:"vertical_fov_deg"` // 0 = same as horizontal
	Lens           *LensConfig   `yaml:"lens,omitempty"`   // optional
	Sensor         *SensorConfig `yaml:"sensor,omitempty"` // optional
}

// AnglesConfig lists the viewing directions to generate.
type AnglesConfig struct {
	Pitch  []float64 `yaml:"pitch"`  // caller pitch, 90 = level, 1-179
	Yaw    []float64 `yaml:"yaw"`    // 0-360
	Preset string    `yaml:"preset"` // named view table; overrides pitch/yaw when set

	// Coverage used by the "grid" preset.
	OverlapPercent     float64 `yaml:"overlap_percent"`      // overlap between neighbouring views (0-100)
	HorizontalAngleDeg float64 `yaml:"horizontal_angle_deg"` // total horizontal coverage (default: 360°)
	VerticalAngleDeg   float64 `yaml:"vertical_angle_deg"`   // total vertical coverage (default: 90°)
}

// DefaultsConfig contains generic processing parameters.
type DefaultsConfig struct {
	Interpolation   string `yaml:"interpolation"`     // bilinear or nearest
	MaxWorkers      int    `yaml:"max_workers"`       // views in flight per image, 0 = auto
	MaxImageWorkers int    `yaml:"max_image_workers"` // images in flight, 0 = auto
	DebugLevel      int    `yaml:"debug_level"`       // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
}

// Config aggregates all application configuration.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Camera   CameraConfig   `yaml:"camera"`
	Angles   AnglesConfig   `yaml:"angles"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Output.Path == "" {
		cfg.Output.Path = "output_images"
	}
	if cfg.Output.Width <= 0 {
		cfg.Output.Width = 1000
	}
	if cfg.Output.Height <= 0 {
		cfg.Output.Height = 1500
	}
	if cfg.Output.JPEGQuality <= 0 {
		cfg.Output.JPEGQuality = 95
	}
	if cfg.Camera.FOVDeg <= 0 {
		cfg.Camera.FOVDeg = 90
	}
	if len(cfg.Angles.Pitch) == 0 {
		cfg.Angles.Pitch = []float64{90} // straight ahead
	}
	if len(cfg.Angles.Yaw) == 0 {
		cfg.Angles.Yaw = []float64{0, 60, 120, 180, 240, 300}
	}
	if cfg.Angles.OverlapPercent == 0 {
		cfg.Angles.OverlapPercent = 30
	}
	if cfg.Angles.HorizontalAngleDeg <= 0 {
		cfg.Angles.HorizontalAngleDeg = 360
	}
	if cfg.Angles.VerticalAngleDeg <= 0 {
		cfg.Angles.VerticalAngleDeg = 90
	}
	if cfg.Defaults.Interpolation == "" {
		cfg.Defaults.Interpolation = "bilinear"
	}
}

// Validate checks ranges. Load calls it after applying defaults.
func (c *Config) Validate() error {
	if err := CheckFOV("camera.fov_deg", c.Camera.FOVDeg); err != nil {
		return err
	}
	if c.Camera.VerticalFOVDeg != 0 {
		if err := CheckFOV("camera.vertical_fov_deg", c.Camera.VerticalFOVDeg); err != nil {
			return err
		}
	}
	if c.Camera.Lens != nil && c.Camera.Lens.FocalLengthMm < 0 {
		return fmt.Errorf("camera.lens.focal_length_mm must be > 0, got %.2f", c.Camera.Lens.FocalLengthMm)
	}
	if c.Camera.Sensor != nil && (c.Camera.Sensor.WidthMm <= 0 || c.Camera.Sensor.HeightMm <= 0) {
		return fmt.Errorf("camera.sensor width_mm and height_mm must be > 0")
	}
	if c.Output.JPEGQuality > 100 {
		return fmt.Errorf("output.jpeg_quality must be between 1 and 100, got %d", c.Output.JPEGQuality)
	}
	switch strings.ToLower(c.Output.Format) {
	case "", "png", "jpg", "jpeg", "bmp", "tif", "tiff":
	default:
		return fmt.Errorf("output.format %q is not supported", c.Output.Format)
	}
	for _, p := range c.Angles.Pitch {
		if err := CheckPitch(p); err != nil {
			return err
		}
	}
	for _, y := range c.Angles.Yaw {
		if err := CheckYaw(y); err != nil {
			return err
		}
	}
	if c.Angles.OverlapPercent < 0 || c.Angles.OverlapPercent > MaxOverlapPercent {
		return fmt.Errorf("overlap_percent must be between 0 and %g, got %.2f", MaxOverlapPercent, c.Angles.OverlapPercent)
	}
	if c.Angles.HorizontalAngleDeg > 360 {
		return fmt.Errorf("horizontal_angle_deg must be <= 360, got %.2f", c.Angles.HorizontalAngleDeg)
	}
	if c.Angles.VerticalAngleDeg > 180 {
		return fmt.Errorf("vertical_angle_deg must be <= 180, got %.2f", c.Angles.VerticalAngleDeg)
	}
	switch strings.ToLower(c.Defaults.Interpolation) {
	case "bilinear", "linear", "nearest":
	default:
		return fmt.Errorf("interpolation %q must be bilinear or nearest", c.Defaults.Interpolation)
	}
	if c.Defaults.MaxWorkers < 0 || c.Defaults.MaxImageWorkers < 0 {
		return fmt.Errorf("worker counts must be >= 0")
	}
	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	return nil
}

// CheckPitch validates a caller pitch (90 = level).
func CheckPitch(p float64) error {
	if math.IsNaN(p) || p < 1 || p > 179 {
		return fmt.Errorf("%g is an invalid pitch value. It must be between 1 and 179", p)
	}
	return nil
}

// CheckYaw validates a caller yaw.
func CheckYaw(y float64) error {
	if math.IsNaN(y) || y < 0 || y > 360 {
		return fmt.Errorf("%g is an invalid yaw value. It must be between 0 and 360", y)
	}
	return nil
}

// CheckFOV validates a field of view in degrees, reported as name.
func CheckFOV(name string, fov float64) error {
	if math.IsNaN(fov) || math.IsInf(fov, 0) || fov <= 0 || fov >= 180 {
		return fmt.Errorf("%s must be between 0 and 180 (exclusive), got %g", name, fov)
	}
	return nil
}

// ValidateConfigPath rejects paths that escape the working tree or are not YAML.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	clean := filepath.Clean(path)
	if strings.HasPrefix(clean, "..") {
		return fmt.Errorf("config path %q escapes the working directory", path)
	}
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must end in .yaml", path)
	}
	return nil
}

// MaxOverlapPercent bounds angles.overlap_percent. Past it the grid step
// shrinks towards zero and the view count grows without limit.
const MaxOverlapPercent = 90.0

// OverlapRatio returns the overlap as a ratio, clamped to
// [0, MaxOverlapPercent/100]. For example, 30% becomes 0.3.
func (c *Config) OverlapRatio() float64 {
	return min(max(c.Angles.OverlapPercent, 0), MaxOverlapPercent) / 100.0
}

// HorizontalAngleDeg returns the total horizontal coverage in degrees.
func (c *Config) HorizontalAngleDeg() float64 {
	return c.Angles.HorizontalAngleDeg
}

// VerticalAngleDeg returns the total vertical coverage in degrees.
func (c *Config) VerticalAngleDeg() float64 {
	return c.Angles.VerticalAngleDeg
}
