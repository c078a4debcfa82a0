package stain

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that reads and writes Go duration strings
// ("250ms", "5s") in config files.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("stain: duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// RunConfig holds window and renderer settings for Run and NewRenderer.
// Zero fields take the defaults listed on each field.
type RunConfig struct {
	// Title is the window title.
	Title string `toml:"title"`
	// Width and Height are the initial window size. Default 800x600.
	Width  int `toml:"width"`
	Height int `toml:"height"`
	// Resizable lets the user resize the window.
	Resizable bool `toml:"resizable"`
	// ShowFPS overlays the frame rate.
	ShowFPS bool `toml:"show_fps"`
	// ClearColor fills each frame before drawing. Default white.
	ClearColor *Color `toml:"clear_color"`
	// FrameTimeout bounds the wait for the backend. Default 5s.
	FrameTimeout Duration `toml:"frame_timeout"`
	// Debug turns on per-frame statistics logging and tree checks.
	Debug bool `toml:"debug"`
	// ImageCacheFrames is how many frames an unused image is kept. Default 600.
	ImageCacheFrames uint64 `toml:"image_cache_frames"`
	// PlaceholderImages draws a checkerboard for images that fail to load.
	PlaceholderImages bool `toml:"placeholder_images"`
	// FontSizes are registered with the backend before the first frame.
	// Default DefaultFontSizes.
	FontSizes []float32 `toml:"font_sizes"`
	// ScreenshotDir is where screenshots are written. Default "screenshots".
	ScreenshotDir string `toml:"screenshot_dir"`
	// TestScript is a JSON test script to play. The window closes when it
	// finishes and Run reports failed expectations.
	TestScript string `toml:"test_script"`
}

// ParseRunConfig decodes a TOML document. Unknown keys are rejected.
func ParseRunConfig(data []byte) (RunConfig, error) {
	var cfg RunConfig
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return RunConfig{}, fmt.Errorf("stain: parse run config: %w", err)
	}
	return cfg, nil
}

// LoadRunConfig reads and decodes a TOML config file.
func LoadRunConfig(path string) (RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunConfig{}, fmt.Errorf("stain: load run config: %w", err)
	}
	cfg, err := ParseRunConfig(data)
	if err != nil {
		return RunConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// withDefaults returns a copy of cfg with zero fields filled in.
func (cfg RunConfig) withDefaults() RunConfig {
	if cfg.Width <= 0 {
		cfg.Width = 800
	}
	if cfg.Height <= 0 {
		cfg.Height = 600
	}
	if cfg.ClearColor == nil {
		c := ColorWhite
		cfg.ClearColor = &c
	}
	if cfg.FrameTimeout <= 0 {
		cfg.FrameTimeout = Duration(DefaultFrameTimeout)
	}
	if cfg.ImageCacheFrames == 0 {
		cfg.ImageCacheFrames = DefaultMaxIdleFrames
	}
	if cfg.FontSizes == nil {
		cfg.FontSizes = DefaultFontSizes
	}
	if cfg.ScreenshotDir == "" {
		cfg.ScreenshotDir = defaultScreenshotDir
	}
	return cfg
}
