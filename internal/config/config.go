// Package config loads retint profiles.
//
// A profile is a YAML file holding the same settings as the command-line
// flags. It is read from the --config flag or the RETINT_CONFIG environment
// variable; there is no automatic discovery. Flags given explicitly on the
// command line override values from the profile.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding a profile path.
const EnvVar = "RETINT_CONFIG"

// Config is one conversion profile.
type Config struct {
	// Mode is "recolor" or "replace".
	Mode string `yaml:"mode"`

	// Hue is either degrees or a #rrggbb color. In recolor mode it is the
	// hue shift; in replace mode it picks the replacement by hue tag.
	Hue string `yaml:"hue"`

	// Saturation and Brightness are percentages; 100 leaves the channel
	// unchanged.
	Saturation float64 `yaml:"saturation"`
	Brightness float64 `yaml:"brightness"`

	Select SelectConfig `yaml:"select"`

	Replace ReplaceConfig `yaml:"replace"`

	Output OutputConfig `yaml:"output"`

	Preview PreviewConfig `yaml:"preview"`
}

// SelectConfig chooses target entries.
type SelectConfig struct {
	// Contains is a path fragment every target must include.
	// Default: textures/item
	Contains string `yaml:"contains"`

	// Extensions lists accepted extensions. Default: [.png]
	Extensions []string `yaml:"extensions"`

	// Glob, when set, is used instead of Contains.
	Glob string `yaml:"glob"`
}

// ReplaceConfig configures replace mode.
type ReplaceConfig struct {
	// Image is a single replacement texture used for every target.
	Image string `yaml:"image"`

	// Library is a directory of <hue tag>.png textures. Ignored if Image is
	// set.
	Library string `yaml:"library"`

	// Fit resizes the replacement to each target's dimensions.
	Fit bool `yaml:"fit"`
}

// OutputConfig configures re-encoding.
type OutputConfig struct {
	// JPEGQuality is used for .jpg/.jpeg targets. Default: 92
	JPEGQuality int `yaml:"jpeg_quality"`

	// Workers bounds parallel conversions. Default: number of CPUs.
	Workers int `yaml:"workers"`
}

// PreviewConfig configures interactive preview.
type PreviewConfig struct {
	// BatchSize is the number of targets rendered per step. Default: 100
	BatchSize int `yaml:"batch_size"`

	// Policy is "replace" or "append". Default: replace
	Policy string `yaml:"policy"`

	// ThumbSize is the edge of each thumbnail in pixels. Default: 128
	ThumbSize int `yaml:"thumb_size"`
}

// Default recolors PNGs under textures/item with unchanged saturation and
// brightness.
func Default() Config {
	return Config{
		Mode:       "recolor",
		Hue:        "0",
		Saturation: 100,
		Brightness: 100,
		Select: SelectConfig{
			Contains:   "textures/item",
			Extensions: []string{".png"},
		},
		Output: OutputConfig{
			JPEGQuality: 92,
		},
		Preview: PreviewConfig{
			BatchSize: 100,
			Policy:    "replace",
			ThumbSize: 128,
		},
	}
}

// Load reads a profile from path on top of Default. Unknown keys are an
// error so typos do not silently fall back to defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve loads the profile named by flagPath, or by RETINT_CONFIG when
// flagPath is empty. With neither set it returns Default.
func Resolve(flagPath string) (Config, string, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// Validate checks ranges that do not depend on other packages.
func (c Config) Validate() error {
	switch c.Mode {
	case "recolor", "replace":
	default:
		return fmt.Errorf("mode must be recolor or replace, got %q", c.Mode)
	}
	if c.Saturation < 0 {
		return fmt.Errorf("saturation must be >= 0, got %v", c.Saturation)
	}
	if c.Brightness < 0 {
		return fmt.Errorf("brightness must be >= 0, got %v", c.Brightness)
	}
	if c.Mode == "replace" && c.Replace.Image == "" && c.Replace.Library == "" {
		return errors.New("replace mode needs replace.image or replace.library")
	}
	if c.Output.JPEGQuality < 0 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("output.jpeg_quality must be in [0,100], got %d", c.Output.JPEGQuality)
	}
	if c.Output.Workers < 0 {
		return fmt.Errorf("output.workers must be >= 0, got %d", c.Output.Workers)
	}
	if c.Preview.BatchSize < 0 {
		return fmt.Errorf("preview.batch_size must be >= 0, got %d", c.Preview.BatchSize)
	}
	switch c.Preview.Policy {
	case "", "replace", "append":
	default:
		return fmt.Errorf("preview.policy must be replace or append, got %q", c.Preview.Policy)
	}
	return nil
}
