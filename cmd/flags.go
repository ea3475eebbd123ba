package cmd

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"retint/internal/colorspace"
	"retint/internal/config"
	"retint/internal/repack"
	"retint/internal/transform"
)

// percentValue holds a percentage. "80", "80%" and "0.8x" all mean 80.
type percentValue float64

var _ pflag.Value = (*percentValue)(nil)

func newPercentValue(val float64, p *float64) *percentValue {
	*p = val
	return (*percentValue)(p)
}

func (p *percentValue) String() string {
	return strconv.FormatFloat(float64(*p), 'f', -1, 64) + "%"
}

func (p *percentValue) Set(s string) error {
	v, err := parsePercent(s)
	if err != nil {
		return err
	}
	*p = percentValue(v)
	return nil
}

func (p *percentValue) Type() string { return "percent" }

func parsePercent(s string) (float64, error) {
	s = strings.TrimSpace(s)
	scale := 1.0
	switch {
	case strings.HasSuffix(s, "%"):
		s = strings.TrimSuffix(s, "%")
	case strings.HasSuffix(s, "x"):
		s = strings.TrimSuffix(s, "x")
		scale = 100
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid percentage %q", s)
	}
	v *= scale
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("percentage must be a finite value >= 0, got %q", s)
	}
	return v, nil
}

// transformFlags are shared by recolor and preview.
type transformFlags struct {
	mode       string
	hue        string
	saturation float64
	brightness float64
	replace    string
	replaceDir string
	fit        bool
	contains   string
	extensions []string
	glob       string
}

func (f *transformFlags) register(fs *pflag.FlagSet) {
	def := config.Default()
	fs.StringVarP(&f.mode, "mode", "m", def.Mode, "recolor or replace")
	fs.StringVar(&f.hue, "hue", def.Hue, "hue shift in degrees or a #rrggbb color")
	fs.VarP(newPercentValue(def.Saturation, &f.saturation), "saturation", "s", "saturation scale (80, 80% or 0.8x)")
	fs.VarP(newPercentValue(def.Brightness, &f.brightness), "brightness", "b", "brightness scale (120, 120% or 1.2x)")
	fs.StringVar(&f.replace, "replace", "", "replacement texture for replace mode")
	fs.StringVar(&f.replaceDir, "replace-dir", "", "directory of <hue tag>.png replacements for replace mode")
	fs.BoolVar(&f.fit, "fit", false, "resize replacements to each target's dimensions")
	f.registerSelect(fs)
}

// registerSelect adds only the target selection flags.
func (f *transformFlags) registerSelect(fs *pflag.FlagSet) {
	def := config.Default()
	fs.StringVar(&f.contains, "select", def.Select.Contains, "path fragment every target contains")
	fs.StringSliceVar(&f.extensions, "ext", def.Select.Extensions, "target extensions")
	fs.StringVar(&f.glob, "glob", "", "match targets with a glob instead of --select")
}

// merge copies flags the user set explicitly over the profile values.
func (f *transformFlags) merge(cfg *config.Config, fs *pflag.FlagSet) {
	if fs.Changed("mode") {
		cfg.Mode = f.mode
	}
	if fs.Changed("hue") {
		cfg.Hue = f.hue
	}
	if fs.Changed("saturation") {
		cfg.Saturation = f.saturation
	}
	if fs.Changed("brightness") {
		cfg.Brightness = f.brightness
	}
	if fs.Changed("replace") {
		cfg.Replace.Image = f.replace
	}
	if fs.Changed("replace-dir") {
		cfg.Replace.Library = f.replaceDir
	}
	if fs.Changed("fit") {
		cfg.Replace.Fit = f.fit
	}
	if fs.Changed("select") {
		cfg.Select.Contains = f.contains
	}
	if fs.Changed("ext") {
		cfg.Select.Extensions = f.extensions
	}
	if fs.Changed("glob") {
		cfg.Select.Glob = f.glob
	}
}

// loadConfig resolves the profile and applies explicit flags on top.
func loadConfig(fs *pflag.FlagSet, f *transformFlags) (config.Config, error) {
	cfg, _, err := config.Resolve(configPath)
	if err != nil {
		return cfg, err
	}
	f.merge(&cfg, fs)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func buildSelector(sel config.SelectConfig) (repack.Selector, error) {
	if sel.Glob == "" {
		return repack.ContainsSelector(sel.Contains, sel.Extensions...), nil
	}
	glob, err := repack.GlobSelector(sel.Glob)
	if err != nil {
		return nil, err
	}
	return repack.All(glob, repack.ExtensionSelector(sel.Extensions...)), nil
}

func buildTransform(cfg config.Config) (repack.TransformFunc, transform.Config, error) {
	var tc transform.Config
	mode, err := transform.ParseMode(cfg.Mode)
	if err != nil {
		return nil, tc, err
	}
	deg, err := colorspace.ParseHue(cfg.Hue)
	if err != nil {
		return nil, tc, err
	}

	tc.Mode = mode
	switch mode {
	case transform.ModeRecolor:
		tc.Adjust = transform.Adjustment{
			HueShift:   colorspace.NormalizeDegrees(deg),
			Saturation: cfg.Saturation / 100,
			Brightness: cfg.Brightness / 100,
		}
	case transform.ModeReplace:
		rep, err := loadReplacement(cfg.Replace, deg)
		if err != nil {
			return nil, tc, err
		}
		tc.Replace = rep
	}

	fn, err := transform.Func(tc)
	if err != nil {
		return nil, tc, err
	}
	return fn, tc, nil
}

func loadReplacement(rc config.ReplaceConfig, deg float64) (transform.Replacement, error) {
	if rc.Image != "" {
		img, err := transform.LoadReplacement(rc.Image)
		if err != nil {
			return transform.Replacement{}, err
		}
		return transform.Replacement{Tag: colorspace.HueTag(deg), Image: img, FitToTarget: rc.Fit}, nil
	}
	lib, err := transform.OpenLibrary(rc.Library)
	if err != nil {
		return transform.Replacement{}, err
	}
	rep, err := lib.Lookup(deg)
	if err != nil {
		return transform.Replacement{}, err
	}
	rep.FitToTarget = rc.Fit
	return rep, nil
}

func describeTransform(tc transform.Config) string {
	if tc.Mode == transform.ModeReplace {
		return fmt.Sprintf("replace (%s)", tc.Replace.Tag)
	}
	a := tc.Adjust
	return fmt.Sprintf("recolor hue %+g° sat %g%% bright %g%%", a.HueShift, a.Saturation*100, a.Brightness*100)
}
