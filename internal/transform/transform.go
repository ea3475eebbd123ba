// Package transform applies a color adjustment or a texture replacement to a
// decoded image.
//
// Images are handled as *image.NRGBA: interleaved, non-premultiplied 8-bit
// R, G, B, A. Alpha is never modified by a recolor, and inputs are never
// mutated; every operation returns a new image.
package transform

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"retint/internal/colorspace"
)

type Mode int

const (
	ModeRecolor Mode = iota
	ModeReplace
)

func (m Mode) String() string {
	switch m {
	case ModeRecolor:
		return "recolor"
	case ModeReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// ParseMode accepts the mode names used on the command line.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "recolor", "":
		return ModeRecolor, nil
	case "replace":
		return ModeReplace, nil
	default:
		return ModeRecolor, fmt.Errorf("unknown mode %q (want recolor or replace)", s)
	}
}

// Adjustment is a recolor in HSL space. HueShift is in degrees; Saturation
// and Brightness are multipliers where 1 leaves the channel unchanged.
type Adjustment struct {
	HueShift   float64
	Saturation float64
	Brightness float64
}

// Identity returns the adjustment that leaves every pixel unchanged.
func Identity() Adjustment {
	return Adjustment{Saturation: 1, Brightness: 1}
}

func (a Adjustment) IsIdentity() bool {
	return a.HueShift == 0 && a.Saturation == 1 && a.Brightness == 1
}

// Replacement substitutes a whole texture. Tag records the hue tag the image
// was chosen for and is informational only.
type Replacement struct {
	Tag   string
	Image image.Image

	// FitToTarget resizes the replacement to the target's dimensions.
	// Without it the output takes the replacement's dimensions.
	FitToTarget bool
}

// Config selects exactly one of Adjust or Replace through Mode.
type Config struct {
	Mode    Mode
	Adjust  Adjustment
	Replace Replacement
}

var (
	ErrHueRange         = errors.New("hue shift must be in [0,360)")
	ErrNegativeScale    = errors.New("saturation and brightness must be >= 0")
	ErrNoReplacement    = errors.New("replace mode requires a replacement image")
	ErrUnknownMode      = errors.New("unknown transform mode")
	ErrEmptyReplacement = errors.New("replacement image is empty")
)

func (c Config) Validate() error {
	switch c.Mode {
	case ModeRecolor:
		a := c.Adjust
		if math.IsNaN(a.HueShift) || a.HueShift < 0 || a.HueShift >= 360 {
			return fmt.Errorf("%w: got %v", ErrHueRange, a.HueShift)
		}
		if math.IsNaN(a.Saturation) || math.IsNaN(a.Brightness) || a.Saturation < 0 || a.Brightness < 0 {
			return fmt.Errorf("%w: saturation=%v brightness=%v", ErrNegativeScale, a.Saturation, a.Brightness)
		}
	case ModeReplace:
		if c.Replace.Image == nil {
			return ErrNoReplacement
		}
		if c.Replace.Image.Bounds().Empty() {
			return ErrEmptyReplacement
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownMode, c.Mode)
	}
	return nil
}

// Apply runs cfg against img and returns a new image. cfg must be valid.
func Apply(img *image.NRGBA, cfg Config) *image.NRGBA {
	if cfg.Mode == ModeReplace {
		return replace(img, cfg.Replace)
	}
	return Recolor(img, cfg.Adjust)
}

// Func adapts cfg to the per-image callback used by the repackager.
func Func(cfg Config) (func(*image.NRGBA) (*image.NRGBA, error), error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return func(img *image.NRGBA) (*image.NRGBA, error) {
		if img == nil {
			return nil, errors.New("nil image")
		}
		return Apply(img, cfg), nil
	}, nil
}

// Recolor rotates hue and scales saturation and lightness of every pixel.
func Recolor(img *image.NRGBA, adj Adjustment) *image.NRGBA {
	out := imaging.Clone(img)
	if adj.IsIdentity() {
		return out
	}

	shift := adj.HueShift / 360
	b := out.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := out.Pix[y*out.Stride : y*out.Stride+b.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			h, s, l := colorspace.RGBToHSL(row[i], row[i+1], row[i+2])

			h = math.Mod(h+shift, 1)
			if h < 0 {
				h++
			}
			s = clamp01(s * adj.Saturation)
			l = clamp01(l * adj.Brightness)

			r, g, bl := colorspace.HSLToRGB(h, s, l)
			row[i] = toChannel(r)
			row[i+1] = toChannel(g)
			row[i+2] = toChannel(bl)
		}
	}
	return out
}

func replace(target *image.NRGBA, rep Replacement) *image.NRGBA {
	if rep.FitToTarget && target != nil {
		tb := target.Bounds()
		rb := rep.Image.Bounds()
		if tb.Dx() > 0 && tb.Dy() > 0 && (tb.Dx() != rb.Dx() || tb.Dy() != rb.Dy()) {
			return imaging.Resize(rep.Image, tb.Dx(), tb.Dy(), imaging.Lanczos)
		}
	}
	return imaging.Clone(rep.Image)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func toChannel(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
