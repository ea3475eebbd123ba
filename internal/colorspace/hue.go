package colorspace

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

var hueTags = [...]string{
	"red", "orange", "yellow", "chartreuse", "green", "spring",
	"cyan", "azure", "blue", "violet", "magenta", "rose",
}

// HueTags lists every tag HueTag can return, starting at red.
func HueTags() []string {
	return append([]string(nil), hueTags[:]...)
}

// ParseHue reads a hue either as degrees ("200", "200deg") or as a color
// ("#3366ff", "#36f") whose hue is taken. The result is in [0,360).
func ParseHue(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty hue")
	}

	if strings.HasPrefix(value, "#") {
		c, err := colorful.Hex(value)
		if err != nil {
			return 0, fmt.Errorf("invalid hue color %q: %w", value, err)
		}
		h, _, _ := c.Hsl()
		return NormalizeDegrees(h), nil
	}

	raw := strings.TrimSuffix(strings.ToLower(value), "deg")
	deg, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hue %q: %w", value, err)
	}
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0, fmt.Errorf("invalid hue %q", value)
	}
	return NormalizeDegrees(deg), nil
}

// NormalizeDegrees wraps deg into [0,360).
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// HueTag names the 30° sector of the color wheel centered nearest to deg.
func HueTag(deg float64) string {
	idx := int(math.Floor(NormalizeDegrees(deg+15)/30)) % len(hueTags)
	return hueTags[idx]
}
