package app

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	hueStart = 236.0
	hueEnd   = 0.0
)

// pixelColor maps a power value onto a blue-to-red gradient between the
// given bounds, blue for the noise floor and red for the strongest bins.
func pixelColor(power, minPower, maxPower float64) color.Color {
	span := maxPower - minPower
	if span <= 0 {
		return colorful.Hsv(hueStart, 1, 0.90)
	}

	hPerDeg := (hueStart - hueEnd) / span

	powNormalized := power - minPower
	powDegrees := powNormalized * hPerDeg

	hue := hueStart - powDegrees
	hue = math.Min(math.Max(hue, hueEnd), hueStart)

	return colorful.Hsv(hue, 1, 0.90)
}
