package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"golang.org/x/image/font"

	"github.com/roman-kulish/rf-detection/internal/detect"
	"github.com/roman-kulish/rf-detection/internal/dsp"
)

const (
	dpi      = 72.0
	fontSize = 12.0

	tickMarkHeight = 5
	pixelsPerLabel = 150

	// Default border sizes in pixels
	defaultTopBorder    = 40
	defaultLeftBorder   = 60
	defaultBottomBorder = 40
	defaultRightBorder  = 40

	// Head room above the strongest bin, in dB
	powerMargin = 10.0
)

var (
	thresholdColor = color.RGBA{R: 0x66, G: 0x66, B: 0x66, A: 0xff}
	peakColor      = color.RGBA{R: 0xd0, A: 0xff}
	axisColor      = color.Black
)

// SpectrumRenderer draws a single power spectrum as a vertical bar plot
// with the detection threshold and accepted peaks marked.
type SpectrumRenderer struct {
	plotHeight int
	annotator  *annotator
}

// NewSpectrumRenderer creates a renderer. fontFile may be empty, in which
// case the image carries tick marks but no text labels.
func NewSpectrumRenderer(plotHeight int, fontFile string) (*SpectrumRenderer, error) {
	r := SpectrumRenderer{plotHeight: plotHeight}

	if fontFile != "" {
		ann, err := newAnnotator(fontFile)
		if err != nil {
			return nil, fmt.Errorf("creating annotator: %w", err)
		}
		r.annotator = ann
	}

	return &r, nil
}

// Render creates an image of the spectrum with annotations. event may be
// nil when the pass produced no detection.
func (r *SpectrumRenderer) Render(spec *dsp.PowerSpectrum, event *detect.Event, threshold float64) (*image.RGBA, error) {
	fullWidth := spec.Len() + defaultLeftBorder + defaultRightBorder
	fullHeight := r.plotHeight + defaultTopBorder + defaultBottomBorder
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))

	// Fill with white background
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	area := image.Rect(
		defaultLeftBorder,
		defaultTopBorder,
		defaultLeftBorder+spec.Len(),
		defaultTopBorder+r.plotHeight,
	)

	minPower, maxPower := powerBounds(spec, threshold)

	r.renderSpectrum(img, area, spec, minPower, maxPower)
	r.renderThreshold(img, area, threshold, minPower, maxPower)
	if event != nil {
		r.renderPeaks(img, area, event, minPower, maxPower)
	}

	if r.annotator != nil {
		if err := r.annotator.annotate(img, area, spec, minPower, maxPower); err != nil {
			return nil, fmt.Errorf("drawing annotations: %w", err)
		}
	}

	return img, nil
}

// renderSpectrum draws one vertical bar per frequency bin, colored by
// power level.
func (r *SpectrumRenderer) renderSpectrum(img *image.RGBA, area image.Rectangle, spec *dsp.PowerSpectrum, minPower, maxPower float64) {
	for x := 0; x < spec.Len(); x++ {
		barTop := powerToY(spec.Power[x], area, minPower, maxPower)
		c := pixelColor(spec.Power[x], minPower, maxPower)

		imgX := area.Min.X + x
		for y := barTop; y < area.Max.Y; y++ {
			img.Set(imgX, y, c)
		}
	}
}

// renderThreshold draws the detection threshold as a dashed line.
func (r *SpectrumRenderer) renderThreshold(img *image.RGBA, area image.Rectangle, threshold, minPower, maxPower float64) {
	y := powerToY(threshold, area, minPower, maxPower)
	if y < area.Min.Y || y >= area.Max.Y {
		return
	}

	for x := area.Min.X; x < area.Max.X; x++ {
		if (x-area.Min.X)%8 < 5 { // dash pattern
			img.Set(x, y, thresholdColor)
		}
	}
}

// renderPeaks marks each accepted peak with a vertical tick above its bin.
func (r *SpectrumRenderer) renderPeaks(img *image.RGBA, area image.Rectangle, event *detect.Event, minPower, maxPower float64) {
	for _, peak := range event.Peaks {
		x := area.Min.X + peak.Bin
		top := powerToY(peak.Power, area, minPower, maxPower)

		for y := top - 12; y < top-2; y++ {
			if y >= area.Min.Y-defaultTopBorder {
				img.Set(x, y, peakColor)
				img.Set(x-1, y, peakColor)
			}
		}
	}
}

// powerBounds picks the display range: the weakest bin (or the threshold,
// whichever is lower) up to the strongest bin plus head room.
func powerBounds(spec *dsp.PowerSpectrum, threshold float64) (minPower, maxPower float64) {
	minPower = threshold
	maxPower = threshold
	for _, p := range spec.Power {
		minPower = math.Min(minPower, p)
		maxPower = math.Max(maxPower, p)
	}
	return minPower, maxPower + powerMargin
}

func powerToY(power float64, area image.Rectangle, minPower, maxPower float64) int {
	normalized := (power - minPower) / (maxPower - minPower)
	normalized = math.Min(math.Max(normalized, 0), 1)
	return area.Max.Y - int(normalized*float64(area.Dy()))
}

// annotator draws axis labels using a TTF font loaded from disk.
type annotator struct {
	context *freetype.Context
}

func newAnnotator(fontFile string) (*annotator, error) {
	data, err := os.ReadFile(fontFile)
	if err != nil {
		return nil, fmt.Errorf("reading font: %w", err)
	}

	parsedFont, err := freetype.ParseFont(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(fontSize)
	ctx.SetHinting(font.HintingFull)
	ctx.SetSrc(image.Black)

	return &annotator{context: ctx}, nil
}

func (a *annotator) annotate(img *image.RGBA, area image.Rectangle, spec *dsp.PowerSpectrum, minPower, maxPower float64) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawXScale(img, area, spec); err != nil {
		return fmt.Errorf("drawing X scale: %w", err)
	}
	if err := a.drawYScale(img, area, minPower, maxPower); err != nil {
		return fmt.Errorf("drawing Y scale: %w", err)
	}
	return nil
}

// drawXScale labels the frequency axis along the bottom border.
func (a *annotator) drawXScale(img *image.RGBA, area image.Rectangle, spec *dsp.PowerSpectrum) error {
	count := max(area.Dx()/pixelsPerLabel, 1)
	hzPerLabel := (spec.Frequencies[spec.Len()-1] - spec.Frequencies[0]) / float64(count)
	pxPerLabel := area.Dx() / count

	for si := 0; si <= count; si++ {
		hz := spec.CenterFrequency + spec.Frequencies[0] + float64(si)*hzPerLabel
		px := area.Min.X + si*pxPerLabel
		if px >= area.Max.X {
			px = area.Max.X - 1
		}

		for y := area.Max.Y; y < area.Max.Y+tickMarkHeight; y++ {
			img.Set(px, y, axisColor)
		}

		fract, suffix := humanize.ComputeSI(hz)
		label := fmt.Sprintf("%0.2f%sHz", fract, suffix)

		pt := freetype.Pt(px-20, area.Max.Y+tickMarkHeight+int(a.context.PointToFixed(fontSize)>>6))
		if _, err := a.context.DrawString(label, pt); err != nil {
			return err
		}
	}

	return nil
}

// drawYScale labels the power axis along the left border.
func (a *annotator) drawYScale(img *image.RGBA, area image.Rectangle, minPower, maxPower float64) error {
	count := max(area.Dy()/100, 1)
	dbPerLabel := (maxPower - minPower) / float64(count)

	for si := 0; si <= count; si++ {
		db := minPower + float64(si)*dbPerLabel
		py := powerToY(db, area, minPower, maxPower)
		if py >= area.Max.Y {
			py = area.Max.Y - 1
		}

		for x := area.Min.X - tickMarkHeight; x < area.Min.X; x++ {
			img.Set(x, py, axisColor)
		}

		label := fmt.Sprintf("%0.0fdB", db)
		pt := freetype.Pt(5, py+int(a.context.PointToFixed(fontSize)>>6)/2)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return err
		}
	}

	return nil
}
