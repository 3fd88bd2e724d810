// Package spectrum draws frequency snapshots as bar charts.
package spectrum

import "image/color"

// SampleFraction is the leading share of bins shown. The upper bins carry
// little energy in typical music and would flatten the chart.
const SampleFraction = 0.65

// Background is the neutral translucent fill used when not drawing bars.
var Background = color.NRGBA{R: 0, G: 0, B: 0, A: 51}

// Bar is one rectangle of a frame, measured from the top-left corner.
type Bar struct {
	Index int
	Value byte
	X, Y  float64
	W, H  float64
}

// Bars lays out count bars over a width x height canvas from data.
// bins is the number of valid entries in data.
func Bars(data []byte, bins, count int, width, height float64) []Bar {
	if count <= 0 {
		return nil
	}
	if bins > len(data) {
		bins = len(data)
	}

	eff := int(float64(bins) * SampleFraction)
	barW := width/float64(count) - 2
	if barW < 1 {
		barW = 1
	}

	bars := make([]Bar, count)
	for i := range bars {
		var v byte
		if bins > 0 {
			idx := i * eff / count
			if idx > bins-1 {
				idx = bins - 1
			}
			v = data[idx]
		}
		h := float64(v) / 255 * height
		bars[i] = Bar{
			Index: i,
			Value: v,
			X:     float64(i) * width / float64(count),
			Y:     height - h,
			W:     barW,
			H:     h,
		}
	}
	return bars
}
