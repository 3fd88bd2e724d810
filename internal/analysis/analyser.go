package analysis

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/madelynnblue/go-dsp/fft"
)

const (
	minDecibels = -100.0
	maxDecibels = -30.0
)

// Analyser 频谱分析节点
type Analyser struct {
	ctx       *Context
	fftSize   int
	smoothing float64

	mu      sync.Mutex
	source  *SourceNode
	window  []float64
	samples []float64
	smooth  []float64
}

func newAnalyser(ctx *Context, fftSize int, smoothing float64) *Analyser {
	return &Analyser{
		ctx:       ctx,
		fftSize:   fftSize,
		smoothing: smoothing,
		window:    blackman(fftSize),
		samples:   make([]float64, fftSize),
		smooth:    make([]float64, fftSize/2),
	}
}

func (a *Analyser) FFTSize() int { return a.fftSize }

// BinCount is half the FFT size.
func (a *Analyser) BinCount() int { return a.fftSize / 2 }

// Source returns the connected source node, if any.
func (a *Analyser) Source() *SourceNode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.source
}

func (a *Analyser) setSource(n *SourceNode) {
	a.mu.Lock()
	a.source = n
	a.mu.Unlock()
}

// ByteFrequencyData fills dst with the current spectrum scaled to 0-255.
// A suspended or closed context, or a missing source, yields zeros.
func (a *Analyser) ByteFrequencyData(dst []byte) {
	bins := a.BinCount()
	if len(dst) > bins {
		clear(dst[bins:])
		dst = dst[:bins]
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.source == nil || a.ctx.State() != StateRunning {
		clear(dst)
		return
	}

	clear(a.samples)
	a.source.tap.Samples(a.samples)
	for i := range a.samples {
		a.samples[i] *= a.window[i]
	}

	spectrum := fft.FFTReal(a.samples)
	scale := 1 / float64(a.fftSize)
	for k := 0; k < bins; k++ {
		mag := cmplx.Abs(spectrum[k]) * scale
		a.smooth[k] = a.smoothing*a.smooth[k] + (1-a.smoothing)*mag
		if k < len(dst) {
			dst[k] = toByte(a.smooth[k])
		}
	}
}

// toByte maps [minDecibels, maxDecibels] linearly onto 0-255.
func toByte(mag float64) byte {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	v := (db - minDecibels) / (maxDecibels - minDecibels) * 255
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return byte(v)
	}
}

func blackman(n int) []float64 {
	const a0, a1, a2 = 0.42, 0.5, 0.08
	w := make([]float64, n)
	for i := range w {
		x := 2 * math.Pi * float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x)
	}
	return w
}
