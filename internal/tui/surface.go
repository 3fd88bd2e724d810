package tui

import (
	"image/color"
	"math"
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

var blocks = []rune(" ▁▂▃▄▅▆▇█")

// Frame is one spectrum frame rasterized to terminal cells.
type Frame struct {
	Lines  []string // rows top to bottom, one rune per column
	Colors []string // hex color per column
	Text   string   // placeholder text, if any
}

// CellSurface implements spectrum.Surface on a cols x rows character grid.
// Drawing happens in logical canvas units and is scaled down per column.
type CellSurface struct {
	mu      sync.Mutex
	w, h    int
	cols    int
	rows    int
	levels  []float64
	colors  []string
	text    string
	onFlush func(Frame)
}

// NewCellSurface maps a w x h logical canvas onto cols x rows cells.
func NewCellSurface(w, h, cols, rows int) *CellSurface {
	s := &CellSurface{w: w, h: h}
	s.Resize(cols, rows)
	return s
}

// Resize changes the grid; the logical canvas is unchanged.
func (s *CellSurface) Resize(cols, rows int) {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	s.mu.Lock()
	s.cols, s.rows = cols, rows
	s.levels = make([]float64, cols)
	s.colors = make([]string, cols)
	s.mu.Unlock()
}

// OnFlush registers fn to receive each finished frame.
func (s *CellSurface) OnFlush(fn func(Frame)) {
	s.mu.Lock()
	s.onFlush = fn
	s.mu.Unlock()
}

func (s *CellSurface) Size() (int, int) { return s.w, s.h }

func (s *CellSurface) Clear(color.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.levels {
		s.levels[i] = 0
		s.colors[i] = ""
	}
	s.text = ""
}

func (s *CellSurface) Fill(x, _, _, h float64, c color.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col := int(x / float64(s.w) * float64(s.cols))
	if col < 0 || col >= s.cols {
		return
	}
	level := h / float64(s.h)
	if level > s.levels[col] {
		s.levels[col] = math.Min(level, 1)
		if cc, ok := colorful.MakeColor(c); ok {
			s.colors[col] = cc.Hex()
		}
	}
}

func (s *CellSurface) Text(text string, _ color.Color) {
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
}

func (s *CellSurface) Flush() error {
	s.mu.Lock()
	f := s.frameLocked()
	fn := s.onFlush
	s.mu.Unlock()
	if fn != nil {
		fn(f)
	}
	return nil
}

// Frame returns the current grid.
func (s *CellSurface) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameLocked()
}

func (s *CellSurface) frameLocked() Frame {
	lines := make([]string, s.rows)
	var b strings.Builder
	for r := 0; r < s.rows; r++ {
		b.Reset()
		fromBottom := s.rows - 1 - r
		for _, lv := range s.levels {
			eighths := int(math.Round(lv*float64(s.rows*8))) - fromBottom*8
			switch {
			case eighths <= 0:
				b.WriteRune(blocks[0])
			case eighths >= 8:
				b.WriteRune(blocks[8])
			default:
				b.WriteRune(blocks[eighths])
			}
		}
		lines[r] = b.String()
	}
	return Frame{Lines: lines, Colors: append([]string(nil), s.colors...), Text: s.text}
}
