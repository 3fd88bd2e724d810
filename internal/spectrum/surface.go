package spectrum

import (
	"image"
	"image/color"
	"sync"

	"github.com/fogleman/gg"
)

// ImageSurface draws into an in-memory RGBA image.
type ImageSurface struct {
	mu      sync.Mutex
	dc      *gg.Context
	onFlush func(image.Image)
}

func NewImageSurface(w, h int) *ImageSurface {
	return &ImageSurface{dc: gg.NewContext(w, h)}
}

// OnFlush registers fn to receive the image after each frame.
func (s *ImageSurface) OnFlush(fn func(image.Image)) {
	s.mu.Lock()
	s.onFlush = fn
	s.mu.Unlock()
}

func (s *ImageSurface) Size() (int, int) {
	return s.dc.Width(), s.dc.Height()
}

func (s *ImageSurface) Clear(c color.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dc.SetColor(c)
	s.dc.Clear()
}

func (s *ImageSurface) Fill(x, y, w, h float64, c color.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dc.SetColor(c)
	s.dc.DrawRectangle(x, y, w, h)
	s.dc.Fill()
}

func (s *ImageSurface) Text(text string, c color.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dc.SetColor(c)
	s.dc.DrawStringAnchored(text, float64(s.dc.Width())/2, float64(s.dc.Height())/2, 0.5, 0.5)
}

func (s *ImageSurface) Flush() error {
	s.mu.Lock()
	fn := s.onFlush
	s.mu.Unlock()
	if fn != nil {
		fn(s.Image())
	}
	return nil
}

// Image returns a copy of the current frame.
func (s *ImageSurface) Image() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.dc.Image()
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.(*image.RGBA).Pix)
	return dst
}

// SavePNG writes the current frame to path.
func (s *ImageSurface) SavePNG(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dc.SavePNG(path)
}

// Multi draws to several surfaces; Size comes from the first.
type Multi []Surface

func (m Multi) Size() (int, int) {
	if len(m) == 0 {
		return 0, 0
	}
	return m[0].Size()
}

func (m Multi) Clear(c color.Color) {
	for _, s := range m {
		s.Clear(c)
	}
}

func (m Multi) Fill(x, y, w, h float64, c color.Color) {
	for _, s := range m {
		s.Fill(x, y, w, h, c)
	}
}

func (m Multi) Text(text string, c color.Color) {
	for _, s := range m {
		s.Text(text, c)
	}
}

func (m Multi) Flush() error {
	var firstErr error
	for _, s := range m {
		if err := s.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
