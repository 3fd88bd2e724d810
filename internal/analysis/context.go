// Package analysis models the audio analysis graph: a per-element source
// node feeding an FFT analyser inside a suspendable context.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

const (
	DefaultFFTSize   = 2048
	DefaultSmoothing = 0.85
)

var (
	ErrContextClosed   = errors.New("analysis context closed")
	ErrDuplicateSource = errors.New("element already has an analysis source")
	ErrInvalidFFTSize  = errors.New("fft size must be a power of two between 32 and 32768")
)

// State 分析上下文状态
type State int

const (
	StateSuspended State = iota
	StateRunning
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	default:
		return "suspended"
	}
}

// Context 每个 widget 一个；新建时处于 suspended 状态
type Context struct {
	mu        sync.Mutex
	state     State
	analysers []*Analyser
}

func NewContext() *Context {
	return &Context{state: StateSuspended}
}

func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Resume starts processing. Resuming a running context is a no-op.
func (c *Context) Resume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return ErrContextClosed
	}
	c.state = StateRunning
	return nil
}

// Suspend pauses processing; analysers report silence until Resume.
func (c *Context) Suspend() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return ErrContextClosed
	}
	c.state = StateSuspended
	return nil
}

// Close disconnects every analyser. Closing twice is a no-op.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosed
	analysers := c.analysers
	c.analysers = nil
	c.mu.Unlock()

	for _, a := range analysers {
		if src := a.Source(); src != nil {
			src.Disconnect()
		}
	}
	return nil
}

// NewAnalyser creates an analyser owned by this context.
func (c *Context) NewAnalyser(fftSize int, smoothing float64) (*Analyser, error) {
	if fftSize < 32 || fftSize > 32768 || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("%d: %w", fftSize, ErrInvalidFFTSize)
	}
	if smoothing < 0 || smoothing > 1 {
		return nil, fmt.Errorf("smoothing %v out of range [0,1]", smoothing)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return nil, ErrContextClosed
	}
	a := newAnalyser(c, fftSize, smoothing)
	c.analysers = append(c.analysers, a)
	return a, nil
}
