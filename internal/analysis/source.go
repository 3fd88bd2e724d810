package analysis

import (
	"sync"

	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("component", "analysis").Logger()

// SourceNode is the single analysis source of one media element.
type SourceNode struct {
	elementID string
	tap       *Tap

	mu       sync.Mutex
	analyser *Analyser
}

func (n *SourceNode) ElementID() string { return n.elementID }

func (n *SourceNode) Tap() *Tap { return n.tap }

// Connect routes the source into a, replacing any previous analyser.
// Connecting to the current analyser again is a no-op.
func (n *SourceNode) Connect(a *Analyser) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.analyser == a {
		return
	}
	if n.analyser != nil {
		n.analyser.setSource(nil)
	}
	n.analyser = a
	if a != nil {
		a.setSource(n)
	}
}

// Disconnect detaches the analyser. Safe to call repeatedly.
func (n *SourceNode) Disconnect() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.analyser == nil {
		return
	}
	n.analyser.setSource(nil)
	n.analyser = nil
}

// Connected returns the current analyser, or nil.
func (n *SourceNode) Connected() *Analyser {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.analyser
}

// TapHost is a media element that can carry one tap for its whole lifetime.
type TapHost interface {
	ID() string
	// Tap returns the installed tap, or nil.
	Tap() *Tap
	// AttachTap installs t; a second call returns ErrDuplicateSource.
	AttachTap(t *Tap) error
}

// Registry 以元素 ID 为键缓存 SourceNode，保证每个元素只创建一次
type Registry struct {
	mu    sync.Mutex
	nodes sync.Map // element id -> *SourceNode
}

// DefaultRegistry is shared by every widget in the process.
var DefaultRegistry = &Registry{}

// SourceFor returns the element's source node, creating it at most once.
// If the element already carries a tap from an earlier widget, that tap is
// wrapped instead of installing a new one.
func (r *Registry) SourceFor(h TapHost, bufSize int) (*SourceNode, error) {
	id := h.ID()
	if v, ok := r.nodes.Load(id); ok {
		return v.(*SourceNode), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.nodes.Load(id); ok {
		return v.(*SourceNode), nil
	}

	tap := h.Tap()
	if tap == nil {
		tap = NewTap(bufSize)
		if err := h.AttachTap(tap); err != nil {
			return nil, err
		}
		logger.Debug().Str("element", id).Msg("Created analysis source")
	} else {
		logger.Debug().Str("element", id).Msg("Reusing element tap")
	}

	n := &SourceNode{elementID: id, tap: tap}
	r.nodes.Store(id, n)
	return n, nil
}

// Lookup returns the cached node without creating one.
func (r *Registry) Lookup(id string) (*SourceNode, bool) {
	v, ok := r.nodes.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*SourceNode), true
}

// Release disconnects and forgets the element's node, but only while owner
// is still the connected analyser. A widget that has been superseded on the
// same element leaves the newer one's node alone.
func (r *Registry) Release(id string, owner *Analyser) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.nodes.Load(id)
	if !ok {
		return false
	}
	n := v.(*SourceNode)
	if n.Connected() != owner {
		logger.Debug().Str("element", id).Msg("Source owned by a newer analyser, keeping it")
		return false
	}
	n.Disconnect()
	r.nodes.Delete(id)
	return true
}

// Len returns the number of cached nodes.
func (r *Registry) Len() int {
	n := 0
	r.nodes.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
