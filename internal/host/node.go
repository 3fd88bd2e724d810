package host

import "sync"

// Node is the host node a widget is mounted on.
type Node interface {
	ID() string
	// Option returns the value of a node option widget, if present.
	Option(name string) (any, bool)
	// Mount places the widget's view; it may fail before layout is ready.
	Mount(view any, height int) error
	Unmount(view any)
}

// BoolOption reads a boolean option, falling back to def.
func BoolOption(n Node, name string, def bool) bool {
	if n == nil {
		return def
	}
	v, ok := n.Option(name)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// MapNode is an in-memory Node.
type MapNode struct {
	mu      sync.Mutex
	id      string
	options map[string]any
	mounted any
	height  int

	// MountErr, when non-nil, is returned by the next Mount call and cleared.
	MountErr error
	Mounts   int
}

func NewMapNode(id string, options map[string]any) *MapNode {
	if options == nil {
		options = map[string]any{}
	}
	return &MapNode{id: id, options: options}
}

func (n *MapNode) ID() string { return n.id }

func (n *MapNode) Option(name string) (any, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.options[name]
	return v, ok
}

func (n *MapNode) SetOption(name string, v any) {
	n.mu.Lock()
	n.options[name] = v
	n.mu.Unlock()
}

func (n *MapNode) Mount(view any, height int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Mounts++
	if err := n.MountErr; err != nil {
		n.MountErr = nil
		return err
	}
	n.mounted = view
	n.height = height
	return nil
}

func (n *MapNode) Unmount(view any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.mounted == view {
		n.mounted = nil
		n.height = 0
	}
}

// Mounted returns the mounted view and its height.
func (n *MapNode) Mounted() (any, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mounted, n.height
}
