package permutation

import (
	"sort"
	"sync"

	"github.com/wippyai/bootloader/errors"
)

// node is one level of the answers tree. Internal nodes have children; leaves
// carry a strong name.
type node struct {
	children   map[string]*node
	strongName string
	leaf       bool
}

// Table maps an ordered tuple of property values to a strong name.
// Its depth equals the number of properties in the resolution order.
type Table struct {
	root  *node
	depth int
	size  int
	mu    sync.RWMutex
}

// NewTable creates an empty table for tuples of the given length.
func NewTable(depth int) *Table {
	return &Table{
		root:  &node{children: make(map[string]*node)},
		depth: depth,
	}
}

// Depth returns the tuple length.
func (t *Table) Depth() int {
	return t.depth
}

// Len returns the number of leaves.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// Add sets strongName at the path given by values, creating intermediate
// levels as needed. Adding the same path twice overwrites the leaf.
func (t *Table) Add(values []string, strongName string) error {
	if len(values) != t.depth {
		return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Value(values).
			Detail("permutation key has %d values, table depth is %d", len(values), t.depth).
			Build()
	}
	if strongName == "" {
		return errors.InvalidInput(errors.PhaseRegister, "strong name cannot be empty")
	}
	if t.depth == 0 {
		return errors.InvalidInput(errors.PhaseRegister, "table has no properties")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.root
	last := len(values) - 1
	for _, v := range values[:last] {
		child, ok := n.children[v]
		if !ok {
			child = &node{children: make(map[string]*node)}
			n.children[v] = child
		}
		n = child
	}

	leaf, ok := n.children[values[last]]
	if !ok {
		t.size++
	}
	if !ok || !leaf.leaf {
		leaf = &node{leaf: true}
		n.children[values[last]] = leaf
	}
	leaf.strongName = strongName
	return nil
}

// Lookup returns the strong name stored at values.
func (t *Table) Lookup(values []string) (string, bool) {
	if len(values) != t.depth {
		return "", false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	n := t.root
	for _, v := range values {
		child, ok := n.children[v]
		if !ok {
			return "", false
		}
		n = child
	}
	if !n.leaf {
		return "", false
	}
	return n.strongName, true
}

// Walk calls fn for every leaf in lexical key order.
func (t *Table) Walk(fn func(values []string, strongName string)) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var path []string
	var visit func(n *node)
	visit = func(n *node) {
		if n.leaf {
			key := make([]string, len(path))
			copy(key, path)
			fn(key, n.strongName)
			return
		}
		keys := make([]string, 0, len(n.children))
		for k := range n.children {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			path = append(path, k)
			visit(n.children[k])
			path = path[:len(path)-1]
		}
	}
	visit(t.root)
}
