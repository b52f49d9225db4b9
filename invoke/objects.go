package invoke

import (
	"reflect"
	"sync"

	"github.com/wippyai/bootloader/errors"
)

// Releaser is implemented by objects that hold resources while referenced
// from the code server.
type Releaser interface {
	Release()
}

// ObjectBinder is implemented by dispatchers that pass page objects by id.
// The bridge binds each module's table before any dispatch.
type ObjectBinder interface {
	BindObjects(t *ObjectTable)
}

// ObjectTable assigns stable ids to page objects passed across the bridge.
// Ids start at 1 and are reused after Free. Putting the same comparable
// object twice returns the same id.
type ObjectTable struct {
	entries  []objectEntry
	freeList []int
	ids      map[any]int
	mu       sync.Mutex
	closed   bool
}

type objectEntry struct {
	value any
	valid bool
	keyed bool
}

// NewObjectTable creates an empty table.
func NewObjectTable() *ObjectTable {
	return &ObjectTable{
		entries:  make([]objectEntry, 0, 64),
		freeList: make([]int, 0, 16),
		ids:      make(map[any]int),
	}
}

// Put returns the id of v, adding it when absent.
func (t *ObjectTable) Put(v any) (int, error) {
	if v == nil {
		return 0, errors.InvalidInput(errors.PhaseInvoke, "cannot reference a nil object")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, errors.InvalidState(errors.PhaseInvoke, "closed", "put")
	}

	// The value check catches comparable types holding uncomparable
	// dynamic values, which would panic as map keys.
	keyed := reflect.ValueOf(v).Comparable()
	if keyed {
		if id, ok := t.ids[v]; ok {
			return id, nil
		}
	}

	e := objectEntry{value: v, valid: true, keyed: keyed}
	var id int
	if n := len(t.freeList); n > 0 {
		id = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		t.entries[id-1] = e
	} else {
		t.entries = append(t.entries, e)
		id = len(t.entries)
	}
	if keyed {
		t.ids[v] = id
	}
	return id, nil
}

// Get returns the object with the given id.
func (t *ObjectTable) Get(id int) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id < 1 || id > len(t.entries) || !t.entries[id-1].valid {
		return nil, false
	}
	return t.entries[id-1].value, true
}

// Free drops the id. A Releaser is released.
func (t *ObjectTable) Free(id int) (any, bool) {
	t.mu.Lock()
	v, ok := t.freeLocked(id)
	t.mu.Unlock()

	if ok {
		if r, isReleaser := v.(Releaser); isReleaser {
			r.Release()
		}
	}
	return v, ok
}

func (t *ObjectTable) freeLocked(id int) (any, bool) {
	if id < 1 || id > len(t.entries) || !t.entries[id-1].valid {
		return nil, false
	}
	e := t.entries[id-1]
	t.entries[id-1] = objectEntry{}
	t.freeList = append(t.freeList, id)
	if e.keyed {
		delete(t.ids, e.value)
	}
	v := e.value
	return v, true
}

// Len returns the number of live ids.
func (t *ObjectTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries) - len(t.freeList)
}

// Close frees every id and rejects further Puts.
func (t *ObjectTable) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	var released []any
	for i := range t.entries {
		if t.entries[i].valid {
			released = append(released, t.entries[i].value)
		}
	}
	t.entries = nil
	t.freeList = nil
	t.ids = make(map[any]int)
	t.mu.Unlock()

	for _, v := range released {
		if r, ok := v.(Releaser); ok {
			r.Release()
		}
	}
}
