package session

import "sync"

// ResourceKind distinguishes the two shared-resource registries.
type ResourceKind uint8

const (
	ResourceScript ResourceKind = iota
	ResourceStyle
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceScript:
		return "script"
	case ResourceStyle:
		return "style"
	default:
		return "unknown"
	}
}

// LoadEvent is delivered to observers the first time a resource is marked.
type LoadEvent struct {
	Name string
	Kind ResourceKind
}

// Observer receives LoadEvents.
type Observer interface {
	OnResourceLoaded(LoadEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(LoadEvent)

// OnResourceLoaded calls f(ev).
func (f ObserverFunc) OnResourceLoaded(ev LoadEvent) { f(ev) }

type subscription struct {
	o  Observer
	id uint64
}

// Registry records which shared resources a page has already loaded.
type Registry struct {
	loaded    map[string]struct{}
	order     []string
	observers []subscription
	nextSub   uint64
	kind      ResourceKind
	mu        sync.Mutex
	obsMu     sync.RWMutex
}

func newRegistry(kind ResourceKind) *Registry {
	return &Registry{
		loaded: make(map[string]struct{}),
		kind:   kind,
	}
}

// Kind returns what the registry tracks.
func (r *Registry) Kind() ResourceKind {
	return r.kind
}

// MarkLoaded records name and reports whether this was the first time.
// Observers are only notified on the first call.
func (r *Registry) MarkLoaded(name string) bool {
	r.mu.Lock()
	if _, ok := r.loaded[name]; ok {
		r.mu.Unlock()
		return false
	}
	r.loaded[name] = struct{}{}
	r.order = append(r.order, name)
	r.mu.Unlock()

	r.notify(LoadEvent{Name: name, Kind: r.kind})
	return true
}

// Loaded reports whether name was marked.
func (r *Registry) Loaded(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.loaded[name]
	return ok
}

// Names returns marked names in the order they were first marked.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of marked resources.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Subscribe adds an observer and returns the function that removes it.
// Cancelling more than once is a no-op.
func (r *Registry) Subscribe(o Observer) (cancel func()) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.nextSub++
	id := r.nextSub
	r.observers = append(r.observers, subscription{o: o, id: id})
	return func() { r.unsubscribe(id) }
}

func (r *Registry) unsubscribe(id uint64) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	for i, sub := range r.observers {
		if sub.id == id {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

func (r *Registry) notify(ev LoadEvent) {
	r.obsMu.RLock()
	subs := make([]subscription, len(r.observers))
	copy(subs, r.observers)
	r.obsMu.RUnlock()

	for _, sub := range subs {
		sub.o.OnResourceLoaded(ev)
	}
}
