package permutation

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/bootloader/errors"
)

// Provider computes the current value of a property.
type Provider func() string

// Property is a deferred-binding property: a name, its legal values and the
// provider that computes the value for the current environment.
type Property struct {
	provider Provider
	index    map[string]int
	name     string
	values   []string
}

// Name returns the property name.
func (p *Property) Name() string {
	return p.name
}

// Values returns the legal values in declaration order.
func (p *Property) Values() []string {
	out := make([]string, len(p.values))
	copy(out, p.values)
	return out
}

// SortedValues returns the legal values in lexical order.
func (p *Property) SortedValues() []string {
	out := p.Values()
	sort.Strings(out)
	return out
}

// Allows reports whether v is a legal value.
func (p *Property) Allows(v string) bool {
	_, ok := p.index[v]
	return ok
}

// Compute invokes the provider.
func (p *Property) Compute() string {
	return p.provider()
}

// Space is the registry of properties known to one module.
type Space struct {
	props map[string]*Property
	order []string
	mu    sync.RWMutex
}

// NewSpace creates an empty property space.
func NewSpace() *Space {
	return &Space{
		props: make(map[string]*Property),
	}
}

// Register adds a property. Names must be unique, the legal value set must be
// non-empty and the provider non-nil. Duplicate values in allowed are folded.
func (s *Space) Register(name string, allowed []string, provider Provider) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseRegister, "property name cannot be empty")
	}
	if len(allowed) == 0 {
		return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Subject(name).
			Detail("allowed values cannot be empty").
			Build()
	}
	if provider == nil {
		return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Subject(name).
			Detail("provider cannot be nil").
			Build()
	}

	p := &Property{
		name:     name,
		provider: provider,
		index:    make(map[string]int, len(allowed)),
	}
	for _, v := range allowed {
		if _, dup := p.index[v]; dup {
			continue
		}
		p.index[v] = len(p.values)
		p.values = append(p.values, v)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.props[name]; exists {
		return errors.Duplicate(errors.PhaseRegister, "property", name)
	}
	s.props[name] = p
	s.order = append(s.order, name)

	Logger().Debug("property registered",
		zap.String("property", name),
		zap.Strings("values", p.values))
	return nil
}

// Property returns a registered property.
func (s *Space) Property(name string) (*Property, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.props[name]
	return p, ok
}

// Names returns property names in registration order.
func (s *Space) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of registered properties.
func (s *Space) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// IsKnownValue reports whether value is legal for the named property.
// Unknown properties have no legal values.
func (s *Space) IsKnownValue(name, value string) bool {
	p, ok := s.Property(name)
	if !ok {
		return false
	}
	return p.Allows(value)
}
