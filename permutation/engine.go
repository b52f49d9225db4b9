package permutation

import (
	"go.uber.org/zap"

	"github.com/wippyai/bootloader/errors"
)

// PropertyErrorFunc is invoked when a provider returns an illegal value.
// allowed is the property's full legal value set, sorted.
type PropertyErrorFunc func(name string, allowed []string, value string)

// Engine resolves the current environment to a strong name.
type Engine struct {
	space   *Space
	table   *Table
	onError PropertyErrorFunc
	order   []string
}

// NewEngine builds an engine that evaluates properties in the given order.
// Every name in order must be registered in space and len(order) must equal
// the table depth.
func NewEngine(space *Space, table *Table, order ...string) (*Engine, error) {
	if space == nil || table == nil {
		return nil, errors.InvalidInput(errors.PhaseRegister, "space and table are required")
	}
	if len(order) != table.Depth() {
		return nil, errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Value(order).
			Detail("resolution order names %d properties, table depth is %d", len(order), table.Depth()).
			Build()
	}

	seen := make(map[string]bool, len(order))
	for _, name := range order {
		if seen[name] {
			return nil, errors.Duplicate(errors.PhaseRegister, "resolution order entry", name)
		}
		seen[name] = true
		if _, ok := space.Property(name); !ok {
			return nil, errors.NotFound(errors.PhaseRegister, "property", name)
		}
	}

	o := make([]string, len(order))
	copy(o, order)
	return &Engine{
		space: space,
		table: table,
		order: o,
	}, nil
}

// OnPropertyError sets the handler invoked for illegal property values.
// A nil handler disables reporting; resolution still aborts.
func (e *Engine) OnPropertyError(fn PropertyErrorFunc) {
	e.onError = fn
}

// Order returns the resolution order.
func (e *Engine) Order() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// ComputeValue invokes the named property's provider and validates the result.
// An illegal value is reported to the property-error handler and returned as
// *errors.PropertyError.
func (e *Engine) ComputeValue(name string) (string, error) {
	p, ok := e.space.Property(name)
	if !ok {
		return "", errors.NotFound(errors.PhaseResolve, "property", name)
	}

	value := p.Compute()
	if p.Allows(value) {
		return value, nil
	}

	allowed := p.SortedValues()
	Logger().Debug("illegal property value",
		zap.String("property", name),
		zap.String("value", value),
		zap.Strings("allowed", allowed))

	if e.onError != nil {
		e.onError(name, allowed, value)
	}
	return "", &errors.PropertyError{
		Name:    name,
		Value:   value,
		Allowed: allowed,
	}
}

// Resolve evaluates every property in order and returns the strong name of the
// matching permutation.
func (e *Engine) Resolve() (string, error) {
	values := make([]string, 0, len(e.order))
	for _, name := range e.order {
		v, err := e.ComputeValue(name)
		if err != nil {
			return "", err
		}
		values = append(values, v)
	}

	strongName, ok := e.table.Lookup(values)
	if !ok {
		return "", errors.IncompleteTable(values)
	}

	Logger().Debug("permutation selected",
		zap.Strings("values", values),
		zap.String("strong_name", strongName))
	return strongName, nil
}
