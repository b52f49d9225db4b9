// Package invoke provides the call adapters used across the bridge boundary:
// a guarded page-function call returning an exception/value pair, invoke
// adapters keyed by argument count and per-dispatch-id tear-offs.
package invoke

import (
	"fmt"
	"sync"

	"github.com/wippyai/bootloader/errors"
)

// Result is an exception flag and a value. When Exception is set, Value is
// the thrown value.
type Result struct {
	Value     any
	Exception bool
}

// MakeResult builds a Result.
func MakeResult(exception bool, v any) Result {
	return Result{Exception: exception, Value: v}
}

// Func is a page function callable with an explicit receiver.
type Func func(this any, args ...any) (any, error)

// JSInvoke calls fn, turning an error or panic into an exception result.
func JSInvoke(fn Func, this any, args ...any) (res Result) {
	if fn == nil {
		return MakeResult(true, errors.NotFound(errors.PhaseInvoke, "function", "<nil>"))
	}
	defer func() {
		if r := recover(); r != nil {
			res = MakeResult(true, r)
		}
	}()
	v, err := fn(this, args...)
	if err != nil {
		return MakeResult(true, err)
	}
	return MakeResult(false, v)
}

// Dispatcher routes a method call by dispatch id to the code server.
type Dispatcher interface {
	Dispatch(dispID int, this any, args []any) Result
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(dispID int, this any, args []any) Result

// Dispatch calls f.
func (f DispatchFunc) Dispatch(dispID int, this any, args []any) Result {
	return f(dispID, this, args)
}

// Invoker calls a dispatch id with an explicit receiver.
type Invoker func(this any, dispID int, args ...any) (any, error)

// TearOff is a callable bound to one dispatch id. The receiver is supplied
// at call time.
type TearOff struct {
	call   func(this any, args []any) (any, error)
	DispID int
	Arity  int
}

// Call invokes the tear-off.
func (t *TearOff) Call(this any, args ...any) (any, error) {
	return t.call(this, args)
}

// Adapters caches invokers by arity and tear-offs by dispatch id.
type Adapters struct {
	d        Dispatcher
	invokers map[int]Invoker
	tearOffs map[int]*TearOff
	mu       sync.Mutex
}

// NewAdapters creates an adapter cache over d.
func NewAdapters(d Dispatcher) *Adapters {
	return &Adapters{
		d:        d,
		invokers: make(map[int]Invoker),
		tearOffs: make(map[int]*TearOff),
	}
}

// Invoker returns the adapter for calls with argCount arguments.
func (a *Adapters) Invoker(argCount int) Invoker {
	a.mu.Lock()
	defer a.mu.Unlock()
	if inv, ok := a.invokers[argCount]; ok {
		return inv
	}
	inv := func(this any, dispID int, args ...any) (any, error) {
		return a.dispatch(dispID, argCount, this, args)
	}
	a.invokers[argCount] = inv
	return inv
}

// TearOff returns the tear-off for dispID, creating it on first use. Later
// calls return the same *TearOff whatever argCount they pass.
func (a *Adapters) TearOff(dispID, argCount int) *TearOff {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.tearOffs[dispID]; ok {
		return t
	}
	t := &TearOff{
		DispID: dispID,
		Arity:  argCount,
		call: func(this any, args []any) (any, error) {
			return a.dispatch(dispID, argCount, this, args)
		},
	}
	a.tearOffs[dispID] = t
	return t
}

func (a *Adapters) dispatch(dispID, arity int, this any, args []any) (any, error) {
	if len(args) != arity {
		return nil, errors.New(errors.PhaseInvoke, errors.KindArity).
			Subject(fmt.Sprintf("dispatch %d", dispID)).
			Detail("expected %d arguments, got %d", arity, len(args)).
			Build()
	}
	res := a.d.Dispatch(dispID, this, args)
	if res.Exception {
		return nil, errors.New(errors.PhaseInvoke, errors.KindException).
			Subject(fmt.Sprintf("dispatch %d", dispID)).
			Value(res.Value).
			Detail("%v", res.Value).
			Build()
	}
	return res.Value, nil
}
