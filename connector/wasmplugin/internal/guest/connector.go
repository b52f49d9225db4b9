package guest

import (
	"github.com/tetratelabs/wazero/api"
)

// Names of the connector ABI shared by the host and guest sides.
const (
	HostModule       = "bridge"
	HostDisconnected = "disconnected"

	ExportMemory     = "memory"
	ExportAlloc      = "alloc"
	ExportInit       = "init"
	ExportConnect    = "connect"
	ExportDisconnect = "disconnect"
	ExportDispatch   = "dispatch"

	// ExportDisconnectCalls is a global counting disconnect calls. Only
	// guests built here export it.
	ExportDisconnectCalls = "disconnect_calls"
)

// ConnectParams is the number of i32 parameters of connect: five strings,
// each passed as pointer and length.
const ConnectParams = 10

// DispatchParams is the number of i32 parameters of dispatch: dispatch id,
// receiver id, argument count and a pointer to the argument ids. Object ids
// are 0 for nil. dispatch returns a result kind and a value.
const DispatchParams = 4

// Result kinds returned by dispatch.
const (
	DispatchValue     int32 = 0
	DispatchObject    int32 = 1
	DispatchException int32 = 2
)

// Behavior configures a connector guest.
type Behavior struct {
	// Init is the result of init.
	Init bool

	// Accept is the result of connect.
	Accept bool

	// CheckVersion makes connect accept only a protocol version of the
	// form "2.x".
	CheckVersion bool

	// Signals is how many times connect calls bridge.disconnected before
	// returning.
	Signals int

	// Dispatch exports an echoing dispatch: id 0 returns the receiver, id 1
	// the first argument, a negative id throws it back, and any other id
	// returns id plus the argument count.
	Dispatch bool
}

// Connector assembles a connector guest with the given behavior.
func Connector(bh Behavior) []byte {
	i32 := api.ValueTypeI32
	b := New()

	disconnected := b.ImportFunc(HostModule, HostDisconnected, nil, nil)
	b.Memory(1, ExportMemory)
	heap := b.GlobalI32("", 1024, true)
	calls := b.GlobalI32(ExportDisconnectCalls, 0, true)

	b.Func(ExportAlloc, []api.ValueType{i32}, []api.ValueType{i32}, Seq(
		GlobalGet(heap),
		GlobalGet(heap),
		LocalGet(0),
		I32Add,
		GlobalSet(heap),
	))

	b.Func(ExportInit, nil, []api.ValueType{i32}, I32Const(boolToI32(bh.Init)))

	params := make([]api.ValueType, ConnectParams)
	for i := range params {
		params[i] = i32
	}
	var body []byte
	for i := 0; i < bh.Signals; i++ {
		body = append(body, Call(disconnected)...)
	}
	switch {
	case !bh.Accept:
		body = append(body, I32Const(0)...)
	case bh.CheckVersion:
		body = append(body, Seq(
			LocalGet(8),
			I32Load8U(),
			I32Const('2'),
			I32Eq,
			LocalGet(9),
			I32Const(3),
			I32Eq,
			I32And,
		)...)
	default:
		body = append(body, I32Const(1)...)
	}
	b.Func(ExportConnect, params, []api.ValueType{i32}, body)

	b.Func(ExportDisconnect, nil, nil, Seq(
		GlobalGet(calls),
		I32Const(1),
		I32Add,
		GlobalSet(calls),
	))

	if bh.Dispatch {
		dispatchFunc(b)
	}
	return b.Build()
}

func dispatchFunc(b *Builder) {
	i32 := api.ValueTypeI32
	params := []api.ValueType{i32, i32, i32, i32}
	negative := Seq(LocalGet(0), I32Const(0), I32LtS)
	echo := Seq(LocalGet(0), I32Const(1), I32LeU)

	kind := Seq(
		I32Const(DispatchException),
		I32Const(DispatchObject), I32Const(DispatchValue), echo, Select,
		negative, Select,
	)
	value := Seq(
		LocalGet(0),
		LocalGet(1), LocalGet(3), I32Load(), LocalGet(0), I32Eqz, Select,
		LocalGet(0), LocalGet(2), I32Add,
		echo, Select,
		negative, Select,
	)
	b.Func(ExportDispatch, params, []api.ValueType{i32, i32}, Seq(kind, value))
}

func boolToI32(v bool) int32 {
	if v {
		return 1
	}
	return 0
}
