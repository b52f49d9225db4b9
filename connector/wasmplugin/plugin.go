package wasmplugin

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/bootloader/connector"
	"github.com/wippyai/bootloader/connector/wasmplugin/internal/guest"
	"github.com/wippyai/bootloader/errors"
	"github.com/wippyai/bootloader/invoke"
	"github.com/wippyai/bootloader/page"
)

// Plugin is a connector backed by a wasm module instance. Calls into the
// guest are serialized.
type Plugin struct {
	rt         wazero.Runtime
	mod        api.Module
	alloc      api.Function
	init       api.Function
	connect    api.Function
	disconnect api.Function
	dispatch   api.Function
	host       connector.Host
	objects    *invoke.ObjectTable
	name       string
	callMu     sync.Mutex
	hostMu     sync.RWMutex
	closed     atomic.Bool
}

var (
	_ connector.Connector = (*Plugin)(nil)
	_ invoke.Dispatcher   = (*Plugin)(nil)
	_ invoke.ObjectBinder = (*Plugin)(nil)
)

// Option configures Load.
type Option func(*options)

type options struct {
	name string
}

// WithName sets the module instance name used in logs.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// Load compiles and instantiates a connector module in its own runtime.
func Load(ctx context.Context, wasm []byte, opts ...Option) (*Plugin, error) {
	o := options{name: "connector"}
	for _, opt := range opts {
		opt(&o)
	}

	rt := wazero.NewRuntime(ctx)
	p := &Plugin{rt: rt, name: o.name}

	_, err := rt.NewHostModuleBuilder(guest.HostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(p.hostDisconnected), nil, nil).
		Export(guest.HostDisconnected).
		Instantiate(ctx)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Load("instantiate bridge host module", err)
	}

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Load("compile connector module", err)
	}

	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(o.name))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Load("instantiate connector module", err)
	}
	p.mod = mod

	if err := p.bindExports(); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}

	Logger().Debug("connector module loaded", zap.String("name", o.name))
	return p, nil
}

func (p *Plugin) bindExports() error {
	if p.mod.Memory() == nil {
		return errors.Load(fmt.Sprintf("connector module does not export %q", guest.ExportMemory), nil)
	}
	required := []struct {
		name string
		dst  *api.Function
	}{
		{guest.ExportAlloc, &p.alloc},
		{guest.ExportInit, &p.init},
		{guest.ExportConnect, &p.connect},
	}
	for _, r := range required {
		fn := p.mod.ExportedFunction(r.name)
		if fn == nil {
			return errors.Load(fmt.Sprintf("connector module does not export %q", r.name), nil)
		}
		*r.dst = fn
	}
	p.disconnect = p.mod.ExportedFunction(guest.ExportDisconnect)
	p.dispatch = p.mod.ExportedFunction(guest.ExportDispatch)
	return nil
}

// Factory returns a page plugin factory that loads wasm on demand.
func Factory(ctx context.Context, wasm []byte, opts ...Option) page.PluginFactory {
	return func() (any, error) {
		return Load(ctx, wasm, opts...)
	}
}

// Loopback returns a connector module that accepts every connection with a
// compatible protocol version and echoes dispatched calls.
func Loopback() []byte {
	return guest.Connector(guest.Behavior{Init: true, Accept: true, CheckVersion: true, Dispatch: true})
}

// Init binds the plugin to the host and runs the guest's init.
func (p *Plugin) Init(ctx context.Context, host connector.Host) (bool, error) {
	p.hostMu.Lock()
	p.host = host
	p.hostMu.Unlock()

	p.callMu.Lock()
	defer p.callMu.Unlock()
	res, err := p.init.Call(ctx)
	if err != nil {
		return false, errors.Wrap(errors.PhaseHandshake, errors.KindException, err, "connector init")
	}
	return len(res) > 0 && api.DecodeI32(res[0]) != 0, nil
}

// Connect passes the handshake arguments to the guest.
func (p *Plugin) Connect(ctx context.Context, req connector.ConnectRequest) (bool, error) {
	p.callMu.Lock()
	defer p.callMu.Unlock()

	args := make([]uint64, 0, guest.ConnectParams)
	for _, s := range []string{req.URL, req.SessionID, req.CodeServer, req.Module, req.ProtocolVersion} {
		ptr, err := p.writeString(ctx, s)
		if err != nil {
			return false, err
		}
		args = append(args, api.EncodeU32(ptr), api.EncodeU32(uint32(len(s))))
	}

	res, err := p.connect.Call(ctx, args...)
	if err != nil {
		return false, errors.Wrap(errors.PhaseHandshake, errors.KindException, err, "connector connect")
	}
	return len(res) > 0 && api.DecodeI32(res[0]) != 0, nil
}

// Disconnect runs the guest's disconnect export, if it has one.
func (p *Plugin) Disconnect(ctx context.Context) error {
	if p.disconnect == nil {
		return nil
	}
	p.callMu.Lock()
	defer p.callMu.Unlock()
	if _, err := p.disconnect.Call(ctx); err != nil {
		return errors.Wrap(errors.PhaseSession, errors.KindException, err, "connector disconnect")
	}
	return nil
}

// Close releases the runtime. Later calls do nothing.
func (p *Plugin) Close(ctx context.Context) error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.rt.Close(ctx)
}

// BindObjects sets the table page objects are passed through on Dispatch.
func (p *Plugin) BindObjects(t *invoke.ObjectTable) {
	p.hostMu.Lock()
	defer p.hostMu.Unlock()
	p.objects = t
}

// Dispatch calls the guest's dispatch export. The receiver and arguments
// cross as ids from the bound object table, with nil as 0.
func (p *Plugin) Dispatch(dispID int, this any, args []any) invoke.Result {
	if p.dispatch == nil {
		return invoke.MakeResult(true, errors.NotFound(errors.PhaseInvoke, "export", guest.ExportDispatch))
	}
	p.hostMu.RLock()
	objects := p.objects
	p.hostMu.RUnlock()
	if objects == nil {
		return invoke.MakeResult(true, errors.InvalidInput(errors.PhaseInvoke, "no object table bound"))
	}

	thisRef, err := objectRef(objects, this)
	if err != nil {
		return invoke.MakeResult(true, err)
	}
	refs := make([]uint32, len(args))
	for i, a := range args {
		if refs[i], err = objectRef(objects, a); err != nil {
			return invoke.MakeResult(true, err)
		}
	}

	ctx := context.Background()
	p.callMu.Lock()
	defer p.callMu.Unlock()

	argsPtr, err := p.allocate(ctx, uint32(4*len(refs)))
	if err != nil {
		return invoke.MakeResult(true, err)
	}
	for i, ref := range refs {
		p.mod.Memory().WriteUint32Le(argsPtr+uint32(4*i), ref)
	}

	res, err := p.dispatch.Call(ctx,
		api.EncodeI32(int32(dispID)),
		api.EncodeU32(thisRef),
		api.EncodeU32(uint32(len(refs))),
		api.EncodeU32(argsPtr))
	if err != nil {
		return invoke.MakeResult(true, errors.Wrap(errors.PhaseInvoke, errors.KindException, err, "connector dispatch"))
	}
	if len(res) < 2 {
		return invoke.MakeResult(true, errors.InvalidInput(errors.PhaseInvoke, "dispatch must return a kind and a value"))
	}

	kind, val := api.DecodeI32(res[0]), api.DecodeI32(res[1])
	switch kind {
	case guest.DispatchException:
		return invoke.MakeResult(true, int(val))
	case guest.DispatchObject:
		if val == 0 {
			return invoke.MakeResult(false, nil)
		}
		v, ok := objects.Get(int(val))
		if !ok {
			return invoke.MakeResult(true, errors.NotFound(errors.PhaseInvoke, "object", fmt.Sprint(val)))
		}
		return invoke.MakeResult(false, v)
	default:
		return invoke.MakeResult(false, int(val))
	}
}

func objectRef(t *invoke.ObjectTable, v any) (uint32, error) {
	if v == nil {
		return 0, nil
	}
	id, err := t.Put(v)
	return uint32(id), err
}

// allocate reserves n bytes of guest memory. Zero bytes need no allocation.
func (p *Plugin) allocate(ctx context.Context, n uint32) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	res, err := p.alloc.Call(ctx, api.EncodeU32(n))
	if err != nil {
		return 0, errors.Wrap(errors.PhaseHandshake, errors.KindException, err, "connector alloc")
	}
	ptr := api.DecodeU32(res[0])
	if uint64(ptr)+uint64(n) > uint64(p.mod.Memory().Size()) {
		return 0, errors.New(errors.PhaseHandshake, errors.KindInvalidValue).
			Detail("alloc returned out-of-range pointer %d for %d bytes", ptr, n).
			Build()
	}
	return ptr, nil
}

func (p *Plugin) writeString(ctx context.Context, s string) (uint32, error) {
	ptr, err := p.allocate(ctx, uint32(len(s)))
	if err != nil || len(s) == 0 {
		return ptr, err
	}
	p.mod.Memory().WriteString(ptr, s)
	return ptr, nil
}

func (p *Plugin) hostDisconnected(_ context.Context, _ api.Module, _ []uint64) {
	p.hostMu.RLock()
	h := p.host
	p.hostMu.RUnlock()
	if h == nil {
		Logger().Warn("disconnect signal before init", zap.String("name", p.name))
		return
	}
	h.Disconnected()
}
