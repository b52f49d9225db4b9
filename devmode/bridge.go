// Package devmode connects a module to a development code server through a
// bridge plugin instead of loading a compiled permutation.
package devmode

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/bootloader/connector"
	"github.com/wippyai/bootloader/errors"
	"github.com/wippyai/bootloader/invoke"
	"github.com/wippyai/bootloader/metrics"
	"github.com/wippyai/bootloader/page"
	"github.com/wippyai/bootloader/session"
)

// Fallback pages and the disconnect message.
const (
	MissingPluginURL   = "http://gwt.google.com/missing-plugin/"
	TroubleshootingURL = "http://code.google.com/p/google-web-toolkit/wiki/TroubleshootingOOPHM"

	DisconnectSummary = "GWT Code Server Disconnected"
	DisconnectDetails = "Most likely, you closed GWT Development Mode. Or, you might have lost " +
		"network connectivity. To fix this, try restarting GWT Development Mode and " +
		`<a style="color: #FFFFFF; font-weight: bold;" href="javascript:location.reload()">` +
		"REFRESH</a> this page."

	// StatsSessionGlobal names the page global holding the metrics session id.
	StatsSessionGlobal = metrics.SessionGlobal
)

// disconnectDelay defers the overlay so it is built from a clean stack.
const disconnectDelay = time.Millisecond

// ErrorFunc is the module's load-error callback.
type ErrorFunc func(module string)

// Options configures a Bridge. Zero values select the defaults.
type Options struct {
	Discoverer         *connector.Discoverer
	Metrics            metrics.Sink
	MissingPluginURL   string
	TroubleshootingURL string
	ProtocolVersion    string
}

// Bridge runs the dev-mode side of bootstrap for every module on one page.
type Bridge struct {
	page  *page.Page
	state *session.PageState
	opts  Options
}

// New creates a bridge for the page.
func New(p *page.Page, state *session.PageState, opts Options) *Bridge {
	if opts.Discoverer == nil {
		opts.Discoverer = connector.NewDiscoverer()
	}
	if opts.MissingPluginURL == "" {
		opts.MissingPluginURL = MissingPluginURL
	}
	if opts.TroubleshootingURL == "" {
		opts.TroubleshootingURL = TroubleshootingURL
	}
	if opts.ProtocolVersion == "" {
		opts.ProtocolVersion = connector.ProtocolVersion
	}
	return &Bridge{page: p, state: state, opts: opts}
}

// Outcome summarizes how OnLoad ended.
type Outcome uint8

const (
	OutcomeConnected Outcome = iota
	OutcomeAbsent
	OutcomeRefused
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConnected:
		return "connected"
	case OutcomeAbsent:
		return "absent"
	case OutcomeRefused:
		return "refused"
	default:
		return "unknown"
	}
}

// Module is one module's dev-mode link.
type Module struct {
	Session    *session.Session
	Connector  connector.Connector
	Adapters   *invoke.Adapters
	Objects    *invoke.ObjectTable
	Name       string
	Base       string
	CodeServer string
	Outcome    Outcome
	ID         int
	metrics    *metrics.Emitter
}

// FireOnModuleLoadStart reports that the module's entry point is starting.
func (m *Module) FireOnModuleLoadStart(className string) {
	m.metrics.ModuleLoadStart(className)
}

// OnLoad connects moduleName to the code server named in the page query.
//
// When no connector is present the missing-plugin page is loaded and errFn is
// not called. When a connector refuses, errFn(moduleName) is called if set;
// otherwise the user is alerted and the troubleshooting page is loaded. The
// returned error is nil, a *errors.ConnectionError, or satisfies
// errors.IsPluginAbsent. On success an unload hook disconnects the plugin.
func (b *Bridge) OnLoad(ctx context.Context, errFn ErrorFunc, moduleName, moduleBase string) (*Module, error) {
	if moduleName == "" {
		return nil, errors.InvalidInput(errors.PhaseBootstrap, "module name is required")
	}

	statsSession, _ := b.page.Global(StatsSessionGlobal)
	statsID, _ := statsSession.(string)
	em := metrics.NewEmitter(b.opts.Metrics, moduleName, statsID)
	em.Startup(metrics.TypeModuleEvalStart)

	sess := session.New(b.state, moduleName)
	mod := &Module{
		Session:    sess,
		Name:       moduleName,
		Base:       moduleBase,
		CodeServer: connector.CodeServer(b.page.Search()),
		ID:         b.state.NextModuleID(),
		metrics:    em,
	}
	log := Logger().With(
		zap.String("module", moduleName),
		zap.String("session", sess.ID()),
		zap.String("page", b.state.PageID().String()))

	sess.OnDisconnected(func() {
		b.page.Loop().SetTimeout(func() {
			b.page.ShowGlass(DisconnectSummary, DisconnectDetails)
		}, disconnectDelay)
	})

	c, err := b.opts.Discoverer.Connect(ctx, b.page, &host{page: b.page, sess: sess}, sess, connector.ConnectRequest{
		URL:             b.page.Href(),
		SessionID:       sess.ID(),
		CodeServer:      mod.CodeServer,
		Module:          moduleName,
		ProtocolVersion: b.opts.ProtocolVersion,
	})
	em.Startup(metrics.TypeModuleEvalEnd)

	switch {
	case err == nil:
	case errors.IsConnectionRefused(err):
		mod.Outcome = OutcomeRefused
		log.Warn("code server refused connection", zap.String("code_server", mod.CodeServer))
		if errFn != nil {
			errFn(moduleName)
		} else {
			b.page.Alert("Plugin failed to connect to hosted mode server at " + mod.CodeServer)
			b.page.LoadFrame(b.opts.TroubleshootingURL)
		}
		return mod, err
	case errors.IsPluginAbsent(err):
		mod.Outcome = OutcomeAbsent
		log.Info("no bridge plugin found")
		b.page.LoadFrame(b.opts.MissingPluginURL)
		return mod, err
	default:
		return nil, err
	}

	mod.Outcome = OutcomeConnected
	mod.Connector = c
	mod.Objects = invoke.NewObjectTable()
	if ob, ok := c.(invoke.ObjectBinder); ok {
		ob.BindObjects(mod.Objects)
	}
	if d, ok := c.(invoke.Dispatcher); ok {
		mod.Adapters = invoke.NewAdapters(d)
	}

	// Plugin instances belong to the page, which closes them after the
	// unload handlers have run.
	b.page.OnUnload(func() {
		mod.Objects.Close()
		sess.Close(ctx)
	})

	log.Info("module bridged to code server", zap.String("code_server", mod.CodeServer))
	return mod, nil
}

// host is the page surface handed to a connector's Init.
type host struct {
	page *page.Page
	sess *session.Session
}

func (h *host) Href() string {
	return h.page.Href()
}

func (h *host) Disconnected() {
	h.sess.Disconnected()
}
