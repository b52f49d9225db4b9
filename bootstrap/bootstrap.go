// Package bootstrap is the single entry point that boots a module on a host
// page. It chooses between the development bridge and compiled permutation
// selection, and keeps page-wide state shared between modules.
package bootstrap

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/bootloader/connector"
	"github.com/wippyai/bootloader/devmode"
	"github.com/wippyai/bootloader/errors"
	"github.com/wippyai/bootloader/meta"
	"github.com/wippyai/bootloader/metrics"
	"github.com/wippyai/bootloader/page"
	"github.com/wippyai/bootloader/permutation"
	"github.com/wippyai/bootloader/quirks"
	"github.com/wippyai/bootloader/selection"
	"github.com/wippyai/bootloader/session"
)

// HybridKey anywhere in the page query keeps a dev-mode page on compiled code.
const HybridKey = "gwt.hybrid"

const (
	claimQuirks  = "bootstrap.quirks"
	claimPlugins = "bootstrap.plugins"
)

// Mode selects how a module is loaded.
type Mode uint8

const (
	// ModeAuto picks ModeDev when the page query names a code server.
	ModeAuto Mode = iota
	ModeCompiled
	ModeDev
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeCompiled:
		return "compiled"
	case ModeDev:
		return "dev"
	default:
		return "unknown"
	}
}

// DetectMode reports the mode a page asks for.
func DetectMode(p *page.Page) Mode {
	search := p.Search()
	if connector.HasQueryKey(search, connector.CodeServerKey) && !strings.Contains(search, HybridKey) {
		return ModeDev
	}
	return ModeCompiled
}

// Host is the page a module boots into, with the state every module on it
// shares.
type Host struct {
	Page  *page.Page
	State *session.PageState
}

// Options configures one Bootstrap call.
type Options struct {
	// Module is the module to boot. Name is always required; the property
	// and permutation tables are only consulted in compiled mode.
	Module *selection.Module

	// Base overrides the computed script base in dev mode.
	Base string

	Mode Mode

	// Handlers resolves callback names found in the page metas.
	Handlers *meta.Registry

	// LoadError is the module's own load-error callback. It takes priority
	// over one named by a gwt:onLoadErrorFn meta.
	LoadError devmode.ErrorFunc

	// PropertyError is used in compiled mode when no meta names a handler.
	PropertyError permutation.PropertyErrorFunc

	// Silent disables the default property-error banner.
	Silent bool

	// Quirks replaces the built-in quirk table. It is applied once per page.
	Quirks []quirks.Quirk

	// Metrics receives startup events in both modes. In dev mode it is
	// combined with Bridge.Metrics.
	Metrics metrics.Sink

	Bridge devmode.Options
}

// Result reports what a Bootstrap call did.
type Result struct {
	Mode      Mode
	Quirks    []string
	Selection *selection.Result
	Dev       *devmode.Module

	// Err is the handled outcome of a failed dev-mode handshake. It has
	// already been reported on the page.
	Err error
}

// Aborted reports whether the module was left unloaded.
func (r *Result) Aborted() bool {
	if r.Selection != nil {
		return r.Selection.Aborted
	}
	return r.Dev == nil || r.Dev.Outcome != devmode.OutcomeConnected
}

// Bootstrap loads opts.Module into the host page.
//
// Handshake and resolution failures are reported on the page and described
// by the Result; the returned error is reserved for invalid arguments and
// malformed modules.
func Bootstrap(ctx context.Context, host Host, opts Options) (*Result, error) {
	if host.Page == nil {
		return nil, errors.InvalidInput(errors.PhaseBootstrap, "host page is required")
	}
	if host.State == nil {
		return nil, errors.InvalidInput(errors.PhaseBootstrap, "page state is required")
	}
	if opts.Module == nil || opts.Module.Name == "" {
		return nil, errors.InvalidInput(errors.PhaseBootstrap, "module name is required")
	}

	mode := opts.Mode
	if mode == ModeAuto {
		mode = DetectMode(host.Page)
	}
	res := &Result{Mode: mode}

	if host.State.Claim(claimQuirks) {
		table := opts.Quirks
		if table == nil {
			table = quirks.Default()
		}
		res.Quirks = quirks.Apply(host.Page, table)
	}

	log := Logger().With(
		zap.String("module", opts.Module.Name),
		zap.Stringer("mode", mode),
		zap.String("page", host.State.PageID().String()))
	if len(res.Quirks) > 0 {
		log.Debug("quirks applied", zap.Strings("quirks", res.Quirks))
	}

	switch mode {
	case ModeDev:
		if err := bootDev(ctx, host, opts, res); err != nil {
			return nil, err
		}
		if res.Err != nil {
			log.Info("dev-mode handshake did not complete", zap.Error(res.Err))
		}
	case ModeCompiled:
		sel, err := selection.Run(host.Page, host.State, opts.Module, selection.Options{
			Handlers:      opts.Handlers,
			PropertyError: opts.PropertyError,
			Silent:        opts.Silent,
			Metrics:       opts.Metrics,
		})
		if err != nil {
			return nil, err
		}
		res.Selection = sel
	default:
		return nil, errors.New(errors.PhaseBootstrap, errors.KindInvalidInput).
			Subject("mode").
			Value(mode).
			Detail("unknown bootstrap mode").
			Build()
	}
	return res, nil
}

func bootDev(ctx context.Context, host Host, opts Options, res *Result) error {
	errFn := opts.LoadError
	if errFn == nil {
		cfg := meta.Process(host.Page, opts.Handlers)
		if cfg.LoadError != nil {
			errFn = devmode.ErrorFunc(cfg.LoadError)
		}
	}

	base := opts.Base
	if base == "" {
		base = selection.ComputeScriptBase(host.Page, opts.Module.Name)
	}

	if host.State.Claim(claimPlugins) {
		if err := connector.InstallPluginElements(host.Page); err != nil {
			return err
		}
	}

	bridge := opts.Bridge
	bridge.Metrics = metrics.Tee(opts.Metrics, bridge.Metrics)

	mod, err := devmode.New(host.Page, host.State, bridge).OnLoad(ctx, errFn, opts.Module.Name, base)
	switch {
	case err == nil:
	case errors.IsConnectionRefused(err), errors.IsPluginAbsent(err):
		res.Err = err
	default:
		return err
	}
	res.Dev = mod
	return nil
}
