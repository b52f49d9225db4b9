// Package selection implements compiled-mode loading: it works out the
// script base, reads meta configuration, resolves the permutation for the
// current environment and injects the chosen compiled script.
package selection

import (
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/bootloader/errors"
	"github.com/wippyai/bootloader/meta"
	"github.com/wippyai/bootloader/metrics"
	"github.com/wippyai/bootloader/page"
	"github.com/wippyai/bootloader/permutation"
	"github.com/wippyai/bootloader/session"
)

// CacheSuffix is appended to a strong name to form the compiled script name.
const CacheSuffix = ".cache.js"

// LoaderSuffix names a module's selection script.
const LoaderSuffix = ".nocache.js"

// PropertyDef declares one deferred-binding property of a module.
type PropertyDef struct {
	Name     string
	Values   []string
	Provider ProviderFunc
}

// Permutation maps one tuple of property values to a strong name.
type Permutation struct {
	Values     []string
	StrongName string
}

// Module is everything the selection script knows about one module.
// Properties are evaluated in declaration order.
type Module struct {
	Name         string
	Properties   []PropertyDef
	Permutations []Permutation
	Scripts      []string
	Styles       []string
}

// Build registers the module's properties against env and fills its table.
func (m *Module) Build(env *Env) (*permutation.Engine, error) {
	space := permutation.NewSpace()
	env.Space = space

	order := make([]string, 0, len(m.Properties))
	for _, def := range m.Properties {
		if def.Provider == nil {
			return nil, errors.New(errors.PhaseRegister, errors.KindInvalidInput).
				Subject(def.Name).
				Detail("property has no provider").
				Build()
		}
		if err := space.Register(def.Name, def.Values, def.Provider(env)); err != nil {
			return nil, err
		}
		order = append(order, def.Name)
	}

	table := permutation.NewTable(len(order))
	for _, p := range m.Permutations {
		if err := table.Add(p.Values, p.StrongName); err != nil {
			return nil, err
		}
	}
	return permutation.NewEngine(space, table, order...)
}

// Options tunes Run.
type Options struct {
	// Handlers resolves handler names from gwt:onPropertyErrorFn and
	// gwt:onLoadErrorFn metas.
	Handlers *meta.Registry

	// PropertyError is used when no meta names a handler. When nil the
	// default alert banner is shown.
	PropertyError permutation.PropertyErrorFunc

	// Silent disables the default banner, leaving a property failure with
	// no visible report unless a handler is configured.
	Silent bool

	// Metrics receives the bootstrap events of the run. May be nil.
	Metrics metrics.Sink
}

// Result describes a selection run.
type Result struct {
	Meta       *meta.Config
	Base       string
	StrongName string
	ScriptURL  string
	Scripts    []string
	Styles     []string

	// Aborted is set when a property value was illegal. The property-error
	// handler has already reported it and nothing was injected.
	Aborted bool
}

// Run performs compiled-mode selection for m on the page. Shared dependencies
// are injected at most once per page, tracked in state.
//
// A property failure is not an error: Run returns a Result with Aborted set.
// Errors are returned for malformed modules and incomplete tables.
func Run(p *page.Page, state *session.PageState, m *Module, opts Options) (*Result, error) {
	if m == nil || m.Name == "" {
		return nil, errors.InvalidInput(errors.PhaseBootstrap, "module name is required")
	}
	log := Logger().With(zap.String("module", m.Name))

	statsSession, _ := p.Global(metrics.SessionGlobal)
	statsID, _ := statsSession.(string)
	em := metrics.NewEmitter(opts.Metrics, m.Name, statsID)
	em.Bootstrap(metrics.TypeBootstrap)

	res := &Result{}
	res.Base = ComputeScriptBase(p, m.Name)
	res.Meta = meta.Process(p, opts.Handlers)
	for _, w := range res.Meta.Warnings {
		log.Warn("ignoring meta entry", zap.Error(w))
	}

	engine, err := m.Build(&Env{Page: p, Meta: res.Meta})
	if err != nil {
		return nil, err
	}

	switch {
	case res.Meta.PropertyError != nil:
		engine.OnPropertyError(res.Meta.PropertyError)
	case opts.PropertyError != nil:
		engine.OnPropertyError(opts.PropertyError)
	case !opts.Silent:
		engine.OnPropertyError(DefaultPropertyError(p))
	}

	em.Bootstrap(metrics.TypeSelectingPermutation)
	strong, err := engine.Resolve()
	if err != nil {
		if errors.IsPropertyResolution(err) {
			log.Info("permutation selection aborted", zap.Error(err))
			res.Aborted = true
			return res, nil
		}
		return nil, err
	}
	res.StrongName = strong

	for _, href := range m.Styles {
		if state.Styles().MarkLoaded(href) {
			u := resolveURL(res.Base, href)
			p.AppendStylesheet(u)
			res.Styles = append(res.Styles, u)
		}
	}
	for _, src := range m.Scripts {
		if state.Scripts().MarkLoaded(src) {
			u := resolveURL(res.Base, src)
			p.WriteScript(u)
			res.Scripts = append(res.Scripts, u)
		}
	}

	res.ScriptURL = res.Base + strong + CacheSuffix
	p.WriteScript(res.ScriptURL)
	em.Bootstrap(metrics.TypeEnd)

	log.Debug("permutation selected",
		zap.String("strong_name", strong),
		zap.String("base", res.Base))
	return res, nil
}

// resolveURL prefixes relative references with base.
func resolveURL(base, ref string) string {
	if strings.HasPrefix(ref, "/") {
		return ref
	}
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		return ref
	}
	return base + ref
}
