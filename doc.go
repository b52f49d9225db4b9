// Package bootloader loads compiled web-application modules into host pages.
//
// A module is compiled into several permutations, one per combination of
// deferred-binding property values (user agent, locale, ...). At load time the
// bootloader evaluates each property against the page, walks the permutation
// table to the matching strong name and injects that permutation's script.
// In development mode it instead bridges the module to a code server through a
// connector plugin.
//
// # Architecture Overview
//
//	bootloader/
//	├── bootstrap/       Single entry point: dev vs compiled, page-wide state
//	├── permutation/     Property space, permutation table, resolution engine
//	├── selection/       Compiled-mode loading: script base, providers, injection
//	├── meta/            gwt:property and callback metas of the host page
//	├── devmode/         Dev-mode bridge: handshake, fallbacks, disconnect overlay
//	├── connector/       Connector interface, finders, discovery
//	│   └── wasmplugin/  Connector plugins shipped as wasm modules
//	├── session/         Session identity, state machine, loaded-resource registries
//	├── page/            Host document model, window handlers, event loop
//	├── quirks/          Per-engine patches applied once per page
//	├── invoke/          Invoke and tear-off adapters keyed by arity
//	├── metrics/         Startup metrics events
//	├── config/          Loader settings and permutation manifests
//	├── render/          Terminal rendering of page state
//	└── errors/          Structured error types
//
// # Quick Start
//
// Boot a module in compiled mode:
//
//	m, err := config.LoadManifest("manifest.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mod, err := m.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	p, _ := page.New(page.Config{Location: "http://localhost/app.html?locale=fr"})
//	p.SetCurrentScript(p.AppendScript("app/app.nocache.js"))
//
//	res, err := bootstrap.Bootstrap(ctx, bootstrap.Host{
//	    Page:  p,
//	    State: session.NewPageState(nil),
//	}, bootstrap.Options{Module: mod})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !res.Aborted() {
//	    fmt.Println(res.Selection.ScriptURL)
//	}
//
// # Failure Handling
//
// An illegal property value is reported once through the property-error
// handler and the load is abandoned; Bootstrap does not return an error for
// it. In development mode a missing plugin loads the missing-plugin page, a
// refusing plugin calls the module's load-error callback (or alerts and loads
// the troubleshooting page), and a dropped link shows a blocking overlay once.
//
// # Page State
//
// Modules sharing a page share one session.PageState: the bridge session id,
// the loaded-script and loaded-stylesheet registries, module ids and one-time
// setup. It is safe for concurrent use.
package bootloader
