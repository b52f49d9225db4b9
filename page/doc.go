// Package page models the host page a module is bootstrapped into.
//
// A Page wraps a parsed HTML document together with the window state the
// loader touches: location, user agent, named globals, plugin capabilities
// bound to elements, alerts, the window event handlers and a cooperative
// event loop. Documents are parsed and rendered with golang.org/x/net/html.
//
// Writes follow document.write semantics: markup is inserted right after the
// currently executing script (see SetCurrentScript), after anything written
// before it. Without a current script, writes append to the body.
//
// Embed and object elements written into the page are bound to capabilities
// produced by the plugin factory registered for their type or classid, the way
// a browser instantiates a plugin for a matching MIME type:
//
//	p.RegisterPlugin("application/x-gwt-hosted-mode", func() (any, error) {
//	    return newConnector(), nil
//	})
//	p.Write(`<embed id="pluginEmbed" type="application/x-gwt-hosted-mode">`)
//	c, ok := p.Capability("pluginEmbed")
//
// # Event loop
//
// Deferred work (timers, signals arriving from plugins) is queued on the
// page's EventLoop and runs when the owner drains it. All callbacks run on the
// draining goroutine, which keeps the loader's single control thread model.
package page
