package page

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/wippyai/bootloader/errors"
)

// SetCurrentScript marks el as the executing script; subsequent writes land
// right after it. A nil el clears the mark.
func (p *Page) SetCurrentScript(el *Element) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursor = nil
	if el == nil {
		p.current = nil
		return
	}
	p.current = el.n
}

// CurrentScript returns the executing script, if any.
func (p *Page) CurrentScript() (*Element, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, false
	}
	return &Element{n: p.current, page: p}, true
}

// AppendScript appends a script element to the body and returns it. It is the
// way a host page includes the loader before running it.
func (p *Page) AppendScript(src string) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := scriptNode(src)
	p.body.AppendChild(n)
	return &Element{n: n, page: p}
}

// Write inserts markup at the write position.
func (p *Page) Write(markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return errors.Wrap(errors.PhaseBootstrap, errors.KindInvalidInput, err, "parse written markup")
	}

	p.mu.Lock()
	for _, n := range nodes {
		p.insertLocked(n)
	}
	pending := p.pendingPluginsLocked(nodes)
	p.mu.Unlock()

	p.bindPlugins(pending)
	return nil
}

// WriteScript inserts <script src=...> at the write position.
func (p *Page) WriteScript(src string) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := scriptNode(src)
	p.insertLocked(n)
	return &Element{n: n, page: p}
}

// AppendStylesheet adds <link rel="stylesheet"> to the head.
func (p *Page) AppendStylesheet(href string) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     "link",
		DataAtom: atom.Link,
		Attr:     []html.Attribute{{Key: "rel", Val: "stylesheet"}, {Key: "href", Val: href}},
	}
	p.head.AppendChild(n)
	return &Element{n: n, page: p}
}

// Scripts returns the src of every script element, in document order.
func (p *Page) Scripts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	walk(p.doc, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			if src := attr(n, "src"); src != "" {
				out = append(out, src)
			}
		}
	})
	return out
}

// FindScript returns the first script whose src ends with suffix.
func (p *Page) FindScript(suffix string) (*Element, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var found *html.Node
	walk(p.doc, func(n *html.Node) {
		if found == nil && n.Type == html.ElementNode && n.Data == "script" && strings.HasSuffix(attr(n, "src"), suffix) {
			found = n
		}
	})
	if found == nil {
		return nil, false
	}
	return &Element{n: found, page: p}, true
}

// Stylesheets returns the href of every stylesheet link, in document order.
func (p *Page) Stylesheets() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	walk(p.doc, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "link" && strings.EqualFold(attr(n, "rel"), "stylesheet") {
			out = append(out, attr(n, "href"))
		}
	})
	return out
}

func (p *Page) insertLocked(n *html.Node) {
	after := p.cursor
	if after == nil {
		after = p.current
	}
	if after == nil || after.Parent == nil {
		p.body.AppendChild(n)
		return
	}
	after.Parent.InsertBefore(n, after.NextSibling)
	p.cursor = n
}

func scriptNode(src string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr:     []html.Attribute{{Key: "src", Val: src}},
	}
}

// RegisterPlugin installs a factory for plugin elements whose type or classid
// equals key (case-insensitive). Elements already in the document are bound
// immediately.
func (p *Page) RegisterPlugin(key string, f PluginFactory) {
	p.mu.Lock()
	p.plugins[strings.ToLower(key)] = f
	pending := p.pendingPluginsLocked([]*html.Node{p.doc})
	p.mu.Unlock()

	p.bindPlugins(pending)
}

// BindCapability binds v to the element with the given id.
func (p *Page) BindCapability(id string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.byID(id)
	if n == nil {
		return errors.NotFound(errors.PhaseBootstrap, "element", id)
	}
	p.caps[n] = v
	return nil
}

// Capability returns the capability bound to the element with the given id.
func (p *Page) Capability(id string) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.byID(id)
	if n == nil {
		return nil, false
	}
	v, ok := p.caps[n]
	return v, ok
}

type pendingPlugin struct {
	node    *html.Node
	factory PluginFactory
}

func (p *Page) pendingPluginsLocked(roots []*html.Node) []pendingPlugin {
	var out []pendingPlugin
	for _, root := range roots {
		walk(root, func(n *html.Node) {
			if n.Type != html.ElementNode || (n.Data != "embed" && n.Data != "object") {
				return
			}
			if _, bound := p.caps[n]; bound {
				return
			}
			key := attr(n, "type")
			if key == "" {
				key = attr(n, "classid")
			}
			if f, ok := p.plugins[strings.ToLower(key)]; ok {
				out = append(out, pendingPlugin{node: n, factory: f})
			}
		})
	}
	return out
}

// bindPlugins runs factories outside the page lock. A failing factory leaves
// the element without a capability, like a plugin that did not load. The page
// owns what the factories return and closes it on unload.
func (p *Page) bindPlugins(pending []pendingPlugin) {
	for _, pp := range pending {
		v, err := pp.factory()
		if err != nil || v == nil {
			continue
		}
		p.mu.Lock()
		p.caps[pp.node] = v
		p.owned = append(p.owned, v)
		p.mu.Unlock()
	}
}
