package page

import (
	"bytes"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/wippyai/bootloader/errors"
)

// Compatibility modes reported by the document.
const (
	CompatStandards = "CSS1Compat"
	CompatQuirks    = "BackCompat"
)

const emptyDocument = "<!DOCTYPE html><html><head><title></title></head><body></body></html>"

// Config describes the window a page is loaded into.
type Config struct {
	// Location is the page URL. Defaults to http://localhost/.
	Location string

	// UserAgent is the navigator user agent string.
	UserAgent string

	// CompatMode is CompatStandards (default) or CompatQuirks.
	CompatMode string
}

// Meta is one <meta name=... content=...> entry.
type Meta struct {
	Name    string
	Content string
}

// PluginFactory instantiates the capability behind a plugin element.
type PluginFactory func() (any, error)

// Page is a host document plus the window state around it.
type Page struct {
	doc        *html.Node
	head       *html.Node
	body       *html.Node
	current    *html.Node
	cursor     *html.Node
	location   *url.URL
	loop       *EventLoop
	globals    map[string]any
	hidden     map[string]bool
	caps       map[*html.Node]any
	owned      []any
	plugins    map[string]PluginFactory
	glass      map[string]string
	handlers   windowHandlers
	userAgent  string
	compatMode string
	focused    string
	alerts     []string
	frames     []string
	overlays   []Overlay
	mu         sync.Mutex
}

// New creates a page with an empty document.
func New(cfg Config) (*Page, error) {
	return Parse(strings.NewReader(emptyDocument), cfg)
}

// Parse creates a page from an HTML document.
func Parse(r io.Reader, cfg Config) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse host page")
	}

	loc := cfg.Location
	if loc == "" {
		loc = "http://localhost/"
	}
	u, err := url.Parse(loc)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse page location")
	}

	compat := cfg.CompatMode
	if compat == "" {
		compat = CompatStandards
	}

	p := &Page{
		doc:        doc,
		location:   u,
		loop:       NewEventLoop(),
		globals:    make(map[string]any),
		hidden:     make(map[string]bool),
		caps:       make(map[*html.Node]any),
		plugins:    make(map[string]PluginFactory),
		glass:      make(map[string]string),
		userAgent:  cfg.UserAgent,
		compatMode: compat,
	}
	p.head = findElement(doc, "head")
	p.body = findElement(doc, "body")
	if p.head == nil || p.body == nil {
		return nil, errors.InvalidInput(errors.PhaseConfig, "host page has no head or body")
	}
	return p, nil
}

// Location returns a copy of the page URL.
func (p *Page) Location() *url.URL {
	u := *p.location
	return &u
}

// Href returns the page URL as a string.
func (p *Page) Href() string {
	return p.location.String()
}

// Search returns the query string including the leading '?', or "".
func (p *Page) Search() string {
	if p.location.RawQuery == "" {
		return ""
	}
	return "?" + p.location.RawQuery
}

// UserAgent returns the navigator user agent.
func (p *Page) UserAgent() string {
	return p.userAgent
}

// CompatMode returns the document compatibility mode.
func (p *Page) CompatMode() string {
	return p.compatMode
}

// Loop returns the page's event loop.
func (p *Page) Loop() *EventLoop {
	return p.loop
}

// Title returns the document title.
func (p *Page) Title() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := findElement(p.head, "title")
	if t == nil {
		return ""
	}
	return textContent(t)
}

// SetTitle replaces the document title.
func (p *Page) SetTitle(title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setTitleLocked(title)
}

func (p *Page) setTitleLocked(title string) {
	t := findElement(p.head, "title")
	if t == nil {
		t = &html.Node{Type: html.ElementNode, Data: "title"}
		p.head.AppendChild(t)
	}
	for c := t.FirstChild; c != nil; {
		next := c.NextSibling
		t.RemoveChild(c)
		c = next
	}
	t.AppendChild(&html.Node{Type: html.TextNode, Data: title})
}

// Metas returns every meta element carrying a name attribute, in document order.
func (p *Page) Metas() []Meta {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []Meta
	walk(p.doc, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "meta" {
			return
		}
		name := attr(n, "name")
		if name == "" {
			return
		}
		out = append(out, Meta{Name: name, Content: attr(n, "content")})
	})
	return out
}

// ElementByID returns the first element with the given id.
func (p *Page) ElementByID(id string) (*Element, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.byID(id)
	if n == nil {
		return nil, false
	}
	return &Element{n: n, page: p}, true
}

func (p *Page) byID(id string) *html.Node {
	var found *html.Node
	walk(p.doc, func(n *html.Node) {
		if found == nil && n.Type == html.ElementNode && attr(n, "id") == id {
			found = n
		}
	})
	return found
}

// SetGlobal defines a window global.
func (p *Page) SetGlobal(name string, v any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.globals[name] = v
}

// Global returns a window global.
func (p *Page) Global(name string) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.globals[name]
	return v, ok
}

// HideGlobal removes name from GlobalNames without undefining it.
func (p *Page) HideGlobal(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hidden[name] = true
}

// GlobalNames returns the enumerable global names, sorted.
func (p *Page) GlobalNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.globals))
	for k := range p.globals {
		if !p.hidden[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Alert records a user-facing alert.
func (p *Page) Alert(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, msg)
}

// Alerts returns the alerts shown so far.
func (p *Page) Alerts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.alerts))
	copy(out, p.alerts)
	return out
}

// Focused returns the id of the element that last stole focus.
func (p *Page) Focused() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.focused
}

// Render writes the document as HTML.
func (p *Page) Render(w io.Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return html.Render(w, p.doc)
}

// String renders the document.
func (p *Page) String() string {
	var b bytes.Buffer
	_ = p.Render(&b)
	return b.String()
}

func findElement(root *html.Node, tag string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) {
		if found == nil && n.Type == html.ElementNode && n.Data == tag {
			found = n
		}
	})
	return found
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n == nil {
		return
	}
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return b.String()
}
