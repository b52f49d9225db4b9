package page

import (
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// GlassID is the id given to the blocking overlay element.
const GlassID = "__gwt_glass"

// Overlay records a glass message shown over the page.
type Overlay struct {
	Summary string
	Details string
}

// Text returns the details with markup stripped.
func (o Overlay) Text() string {
	nodes, err := html.ParseFragment(strings.NewReader(o.Details), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return o.Details
	}
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(textContent(n))
	}
	return b.String()
}

var frameStyle = map[string]string{
	"position":         "absolute",
	"border-width":     "0",
	"left":             "0",
	"top":              "0",
	"width":            "100%",
	"height":           "100%",
	"background-color": "#ffffff",
	"z-index":          "1",
}

var glassStyle = map[string]string{
	"position":         "absolute",
	"z-index":          "2147483646",
	"left":             "0px",
	"top":              "0px",
	"right":            "0px",
	"bottom":           "0px",
	"filter":           "alpha(opacity=75)",
	"opacity":          "0.75",
	"background-color": "#000000",
}

const messageStyle = "position:absolute;z-index:2147483647;left:50px;top:50px;width:600px;color:#FFFFFF;font-family:verdana;"

// LoadFrame covers the page with a full-viewport iframe showing url.
func (p *Page) LoadFrame(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	iframe := &html.Node{
		Type:     html.ElementNode,
		Data:     "iframe",
		DataAtom: atom.Iframe,
		Attr: []html.Attribute{
			{Key: "scrolling", Val: "no"},
			{Key: "frameborder", Val: "0"},
			{Key: "src", Val: url},
			{Key: "style", Val: styleString(frameStyle)},
		},
	}

	mergeStyle(p.body, map[string]string{
		"margin":   "0",
		"height":   "100%",
		"overflow": "hidden",
	})
	p.body.InsertBefore(iframe, p.body.FirstChild)
	p.frames = append(p.frames, url)
}

// Frames returns the URLs loaded with LoadFrame, oldest first.
func (p *Page) Frames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.frames))
	copy(out, p.frames)
	return out
}

// SetGlassStyle overrides properties of the overlay's glass pane. Quirk
// patches use it for engines that lack right/bottom positioning.
func (p *Page) SetGlassStyle(prop, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.glass[prop] = value
}

// ShowGlass blocks the viewport with a translucent pane and a message. details
// is HTML. The pane steals focus, scrolling is disabled and the title is
// prefixed with the summary.
func (p *Page) ShowGlass(summary, details string) {
	detailNodes, err := html.ParseFragment(strings.NewReader(details), &html.Node{
		Type:     html.ElementNode,
		Data:     "p",
		DataAtom: atom.P,
	})
	if err != nil {
		detailNodes = []*html.Node{{Type: html.TextNode, Data: details}}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	style := make(map[string]string, len(glassStyle)+len(p.glass))
	for k, v := range glassStyle {
		style[k] = v
	}
	for k, v := range p.glass {
		style[k] = v
	}

	outer := element(atom.Div, nil)
	glass := element(atom.Div, []html.Attribute{
		{Key: "id", Val: GlassID},
		{Key: "style", Val: styleString(style)},
	})
	message := element(atom.Div, []html.Attribute{{Key: "style", Val: messageStyle}})
	title := element(atom.Div, []html.Attribute{{Key: "style", Val: "font-size:30px;font-weight:bold;"}})
	title.AppendChild(&html.Node{Type: html.TextNode, Data: summary})
	para := element(atom.P, []html.Attribute{{Key: "style", Val: "font-size:15px;"}})
	for _, n := range detailNodes {
		para.AppendChild(n)
	}
	message.AppendChild(title)
	message.AppendChild(para)
	outer.AppendChild(glass)
	outer.AppendChild(message)
	p.body.AppendChild(outer)

	if p.compatMode == CompatQuirks {
		mergeStyle(p.body, map[string]string{"overflow": "hidden"})
	} else if root := findElement(p.doc, "html"); root != nil {
		mergeStyle(root, map[string]string{"overflow": "hidden"})
	}

	p.focused = GlassID
	p.overlays = append(p.overlays, Overlay{Summary: summary, Details: details})

	old := ""
	if t := findElement(p.head, "title"); t != nil {
		old = textContent(t)
	}
	p.setTitleLocked(summary + " [" + old + "]")
}

// Overlays returns the glass messages shown so far.
func (p *Page) Overlays() []Overlay {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Overlay, len(p.overlays))
	copy(out, p.overlays)
	return out
}

func element(a atom.Atom, attrs []html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     a.String(),
		DataAtom: a,
		Attr:     attrs,
	}
}

func styleString(style map[string]string) string {
	keys := make([]string, 0, len(style))
	for k := range style {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(style[k])
		b.WriteByte(';')
	}
	return b.String()
}

func parseStyle(s string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k != "" {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}

func mergeStyle(n *html.Node, props map[string]string) {
	style := parseStyle(attr(n, "style"))
	for k, v := range props {
		style[k] = v
	}
	setAttr(n, "style", styleString(style))
}

// Style returns the parsed inline style of the element with the given id, or
// of the body or html element when id is "body" or "html".
func (p *Page) Style(id string) map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var n *html.Node
	switch id {
	case "body":
		n = p.body
	case "html":
		n = findElement(p.doc, "html")
	default:
		n = p.byID(id)
	}
	if n == nil {
		return nil
	}
	return parseStyle(attr(n, "style"))
}
