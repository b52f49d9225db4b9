package page

import (
	"golang.org/x/net/html"
)

// Element is a node of the host document.
type Element struct {
	n    *html.Node
	page *Page
}

// Tag returns the element's tag name, or "" for text and comment nodes.
func (e *Element) Tag() string {
	if e.n.Type != html.ElementNode {
		return ""
	}
	return e.n.Data
}

// ID returns the id attribute.
func (e *Element) ID() string {
	return e.Attr("id")
}

// Attr returns an attribute value, or "".
func (e *Element) Attr(key string) string {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return attr(e.n, key)
}

// SetAttr sets an attribute value.
func (e *Element) SetAttr(key, val string) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	setAttr(e.n, key, val)
}

// PreviousSibling returns the node immediately before this one, which may be
// a text node.
func (e *Element) PreviousSibling() (*Element, bool) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if e.n.PrevSibling == nil {
		return nil, false
	}
	return &Element{n: e.n.PrevSibling, page: e.page}, true
}

// Attached reports whether the element is still in the document.
func (e *Element) Attached() bool {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	for n := e.n; n != nil; n = n.Parent {
		if n == e.page.doc {
			return true
		}
	}
	return false
}

// Remove detaches the element from the document.
func (e *Element) Remove() {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.page.removeLocked(e.n)
}

// Capability returns the plugin capability bound to the element.
func (e *Element) Capability() (any, bool) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	v, ok := e.page.caps[e.n]
	return v, ok
}

func (p *Page) removeLocked(n *html.Node) {
	if n.Parent == nil {
		return
	}
	if p.cursor == n {
		p.cursor = n.PrevSibling
		if p.cursor == nil || p.cursor == p.current {
			p.cursor = nil
		}
	}
	delete(p.caps, n)
	n.Parent.RemoveChild(n)
}
