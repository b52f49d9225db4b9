// Package quirks holds per-engine patches applied once when a page boots.
package quirks

import (
	"strings"

	"github.com/wippyai/bootloader/page"
)

// ObjectIDProperty is the bookkeeping property the bridge attaches to page
// objects.
const ObjectIDProperty = "__gwt_ObjectId"

// Quirk pairs an environment detector with the patch it needs.
type Quirk struct {
	Name   string
	Detect func(p *page.Page) bool
	Patch  func(p *page.Page)
}

// Default returns the built-in quirk table.
func Default() []Quirk {
	return []Quirk{
		{
			Name: "chrome-object-id",
			Detect: func(p *page.Page) bool {
				return uaContains(p, "chrome")
			},
			Patch: func(p *page.Page) {
				p.HideGlobal(ObjectIDProperty)
			},
		},
		{
			Name: "msie-backcompat-glass",
			Detect: func(p *page.Page) bool {
				return strings.Contains(p.UserAgent(), "MSIE") && p.CompatMode() == page.CompatQuirks
			},
			Patch: func(p *page.Page) {
				p.SetGlassStyle("width", "125%")
				p.SetGlassStyle("height", "100%")
			},
		},
		{
			Name: "msie6-glass",
			Detect: func(p *page.Page) bool {
				return strings.Contains(p.UserAgent(), "MSIE 6") && p.CompatMode() != page.CompatQuirks
			},
			Patch: func(p *page.Page) {
				p.SetGlassStyle("width", "125%")
				p.SetGlassStyle("height", "expression(document.documentElement.clientHeight)")
			},
		},
	}
}

// Apply runs every matching patch in table order and returns the names of
// the quirks applied.
func Apply(p *page.Page, table []Quirk) []string {
	var applied []string
	for _, q := range table {
		if q.Detect == nil || q.Patch == nil || !q.Detect(p) {
			continue
		}
		q.Patch(p)
		applied = append(applied, q.Name)
	}
	return applied
}

func uaContains(p *page.Page, s string) bool {
	return strings.Contains(strings.ToLower(p.UserAgent()), s)
}
