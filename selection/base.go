package selection

import (
	"strings"

	"github.com/wippyai/bootloader/page"
)

// MarkerPrefix prefixes the id of the marker element written by
// ComputeScriptBase.
const MarkerPrefix = "__gwt_marker_"

// ComputeScriptBase finds the directory the loader script was served from.
// It writes a marker right after the executing script, reads the src of the
// marker's previous sibling up to the last '/', and removes the marker.
// Any failure yields "".
func ComputeScriptBase(p *page.Page, module string) string {
	id := MarkerPrefix + module
	if err := p.Write(`<script id="` + id + `"></script>`); err != nil {
		return ""
	}
	marker, ok := p.ElementByID(id)
	if !ok {
		return ""
	}
	defer marker.Remove()

	prev, ok := marker.PreviousSibling()
	if !ok {
		return ""
	}
	src := prev.Attr("src")
	if src == "" {
		return ""
	}
	if i := strings.LastIndexByte(src, '/'); i >= 0 {
		return src[:i+1]
	}
	return ""
}
