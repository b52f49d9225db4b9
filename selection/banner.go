package selection

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/wippyai/bootloader/page"
	"github.com/wippyai/bootloader/permutation"
)

// Suggest returns the allowed value closest to value when it is near enough
// to be a likely typo.
func Suggest(value string, allowed []string) (string, bool) {
	best, bestDist := "", -1
	for _, a := range allowed {
		d := levenshtein.ComputeDistance(value, a)
		if bestDist < 0 || d < bestDist {
			best, bestDist = a, d
		}
	}
	limit := len(value) / 2
	if limit < 1 {
		limit = 1
	}
	if bestDist < 0 || bestDist > limit {
		return "", false
	}
	return best, true
}

// DefaultPropertyError alerts the user that a property had an illegal value.
func DefaultPropertyError(p *page.Page) permutation.PropertyErrorFunc {
	return func(name string, allowed []string, value string) {
		msg := fmt.Sprintf("While attempting to load the application, property %q had the unexpected value %q; expected one of [%s].",
			name, value, strings.Join(allowed, ", "))
		if s, ok := Suggest(value, allowed); ok {
			msg += fmt.Sprintf(" Did you mean %q?", s)
		}
		p.Alert(msg)
	}
}
