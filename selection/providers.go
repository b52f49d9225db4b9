package selection

import (
	"strings"

	"github.com/wippyai/bootloader/meta"
	"github.com/wippyai/bootloader/page"
	"github.com/wippyai/bootloader/permutation"
)

// Env is what a provider may consult when it runs.
type Env struct {
	Page  *page.Page
	Meta  *meta.Config
	Space *permutation.Space
}

// ProviderFunc builds a property provider bound to env.
type ProviderFunc func(env *Env) permutation.Provider

// Constant always yields v.
func Constant(v string) ProviderFunc {
	return func(*Env) permutation.Provider {
		return func() string { return v }
	}
}

// Query yields the value of key in the page query string, or def.
func Query(key, def string) ProviderFunc {
	return func(env *Env) permutation.Provider {
		return func() string {
			q := env.Page.Location().Query()
			if !q.Has(key) {
				return def
			}
			return q.Get(key)
		}
	}
}

// UARule maps a user agent substring to a property value.
type UARule struct {
	Contains string
	Value    string
}

// UserAgent yields the value of the first rule whose substring occurs in the
// lower-cased user agent, or def.
func UserAgent(rules []UARule, def string) ProviderFunc {
	return func(env *Env) permutation.Provider {
		return func() string {
			ua := strings.ToLower(env.Page.UserAgent())
			for _, r := range rules {
				if strings.Contains(ua, strings.ToLower(r.Contains)) {
					return r.Value
				}
			}
			return def
		}
	}
}

// MetaOverride yields the gwt:property value for name when it is a legal
// value of the property, and otherwise falls back.
func MetaOverride(name string, fallback ProviderFunc) ProviderFunc {
	return func(env *Env) permutation.Provider {
		next := fallback(env)
		return func() string {
			if env.Meta != nil {
				if v, ok := env.Meta.Property(name); ok && env.Space.IsKnownValue(name, v) {
					return v
				}
			}
			return next()
		}
	}
}
