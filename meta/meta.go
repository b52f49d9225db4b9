// Package meta reads loader configuration from the host page's meta tags:
//
//	<meta name="gwt:property" content="locale=fr">
//	<meta name="gwt:onPropertyErrorFn" content="handlerName">
//	<meta name="gwt:onLoadErrorFn" content="handlerName">
//
// Handler names are looked up in a Registry. An unknown name is reported with
// an alert and a warning; loading continues with the default behavior.
package meta

import (
	"fmt"
	"strings"

	"github.com/wippyai/bootloader/errors"
	"github.com/wippyai/bootloader/page"
	"github.com/wippyai/bootloader/permutation"
)

// Meta names understood by Process.
const (
	NameProperty          = "gwt:property"
	NameOnPropertyErrorFn = "gwt:onPropertyErrorFn"
	NameOnLoadErrorFn     = "gwt:onLoadErrorFn"
)

// LoadErrorFunc is called with the module name when loading fails.
type LoadErrorFunc func(module string)

// Registry holds the callbacks a page may reference by name.
type Registry struct {
	property map[string]permutation.PropertyErrorFunc
	load     map[string]LoadErrorFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		property: make(map[string]permutation.PropertyErrorFunc),
		load:     make(map[string]LoadErrorFunc),
	}
}

// RegisterPropertyError makes fn available as name.
func (r *Registry) RegisterPropertyError(name string, fn permutation.PropertyErrorFunc) {
	r.property[name] = fn
}

// RegisterLoadError makes fn available as name.
func (r *Registry) RegisterLoadError(name string, fn LoadErrorFunc) {
	r.load[name] = fn
}

// Source is the page surface Process reads from.
type Source interface {
	Metas() []page.Meta
	Alert(msg string)
}

// Config is the result of processing a page's metas.
type Config struct {
	properties    map[string]string
	PropertyError permutation.PropertyErrorFunc
	LoadError     LoadErrorFunc
	Warnings      []error
}

// Property returns a property value set by a gwt:property meta.
func (c *Config) Property(name string) (string, bool) {
	v, ok := c.properties[name]
	return v, ok
}

// Properties returns a copy of every meta-supplied property.
func (c *Config) Properties() map[string]string {
	out := make(map[string]string, len(c.properties))
	for k, v := range c.properties {
		out[k] = v
	}
	return out
}

// Process reads the page's metas in document order. Later entries override
// earlier ones. A nil registry resolves no handler names.
func Process(src Source, reg *Registry) *Config {
	if reg == nil {
		reg = NewRegistry()
	}
	cfg := &Config{properties: make(map[string]string)}

	for _, m := range src.Metas() {
		switch m.Name {
		case NameProperty:
			if m.Content == "" {
				continue
			}
			name, value, _ := strings.Cut(m.Content, "=")
			cfg.properties[name] = value

		case NameOnPropertyErrorFn:
			if m.Content == "" {
				continue
			}
			if fn, ok := reg.property[strings.TrimSpace(m.Content)]; ok && fn != nil {
				cfg.PropertyError = fn
				continue
			}
			cfg.badHandler(src, m)

		case NameOnLoadErrorFn:
			if m.Content == "" {
				continue
			}
			if fn, ok := reg.load[strings.TrimSpace(m.Content)]; ok && fn != nil {
				cfg.LoadError = fn
				continue
			}
			cfg.badHandler(src, m)
		}
	}
	return cfg
}

func (c *Config) badHandler(src Source, m page.Meta) {
	src.Alert(fmt.Sprintf("Bad handler %q for %q", m.Content, m.Name))
	c.Warnings = append(c.Warnings, errors.ConfigParse(m.Name, m.Content,
		errors.NotFound(errors.PhaseConfig, "handler", strings.TrimSpace(m.Content))))
}
