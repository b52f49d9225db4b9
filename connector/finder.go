package connector

// Element ids, MIME type and class id of the plugin elements.
const (
	NativeGlobal    = "__gwt_HostedModePlugin"
	ObjectElementID = "pluginObject"
	EmbedElementID  = "pluginEmbed"
	PluginMIMEType  = "application/x-gwt-hosted-mode"
	PluginClassID   = "CLSID:1D6156B6-002B-49E7-B5CA-C138FB843B4E"
)

// Document is what finders need from the host page.
type Document interface {
	Global(name string) (any, bool)
	Capability(id string) (any, bool)
}

// Finder locates one kind of connector.
type Finder interface {
	Kind() Kind
	Find(doc Document) (Connector, bool)
}

// GlobalFinder looks up a connector exposed as a window global.
type GlobalFinder struct {
	Name string
}

// Kind returns KindNative.
func (f GlobalFinder) Kind() Kind { return KindNative }

// Find returns the global if it implements Connector.
func (f GlobalFinder) Find(doc Document) (Connector, bool) {
	v, ok := doc.Global(f.Name)
	if !ok {
		return nil, false
	}
	c, ok := v.(Connector)
	return c, ok && c != nil
}

// ElementFinder looks up the capability bound to a plugin element.
type ElementFinder struct {
	ID   string
	kind Kind
}

// NewElementFinder creates a finder for the element with the given id.
func NewElementFinder(kind Kind, id string) ElementFinder {
	return ElementFinder{ID: id, kind: kind}
}

// Kind returns the finder's connector kind.
func (f ElementFinder) Kind() Kind { return f.kind }

// Find returns the element's capability if it implements Connector.
func (f ElementFinder) Find(doc Document) (Connector, bool) {
	v, ok := doc.Capability(f.ID)
	if !ok {
		return nil, false
	}
	c, ok := v.(Connector)
	return c, ok && c != nil
}

// DefaultFinders returns the probing order: native global, object element,
// embed element.
func DefaultFinders() []Finder {
	return []Finder{
		GlobalFinder{Name: NativeGlobal},
		NewElementFinder(KindObject, ObjectElementID),
		NewElementFinder(KindEmbed, EmbedElementID),
	}
}

// Writer is the page surface used to install plugin elements.
type Writer interface {
	Document
	Write(markup string) error
}

// InstallPluginElements writes the embed and object plugin elements unless a
// native connector global is already present. The page binds registered
// plugin capabilities to them by MIME type and class id.
func InstallPluginElements(w Writer) error {
	if _, ok := w.Global(NativeGlobal); ok {
		return nil
	}
	if err := w.Write(`<embed id="` + EmbedElementID + `" type="` + PluginMIMEType + `" width="10" height="10">`); err != nil {
		return err
	}
	return w.Write(`<object id="` + ObjectElementID + `" classid="` + PluginClassID + `" width="10" height="10"></object>`)
}
