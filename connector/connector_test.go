package connector

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	lerrors "github.com/wippyai/bootloader/errors"
	"github.com/wippyai/bootloader/page"
	"github.com/wippyai/bootloader/session"
)

type fakeDoc struct {
	globals map[string]any
	caps    map[string]any
}

func (d fakeDoc) Global(name string) (any, bool) {
	v, ok := d.globals[name]
	return v, ok
}

func (d fakeDoc) Capability(id string) (any, bool) {
	v, ok := d.caps[id]
	return v, ok
}

type fakeHost struct{ disconnects int }

func (h *fakeHost) Href() string { return "http://localhost:8888/app.html?gwt.codesvr=127.0.0.1:9997" }
func (h *fakeHost) Disconnected() { h.disconnects++ }

type fakeConnector struct {
	name       string
	initOK     bool
	initErr    error
	initPanic  bool
	connectOK  bool
	connectErr error
	log        *[]string
	req        ConnectRequest
	host       Host
}

func (c *fakeConnector) Init(_ context.Context, host Host) (bool, error) {
	*c.log = append(*c.log, c.name+".init")
	if c.initPanic {
		panic("not scriptable")
	}
	c.host = host
	return c.initOK, c.initErr
}

func (c *fakeConnector) Connect(_ context.Context, req ConnectRequest) (bool, error) {
	*c.log = append(*c.log, c.name+".connect")
	c.req = req
	return c.connectOK, c.connectErr
}

func (c *fakeConnector) Disconnect(context.Context) error {
	*c.log = append(*c.log, c.name+".disconnect")
	return nil
}

func newSession(t *testing.T) *session.Session {
	t.Helper()
	return session.New(session.NewPageState(session.NewInsecureSource(3)), "com.example.App")
}

func request() ConnectRequest {
	return ConnectRequest{
		URL:        "http://localhost:8888/app.html",
		CodeServer: "127.0.0.1:9997",
		Module:     "com.example.App",
	}
}

func TestCodeServer(t *testing.T) {
	tests := []struct {
		search string
		want   string
	}{
		{"", DefaultCodeServer},
		{"?foo=bar", DefaultCodeServer},
		{"?gwt.codesvr=127.0.0.1:9997", "127.0.0.1:9997"},
		{"?gwt.codesvr=127.0.0.1%3A9998&x=1", "127.0.0.1:9998"},
		{"?a=1&gwt.codesvr=host:1&gwt.hybrid", "host:1"},
		{"?gwt.codesvr=", ""},
		{"?gwt.codesvr=%zz", DefaultCodeServer},
	}
	for _, tt := range tests {
		if got := CodeServer(tt.search); got != tt.want {
			t.Errorf("CodeServer(%q) = %q, want %q", tt.search, got, tt.want)
		}
	}
}

func TestKindString(t *testing.T) {
	want := []string{"native", "object", "embed"}
	var got []string
	for _, f := range DefaultFinders() {
		got = append(got, f.Kind().String())
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("finder order mismatch (-want +got):\n%s", diff)
	}
}

func TestConnectFirstSuccessWins(t *testing.T) {
	var log []string
	native := &fakeConnector{name: "native", initOK: true, connectOK: true, log: &log}
	embed := &fakeConnector{name: "embed", initOK: true, connectOK: true, log: &log}
	doc := fakeDoc{
		globals: map[string]any{NativeGlobal: native},
		caps:    map[string]any{EmbedElementID: embed},
	}
	sess := newSession(t)
	host := &fakeHost{}

	c, err := NewDiscoverer().Connect(context.Background(), doc, host, sess, request())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if c != native {
		t.Errorf("connected %v, want native", c)
	}
	if diff := cmp.Diff([]string{"native.init", "native.connect"}, log); diff != "" {
		t.Errorf("attempt log mismatch (-want +got):\n%s", diff)
	}
	if sess.Status() != session.StatusConnected || sess.Connector() != "native" {
		t.Errorf("session = %v via %q", sess.Status(), sess.Connector())
	}
	if native.req.SessionID != sess.ID() || native.req.ProtocolVersion != ProtocolVersion {
		t.Errorf("request = %+v", native.req)
	}
	if native.host != host {
		t.Error("Init did not receive the host")
	}
}

func TestConnectFailingCandidatesAreAbsent(t *testing.T) {
	var log []string
	object := &fakeConnector{name: "object", initPanic: true, log: &log}
	embed := &fakeConnector{name: "embed", initOK: true, connectOK: true, log: &log}
	doc := fakeDoc{
		globals: map[string]any{NativeGlobal: "not a connector"},
		caps:    map[string]any{ObjectElementID: object, EmbedElementID: embed},
	}

	c, err := NewDiscoverer().Connect(context.Background(), doc, &fakeHost{}, newSession(t), request())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if c != embed {
		t.Errorf("connected %v, want embed", c)
	}
	want := []string{"object.init", "embed.init", "embed.connect"}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Errorf("attempt log mismatch (-want +got):\n%s", diff)
	}
}

func TestConnectAllAbsent(t *testing.T) {
	var log []string
	doc := fakeDoc{
		globals: map[string]any{},
		caps: map[string]any{
			ObjectElementID: &fakeConnector{name: "object", initPanic: true, log: &log},
			EmbedElementID:  &fakeConnector{name: "embed", initErr: errors.New("no"), log: &log},
		},
	}
	sess := newSession(t)

	_, err := NewDiscoverer().Connect(context.Background(), doc, &fakeHost{}, sess, request())
	if !lerrors.IsPluginAbsent(err) {
		t.Fatalf("err = %v, want plugin absent", err)
	}
	if lerrors.IsConnectionRefused(err) {
		t.Error("absence reported as refusal")
	}
	if sess.Status() != session.StatusFailed {
		t.Errorf("Status = %v", sess.Status())
	}
}

func TestConnectRefusalStopsProbing(t *testing.T) {
	var log []string
	object := &fakeConnector{name: "object", initOK: true, connectOK: false, log: &log}
	embed := &fakeConnector{name: "embed", initOK: true, connectOK: true, log: &log}
	doc := fakeDoc{
		caps: map[string]any{ObjectElementID: object, EmbedElementID: embed},
	}

	_, err := NewDiscoverer().Connect(context.Background(), doc, &fakeHost{}, newSession(t), request())
	var ce *lerrors.ConnectionError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *ConnectionError", err)
	}
	if ce.CodeServer != "127.0.0.1:9997" || ce.Connector != "object" {
		t.Errorf("ConnectionError = %+v", ce)
	}
	if diff := cmp.Diff([]string{"object.init", "object.connect"}, log); diff != "" {
		t.Errorf("attempt log mismatch (-want +got):\n%s", diff)
	}
}

func TestConnectErrorIsAbsence(t *testing.T) {
	var log []string
	object := &fakeConnector{name: "object", initOK: true, connectErr: errors.New("io"), log: &log}
	embed := &fakeConnector{name: "embed", initOK: true, connectOK: true, log: &log}
	doc := fakeDoc{caps: map[string]any{ObjectElementID: object, EmbedElementID: embed}}

	c, err := NewDiscoverer().Connect(context.Background(), doc, &fakeHost{}, newSession(t), request())
	if err != nil || c != embed {
		t.Fatalf("Connect = %v, %v", c, err)
	}
}

func TestConnectRequiresIdleSession(t *testing.T) {
	sess := newSession(t)
	if err := sess.Transition(session.StatusProbing); err != nil {
		t.Fatal(err)
	}
	_, err := NewDiscoverer().Connect(context.Background(), fakeDoc{}, &fakeHost{}, sess, request())
	if err == nil {
		t.Fatal("expected invalid state error")
	}
}

func TestInstallPluginElements(t *testing.T) {
	p, err := page.New(page.Config{})
	if err != nil {
		t.Fatal(err)
	}
	var log []string
	embed := &fakeConnector{name: "embed", initOK: true, connectOK: true, log: &log}
	p.RegisterPlugin(PluginMIMEType, func() (any, error) { return embed, nil })

	if err := InstallPluginElements(p); err != nil {
		t.Fatal(err)
	}
	if _, ok := p.ElementByID(ObjectElementID); !ok {
		t.Error("object element not written")
	}

	c, err := NewDiscoverer().Connect(context.Background(), p, &fakeHost{}, newSession(t), request())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if c != embed {
		t.Errorf("connected %v, want embed", c)
	}
}

func TestInstallPluginElementsSkippedForNative(t *testing.T) {
	p, err := page.New(page.Config{})
	if err != nil {
		t.Fatal(err)
	}
	p.SetGlobal(NativeGlobal, &fakeConnector{})
	if err := InstallPluginElements(p); err != nil {
		t.Fatal(err)
	}
	if _, ok := p.ElementByID(EmbedElementID); ok {
		t.Error("embed written despite native plugin")
	}
}
