package bootstrap

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/wippyai/bootloader/connector"
	"github.com/wippyai/bootloader/devmode"
	"github.com/wippyai/bootloader/errors"
	"github.com/wippyai/bootloader/meta"
	"github.com/wippyai/bootloader/metrics"
	"github.com/wippyai/bootloader/page"
	"github.com/wippyai/bootloader/quirks"
	"github.com/wippyai/bootloader/selection"
	"github.com/wippyai/bootloader/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	compiledURL = "http://localhost:8888/App.html?locale=fr"
	devURL      = "http://localhost:8888/App.html?gwt.codesvr=127.0.0.1:9997"
	firefox     = "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"
)

type plugin struct {
	accept      bool
	sessions    []string
	disconnects int
}

func (p *plugin) Init(context.Context, connector.Host) (bool, error) { return true, nil }

func (p *plugin) Connect(_ context.Context, req connector.ConnectRequest) (bool, error) {
	p.sessions = append(p.sessions, req.SessionID)
	return p.accept, nil
}

func (p *plugin) Disconnect(context.Context) error {
	p.disconnects++
	return nil
}

func newHost(t *testing.T, head, location, ua string) Host {
	t.Helper()
	p, err := page.Parse(strings.NewReader("<html><head>"+head+"</head><body></body></html>"),
		page.Config{Location: location, UserAgent: ua})
	if err != nil {
		t.Fatal(err)
	}
	p.SetCurrentScript(p.AppendScript("http://localhost:8888/app/app.nocache.js"))
	return Host{Page: p, State: session.NewPageState(session.NewInsecureSource(3))}
}

func withPlugin(h Host, pl *plugin) {
	h.Page.RegisterPlugin(connector.PluginMIMEType, func() (any, error) { return pl, nil })
}

func module() *selection.Module {
	return &selection.Module{
		Name: "app",
		Properties: []selection.PropertyDef{
			{
				Name:   "user.agent",
				Values: []string{"gecko", "webkit"},
				Provider: selection.UserAgent([]selection.UARule{
					{Contains: "webkit", Value: "webkit"},
					{Contains: "gecko", Value: "gecko"},
				}, "unknown"),
			},
			{
				Name:     "locale",
				Values:   []string{"en", "fr"},
				Provider: selection.Query("locale", "en"),
			},
		},
		Permutations: []selection.Permutation{
			{Values: []string{"gecko", "en"}, StrongName: "AB12CD"},
			{Values: []string{"gecko", "fr"}, StrongName: "EF34GH"},
			{Values: []string{"webkit", "en"}, StrongName: "IJ56KL"},
			{Values: []string{"webkit", "fr"}, StrongName: "MN78OP"},
		},
	}
}

func TestDetectMode(t *testing.T) {
	tests := []struct {
		location string
		want     Mode
	}{
		{"http://localhost/App.html", ModeCompiled},
		{"http://localhost/App.html?gwt.codesvr=127.0.0.1:9997", ModeDev},
		{"http://localhost/App.html?x=1&gwt.codesvr=h:1", ModeDev},
		{"http://localhost/App.html?gwt.codesvr=h:1&gwt.hybrid", ModeCompiled},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			p, err := page.New(page.Config{Location: tt.location})
			if err != nil {
				t.Fatal(err)
			}
			if got := DetectMode(p); got != tt.want {
				t.Errorf("DetectMode = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBootstrapCompiled(t *testing.T) {
	h := newHost(t, "", compiledURL, firefox)

	res, err := Bootstrap(context.Background(), h, Options{Module: module()})
	if err != nil {
		t.Fatal(err)
	}
	if res.Mode != ModeCompiled || res.Aborted() {
		t.Fatalf("Mode = %v, Aborted = %v", res.Mode, res.Aborted())
	}
	if res.Selection.StrongName != "EF34GH" {
		t.Errorf("StrongName = %q", res.Selection.StrongName)
	}
	want := []string{"http://localhost:8888/app/app.nocache.js", "http://localhost:8888/app/EF34GH.cache.js"}
	if diff := cmp.Diff(want, h.Page.Scripts()); diff != "" {
		t.Errorf("scripts mismatch (-want +got):\n%s", diff)
	}
}

func TestBootstrapMetricsBothModes(t *testing.T) {
	record := func(dst *[]string) metrics.Sink {
		return func(ev metrics.Event) { *dst = append(*dst, ev.EvtGroup+"/"+ev.Type) }
	}

	t.Run("compiled", func(t *testing.T) {
		var got []string
		h := newHost(t, "", compiledURL, firefox)
		if _, err := Bootstrap(context.Background(), h, Options{Module: module(), Metrics: record(&got)}); err != nil {
			t.Fatal(err)
		}
		want := []string{"bootstrap/bootstrap", "bootstrap/selectingPermutation", "bootstrap/end"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("events mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("dev", func(t *testing.T) {
		var own, bridge []string
		h := newHost(t, "", devURL, firefox)
		withPlugin(h, &plugin{accept: true})
		_, err := Bootstrap(context.Background(), h, Options{
			Module:  module(),
			Metrics: record(&own),
			Bridge:  devmode.Options{Metrics: record(&bridge)},
		})
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"moduleStartup/moduleEvalStart", "moduleStartup/moduleEvalEnd"}
		if diff := cmp.Diff(want, own); diff != "" {
			t.Errorf("caller sink mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(want, bridge); diff != "" {
			t.Errorf("bridge sink mismatch (-want +got):\n%s", diff)
		}
		h.Page.FireUnload()
	})
}

func TestBootstrapCompiledAbortIsSilent(t *testing.T) {
	h := newHost(t, "", compiledURL, "Opera/9.80")
	var got []string

	res, err := Bootstrap(context.Background(), h, Options{
		Module: module(),
		PropertyError: func(name string, allowed []string, value string) {
			got = append(got, name+"="+value)
		},
	})
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if !res.Aborted() {
		t.Error("selection not aborted")
	}
	if diff := cmp.Diff([]string{"user.agent=unknown"}, got); diff != "" {
		t.Errorf("handler calls mismatch (-want +got):\n%s", diff)
	}
	if len(h.Page.Alerts()) != 0 {
		t.Errorf("alerts = %v", h.Page.Alerts())
	}
	if len(h.Page.Scripts()) != 1 {
		t.Errorf("scripts = %v", h.Page.Scripts())
	}
}

func TestBootstrapDevAbsent(t *testing.T) {
	h := newHost(t, `<meta name="gwt:onLoadErrorFn" content="onErr">`, devURL, firefox)
	called := false
	reg := meta.NewRegistry()
	reg.RegisterLoadError("onErr", func(string) { called = true })

	res, err := Bootstrap(context.Background(), h, Options{Module: module(), Handlers: reg})
	if err != nil {
		t.Fatal(err)
	}
	if !errors.IsPluginAbsent(res.Err) {
		t.Errorf("Err = %v", res.Err)
	}
	if called {
		t.Error("load error callback invoked for a missing plugin")
	}
	if diff := cmp.Diff([]string{devmode.MissingPluginURL}, h.Page.Frames()); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
	if !res.Aborted() {
		t.Error("Aborted = false")
	}
}

func TestBootstrapDevRefusedCallbackPriority(t *testing.T) {
	tests := []struct {
		name     string
		own      bool
		wantMeta int
		wantOwn  int
	}{
		{"meta callback", false, 1, 0},
		{"own callback wins", true, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHost(t, `<meta name="gwt:onLoadErrorFn" content="onErr">`, devURL, firefox)
			withPlugin(h, &plugin{accept: false})

			metaCalls, ownCalls := 0, 0
			reg := meta.NewRegistry()
			reg.RegisterLoadError("onErr", func(string) { metaCalls++ })
			opts := Options{Module: module(), Handlers: reg}
			if tt.own {
				opts.LoadError = func(string) { ownCalls++ }
			}

			res, err := Bootstrap(context.Background(), h, opts)
			if err != nil {
				t.Fatal(err)
			}
			var ce *errors.ConnectionError
			if !errors.As(res.Err, &ce) || ce.CodeServer != "127.0.0.1:9997" {
				t.Fatalf("Err = %v", res.Err)
			}
			if metaCalls != tt.wantMeta || ownCalls != tt.wantOwn {
				t.Errorf("calls meta=%d own=%d", metaCalls, ownCalls)
			}
			if len(h.Page.Frames()) != 0 || len(h.Page.Alerts()) != 0 {
				t.Errorf("fallback shown: frames=%v alerts=%v", h.Page.Frames(), h.Page.Alerts())
			}
		})
	}
}

func TestBootstrapDevSharesSession(t *testing.T) {
	h := newHost(t, "", devURL, firefox)
	pl := &plugin{accept: true}
	withPlugin(h, pl)

	first, err := Bootstrap(context.Background(), h, Options{Module: &selection.Module{Name: "app"}})
	if err != nil {
		t.Fatal(err)
	}
	second, err := Bootstrap(context.Background(), h, Options{Module: &selection.Module{Name: "admin"}})
	if err != nil {
		t.Fatal(err)
	}

	if first.Err != nil || second.Err != nil {
		t.Fatalf("errs = %v, %v", first.Err, second.Err)
	}
	if first.Dev.Connector != connector.Connector(pl) {
		t.Errorf("connector = %T, want embed plugin", first.Dev.Connector)
	}
	if len(pl.sessions) != 2 || pl.sessions[0] != pl.sessions[1] {
		t.Errorf("sessions = %q", pl.sessions)
	}
	if !session.ValidID(pl.sessions[0]) {
		t.Errorf("invalid session id %q", pl.sessions[0])
	}
	if first.Dev.Base != "http://localhost:8888/app/" {
		t.Errorf("Base = %q", first.Dev.Base)
	}

	h.Page.FireUnload()
	if pl.disconnects != 2 {
		t.Errorf("disconnects = %d, want 2", pl.disconnects)
	}
}

func TestBootstrapQuirksOncePerPage(t *testing.T) {
	h := newHost(t, "", compiledURL, firefox)
	calls := 0
	opts := Options{
		Module: module(),
		Quirks: []quirks.Quirk{{
			Name:   "count",
			Detect: func(*page.Page) bool { return true },
			Patch:  func(*page.Page) { calls++ },
		}},
	}

	first, err := Bootstrap(context.Background(), h, opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Bootstrap(context.Background(), h, opts)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"count"}, first.Quirks); diff != "" {
		t.Errorf("first quirks mismatch (-want +got):\n%s", diff)
	}
	if len(second.Quirks) != 0 || calls != 1 {
		t.Errorf("second quirks = %v, calls = %d", second.Quirks, calls)
	}
}

func TestBootstrapRejectsBadArguments(t *testing.T) {
	h := newHost(t, "", compiledURL, firefox)
	tests := []struct {
		name string
		host Host
		opts Options
	}{
		{"no page", Host{State: h.State}, Options{Module: module()}},
		{"no state", Host{Page: h.Page}, Options{Module: module()}},
		{"no module", h, Options{}},
		{"unnamed module", h, Options{Module: &selection.Module{}}},
		{"bad mode", h, Options{Module: module(), Mode: Mode(42)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Bootstrap(context.Background(), tt.host, tt.opts); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
