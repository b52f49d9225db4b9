package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/bootloader/bootstrap"
	"github.com/wippyai/bootloader/connector"
	"github.com/wippyai/bootloader/connector/wasmplugin"
	"github.com/wippyai/bootloader/devmode"
	"github.com/wippyai/bootloader/permutation"
	"github.com/wippyai/bootloader/selection"
	"github.com/wippyai/bootloader/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreAnyFunction("os/signal.loop"))
}

const firefox = "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"

const manifest = `
module: app
properties:
  - name: user.agent
    values: [gecko, webkit]
    provider:
      kind: user_agent
      default: unknown
      rules:
        - {contains: webkit, value: webkit}
        - {contains: gecko, value: gecko}
  - name: locale
    values: [en, fr]
    provider:
      kind: meta
      fallback: {kind: query, default: en}
permutations:
  - {values: [gecko, en], strong_name: AB12CD}
  - {values: [gecko, fr], strong_name: EF34GH}
  - {values: [webkit, en], strong_name: IJ56KL}
  - {values: [webkit, fr], strong_name: MN78OP}
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("BOOTLOADER_CONFIG", "")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestResolveCommand(t *testing.T) {
	m := writeTemp(t, "manifest.yaml", manifest)

	out, err := execute(t, "resolve", "-m", m, "--ua", firefox,
		"--location", "http://localhost:8888/index.html?locale=fr", "--html")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "EF34GH\n"), out)
	require.Contains(t, out, `<script src="app/EF34GH.cache.js">`)
}

func TestResolveCommandUsesHostPage(t *testing.T) {
	m := writeTemp(t, "manifest.yaml", manifest)
	host := writeTemp(t, "index.html", `<html><head>
<meta name="gwt:property" content="locale=fr">
</head><body><script src="static/app.nocache.js"></script></body></html>`)

	out, err := execute(t, "resolve", "-m", m, "--ua", firefox, "--page", host, "--html")
	require.NoError(t, err)
	require.Contains(t, out, `<script src="static/app.nocache.js"></script><script src="static/EF34GH.cache.js">`)
}

func TestResolveCommandAborts(t *testing.T) {
	m := writeTemp(t, "manifest.yaml", manifest)

	out, err := execute(t, "resolve", "-m", m, "--ua", "Opera/9.80")
	require.NoError(t, err)
	require.Contains(t, out, "selection aborted")
	require.Contains(t, out, "user.agent")
}

func TestResolveCommandMissingManifest(t *testing.T) {
	_, err := execute(t, "resolve", "-m", filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
}

func TestPermutationsCommand(t *testing.T) {
	m := writeTemp(t, "manifest.yaml", manifest)

	out, err := execute(t, "permutations", "-m", m)
	require.NoError(t, err)
	require.Contains(t, out, "app: 4 permutations")
	for _, want := range []string{"user.agent", "locale", "strong name", "AB12CD", "MN78OP"} {
		require.Contains(t, out, want)
	}
}

func TestSessionIDCommand(t *testing.T) {
	out, err := execute(t, "session-id", "-n", "3", "--seed", "7")
	require.NoError(t, err)

	ids := strings.Fields(out)
	require.Len(t, ids, 3)
	for _, id := range ids {
		require.True(t, session.ValidID(id), id)
	}

	again, err := execute(t, "session-id", "-n", "3", "--seed", "7")
	require.NoError(t, err)
	require.Equal(t, out, again)
}

func TestDevmodeCommandLoopback(t *testing.T) {
	out, err := execute(t, "devmode", "--module", "app")
	require.NoError(t, err)
	require.Contains(t, out, "app: connected (code server localhost:9997")
}

func TestDevmodeCommandCodeServerFlag(t *testing.T) {
	out, err := execute(t, "devmode", "--module", "app", "--code-server", "10.1.1.1:9997")
	require.NoError(t, err)
	require.Contains(t, out, "code server 10.1.1.1:9997")
}

func TestDevmodeCommandBadPlugin(t *testing.T) {
	plugin := writeTemp(t, "broken.wasm", "not wasm")

	out, err := execute(t, "devmode", "--module", "app", "--plugin", plugin)
	require.NoError(t, err)
	require.Contains(t, out, "app: absent")
	require.Contains(t, out, devmode.MissingPluginURL)
}

func TestWithCodeServer(t *testing.T) {
	tests := []struct {
		location, addr, want string
	}{
		{"http://h/a.html", "", "http://h/a.html"},
		{"http://h/a.html?gwt.codesvr=x:1", "y:2", "http://h/a.html?gwt.codesvr=x:1"},
		{"http://h/a.html", "y:2", "http://h/a.html?gwt.codesvr=y%3A2"},
	}
	for _, tt := range tests {
		got, err := withCodeServer(tt.location, tt.addr)
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
	}
}

func TestWatchFileReloads(t *testing.T) {
	path := writeTemp(t, "index.html", "<html></html>")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, func() error {
			calls <- struct{}{}
			return nil
		})
	}()

	wait := func() {
		t.Helper()
		select {
		case <-calls:
		case <-time.After(5 * time.Second):
			t.Fatal("onChange not called")
		}
	}

	wait()
	require.NoError(t, os.WriteFile(path, []byte("<html><body></body></html>"), 0o600))
	wait()

	cancel()
	require.NoError(t, <-done)
}

func TestSetLoggerWiresPackages(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	setLogger(zap.New(core))
	t.Cleanup(func() { setLogger(zap.NewNop()) })

	loggers := map[string]*zap.Logger{
		"bootstrap":   bootstrap.Logger(),
		"connector":   connector.Logger(),
		"wasmplugin":  wasmplugin.Logger(),
		"devmode":     devmode.Logger(),
		"permutation": permutation.Logger(),
		"selection":   selection.Logger(),
		"session":     session.Logger(),
	}
	for name, l := range loggers {
		l.Debug("ping")
		entries := logs.TakeAll()
		require.Len(t, entries, 1, name)
		require.Equal(t, name, entries[0].LoggerName)
	}
}
