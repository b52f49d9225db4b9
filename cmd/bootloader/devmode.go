package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/bootloader/bootstrap"
	"github.com/wippyai/bootloader/connector"
	"github.com/wippyai/bootloader/connector/wasmplugin"
	"github.com/wippyai/bootloader/page"
	"github.com/wippyai/bootloader/render"
	"github.com/wippyai/bootloader/selection"
	"github.com/wippyai/bootloader/session"
)

type devFlags struct {
	host        hostFlags
	module      string
	plugin      string
	codeServer  string
	interactive bool
	watch       bool
}

func newDevmodeCmd() *cobra.Command {
	var f devFlags

	cmd := &cobra.Command{
		Use:   "devmode",
		Short: "Bridge a module to a code server through a wasm connector plugin",
		Long: `Boots the module in development mode. The connector plugin is a wasm module
bound to the page's plugin embed element; without --plugin a built-in loopback
connector that accepts every connection is used.

Example:
  bootloader devmode --module app --plugin connector.wasm -i`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.codeServer = cfg.Bridge.CodeServer
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			switch {
			case f.interactive:
				return runInteractive(ctx, f)
			case f.watch:
				if f.host.page == "" {
					return fmt.Errorf("--watch needs --page")
				}
				return watchFile(ctx, f.host.page, func() error {
					return runDevOnce(ctx, cmd.OutOrStdout(), f)
				})
			default:
				return runDevOnce(ctx, cmd.OutOrStdout(), f)
			}
		},
	}

	f.host.register(cmd)
	cmd.Flags().StringVar(&f.module, "module", "app", "module name")
	cmd.Flags().StringVar(&f.plugin, "plugin", "", "connector plugin wasm file (default: loopback)")
	cmd.Flags().String("code-server", "", "code server address added to the page query when missing")
	cmd.Flags().BoolVarP(&f.interactive, "interactive", "i", false, "interactive dev host")
	cmd.Flags().BoolVar(&f.watch, "watch", false, "reboot the page whenever the page file changes")
	return cmd
}

// devRun is one dev-mode boot of a page.
type devRun struct {
	page   *page.Page
	result *bootstrap.Result
}

// close unloads the page, which also closes the plugin instances it created.
func (r *devRun) close() {
	r.page.FireUnload()
}

func bootDev(ctx context.Context, f devFlags) (*devRun, error) {
	wasm := wasmplugin.Loopback()
	name := "loopback"
	if f.plugin != "" {
		data, err := os.ReadFile(f.plugin)
		if err != nil {
			return nil, fmt.Errorf("read plugin: %w", err)
		}
		wasm = data
		name = filepath.Base(f.plugin)
	}

	location, err := withCodeServer(f.host.location, f.codeServer)
	if err != nil {
		return nil, err
	}
	p, err := f.host.load(f.module, location)
	if err != nil {
		return nil, err
	}

	run := &devRun{page: p}
	p.RegisterPlugin(connector.PluginMIMEType, func() (any, error) {
		pl, err := wasmplugin.Load(ctx, wasm, wasmplugin.WithName(name))
		if err != nil {
			logger.Warn("connector plugin failed to load", zap.String("plugin", name), zap.Error(err))
			return nil, err
		}
		return pl, nil
	})

	res, err := bootstrap.Bootstrap(ctx, bootstrap.Host{Page: p, State: session.NewPageState(nil)}, bootstrap.Options{
		Module:  &selection.Module{Name: f.module},
		Mode:    bootstrap.ModeDev,
		Metrics: metricsSink(),
		Bridge:  cfg.Bridge.Options(),
	})
	if err != nil {
		run.close()
		return nil, err
	}
	run.result = res
	return run, nil
}

func runDevOnce(ctx context.Context, w io.Writer, f devFlags) error {
	run, err := bootDev(ctx, f)
	if err != nil {
		return err
	}
	defer run.close()

	fmt.Fprintln(w, outcomeLine(run.result))
	fmt.Fprint(w, render.New(terminalWidth()).Page(run.page))
	return nil
}

func outcomeLine(res *bootstrap.Result) string {
	dev := res.Dev
	if dev == nil {
		return "not started"
	}
	line := fmt.Sprintf("%s: %s (code server %s", dev.Name, dev.Outcome, dev.CodeServer)
	if dev.Session != nil {
		line += ", session " + dev.Session.ID()
	}
	return line + ")"
}

// withCodeServer adds the code server key to location unless present.
func withCodeServer(location, addr string) (string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parse location: %w", err)
	}
	if addr == "" || connector.HasQueryKey("?"+u.RawQuery, connector.CodeServerKey) {
		return location, nil
	}
	q := u.Query()
	q.Set(connector.CodeServerKey, addr)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
