package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/bootloader/bootstrap"
	"github.com/wippyai/bootloader/config"
	"github.com/wippyai/bootloader/render"
	"github.com/wippyai/bootloader/selection"
	"github.com/wippyai/bootloader/session"
)

func newResolveCmd() *cobra.Command {
	var (
		host         hostFlags
		manifestPath string
		printHTML    bool
		silent       bool
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the permutation for a host page in compiled mode",
		Long: `Evaluates the manifest's properties against the page location, user agent
and gwt:property metas, then injects the selected permutation script.

Example:
  bootloader resolve --manifest manifest.yaml --location 'http://localhost/app.html?locale=fr'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if manifestPath == "" {
				manifestPath = cfg.Manifest
			}
			return runResolve(cmd.Context(), cmd.OutOrStdout(), &host, manifestPath, printHTML, silent)
		},
	}

	host.register(cmd)
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "permutation manifest (default from config)")
	cmd.Flags().BoolVar(&printHTML, "html", false, "print the rewritten page instead of a summary")
	cmd.Flags().BoolVar(&silent, "silent", false, "do not alert on illegal property values")
	return cmd
}

func loadModule(path string) (*selection.Module, error) {
	m, err := config.LoadManifest(path)
	if err != nil {
		return nil, err
	}
	return m.Build()
}

func runResolve(ctx context.Context, w io.Writer, host *hostFlags, manifestPath string, printHTML, silent bool) error {
	mod, err := loadModule(manifestPath)
	if err != nil {
		return err
	}
	p, err := host.load(mod.Name, host.location)
	if err != nil {
		return err
	}

	res, err := bootstrap.Bootstrap(ctx, bootstrap.Host{Page: p, State: session.NewPageState(nil)}, bootstrap.Options{
		Module:  mod,
		Mode:    bootstrap.ModeCompiled,
		Silent:  silent,
		Metrics: metricsSink(),
	})
	if err != nil {
		return err
	}

	if res.Aborted() {
		logger.Info("selection aborted", zap.String("module", mod.Name))
		fmt.Fprintln(w, "selection aborted")
	} else {
		logger.Debug("selection done",
			zap.String("module", mod.Name),
			zap.String("strong_name", res.Selection.StrongName))
		fmt.Fprintln(w, res.Selection.StrongName)
	}

	if printHTML {
		return p.Render(w)
	}
	fmt.Fprint(w, render.New(terminalWidth()).Page(p))
	return nil
}
