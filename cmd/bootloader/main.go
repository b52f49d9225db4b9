package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/bootloader/bootstrap"
	"github.com/wippyai/bootloader/config"
	"github.com/wippyai/bootloader/connector"
	"github.com/wippyai/bootloader/connector/wasmplugin"
	"github.com/wippyai/bootloader/devmode"
	"github.com/wippyai/bootloader/metrics"
	"github.com/wippyai/bootloader/permutation"
	"github.com/wippyai/bootloader/selection"
	"github.com/wippyai/bootloader/session"
)

var (
	cfgFile     string
	verbose     bool
	withMetrics bool

	cfg    config.Config
	logger = zap.NewNop()
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bootloader",
		Short: "Select and load module permutations into host pages",
		Long: `bootloader boots modules into HTML host pages.

In compiled mode it resolves the module's deferred-binding properties against
the page and injects the matching permutation script. In development mode it
connects the module to a code server through a bridge plugin.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(cfgFile, func(v *viper.Viper) error {
				if f := cmd.Flags().Lookup("code-server"); f != nil {
					return v.BindPFlag("bridge.code_server", f)
				}
				return nil
			})
			if err != nil {
				return err
			}
			cfg = c

			zc := zap.NewProductionConfig()
			zc.Level = zap.NewAtomicLevelAt(cfg.Log.ZapLevel())
			if verbose {
				zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			l, err := zc.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			setLogger(l)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./bootloader.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVar(&withMetrics, "metrics", false, "log startup metrics events")

	root.AddCommand(
		newResolveCmd(),
		newPermutationsCmd(),
		newSessionIDCmd(),
		newDevmodeCmd(),
	)
	return root
}

func setLogger(l *zap.Logger) {
	logger = l
	bootstrap.SetLogger(l.Named("bootstrap"))
	connector.SetLogger(l.Named("connector"))
	wasmplugin.SetLogger(l.Named("wasmplugin"))
	devmode.SetLogger(l.Named("devmode"))
	permutation.SetLogger(l.Named("permutation"))
	selection.SetLogger(l.Named("selection"))
	session.SetLogger(l.Named("session"))
}

func metricsSink() metrics.Sink {
	if !withMetrics {
		return nil
	}
	return metrics.ZapSink(logger.Named("metrics"))
}
