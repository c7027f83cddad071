package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/config"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/store"
)

var configPath string

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rulctl",
		Short:         "ingest turbofan sensor logs, train the RUL model and run predictions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (RUL_* environment variables override it)")

	goFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(goFlags)
	cmd.PersistentFlags().AddGoFlagSet(goFlags)

	cmd.AddCommand(
		ingestCmd(),
		appendCmd(),
		exportCmd(),
		trainCmd(),
		predictCmd(),
		summaryCmd(),
	)
	return cmd
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// openStore opens the configured SQLite store; the caller closes it
func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.Store.Path, cfg.Store.Table)
}

func main() {
	defer klog.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		klog.ErrorS(err, "Command failed")
		klog.Flush()
		os.Exit(1)
	}
}
