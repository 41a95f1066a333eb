package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dalemusser/pharmausage/internal/app/bootstrap"
	"github.com/dalemusser/pharmausage/internal/app/system/timeouts"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logLevel string
	logger   = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "pharmausage",
	Short: "Pharmacy machine usage dashboards",
	Long: `PharmaUsage serves role-scoped usage dashboards for pharmacies,
marketing staff and the company, backed by MongoDB.

Configuration is loaded by WAFFLE from config files, WAFFLE_* and
PHARMAUSAGE_* environment variables, and (for serve) command-line flags.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { _ = logger.Sync() },
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level for one-shot commands: debug, info, warn, error")
}

// setup builds the logger used by the one-shot commands. serve hands
// logging to WAFFLE.
func setup(cmd *cobra.Command, _ []string) error {
	if cmd == serveCmd {
		return nil
	}
	l, err := bootstrap.NewLogger("dev", logLevel)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	logger = l
	zap.ReplaceGlobals(logger)
	return nil
}

// openApp loads and validates config and connects to MongoDB for the
// one-shot commands. The returned func disconnects.
func openApp(ctx context.Context) (bootstrap.AppConfig, bootstrap.DBDeps, func(), error) {
	// WAFFLE parses os.Args for its own flags; the subcommand's flags
	// have already been consumed by cobra.
	args := os.Args
	os.Args = args[:1]
	coreCfg, cfg, err := bootstrap.LoadConfig(logger)
	os.Args = args
	if err != nil {
		return cfg, bootstrap.DBDeps{}, nil, err
	}
	if err := bootstrap.ValidateConfig(coreCfg, cfg, logger); err != nil {
		return cfg, bootstrap.DBDeps{}, nil, err
	}
	timeouts.Configure(bootstrap.TimeoutConfig(cfg))

	deps, err := bootstrap.ConnectDB(ctx, coreCfg, cfg, logger)
	if err != nil {
		return cfg, bootstrap.DBDeps{}, nil, fmt.Errorf("connecting to database: %w", err)
	}
	closeFn := func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.TimeoutShort)
		defer cancel()
		_ = bootstrap.Shutdown(sctx, coreCfg, cfg, deps, logger)
	}
	return cfg, deps, closeFn, nil
}

