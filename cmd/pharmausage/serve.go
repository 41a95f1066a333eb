package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dalemusser/pharmausage/internal/app/bootstrap"
	"github.com/dalemusser/waffle/app"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [waffle flags]",
	Short: "Run the HTTP API",
	Long: `Runs the WAFFLE lifecycle: loads and validates config, connects to
MongoDB, ensures validators and indexes, starts the optional MQTT
publisher and serves the dashboard API until interrupted.

Flags after serve are parsed by WAFFLE, e.g. --mongo_uri, --mqtt_enabled.`,
	DisableFlagParsing: true,
	RunE:               runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// WAFFLE reads flags from os.Args; drop the subcommand name.
	os.Args = append([]string{os.Args[0]}, args...)
	return app.Run(ctx, bootstrap.Hooks)
}
