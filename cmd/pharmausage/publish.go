package main

import (
	"fmt"

	"github.com/dalemusser/pharmausage/internal/app/bootstrap"
	"github.com/dalemusser/pharmausage/internal/app/system/publisher"
	"github.com/dalemusser/pharmausage/internal/app/system/timeouts"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish every pharmacy's usage summary to MQTT once",
	Long: `Assembles the summary of every pharmacy and publishes one retained
message per pharmacy to <mqtt_topic_prefix>/pharmacy/<pharmacy id>/state.`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().String("mqtt-broker", "", "MQTT broker (host:port or tcp:// URL)")
	publishCmd.Flags().String("mqtt-topic-prefix", "", "MQTT topic prefix")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, deps, closeDB, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	if cfg.MQTTBroker == "" {
		return fmt.Errorf("mqtt_broker is not configured")
	}

	asm, err := bootstrap.NewAssembler(cfg, deps, logger)
	if err != nil {
		return err
	}

	lctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), logger, "publish")
	defer cancel()

	list, err := asm.AllPharmacies(lctx)
	if err != nil {
		return fmt.Errorf("assembling summaries: %w", err)
	}
	if len(list.Pharmacies) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No pharmacies to publish")
		return nil
	}

	pub, err := publisher.New(lctx, bootstrap.PublisherConfig(cfg), logger)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer pub.Close()

	if err := pub.PublishList(lctx, list); err != nil {
		return fmt.Errorf("publishing: %w", err)
	}

	out := cmd.OutOrStdout()
	var total int64
	for _, e := range list.Pharmacies {
		fmt.Fprintf(out, "%-40s  %10s\n", pub.Topic(e.ID.Hex()), humanize.Comma(e.Summary.Total))
		total += e.Summary.Total
	}
	fmt.Fprintf(out, "Published %d pharmacy summaries (%s uses, today %s)\n",
		len(list.Pharmacies), humanize.Comma(total), list.Today)
	return nil
}
