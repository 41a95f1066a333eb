// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/pharmausage/internal/app/store/queries/usagequeries"
	"github.com/dalemusser/pharmausage/internal/app/system/publisher"
	"github.com/dalemusser/pharmausage/internal/app/system/timeouts"
	"github.com/dalemusser/pharmausage/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// TimeoutConfig maps the timeout keys onto timeouts.Config.
func TimeoutConfig(cfg AppConfig) timeouts.Config {
	return timeouts.Config{
		Ping:   cfg.TimeoutPing,
		Short:  cfg.TimeoutShort,
		Medium: cfg.TimeoutMedium,
		Long:   cfg.TimeoutLong,
	}
}

// NewAssembler builds the view assembler over the Mongo directory.
func NewAssembler(cfg AppConfig, deps DBDeps, logger *zap.Logger) (*usagequeries.Assembler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return usagequeries.New(
		usagequeries.NewMongoDirectory(deps.MongoDatabase),
		usagequeries.Config{Concurrency: cfg.AssemblyConcurrency, Location: loc},
		logger,
	), nil
}

// PublisherConfig maps the mqtt_* keys onto publisher.Config.
func PublisherConfig(cfg AppConfig) publisher.Config {
	return publisher.Config{
		Broker:      cfg.MQTTBroker,
		ClientID:    cfg.MQTTClientID,
		Username:    cfg.MQTTUsername,
		Password:    cfg.MQTTPassword,
		TopicPrefix: cfg.MQTTTopicPrefix,
		Retries:     uint64(cfg.MQTTRetries),
		Timeout:     cfg.TimeoutShort,
	}
}

// Startup runs one-time application initialization after DB connections and
// schema setup: process-wide timeouts and, when enabled, the MQTT usage
// publisher. Background stops are registered on deps and run in Shutdown.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, cfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(TimeoutConfig(cfg))

	if !cfg.MQTTEnabled {
		logger.Info("mqtt publishing disabled")
		return nil
	}

	asm, err := NewAssembler(cfg, deps, logger)
	if err != nil {
		return err
	}
	pub, err := publisher.New(ctx, PublisherConfig(cfg), logger)
	if err != nil {
		return fmt.Errorf("mqtt publisher: %w", err)
	}
	deps.OnStop(pub.Close)

	worker := workers.NewUsagePublisher(asm, pub, logger, cfg.MQTTPublishInterval, cfg.TimeoutLong)
	worker.Start()
	deps.OnStop(worker.Stop)

	return nil
}
