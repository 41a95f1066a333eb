// Package publisher pushes per-pharmacy usage summaries to an MQTT broker
// so building dashboards can show live counters.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dalemusser/pharmausage/internal/app/store/queries/usagequeries"
	"github.com/dalemusser/pharmausage/internal/app/system/metrics"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// DefaultTopicPrefix is used when Config.TopicPrefix is empty.
const DefaultTopicPrefix = "pharmausage"

// DefaultRetries is used when Config.Retries is zero.
const DefaultRetries = 3

// Config holds broker settings.
type Config struct {
	Broker      string // host:port, or a full tcp:// / ssl:// URL
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Retries     uint64
	RetryDelay  time.Duration
	Timeout     time.Duration
}

// Payload is the retained message published per pharmacy.
type Payload struct {
	PharmacyID string `json:"pharmacy_id"`
	Name       string `json:"name"`
	Date       string `json:"date"`
	Daily      int64  `json:"daily"`
	Monthly    int64  `json:"monthly"`
	Total      int64  `json:"total"`
}

// Publisher publishes usage summaries.
type Publisher struct {
	client mqtt.Client
	cfg    Config
	log    *zap.Logger
}

// New connects to the broker, retrying with a constant backoff.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}
	cfg = withDefaults(cfg)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg.Broker))
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(cfg.Timeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	p := NewWithClient(client, cfg, logger)

	connect := func() error {
		tok := client.Connect()
		if !tok.WaitTimeout(cfg.Timeout) {
			return fmt.Errorf("connect timed out after %s", cfg.Timeout)
		}
		return tok.Error()
	}
	if err := p.retry(ctx, connect); err != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", err)
	}
	p.log.Info("connected to MQTT broker", zap.String("broker", cfg.Broker))
	return p, nil
}

// NewWithClient wraps an already configured client.
func NewWithClient(client mqtt.Client, cfg Config, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, cfg: withDefaults(cfg), log: logger}
}

func withDefaults(cfg Config) Config {
	if cfg.ClientID == "" {
		cfg.ClientID = "pharmausage"
	}
	cfg.TopicPrefix = strings.Trim(cfg.TopicPrefix, "/")
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	if cfg.Retries == 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return cfg
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// Topic returns the state topic for a pharmacy.
func (p *Publisher) Topic(pharmacyID string) string {
	return fmt.Sprintf("%s/pharmacy/%s/state", p.cfg.TopicPrefix, pharmacyID)
}

// PublishList publishes one retained message per pharmacy. It stops at
// the first pharmacy that still fails after retries.
func (p *Publisher) PublishList(ctx context.Context, list usagequeries.PharmacyList) error {
	for _, e := range list.Pharmacies {
		if err := p.PublishEntry(ctx, list.Today, e); err != nil {
			return err
		}
	}
	return nil
}

// PublishEntry publishes a single pharmacy summary.
func (p *Publisher) PublishEntry(ctx context.Context, today string, e usagequeries.Entry) error {
	body, err := json.Marshal(Payload{
		PharmacyID: e.ID.Hex(),
		Name:       e.Name,
		Date:       today,
		Daily:      e.Summary.Daily,
		Monthly:    e.Summary.Monthly,
		Total:      e.Summary.Total,
	})
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	topic := p.Topic(e.ID.Hex())
	err = p.retry(ctx, func() error {
		tok := p.client.Publish(topic, 1, true, body)
		if !tok.WaitTimeout(p.cfg.Timeout) {
			return fmt.Errorf("publish to %s timed out", topic)
		}
		return tok.Error()
	})
	if err != nil {
		metrics.UsagePublishes.WithLabelValues(metrics.OutcomeFailure).Inc()
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	metrics.UsagePublishes.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return nil
}

func (p *Publisher) retry(ctx context.Context, fn func() error) error {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.cfg.RetryDelay), p.cfg.Retries),
		ctx,
	)
	return backoff.Retry(fn, b)
}

// Close disconnects from the MQTT broker.
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
