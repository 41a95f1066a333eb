// internal/app/system/workers/usagepublisher.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/pharmausage/internal/app/store/queries/usagequeries"
	"go.uber.org/zap"
)

// Snapshotter produces the current summary of every pharmacy.
type Snapshotter interface {
	AllPharmacies(ctx context.Context) (usagequeries.PharmacyList, error)
}

// Sink publishes a snapshot.
type Sink interface {
	PublishList(ctx context.Context, list usagequeries.PharmacyList) error
}

// UsagePublisher is a background worker that periodically publishes
// pharmacy usage summaries.
type UsagePublisher struct {
	source   Snapshotter
	sink     Sink
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewUsagePublisher creates a new usage publisher worker.
//
// Parameters:
//   - source: builds the per-pharmacy snapshot
//   - sink: receives each snapshot
//   - logger: zap logger for logging
//   - interval: how often to publish (e.g., 1 minute)
//   - timeout: bound on a single snapshot + publish cycle
func NewUsagePublisher(source Snapshotter, sink Sink, logger *zap.Logger, interval, timeout time.Duration) *UsagePublisher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &UsagePublisher{
		source:   source,
		sink:     sink,
		log:      logger,
		interval: interval,
		timeout:  timeout,
		stopCh:   make(chan struct{}),
	}
}

// Start publishes once immediately, then on every tick.
func (w *UsagePublisher) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("usage publisher worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *UsagePublisher) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("usage publisher worker stopped")
}

func (w *UsagePublisher) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.publish()
	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.publish()
		}
	}
}

func (w *UsagePublisher) publish() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	// Abandon an in-flight cycle when Stop is called.
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	list, err := w.source.AllPharmacies(ctx)
	if err != nil {
		w.log.Error("usage snapshot failed", zap.Error(err))
		return
	}
	if err := w.sink.PublishList(ctx, list); err != nil {
		w.log.Error("usage publish failed", zap.Error(err))
		return
	}
	w.log.Debug("usage published", zap.Int("pharmacies", len(list.Pharmacies)))
}
