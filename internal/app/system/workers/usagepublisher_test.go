package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/pharmausage/internal/app/store/queries/usagequeries"
	"go.uber.org/zap"
)

type countingSource struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *countingSource) AllPharmacies(context.Context) (usagequeries.PharmacyList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return usagequeries.PharmacyList{Today: "2025-05-06"}, s.err
}

type recordingSink struct {
	mu    sync.Mutex
	lists []usagequeries.PharmacyList
}

func (s *recordingSink) PublishList(_ context.Context, l usagequeries.PharmacyList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists = append(s.lists, l)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lists)
}

func TestUsagePublisher_PublishesImmediatelyAndOnTick(t *testing.T) {
	src := &countingSource{}
	sink := &recordingSink{}
	w := NewUsagePublisher(src, sink, zap.NewNop(), 10*time.Millisecond, time.Second)

	w.Start()
	deadline := time.Now().Add(2 * time.Second)
	for sink.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()

	if sink.count() < 3 {
		t.Errorf("published %d times, want at least 3", sink.count())
	}
}

func TestUsagePublisher_SkipsSinkOnSourceError(t *testing.T) {
	src := &countingSource{err: errors.New("db down")}
	sink := &recordingSink{}
	w := NewUsagePublisher(src, sink, zap.NewNop(), time.Hour, time.Second)

	w.Start()
	deadline := time.Now().Add(time.Second)
	for {
		src.mu.Lock()
		n := src.calls
		src.mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()

	if sink.count() != 0 {
		t.Errorf("sink called %d times after source error", sink.count())
	}
}
