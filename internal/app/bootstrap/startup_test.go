package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/pharmausage/internal/app/store/queries/usagequeries"
	"github.com/dalemusser/pharmausage/internal/app/system/publisher"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

// flakyClient fails the first publish and accepts the rest.
type flakyClient struct {
	mqtt.Client
	calls int
}

func (c *flakyClient) Publish(string, byte, bool, interface{}) mqtt.Token {
	c.calls++
	if c.calls == 1 {
		return doneToken{err: errors.New("broker busy")}
	}
	return doneToken{}
}

func TestPublisherConfig_RetriesFailedPublish(t *testing.T) {
	cfg := testAppConfig(map[string]string{
		"mqtt_enabled": "true",
		"mqtt_broker":  "localhost:1883",
	})
	pcfg := PublisherConfig(cfg)
	if pcfg.Retries != 3 {
		t.Fatalf("Retries = %d, want 3 from mqtt_retries", pcfg.Retries)
	}
	pcfg.RetryDelay = time.Millisecond

	client := &flakyClient{}
	pub := publisher.NewWithClient(client, pcfg, zap.NewNop())
	entry := usagequeries.Entry{ID: primitive.NewObjectID(), Name: "Corner"}

	if err := pub.PublishEntry(context.Background(), "2025-05-06", entry); err != nil {
		t.Fatalf("PublishEntry: %v", err)
	}
	if client.calls != 2 {
		t.Errorf("publish calls = %d, want 2", client.calls)
	}
}

func TestTimeoutConfig(t *testing.T) {
	tc := TimeoutConfig(testAppConfig(map[string]string{"timeout_long": "45s"}))
	if tc.Ping != 2*time.Second || tc.Long != 45*time.Second {
		t.Errorf("TimeoutConfig = %+v", tc)
	}
}
