package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/pharmausage/internal/app/store/queries/usagequeries"
	"github.com/dalemusser/pharmausage/internal/app/system/usage"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeToken struct{ err error }

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient implements the publish side of mqtt.Client.
type fakeClient struct {
	mqtt.Client
	mu        sync.Mutex
	sent      []message
	failTimes int
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failTimes > 0 {
		c.failTimes--
		return &fakeToken{err: errors.New("not connected")}
	}
	c.sent = append(c.sent, message{topic, qos, retained, payload.([]byte)})
	return &fakeToken{}
}

func (c *fakeClient) IsConnected() bool { return true }
func (c *fakeClient) Disconnect(uint)   {}

func testList() usagequeries.PharmacyList {
	return usagequeries.PharmacyList{
		Today: "2025-05-06",
		Pharmacies: []usagequeries.Entry{
			{ID: primitive.NewObjectID(), Name: "A", Summary: usage.Summary{Daily: 1, Monthly: 2, Total: 3}},
			{ID: primitive.NewObjectID(), Name: "B"},
		},
	}
}

func TestPublishList(t *testing.T) {
	c := &fakeClient{}
	p := NewWithClient(c, Config{TopicPrefix: "/site/"}, zap.NewNop())
	list := testList()

	if err := p.PublishList(context.Background(), list); err != nil {
		t.Fatalf("PublishList: %v", err)
	}
	if len(c.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(c.sent))
	}

	first := c.sent[0]
	if first.topic != "site/pharmacy/"+list.Pharmacies[0].ID.Hex()+"/state" {
		t.Errorf("topic = %q", first.topic)
	}
	if first.qos != 1 || !first.retained {
		t.Errorf("qos/retained = %d/%v", first.qos, first.retained)
	}
	var got Payload
	if err := json.Unmarshal(first.payload, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.Name != "A" || got.Date != "2025-05-06" || got.Total != 3 || got.Monthly != 2 || got.Daily != 1 {
		t.Errorf("payload = %+v", got)
	}
}

func TestPublishEntry_Retries(t *testing.T) {
	c := &fakeClient{failTimes: 2}
	p := NewWithClient(c, Config{Retries: 3, RetryDelay: time.Millisecond}, zap.NewNop())

	if err := p.PublishEntry(context.Background(), "2025-05-06", testList().Pharmacies[0]); err != nil {
		t.Fatalf("PublishEntry: %v", err)
	}
	if len(c.sent) != 1 {
		t.Errorf("sent %d, want 1 after retries", len(c.sent))
	}
}

func TestPublishEntry_RetriesByDefault(t *testing.T) {
	c := &fakeClient{failTimes: 1}
	p := NewWithClient(c, Config{Broker: "localhost:1883", RetryDelay: time.Millisecond}, zap.NewNop())

	if err := p.PublishEntry(context.Background(), "2025-05-06", testList().Pharmacies[0]); err != nil {
		t.Fatalf("PublishEntry with default retries: %v", err)
	}
	if len(c.sent) != 1 {
		t.Errorf("sent %d, want 1", len(c.sent))
	}
}

func TestPublishEntry_GivesUp(t *testing.T) {
	c := &fakeClient{failTimes: 10}
	p := NewWithClient(c, Config{Retries: 1, RetryDelay: time.Millisecond}, zap.NewNop())

	if err := p.PublishEntry(context.Background(), "2025-05-06", testList().Pharmacies[0]); err == nil {
		t.Error("expected error after exhausting retries")
	}
}

func TestDefaults(t *testing.T) {
	p := NewWithClient(&fakeClient{}, Config{}, nil)
	if p.cfg.Retries != DefaultRetries {
		t.Errorf("Retries = %d, want %d", p.cfg.Retries, DefaultRetries)
	}
	if p.Topic("abc") != DefaultTopicPrefix+"/pharmacy/abc/state" {
		t.Errorf("Topic = %q", p.Topic("abc"))
	}
	if brokerURL("localhost:1883") != "tcp://localhost:1883" || brokerURL("ssl://h:8883") != "ssl://h:8883" {
		t.Error("brokerURL did not normalize")
	}
}

func TestNew_RequiresBroker(t *testing.T) {
	if _, err := New(context.Background(), Config{}, zap.NewNop()); err == nil {
		t.Error("expected error without broker")
	}
}
