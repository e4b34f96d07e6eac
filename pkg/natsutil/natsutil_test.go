package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

func startTestNATS(t *testing.T) *nats.Conn {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Port: -1})
	if err != nil {
		t.Fatal(err)
	}
	srv.Start()
	if !srv.ReadyForConnections(3 * time.Second) {
		t.Fatal("nats not ready")
	}
	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		nc.Close()
		srv.Shutdown()
	})
	return nc
}

type payload struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{}
	carrier := (*headerCarrier)(msg)

	if got := carrier.Get("missing"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if keys := carrier.Keys(); keys != nil {
		t.Fatalf("expected nil keys, got %v", keys)
	}

	carrier.Set("traceparent", "00-abc-def-01")
	if got := carrier.Get("traceparent"); got != "00-abc-def-01" {
		t.Fatalf("expected traceparent, got %q", got)
	}
	if keys := carrier.Keys(); len(keys) != 1 {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestPublish(t *testing.T) {
	nc := startTestNATS(t)

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe("test.pub", ch)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	if err := Publish(context.Background(), nc, "test.pub", payload{Name: "hello", Value: 1}); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-ch:
		var p payload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			t.Fatal(err)
		}
		if p.Name != "hello" || p.Value != 1 {
			t.Fatalf("unexpected payload: %+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestSubscribe(t *testing.T) {
	nc := startTestNATS(t)

	ch := make(chan payload, 1)
	sub, err := Subscribe(nc, "test.sub", func(_ context.Context, p payload) error {
		ch <- p
		return nil
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	if err := Publish(context.Background(), nc, "test.sub", payload{Name: "world", Value: 2}); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-ch:
		if p.Name != "world" || p.Value != 2 {
			t.Fatalf("unexpected: %+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout")
	}
}

func TestSubscribe_ReportsDecodeAndHandlerErrors(t *testing.T) {
	nc := startTestNATS(t)

	boom := errors.New("boom")
	errs := make(chan error, 2)
	sub, err := Subscribe(nc, "test.err", func(_ context.Context, p payload) error {
		return boom
	}, func(_ context.Context, msg *nats.Msg, err error) {
		errs <- err
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	if err := nc.Publish("test.err", []byte("not json")); err != nil {
		t.Fatal(err)
	}
	if err := Publish(context.Background(), nc, "test.err", payload{Name: "x"}); err != nil {
		t.Fatal(err)
	}
	nc.Flush()

	var got []error
	for len(got) < 2 {
		select {
		case e := <-errs:
			got = append(got, e)
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout, got %d errors", len(got))
		}
	}
	if errors.Is(got[0], boom) {
		t.Fatalf("first error should be a decode error, got %v", got[0])
	}
	if !errors.Is(got[1], boom) {
		t.Fatalf("second error should be the handler error, got %v", got[1])
	}
}
