// Package natsutil provides typed JSON publish/subscribe helpers over NATS
// with OpenTelemetry trace propagation.
package natsutil

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// headerCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Handler processes one decoded message.
type Handler[T any] func(ctx context.Context, v T) error

// ErrorFunc is told about messages that could not be decoded or whose
// handler failed. msg is the original message.
type ErrorFunc func(ctx context.Context, msg *nats.Msg, err error)

// Publish serializes v as JSON and publishes it to subject, injecting the
// trace context from ctx into the message headers.
func Publish[T any](ctx context.Context, nc *nats.Conn, subject string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("natsutil: encode %s: %w", subject, err)
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	if err := nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("natsutil: publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers a handler that receives JSON messages decoded as T,
// with the publisher's trace context. Decode failures and handler errors are
// passed to onErr; a nil onErr drops them.
func Subscribe[T any](nc *nats.Conn, subject string, handler Handler[T], onErr ErrorFunc) (*nats.Subscription, error) {
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))

		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			if onErr != nil {
				onErr(ctx, msg, fmt.Errorf("natsutil: decode %s: %w", msg.Subject, err))
			}
			return
		}
		if err := handler(ctx, v); err != nil && onErr != nil {
			onErr(ctx, msg, err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("natsutil: subscribe %s: %w", subject, err)
	}
	return sub, nil
}
