package events

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"

	"nemsutalks/pkg/domain"
)

const (
	DefaultStream       = "nemsutalks:notifications"
	defaultStreamMaxLen = 10000
)

// StreamPublisher appends notifications to a capped Redis stream.
type StreamPublisher struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

// NewStreamPublisher uses client; Close leaves it open.
func NewStreamPublisher(client redis.UniversalClient, stream string, maxLen int64) (*StreamPublisher, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	stream = strings.TrimSpace(stream)
	if stream == "" {
		stream = DefaultStream
	}
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen}, nil
}

func (p *StreamPublisher) Publish(ctx context.Context, n domain.Notification) error {
	body, err := encode(n)
	if err != nil {
		return err
	}
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"id":      n.ID,
			"type":    string(n.Type),
			"payload": string(body),
		},
	}).Err()
}

// Close is a no-op; the client belongs to the caller.
func (p *StreamPublisher) Close() error { return nil }
