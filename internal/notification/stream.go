package notification

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const streamMaxLen = 100_000

// StreamNotifier appends msgpack-encoded messages to a Redis stream.
type StreamNotifier struct {
	cache  *redis.Client
	stream string
}

// NewStreamNotifier publishes to the named stream.
func NewStreamNotifier(cache *redis.Client, stream string) *StreamNotifier {
	return &StreamNotifier{cache: cache, stream: stream}
}

// Send encodes the message and appends it to the stream.
func (n *StreamNotifier) Send(ctx context.Context, message Message) error {
	payload, err := msgpack.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode %s notification: %w", message.Kind, err)
	}
	err = n.cache.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"kind":    message.Kind,
			"payload": payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("publish %s notification: %w", message.Kind, err)
	}
	return nil
}

// Decode unpacks a payload written by StreamNotifier.
func Decode(payload []byte) (Message, error) {
	var msg Message
	err := msgpack.Unmarshal(payload, &msg)
	return msg, err
}
