package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const channel = "challenges:new"

// Feed fans out newly submitted challenges to connected admin dashboards.
type Feed interface {
	Publish(ctx context.Context, payload []byte) error
	// Subscribe delivers payloads until ctx ends or the returned cancel is called.
	Subscribe(ctx context.Context) (<-chan []byte, func(), error)
}

type redisFeed struct {
	rdb *redis.Client
}

// NewRedisFeed shares submissions across every API instance through Redis pub/sub.
func NewRedisFeed(rdb *redis.Client) Feed {
	return &redisFeed{rdb: rdb}
}

func (f *redisFeed) Publish(ctx context.Context, payload []byte) error {
	return f.rdb.Publish(ctx, channel, payload).Err()
}

func (f *redisFeed) Subscribe(ctx context.Context) (<-chan []byte, func(), error) {
	pubsub := f.rdb.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, 16)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}

	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				default:
				}
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			}
		}
	}()
	return out, cancel, nil
}

type memoryFeed struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

// NewMemoryFeed only reaches subscribers of this process.
func NewMemoryFeed() Feed {
	return &memoryFeed{subs: make(map[chan []byte]struct{})}
}

// Publish never blocks; a subscriber with a full buffer misses the message.
func (f *memoryFeed) Publish(_ context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (f *memoryFeed) Subscribe(ctx context.Context) (<-chan []byte, func(), error) {
	ch := make(chan []byte, 16)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			close(ch)
			f.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel, nil
}
