package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/zomasamka-bot/flashpay/internal/core/ports"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// change is the pub/sub message announcing a write. Origin lets a context
// skip its own writes.
type change struct {
	Origin  string `json:"origin"`
	Key     string `json:"key"`
	Value   []byte `json:"value,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

// SharedStorage implements ports.SharedStorage. Values live in plain keys and
// every write is announced on a per-key channel.
type SharedStorage struct {
	client goredis.UniversalClient
	origin string
	log    zerolog.Logger
}

func NewSharedStorage(client goredis.UniversalClient, log zerolog.Logger) *SharedStorage {
	return &SharedStorage{client: client, origin: uuid.NewString(), log: log}
}

func channel(key string) string {
	return "changes:" + key
}

func (s *SharedStorage) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis storage get: %w", err)
	}
	return val, nil
}

func (s *SharedStorage) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis storage set: %w", err)
	}
	s.announce(ctx, change{Origin: s.origin, Key: key, Value: value})
	return nil
}

func (s *SharedStorage) Delete(ctx context.Context, key string) error {
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis storage delete: %w", err)
	}
	if n > 0 {
		s.announce(ctx, change{Origin: s.origin, Key: key, Deleted: true})
	}
	return nil
}

// announce is best-effort: the value is already stored and a missed
// notification is repaired by the next write.
func (s *SharedStorage) announce(ctx context.Context, c change) {
	msg, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := s.client.Publish(ctx, channel(c.Key), msg).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", c.Key).Msg("publishing storage change failed")
	}
}

// Subscribe delivers writes to key made by other SharedStorage instances, in
// order, on a dedicated goroutine.
func (s *SharedStorage) Subscribe(key string, fn func(ports.StorageChange)) (func(), error) {
	ctx := context.Background()
	sub := s.client.Subscribe(ctx, channel(key))
	// Wait for the subscription so writes right after Subscribe are seen.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis storage subscribe: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range sub.Channel() {
			var c change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				s.log.Warn().Err(err).Str("channel", msg.Channel).Msg("malformed storage change")
				continue
			}
			if c.Origin == s.origin {
				continue
			}
			sc := ports.StorageChange{Key: c.Key}
			if !c.Deleted {
				sc.Value = c.Value
				if sc.Value == nil {
					sc.Value = []byte{}
				}
			}
			fn(sc)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = sub.Close()
			<-done
		})
	}, nil
}
