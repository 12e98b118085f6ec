package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/abx-learn/backend/internal/logging"
)

// Redis stores values as plain redis strings and announces writes on a
// pub/sub channel shared by every process using the same server.
type Redis struct {
	hub

	rdb       *goredis.Client
	channel   string
	origin    string
	opTimeout time.Duration
}

// OpenRedis connects to addr and verifies the connection.
func OpenRedis(addr, channel string) (*Redis, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if channel == "" {
		channel = "abx:kv:changes"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{
		rdb:       rdb,
		channel:   channel,
		origin:    uuid.New().String(),
		opTimeout: 3 * time.Second,
	}, nil
}

func (r *Redis) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.opTimeout)
	defer cancel()

	value, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (r *Redis) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.opTimeout)
	defer cancel()

	if err := r.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	r.announce(ctx, key)
	return nil
}

func (r *Redis) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.opTimeout)
	defer cancel()

	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	r.announce(ctx, key)
	return nil
}

func (r *Redis) announce(ctx context.Context, key string) {
	raw, err := json.Marshal(changeMessage{Key: key, Origin: r.origin})
	if err != nil {
		return
	}
	if err := r.rdb.Publish(ctx, r.channel, raw).Err(); err != nil {
		l := logging.WithComponent("kvstore")
		l.Warn().Err(err).Str("key", key).Msg("redis publish failed")
	}
}

// Listen forwards changes published by other processes until ctx is done.
func (r *Redis) Listen(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	log := logging.WithComponent("kvstore")
	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var msg changeMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					log.Warn().Err(err).Msg("bad kv change payload")
					continue
				}
				if msg.Origin == r.origin {
					continue
				}
				r.publish(msg.Key)
			}
		}
	}()

	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
