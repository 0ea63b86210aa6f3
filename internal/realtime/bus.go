package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Bus carries envelopes between API instances
type Bus interface {
	Publish(ctx context.Context, env Envelope) error
	StartForwarder(ctx context.Context, onMsg func(Envelope)) error
	Close() error
}

// LocalBus delivers envelopes to forwarders in the same process
type LocalBus struct {
	mu         sync.RWMutex
	forwarders []func(Envelope)
}

func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

func (b *LocalBus) Publish(_ context.Context, env Envelope) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.forwarders {
		fn(env)
	}
	return nil
}

func (b *LocalBus) StartForwarder(_ context.Context, onMsg func(Envelope)) error {
	if onMsg == nil {
		return errors.New("onMsg callback required")
	}
	b.mu.Lock()
	b.forwarders = append(b.forwarders, onMsg)
	b.mu.Unlock()
	return nil
}

func (b *LocalBus) Close() error { return nil }

// RedisBus fans envelopes out over a Redis pub/sub channel
type RedisBus struct {
	rdb     *goredis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisBus connects to redisURL and verifies the connection
func NewRedisBus(ctx context.Context, redisURL, channel string, logger *zap.Logger) (*RedisBus, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	if channel == "" {
		channel = "praxis:events"
	}
	return &RedisBus{rdb: rdb, channel: channel, logger: logger}, nil
}

func (b *RedisBus) Publish(ctx context.Context, env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *RedisBus) StartForwarder(ctx context.Context, onMsg func(Envelope)) error {
	if onMsg == nil {
		return errors.New("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					b.logger.Warn("bad event payload on redis bus", zap.Error(err))
					continue
				}
				onMsg(env)
			}
		}
	}()
	return nil
}

func (b *RedisBus) Close() error {
	return b.rdb.Close()
}
