package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Manager provides Redis-backed fixed-window rate limiting, shared across
// process replicas. A nil Manager disables limiting at the middleware.
type Manager struct {
	redis *redis.Client
	rpm   int
}

// NewManager connects to Redis and verifies the connection.
func NewManager(redisURL string, rpm int) (*Manager, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Manager{redis: client, rpm: rpm}, nil
}

func (m *Manager) Close() error { return m.redis.Close() }

// RPM returns the configured per-minute limit.
func (m *Manager) RPM() int { return m.rpm }

// CheckRate counts a request against the caller's minute window and
// reports whether it is allowed, plus seconds until the window resets when
// it is not.
func (m *Manager) CheckRate(ctx context.Context, caller string) (allowed bool, resetSec int, err error) {
	now := time.Now().UTC()
	window := now.Unix() / 60
	rk := fmt.Sprintf("rl:%s:%d", caller, window)

	pipe := m.redis.TxPipeline()
	incr := pipe.Incr(ctx, rk)
	pipe.Expire(ctx, rk, time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	if int(incr.Val()) > m.rpm {
		secPassed := int(now.Unix() % 60)
		return false, 60 - secPassed, nil
	}
	return true, 0, nil
}
