package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitService enforces a fixed-window request limit using Redis
type RateLimitService struct {
	client *redis.Client
	window time.Duration
	limit  int
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(redisURL string, window time.Duration, limit int) (*RateLimitService, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RateLimitService{client: client, window: window, limit: limit}, nil
}

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed        bool
	Used           int
	Limit          int
	RetryAfterSecs int
}

// CheckAndIncrement counts one request against the client's current window
func (s *RateLimitService) CheckAndIncrement(ctx context.Context, clientID string) (*RateLimitResult, error) {
	now := time.Now()
	windowStart := now.Truncate(s.window)
	key := fmt.Sprintf("ratelimit:%s:%d", clientID, windowStart.Unix())

	count, err := s.client.Get(ctx, key).Int()
	if err != nil && err != redis.Nil {
		return nil, err
	}

	result := &RateLimitResult{
		Used:  count,
		Limit: s.limit,
	}

	windowEnd := windowStart.Add(s.window)
	if count >= s.limit {
		result.RetryAfterSecs = int(windowEnd.Sub(now).Seconds())
		return result, nil
	}

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.ExpireAt(ctx, key, windowEnd)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	result.Allowed = true
	result.Used++

	return result, nil
}

// Close closes the Redis connection
func (s *RateLimitService) Close() error {
	return s.client.Close()
}
