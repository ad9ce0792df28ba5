package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/supportiq/backend/pkg/logger"
)

type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// MarkProcessed claims a provider call id for processing. It returns false
// when another worker already claimed it, making webhook delivery retries
// idempotent.
func (c *Client) MarkProcessed(ctx context.Context, providerCallID string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, fmt.Sprintf("processed:%s", providerCallID), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark call processed: %w", err)
	}
	return ok, nil
}

// ClearProcessed releases a claim so the call can be analyzed again, used
// when a pipeline run failed or a reprocess was requested.
func (c *Client) ClearProcessed(ctx context.Context, providerCallID string) error {
	err := c.client.Del(ctx, fmt.Sprintf("processed:%s", providerCallID)).Err()
	if err != nil {
		return fmt.Errorf("failed to clear processed mark: %w", err)
	}
	return nil
}

// SetAnalytics caches a serialized analytics response under a query hash.
func (c *Client) SetAnalytics(ctx context.Context, queryHash string, response interface{}, ttl time.Duration) error {
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	err = c.client.Set(ctx, fmt.Sprintf("analytics:%s", queryHash), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set analytics cache: %w", err)
	}

	logger.Debug("Analytics response cached", zap.String("query_hash", queryHash), zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) GetAnalytics(ctx context.Context, queryHash string, response interface{}) (bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("analytics:%s", queryHash)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get analytics cache: %w", err)
	}

	err = json.Unmarshal(data, response)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	logger.Debug("Analytics cache hit", zap.String("query_hash", queryHash))
	return true, nil
}

// InvalidateAnalytics drops every cached analytics response. Called after a
// pipeline run lands new rollup or feedback data.
func (c *Client) InvalidateAnalytics(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "analytics:*", 0).Iterator()
	for iter.Next(ctx) {
		err := c.client.Del(ctx, iter.Val()).Err()
		if err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Debug("Analytics cache invalidated")
	return nil
}
