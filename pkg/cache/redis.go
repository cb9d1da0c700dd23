package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"portfolio-analytics-api/internal/config"
)

// ErrNotFound is returned when a key is not found in cache
var ErrNotFound = errors.New("key not found in cache")

// RedisClient represents Redis cache client
type RedisClient struct {
	client *redis.Client
	config config.CacheConfig
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg config.CacheConfig) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConnections,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{
		client: rdb,
		config: cfg,
	}, nil
}

// Set stores a value with TTL
func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return r.client.Set(ctx, key, data, ttl).Err()
}

// Get retrieves a value and unmarshals it
func (r *RedisClient) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get key %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return nil
}

// Delete removes a key
func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

// Keys returns keys matching a pattern
func (r *RedisClient) Keys(ctx context.Context, pattern string) ([]string, error) {
	return r.client.Keys(ctx, pattern).Result()
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Ping checks the Redis connection
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Analytics-specific cache methods

// SetAnalysis caches a comprehensive analysis for an account
func (r *RedisClient) SetAnalysis(ctx context.Context, accountID string, analysis interface{}) error {
	key := fmt.Sprintf("analysis:%s", accountID)
	return r.Set(ctx, key, analysis, r.config.AnalysisTTL)
}

// GetAnalysis retrieves a cached comprehensive analysis
func (r *RedisClient) GetAnalysis(ctx context.Context, accountID string, dest interface{}) error {
	key := fmt.Sprintf("analysis:%s", accountID)
	return r.Get(ctx, key, dest)
}

// SetRiskMetrics caches risk metrics for an account
func (r *RedisClient) SetRiskMetrics(ctx context.Context, accountID string, metrics interface{}) error {
	key := fmt.Sprintf("risk:%s", accountID)
	return r.Set(ctx, key, metrics, r.config.RiskTTL)
}

// GetRiskMetrics retrieves cached risk metrics
func (r *RedisClient) GetRiskMetrics(ctx context.Context, accountID string, dest interface{}) error {
	key := fmt.Sprintf("risk:%s", accountID)
	return r.Get(ctx, key, dest)
}

// SetDividendSummary caches a dividend summary for an account
func (r *RedisClient) SetDividendSummary(ctx context.Context, accountID string, summary interface{}) error {
	key := fmt.Sprintf("dividends:%s", accountID)
	return r.Set(ctx, key, summary, r.config.DividendTTL)
}

// GetDividendSummary retrieves a cached dividend summary
func (r *RedisClient) GetDividendSummary(ctx context.Context, accountID string, dest interface{}) error {
	key := fmt.Sprintf("dividends:%s", accountID)
	return r.Get(ctx, key, dest)
}

// InvalidateAccount removes every cached entry for an account
func (r *RedisClient) InvalidateAccount(ctx context.Context, accountID string) error {
	keys := []string{
		fmt.Sprintf("analysis:%s", accountID),
		fmt.Sprintf("risk:%s", accountID),
		fmt.Sprintf("dividends:%s", accountID),
	}
	return r.Delete(ctx, keys...)
}
