package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kestrelsec/mailgate/internal/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPublisher pushes emitted alerts onto a Redis list so external
// consumers (dashboards, SIEM forwarders) can drain them. Publishing is
// best effort; a Redis outage never blocks a verdict.
type RedisPublisher struct {
	client *redis.Client
	list   string
	logger *zap.Logger
}

// NewRedisPublisher connects to Redis and pings it to ensure it's alive.
func NewRedisPublisher(addr, list string, logger *zap.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisPublisher{client: client, list: list, logger: logger}, nil
}

// PublishAlert serializes the alert as JSON and pushes it onto the list.
func (p *RedisPublisher) PublishAlert(ctx context.Context, alert *core.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	if err := p.client.LPush(ctx, p.list, payload).Err(); err != nil {
		return fmt.Errorf("failed to push alert to redis: %w", err)
	}

	p.logger.Debug("Published alert",
		zap.String("alert_id", alert.ID),
		zap.String("list", p.list))
	return nil
}

// Stop closes the Redis connection.
func (p *RedisPublisher) Stop() {
	if err := p.client.Close(); err != nil {
		p.logger.Error("Failed to close Redis connection", zap.Error(err))
	}
}
