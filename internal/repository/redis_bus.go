package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
)

// latestTTL bounds how stale the cached snapshot key can get if the
// simulator stops publishing.
const latestTTL = 30 * time.Second

// RedisBus implements SnapshotBus over Redis: each snapshot is published on a
// pub/sub channel and mirrored to a key external dashboards can read on
// startup.
type RedisBus struct {
	client  *redis.Client
	channel string
}

type RedisBusConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

func NewRedisBus(cfg RedisBusConfig) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisBus{client: client, channel: cfg.Channel}, nil
}

var _ domrepo.SnapshotBus = (*RedisBus)(nil)

func (b *RedisBus) Publish(ctx context.Context, snap *models.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	pipe := b.client.Pipeline()
	pipe.Publish(ctx, b.channel, payload)
	pipe.Set(ctx, b.channel+":latest", payload, latestTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

func (b *RedisBus) Close() error {
	return b.client.Close()
}
