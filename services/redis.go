package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hydramind/config"
	"hydramind/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisStateKey   = "hydramind:etp:state"
	redisHistoryKey = "hydramind:etp:history"
	redisChannel    = "hydramind:etp:telemetry"
	redisStateTTL   = 30 * time.Second
)

// RedisService keeps the live dashboard state in a hash, mirrors the history
// list and publishes every snapshot on a pub/sub channel
type RedisService struct {
	client       *redis.Client
	historyLimit int
	logger       *zap.Logger
}

func NewRedisService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     5,
		MinIdleConns: 1,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))
	return &RedisService{
		client:       client,
		historyLimit: cfg.HistoryLimit,
		logger:       logger,
	}, nil
}

func (r *RedisService) Name() string {
	return "redis"
}

func (r *RedisService) Publish(ctx context.Context, snapshot *models.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	m := snapshot.Metrics
	state := map[string]interface{}{
		"seq":        snapshot.Seq,
		"ph":         m.PH,
		"cod":        m.COD,
		"phenol":     m.Phenol,
		"oil":        m.Oil,
		"dosage":     m.Dosage,
		"flow":       m.Flow,
		"alert":      snapshot.Alert,
		"online":     snapshot.Online,
		"status":     snapshot.Status,
		"updated_at": snapshot.UpdatedAt.Unix(),
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, redisStateKey, state)
	pipe.Expire(ctx, redisStateKey, redisStateTTL)
	if point, ok := snapshot.LatestPoint(); ok && snapshot.Cause == models.CauseTelemetry {
		pointJSON, err := json.Marshal(point)
		if err != nil {
			return fmt.Errorf("failed to marshal history point: %w", err)
		}
		pipe.RPush(ctx, redisHistoryKey, pointJSON)
		pipe.LTrim(ctx, redisHistoryKey, int64(-r.historyLimit), -1)
	}
	pipe.Publish(ctx, redisChannel, payload)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

func (r *RedisService) Close() error {
	return r.client.Close()
}
