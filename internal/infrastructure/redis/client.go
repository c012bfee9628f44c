package redis

import (
	"context"
	"fmt"
	"time"

	goRedis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/tikshop/internal/config"
)

const (
	clientName   = "tikshop-sessions"
	pingAttempts = 3
	pingTimeout  = 2 * time.Second
	pingBackoff  = 250 * time.Millisecond
)

// NewClient connects the admin session store. The server must answer a
// ping within a few attempts or the client is closed and an error returned.
func NewClient(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*goRedis.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts, err := goRedis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	opts.ClientName = clientName

	client := goRedis.NewClient(opts)

	var pingErr error
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		pingErr = client.Ping(pingCtx).Err()
		cancel()
		if pingErr == nil {
			logger.Info("connected to redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
			return client, nil
		}
		logger.Warn("redis ping failed", zap.Int("attempt", attempt), zap.Error(pingErr))
		if attempt == pingAttempts {
			break
		}
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", ctx.Err())
		case <-time.After(pingBackoff * time.Duration(attempt)):
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("redis ping: %w", pingErr)
}
