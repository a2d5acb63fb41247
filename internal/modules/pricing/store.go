// README: System configuration store backed by PostgreSQL with a Redis read-through cache.
package pricing

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	commissionRateKey = "commission_rate"
	cacheKeyPrefix    = "config:"
)

type Store struct {
	db          *pgxpool.Pool
	redis       *redis.Client
	logger      *slog.Logger
	defaultRate float64
	cacheTTL    time.Duration
}

type StoreConfig struct {
	DefaultRate float64
	CacheTTL    time.Duration
}

func NewStore(db *pgxpool.Pool, rdb *redis.Client, logger *slog.Logger, cfg StoreConfig) *Store {
	if cfg.DefaultRate <= 0 {
		cfg.DefaultRate = DefaultCommissionRate
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, redis: rdb, logger: logger, defaultRate: cfg.DefaultRate, cacheTTL: cfg.CacheTTL}
}

// CommissionRate reads the commission_rate key, falling back to the
// configured default when the key is absent.
func (s *Store) CommissionRate(ctx context.Context) (float64, error) {
	raw, ok, err := s.Get(ctx, commissionRateKey)
	if err != nil {
		return 0, err
	}
	if !ok {
		return s.defaultRate, nil
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		s.logger.Warn("malformed commission rate, using default", "value", raw, "err", err)
		return s.defaultRate, nil
	}
	return rate, nil
}

// Get returns a system configuration value by key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if s.redis != nil {
		val, err := s.redis.Get(ctx, cacheKeyPrefix+key).Result()
		switch {
		case err == nil:
			return val, true, nil
		case !errors.Is(err, redis.Nil):
			s.logger.Warn("config cache read failed", "key", key, "err", err)
		}
	}

	var val string
	err := s.db.QueryRow(ctx, `SELECT value FROM system_config WHERE key = $1`, key).Scan(&val)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, cacheKeyPrefix+key, val, s.cacheTTL).Err(); err != nil {
			s.logger.Warn("config cache write failed", "key", key, "err", err)
		}
	}
	return val, true, nil
}
