package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Chab-algo/praxia/internal/config"
)

// RedisStore implements Store on Redis. Every key is namespaced by the
// configured prefix
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

var _ Store = (*RedisStore)(nil)

var reserveScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1]) or '0'
local spent = tonumber(raw)
if spent + tonumber(ARGV[1]) > tonumber(ARGV[2]) then
	return {0, raw}
end
local total = redis.call('INCRBYFLOAT', KEYS[1], ARGV[1])
return {1, total}
`)

var admitScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[2])
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[4]) then
	return 0
end
local day = tonumber(redis.call('GET', KEYS[2]) or '0')
if day >= tonumber(ARGV[5]) then
	return -1
end
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[3])
redis.call('EXPIRE', KEYS[1], ARGV[6])
redis.call('INCR', KEYS[2])
redis.call('EXPIRE', KEYS[2], ARGV[7])
return 1
`)

// NewRedisStore connects to the Redis instance described by cfg
func NewRedisStore(cfg config.StoreConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisStoreWithClient(client, cfg.Prefix)
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(
	client redis.UniversalClient, prefix string,
) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) Get(
	ctx context.Context, key string,
) (string, bool, error) {
	res, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return res, true, nil
}

func (s *RedisStore) SetWithTTL(
	ctx context.Context, key, value string, ttl time.Duration,
) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTTL, ttl)
	}
	return s.client.Set(ctx, s.key(key), value, ttl).Err()
}

func (s *RedisStore) IncrByFloat(
	ctx context.Context, key string, delta float64,
) (float64, error) {
	return s.client.IncrByFloat(ctx, s.key(key), delta).Result()
}

func (s *RedisStore) Expire(
	ctx context.Context, key string, ttl time.Duration,
) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTTL, ttl)
	}
	return s.client.Expire(ctx, s.key(key), ttl).Err()
}

func (s *RedisStore) SortedSetAdd(
	ctx context.Context, key string, score float64, member string,
) error {
	return s.client.ZAdd(ctx, s.key(key), redis.Z{
		Score:  score,
		Member: member,
	}).Err()
}

func (s *RedisStore) SortedSetPrune(
	ctx context.Context, key string, maxScore float64,
) (int64, error) {
	return s.client.ZRemRangeByScore(ctx, s.key(key),
		"-inf", strconv.FormatFloat(maxScore, 'f', -1, 64),
	).Result()
}

func (s *RedisStore) SortedSetCount(
	ctx context.Context, key string,
) (int64, error) {
	return s.client.ZCard(ctx, s.key(key)).Result()
}

// Reserve adds amount to the counter at key unless doing so would push it
// past ceiling. The check and the increment run as one script
func (s *RedisStore) Reserve(
	ctx context.Context, key string, amount, ceiling float64,
) (*Reservation, error) {
	res, err := reserveScript.Run(ctx, s.client,
		[]string{s.key(key)},
		formatFloat(amount), formatFloat(ceiling),
	).Slice()
	if err != nil {
		return nil, err
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedReply, res)
	}

	flag, ok := res[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedReply, res[0])
	}
	raw, ok := res[1].(string)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedReply, res[1])
	}
	total, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedReply, err)
	}
	return &Reservation{
		Total:    total,
		Reserved: flag == 1,
	}, nil
}

// Admit prunes the window, checks both limits and records the request in
// one script, so a refused request consumes no capacity
func (s *RedisStore) Admit(
	ctx context.Context, req *AdmitRequest,
) (Admission, error) {
	res, err := admitScript.Run(ctx, s.client,
		[]string{s.key(req.WindowKey), s.key(req.CounterKey)},
		req.Now, req.Cutoff, req.Member,
		req.WindowLimit, req.DailyLimit,
		ttlSeconds(req.WindowTTL), ttlSeconds(req.CounterTTL),
	).Int64()
	if err != nil {
		return 0, err
	}
	switch a := Admission(res); a {
	case Admitted, WindowLimited, DailyLimited:
		return a, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnexpectedReply, res)
	}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func ttlSeconds(d time.Duration) int64 {
	secs := int64(d / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
