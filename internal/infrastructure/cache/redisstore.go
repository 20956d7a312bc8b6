package cache

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ipbench/ipsignal/pkg/errors"
)

// RedisOptions parameterise the Redis Store backend.
type RedisOptions struct {
	Addr         string
	Password     string
	DB           int
	KeyPrefix    string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// redisStore is the Redis Store backend.  Records live forever (no TTL):
// the cache is the system of record for classification output, and expiry
// would silently break the resumability contract.
type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a Store backed by the given Redis instance.  The
// connection is verified up front so a misconfigured address fails the run
// at startup rather than mid-batch.
func NewRedisStore(ctx context.Context, opts RedisOptions) (Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "redis unreachable").WithDetail(opts.Addr)
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "ipsignal:"
	}
	return &redisStore{client: client, prefix: prefix}, nil
}

func (s *redisStore) fullKey(kind, key string) string {
	return s.prefix + kind + ":" + key
}

func (s *redisStore) Get(ctx context.Context, kind, key string, dest interface{}) error {
	data, err := s.client.Get(ctx, s.fullKey(kind, key)).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreUnavailable, "redis get failed").WithDetail(s.fullKey(kind, key))
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreCorrupt, "cache record is not valid JSON").WithDetail(s.fullKey(kind, key))
	}
	return nil
}

func (s *redisStore) Put(ctx context.Context, kind, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "cache record marshal failed")
	}
	if err := s.client.Set(ctx, s.fullKey(kind, key), data, 0).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "redis set failed").WithDetail(s.fullKey(kind, key))
	}
	return nil
}

func (s *redisStore) Exists(ctx context.Context, kind, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.fullKey(kind, key)).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "redis exists failed").WithDetail(s.fullKey(kind, key))
	}
	return n > 0, nil
}

func (s *redisStore) Keys(ctx context.Context, kind string) ([]string, error) {
	match := s.prefix + kind + ":*"
	trim := s.prefix + kind + ":"

	var keys []string
	var cursor uint64
	for {
		batch, next, err := s.client.Scan(ctx, cursor, match, 500).Result()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "redis scan failed").WithDetail(match)
		}
		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, trim))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *redisStore) Delete(ctx context.Context, kind, key string) error {
	if err := s.client.Del(ctx, s.fullKey(kind, key)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "redis del failed").WithDetail(s.fullKey(kind, key))
	}
	return nil
}
