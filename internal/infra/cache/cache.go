package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache はネームスペースごとにバージョン付きのキーでJSONを保存する。
// Invalidate でバージョンを上げると古いキーは参照されなくなる（TTLで消える）。
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

// Dial はaddrに接続してPINGまで確認する。
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (c *RedisCache) versionKey(ns string) string {
	return c.prefix + ":" + ns + ":version"
}

func (c *RedisCache) dataKey(ctx context.Context, ns, key string) (string, error) {
	v, err := c.client.Get(ctx, c.versionKey(ns)).Result()
	if errors.Is(err, redis.Nil) {
		v = "0"
	} else if err != nil {
		return "", err
	}
	return DataKey(c.prefix, ns, v, key), nil
}

// Get はヒットしたらdstに読み込んでtrue。
func (c *RedisCache) Get(ctx context.Context, ns, key string, dst any) (bool, error) {
	k, err := c.dataKey(ctx, ns, key)
	if err != nil {
		return false, err
	}
	b, err := c.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, ns, key string, v any) error {
	k, err := c.dataKey(ctx, ns, key)
	if err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, k, b, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, ns string) error {
	return c.client.Incr(ctx, c.versionKey(ns)).Err()
}

// DataKey は prefix:ns:v<version>:key
func DataKey(prefix, ns, version, key string) string {
	return prefix + ":" + ns + ":v" + version + ":" + key
}

// Noop はREDIS_ADDR未設定のとき使う。常にミス。
type Noop struct{}

func (Noop) Get(context.Context, string, string, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, string, string, any) error         { return nil }
func (Noop) Invalidate(context.Context, string) error               { return nil }
