package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisTier 以 Redis 字符串键保存 JSON 形式的 Reference，键格式为 <prefix><id>:<format>。
type RedisTier struct {
	name   string
	rdb    redis.Cmdable
	prefix string
}

// RedisOptions 描述 Redis 连接参数。
type RedisOptions struct {
	Addr     string
	DB       int
	Password string
}

// NewRedisClient 创建 go-redis 客户端，调用方负责 Close。
func NewRedisClient(opts RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		DB:       opts.DB,
		Password: opts.Password,
	})
}

// NewRedisTier 基于任意 redis.Cmdable（Client/ClusterClient/Pipeline）构造缓存层。
func NewRedisTier(name string, rdb redis.Cmdable, prefix string) *RedisTier {
	return &RedisTier{name: name, rdb: rdb, prefix: prefix}
}

func (t *RedisTier) Name() string {
	return t.name
}

func (t *RedisTier) Get(ctx context.Context, bookID int64, format string) (Reference, error) {
	raw, err := t.rdb.Get(ctx, t.Key(bookID, format)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Reference{}, ErrNotFound
	}
	if err != nil {
		return Reference{}, fmt.Errorf("%s tier get: %w: %w", t.name, ErrTierUnavailable, err)
	}
	return decodeReference(raw)
}

func (t *RedisTier) Invalidate(ctx context.Context, bookID int64, format string) error {
	if err := t.rdb.Del(ctx, t.Key(bookID, format)).Err(); err != nil {
		return fmt.Errorf("%s tier invalidate: %w: %w", t.name, ErrTierUnavailable, err)
	}
	return nil
}

// Key 返回 (bookID, format) 对应的 Redis 键。
func (t *RedisTier) Key(bookID int64, format string) string {
	return fmt.Sprintf("%s%d:%s", t.prefix, bookID, format)
}

func decodeReference(raw []byte) (Reference, error) {
	var ref Reference
	if err := json.Unmarshal(raw, &ref); err != nil {
		return Reference{}, fmt.Errorf("decode reference: %w", err)
	}
	if ref.ChatID == 0 || ref.MessageID == 0 {
		return Reference{}, errIncompleteReference
	}
	return ref, nil
}
