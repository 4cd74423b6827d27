// Package cache реализует кэш ответов оркестрации поверх Redis.
//
// Ledger идемпотентности живёт в основном хранилище и участвует в
// транзакциях; кэш — необязательный быстрый слой перед ним, чтобы
// повторный запрос с тем же ключом не ходил в сагу вовсе.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResponseCache хранит сериализованные ответы по ключу идемпотентности.
type ResponseCache interface {
	// Get возвращает закэшированный ответ. Второй результат false,
	// если записи нет.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set сохраняет ответ с заданным TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Key собирает полный ключ кэша из операции и ключа идемпотентности.
	Key(operation, idempotencyKey string) string
}

// RedisCache — реализация ResponseCache на go-redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache подключается к Redis по адресу addr. Префикс
// разделяет ключи разных сервисов в общем инстансе.
func NewRedisCache(addr, prefix string) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: prefix,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Key(operation, idempotencyKey string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, operation, idempotencyKey)
}

// Close закрывает соединение с Redis.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ ResponseCache = (*RedisCache)(nil)
