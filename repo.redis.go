package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Ensure *CachedBookStorage implements both interfaces.
var (
	_ BookStorage      = (*CachedBookStorage)(nil)
	_ CacheInvalidator = (*CachedBookStorage)(nil)
)

// CacheInvalidator drops every cached entry.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// CachedBookStorage keeps books into a single redis hash in front of
// another storage which remains the source of truth. Cache errors are
// logged and never fail the call.
type CachedBookStorage struct {
	logger *zap.Logger
	client *redis.Client
	key    string
	next   BookStorage
}

// NewRedisCachedBookStorage wraps the given storage with a redis-based cache.
func NewRedisCachedBookStorage(logger *zap.Logger, client *redis.Client, key string, next BookStorage) *CachedBookStorage {
	return &CachedBookStorage{
		logger: logger,
		client: client,
		key:    key,
		next:   next,
	}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
		PoolSize:     config.Redis.PoolSize,
		Password:     config.Redis.Password,
		Username:     config.Redis.Username,
		DB:           config.Redis.DatabaseIndex,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

func (cs *CachedBookStorage) set(ctx context.Context, book Book) {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		cs.logger.Error("cache: failed to encode book", zap.Uint("book.id", book.ID), zap.Error(err))
		return
	}
	if err = cs.client.HSet(ctx, cs.key, strconv.FormatUint(uint64(book.ID), 10), bookBytes).Err(); err != nil {
		cs.logger.Error("cache: failed to store book", zap.Uint("book.id", book.ID), zap.Error(err))
	}
}

func (cs *CachedBookStorage) evict(ctx context.Context, id uint) {
	if err := cs.client.HDel(ctx, cs.key, strconv.FormatUint(uint64(id), 10)).Err(); err != nil {
		cs.logger.Error("cache: failed to evict book", zap.Uint("book.id", id), zap.Error(err))
	}
}

// Add inserts the book into the underlying storage then caches the stored row.
func (cs *CachedBookStorage) Add(ctx context.Context, book Book) (Book, error) {
	book, err := cs.next.Add(ctx, book)
	if err != nil {
		return book, err
	}
	cs.set(ctx, book)
	return book, nil
}

// GetOne serves the book from the cache and falls back to the underlying storage.
func (cs *CachedBookStorage) GetOne(ctx context.Context, id uint) (Book, error) {
	var book Book
	bookJSONString, err := cs.client.HGet(ctx, cs.key, strconv.FormatUint(uint64(id), 10)).Result()
	if err == nil {
		if err = json.Unmarshal([]byte(bookJSONString), &book); err == nil {
			return book, nil
		}
		cs.logger.Error("cache: failed to decode book", zap.Uint("book.id", id), zap.Error(err))
	} else if err != redis.Nil {
		cs.logger.Error("cache: failed to fetch book", zap.Uint("book.id", id), zap.Error(err))
	}

	book, err = cs.next.GetOne(ctx, id)
	if err != nil {
		return book, err
	}
	cs.set(ctx, book)
	return book, nil
}

// Delete removes the book from the underlying storage and from the cache.
func (cs *CachedBookStorage) Delete(ctx context.Context, id uint) (Book, error) {
	book, err := cs.next.Delete(ctx, id)
	if err != nil {
		return book, err
	}
	cs.evict(ctx, id)
	return book, nil
}

// Update replaces the book into the underlying storage then refreshes the cache.
func (cs *CachedBookStorage) Update(ctx context.Context, id uint, book Book) (Book, error) {
	book, err := cs.next.Update(ctx, id, book)
	if err != nil {
		return book, err
	}
	cs.set(ctx, book)
	return book, nil
}

// GetAll always reads from the underlying storage.
func (cs *CachedBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	return cs.next.GetAll(ctx)
}

// Invalidate drops the whole books cache.
func (cs *CachedBookStorage) Invalidate(ctx context.Context) error {
	return cs.client.Del(ctx, cs.key).Err()
}

// RedisPinger returns a health check verifying the redis server is reachable.
func RedisPinger(client *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
