package utils

import (
	"CloudHunter/model"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis cache client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client: client,
	}
}

// Get reads a cached value.
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	// 缓存里存的是 json, 反序列化到 dest
	return json.Unmarshal([]byte(val), dest)
}

// Set writes a cached value.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, string(data), expiration).Err()
}

// Delete removes a cache entry.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// BuildCacheKey builds a cache key.
func BuildCacheKey(prefix string, params ...interface{}) string {
	key := prefix
	for _, param := range params {
		key += fmt.Sprintf(":%v", param)
	}
	return key
}

const (
	CacheKeyUserFileList        = "user:file:list"
	CacheKeyUserFileListVersion = "user:file:list:ver"
)

type FileListCache struct {
	Files []model.FileRecord `json:"files"`
}

// GetUserFileListVersion returns the current list generation for a user,
// creating one if none exists. Empty means the cache is unusable.
func GetUserFileListVersion(ctx context.Context, cache Cache, userId uint64) string {
	if cache == nil {
		return ""
	}
	key := BuildCacheKey(CacheKeyUserFileListVersion, userId)
	var version string
	if err := cache.Get(ctx, key, &version); err == nil && version != "" {
		return version
	}
	version = GetToken()
	if err := cache.Set(ctx, key, version, 0); err != nil {
		return ""
	}
	return version
}

// GetUserFileListFromCache reads a cached file list for one generation.
func GetUserFileListFromCache(ctx context.Context, cache Cache, userId uint64, version string) (*FileListCache, bool) {
	if cache == nil || version == "" {
		return nil, false
	}
	var result FileListCache
	if err := cache.Get(ctx, BuildCacheKey(CacheKeyUserFileList, userId, version), &result); err != nil {
		return nil, false
	}
	return &result, true
}

// SetUserFileListToCache writes a cached file list under one generation.
func SetUserFileListToCache(ctx context.Context, cache Cache, userId uint64, version string, data *FileListCache, expiration time.Duration) error {
	if cache == nil || version == "" {
		return nil
	}
	return cache.Set(ctx, BuildCacheKey(CacheKeyUserFileList, userId, version), data, expiration)
}

// InvalidateUserFileListCache moves the user to a fresh generation. Lists
// filled under an older generation are never read again and expire on their own.
func InvalidateUserFileListCache(ctx context.Context, cache Cache, userId uint64) error {
	if cache == nil {
		return nil
	}
	return cache.Set(ctx, BuildCacheKey(CacheKeyUserFileListVersion, userId), GetToken(), 0)
}
