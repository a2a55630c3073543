package history

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"

	redisKeyPrefix = "thumbforge:history:"
	filePerm       = 0o600
	dirPerm        = 0o750
)

// MemoryBackend keeps logs in process memory
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (b *MemoryBackend) Name() string { return BackendMemory }

func (b *MemoryBackend) Load(_ context.Context, owner string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data[owner], nil
}

func (b *MemoryBackend) Save(_ context.Context, owner string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[owner] = data
	return nil
}

// FileBackend writes one JSON file per owner under a directory
type FileBackend struct {
	dir string
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create history dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) Name() string { return BackendFile }

// path hashes the owner id so arbitrary ids are safe file names
func (b *FileBackend) path(owner string) string {
	sum := sha256.Sum256([]byte(owner))
	return filepath.Join(b.dir, hex.EncodeToString(sum[:])+".json")
}

func (b *FileBackend) Load(_ context.Context, owner string) ([]byte, error) {
	data, err := os.ReadFile(b.path(owner))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

func (b *FileBackend) Save(_ context.Context, owner string, data []byte) error {
	target := b.path(owner)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, filePerm); err != nil {
		return err
	}
	return os.Rename(tmp, target)
}

// RedisBackend stores each log as a string key with an optional TTL
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBackend connects using a redis:// URL
func NewRedisBackend(url string, ttl time.Duration) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &RedisBackend{
		client: redis.NewClient(opts),
		ttl:    ttl,
	}, nil
}

func (b *RedisBackend) Name() string { return BackendRedis }

func (b *RedisBackend) Load(ctx context.Context, owner string) ([]byte, error) {
	val, err := b.client.Get(ctx, redisKeyPrefix+owner).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (b *RedisBackend) Save(ctx context.Context, owner string, data []byte) error {
	return b.client.Set(ctx, redisKeyPrefix+owner, data, b.ttl).Err()
}

// Ping checks the connection
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close releases the connection pool
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// NewBackend selects a backend by name
func NewBackend(name, dir, redisURL string, ttl time.Duration) (Backend, error) {
	switch name {
	case "", BackendMemory:
		return NewMemoryBackend(), nil
	case BackendFile:
		return NewFileBackend(dir)
	case BackendRedis:
		if redisURL == "" {
			return nil, errors.New("HISTORY_BACKEND=redis requires REDIS_URL")
		}
		return NewRedisBackend(redisURL, ttl)
	default:
		return nil, fmt.Errorf("unknown history backend: %s (allowed: memory, file, redis)", name)
	}
}
