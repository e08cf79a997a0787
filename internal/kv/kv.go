// Package kv is the string key/value persistence used by the stores.
package kv

import (
	"context"
	"errors"
	"fmt"

	"knittex.app/boardroom/common"
	"knittex.app/boardroom/core/config"
)

var ErrNotFound = errors.New("kv: key not found")

// Store persists whole records as strings under a key.
type Store interface {
	// Get returns ErrNotFound when the key has never been written.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

const (
	RecordConversations = "chat_sessions"
	RecordNotes         = "factory_notes"

	DefaultNamespace = "knittex"
)

// Key builds "<namespace>:<record>" with the namespace slugified.
func Key(namespace, record string) string {
	ns, err := common.Slugify(namespace, DefaultNamespace)
	if err != nil {
		ns = DefaultNamespace
	}
	return ns + ":" + record
}

// Open selects a backend from the storage configuration.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendFile, "":
		return NewFileStore(cfg.Dir)
	case config.BackendRedis:
		return NewRedisStore(ctx, cfg.RedisURL)
	case config.BackendPostgres:
		return NewPostgresStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
