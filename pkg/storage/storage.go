// Package storage persists whole-state snapshots of the portal stores.
// Each persisted store owns one fixed name and always writes its full state;
// there is no merging or versioning, the last write wins.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Backend reads and writes named snapshot blobs.
type Backend interface {
	Load(ctx context.Context, name string) ([]byte, bool, error)
	Save(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
}

// Config selects and configures a backend.
type Config struct {
	Driver string // memory, file, sqlite, postgres, redis, minio

	Dir         string // file
	SQLitePath  string // sqlite
	DatabaseURL string // postgres

	RedisAddr     string
	RedisPassword string
	RedisPrefix   string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

// ErrUnknownDriver is returned by Open for unsupported drivers.
var ErrUnknownDriver = errors.New("unknown storage driver")

// Open builds the backend named by cfg.Driver. An empty driver means memory.
func Open(cfg Config) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.Dir)
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		return NewGormStore(cfg.DatabaseURL)
	case "redis":
		return NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisPrefix)
	case "minio":
		return NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}

// Close releases backend resources when the backend holds any.
func Close(b Backend) error {
	if c, ok := b.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func validName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("snapshot name required")
	}
	return nil
}
