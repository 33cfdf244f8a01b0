package storage

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()

	fileStore, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })

	redisSrv := miniredis.RunT(t)
	redisStore, err := NewRedisStore(redisSrv.Addr(), "", "test:snapshot")
	if err != nil {
		t.Fatalf("new redis store: %v", err)
	}
	t.Cleanup(func() { redisStore.Close() })

	return map[string]Backend{
		"memory": NewMemoryStore(),
		"file":   fileStore,
		"sqlite": sqliteStore,
		"redis":  redisStore,
	}
}

func TestBackendsRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := b.Load(ctx, "nemsu-user-auth"); err != nil || ok {
				t.Fatalf("expected missing snapshot, ok=%v err=%v", ok, err)
			}
			first := []byte(`{"users":[],"currentUser":null}`)
			if err := b.Save(ctx, "nemsu-user-auth", first); err != nil {
				t.Fatalf("save: %v", err)
			}
			second := []byte(`{"users":[{"id":"user-1"}],"currentUser":null}`)
			if err := b.Save(ctx, "nemsu-user-auth", second); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, ok, err := b.Load(ctx, "nemsu-user-auth")
			if err != nil || !ok {
				t.Fatalf("load: ok=%v err=%v", ok, err)
			}
			if !bytes.Equal(got, second) {
				t.Fatalf("expected last write to win, got %s", got)
			}
			if err := b.Delete(ctx, "nemsu-user-auth"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, ok, err := b.Load(ctx, "nemsu-user-auth"); err != nil || ok {
				t.Fatalf("expected deleted snapshot, ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestBackendsRejectEmptyName(t *testing.T) {
	for name, b := range backends(t) {
		if err := b.Save(context.Background(), " ", []byte("{}")); err == nil {
			t.Fatalf("%s: expected empty name to be rejected", name)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "etcd"})
	if !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("expected ErrUnknownDriver, got %v", err)
	}
}

func TestOpenDefaultsToMemory(t *testing.T) {
	b, err := Open(Config{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := b.(*MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", b)
	}
}

func TestFileStoreRequiresBasePath(t *testing.T) {
	if _, err := NewFileStore(""); err == nil {
		t.Fatalf("expected empty base path to fail")
	}
}
