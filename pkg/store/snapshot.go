package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"nemsutalks/internal/metrics"
	"nemsutalks/pkg/storage"
)

const snapshotTimeout = 3 * time.Second

// snapshotter writes a store's full state under a fixed name.
type snapshotter struct {
	name    string
	backend storage.Backend
}

func newSnapshotter(name string, backend storage.Backend) *snapshotter {
	if backend == nil {
		return nil
	}
	return &snapshotter{name: name, backend: backend}
}

// save persists state after a mutation. Failures are logged and counted;
// the in-memory mutation stands either way.
func (s *snapshotter) save(state any) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()
	if err := s.write(ctx, state); err != nil {
		metrics.SnapshotSaves.WithLabelValues(s.name, "error").Inc()
		slog.Error("snapshot save failed", "store", s.name, "err", err)
		return
	}
	metrics.SnapshotSaves.WithLabelValues(s.name, "ok").Inc()
}

func (s *snapshotter) write(ctx context.Context, state any) error {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", s.name, err)
	}
	return s.backend.Save(ctx, s.name, data)
}

// load decodes the stored snapshot into state. It reports false when
// nothing was stored yet.
func (s *snapshotter) load(ctx context.Context, state any) (bool, error) {
	if s == nil {
		return false, nil
	}
	data, ok, err := s.backend.Load(ctx, s.name)
	if err != nil {
		return false, fmt.Errorf("load snapshot %s: %w", s.name, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, state); err != nil {
		return false, fmt.Errorf("decode snapshot %s: %w", s.name, err)
	}
	return true, nil
}
