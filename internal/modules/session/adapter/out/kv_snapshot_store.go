package out

import (
	"context"
	"fmt"

	"tabclock/internal/modules/session/domain"
	sessionout "tabclock/internal/modules/session/port/out"
	apperrors "tabclock/internal/platform/errors"
	"tabclock/internal/platform/kv"
)

const SnapshotKey = "current_session"

type KVSnapshotStore struct {
	store kv.Store
}

func NewKVSnapshotStore(store kv.Store) sessionout.ActiveSessionStore {
	return &KVSnapshotStore{store: store}
}

func (s *KVSnapshotStore) SaveActive(ctx context.Context, snapshot domain.Snapshot) error {
	if err := kv.SetJSON(ctx, s.store, SnapshotKey, snapshot); err != nil {
		return fmt.Errorf("write active session: %w", err)
	}
	return nil
}

func (s *KVSnapshotStore) LoadActive(ctx context.Context) (domain.Snapshot, error) {
	snapshot := domain.Snapshot{}
	found, err := kv.GetJSON(ctx, s.store, SnapshotKey, &snapshot)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read active session: %w", err)
	}
	if !found || snapshot.SessionID == "" {
		return domain.Snapshot{}, apperrors.ErrNoActiveSession
	}
	if snapshot.SessionTabs == nil {
		snapshot.SessionTabs = map[string]domain.TabRecord{}
	}
	return snapshot, nil
}

func (s *KVSnapshotStore) ClearActive(ctx context.Context) error {
	if err := s.store.Delete(ctx, SnapshotKey); err != nil {
		return fmt.Errorf("clear active session: %w", err)
	}
	return nil
}
