package out

import (
	"context"
	"encoding/json"
	"fmt"

	"tabclock/internal/modules/session/domain"
	sessionout "tabclock/internal/modules/session/port/out"
	"tabclock/internal/platform/kv"
)

const (
	ArchiveKey     = "sessions"
	MaxSessionsKey = "max_sessions"
)

type KVArchiveStore struct {
	store kv.Store
}

func NewKVArchiveStore(store kv.Store) sessionout.ArchiveStore {
	return &KVArchiveStore{store: store}
}

func (s *KVArchiveStore) Prepend(ctx context.Context, session domain.Session, limit int) error {
	return s.rewrite(ctx, func(a domain.Archive) domain.Archive { return a.Prepend(session, limit) })
}

func (s *KVArchiveStore) Trim(ctx context.Context, limit int) error {
	return s.rewrite(ctx, func(a domain.Archive) domain.Archive { return a.Trim(limit) })
}

func (s *KVArchiveStore) Load(ctx context.Context) (domain.Archive, error) {
	archive := domain.Archive{}
	if _, err := kv.GetJSON(ctx, s.store, ArchiveKey, &archive); err != nil {
		return nil, err
	}
	if archive == nil {
		archive = domain.Archive{}
	}
	return archive, nil
}

func (s *KVArchiveStore) rewrite(ctx context.Context, fn func(domain.Archive) domain.Archive) error {
	return s.store.Update(ctx, ArchiveKey, func(current []byte) ([]byte, error) {
		archive := domain.Archive{}
		if len(current) > 0 {
			if err := json.Unmarshal(current, &archive); err != nil {
				return nil, fmt.Errorf("decode sessions: %w", err)
			}
		}
		payload, err := json.Marshal(fn(archive))
		if err != nil {
			return nil, fmt.Errorf("encode sessions: %w", err)
		}
		return payload, nil
	})
}

type KVSettingsStore struct {
	store kv.Store
}

func NewKVSettingsStore(store kv.Store) sessionout.SettingsStore {
	return &KVSettingsStore{store: store}
}

func (s *KVSettingsStore) LoadMaxSessions(ctx context.Context) (int, bool, error) {
	n := 0
	found, err := kv.GetJSON(ctx, s.store, MaxSessionsKey, &n)
	if err != nil {
		return 0, false, err
	}
	return n, found, nil
}

func (s *KVSettingsStore) SaveMaxSessions(ctx context.Context, n int) error {
	return kv.SetJSON(ctx, s.store, MaxSessionsKey, n)
}
