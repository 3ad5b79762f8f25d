package out

import (
	"context"

	"tabclock/internal/modules/session/domain"
)

// ActiveSessionStore checkpoints the in-flight session. LoadActive returns
// apperrors.ErrNoActiveSession when nothing is stored.
type ActiveSessionStore interface {
	SaveActive(ctx context.Context, snapshot domain.Snapshot) error
	LoadActive(ctx context.Context) (domain.Snapshot, error)
	ClearActive(ctx context.Context) error
}

type ArchiveStore interface {
	Prepend(ctx context.Context, session domain.Session, limit int) error
	Trim(ctx context.Context, limit int) error
	Load(ctx context.Context) (domain.Archive, error)
}

type SettingsStore interface {
	// LoadMaxSessions reports false when no bound was ever set.
	LoadMaxSessions(ctx context.Context) (int, bool, error)
	SaveMaxSessions(ctx context.Context, n int) error
}
