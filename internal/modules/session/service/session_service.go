package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tabclock/internal/modules/session/domain"
	sessionout "tabclock/internal/modules/session/port/out"
	"tabclock/internal/platform/browser"
	"tabclock/internal/platform/clock"
	"tabclock/internal/platform/config"
	apperrors "tabclock/internal/platform/errors"
	"tabclock/internal/platform/id"
	"tabclock/internal/platform/logging"
)

type Stores struct {
	Active   sessionout.ActiveSessionStore
	Archive  sessionout.ArchiveStore
	Settings sessionout.SettingsStore
}

// SessionService owns the live session's tab map. It is not safe for
// concurrent use.
type SessionService struct {
	clock      clock.Clock
	idGen      id.Generator
	env        browser.Environment
	stores     Stores
	defaultMax int
	logger     *slog.Logger

	current *domain.Snapshot
}

func NewSessionService(clock clock.Clock, idGen id.Generator, env browser.Environment, stores Stores, defaultMax int, logger *slog.Logger) *SessionService {
	return &SessionService{
		clock:      clock,
		idGen:      idGen,
		env:        env,
		stores:     stores,
		defaultMax: config.ClampMaxSessions(defaultMax),
		logger:     logging.OrDiscard(logger),
	}
}

// Current returns a copy of the live session.
func (s *SessionService) Current() (domain.Snapshot, bool) {
	if s.current == nil {
		return domain.Snapshot{}, false
	}
	return s.current.Clone(), true
}

// Restore reloads the checkpointed session after a process restart.
func (s *SessionService) Restore(ctx context.Context) error {
	snapshot, err := s.stores.Active.LoadActive(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrNoActiveSession) {
			return nil
		}
		return err
	}
	s.current = &snapshot
	s.logger.Info("session restored", "session_id", snapshot.SessionID, "tabs", len(snapshot.SessionTabs))
	return nil
}

// Begin opens a new session seeded with every trackable open tab. A session
// still held in memory is finished first.
func (s *SessionService) Begin(ctx context.Context) (domain.Snapshot, error) {
	if s.current != nil {
		if _, _, err := s.Finish(ctx); err != nil {
			return domain.Snapshot{}, err
		}
	}
	now := s.clock.Now()
	snapshot := domain.NewSnapshot(s.idGen.New(), now)
	for _, tab := range browser.OpenTabs(ctx, s.env) {
		host := browser.DomainOf(tab.URL)
		if host == "" {
			continue
		}
		snapshot.Upsert(tab.ID, tab.URL, tab.Title, host, now)
	}
	s.current = snapshot
	s.logger.Info("session started", "session_id", snapshot.SessionID, "tabs", len(snapshot.SessionTabs))
	if err := s.checkpoint(ctx); err != nil {
		return domain.Snapshot{}, err
	}
	return snapshot.Clone(), nil
}

// TabUpserted records a created or navigated tab in the live session.
func (s *SessionService) TabUpserted(ctx context.Context, tabID, url, title string) error {
	if s.current == nil || tabID == "" {
		return nil
	}
	host := browser.DomainOf(url)
	if host == "" {
		return nil
	}
	s.current.Upsert(tabID, url, title, host, s.clock.Now())
	return s.checkpoint(ctx)
}

func (s *SessionService) TabClosed(ctx context.Context, tabID string) error {
	if s.current == nil {
		return nil
	}
	if !s.current.Close(tabID, s.clock.Now()) {
		return nil
	}
	return s.checkpoint(ctx)
}

// Finish archives the live session, falling back to the checkpoint when
// memory is empty. It reports false when there was nothing to archive.
// A failed archive write keeps the session so a later call can retry.
func (s *SessionService) Finish(ctx context.Context) (domain.Session, bool, error) {
	if s.current == nil {
		if err := s.Restore(ctx); err != nil {
			return domain.Session{}, false, err
		}
		if s.current == nil {
			return domain.Session{}, false, nil
		}
	}
	session := s.current.Seal(s.clock.Now())
	limit, err := s.MaxSessions(ctx)
	if err != nil {
		return domain.Session{}, false, err
	}
	if err := s.stores.Archive.Prepend(ctx, session, limit); err != nil {
		return domain.Session{}, false, fmt.Errorf("archive session %s: %w", session.ID, err)
	}
	s.current = nil
	s.logger.Info("session archived", "session_id", session.ID, "tab_count", session.TabCount)
	if err := s.stores.Active.ClearActive(ctx); err != nil {
		return session, true, err
	}
	return session, true, nil
}

// Startup closes whatever session the previous run left behind and opens a
// fresh one.
func (s *SessionService) Startup(ctx context.Context) (domain.Snapshot, error) {
	if _, _, err := s.Finish(ctx); err != nil {
		s.logger.Warn("finish previous session", "error", err)
	}
	return s.Begin(ctx)
}

// Sessions returns the archive, most recent first, bounded by the current
// maximum.
func (s *SessionService) Sessions(ctx context.Context) (domain.Archive, int, error) {
	limit, err := s.MaxSessions(ctx)
	if err != nil {
		return nil, 0, err
	}
	archive, err := s.stores.Archive.Load(ctx)
	if err != nil {
		return nil, 0, err
	}
	return archive.Trim(limit), limit, nil
}

// MaxSessions is the persisted bound, or the configured default when none
// was ever set.
func (s *SessionService) MaxSessions(ctx context.Context) (int, error) {
	if s.stores.Settings == nil {
		return s.defaultMax, nil
	}
	n, ok, err := s.stores.Settings.LoadMaxSessions(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return s.defaultMax, nil
	}
	return config.ClampMaxSessions(n), nil
}

// SetMaxSessions clamps n, persists it and trims the archive immediately.
func (s *SessionService) SetMaxSessions(ctx context.Context, n int) (int, error) {
	n = config.ClampMaxSessions(n)
	if s.stores.Settings != nil {
		if err := s.stores.Settings.SaveMaxSessions(ctx, n); err != nil {
			return 0, err
		}
	}
	if err := s.stores.Archive.Trim(ctx, n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SessionService) checkpoint(ctx context.Context) error {
	if err := s.stores.Active.SaveActive(ctx, s.current.Clone()); err != nil {
		return fmt.Errorf("checkpoint session %s: %w", s.current.SessionID, err)
	}
	return nil
}
