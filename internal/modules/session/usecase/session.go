package usecase

import (
	"context"

	"tabclock/internal/modules/session/domain"
	sessiondto "tabclock/internal/modules/session/dto"
	sessionin "tabclock/internal/modules/session/port/in"
	"tabclock/internal/modules/session/service"
)

type Interactor struct {
	svc *service.SessionService
}

func NewInteractor(svc *service.SessionService) sessionin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Restore(ctx context.Context) error {
	return i.svc.Restore(ctx)
}

func (i *Interactor) Begin(ctx context.Context) (sessiondto.CurrentSessionOutput, error) {
	snapshot, err := i.svc.Begin(ctx)
	if err != nil {
		return sessiondto.CurrentSessionOutput{}, err
	}
	return currentOutput(snapshot), nil
}

func (i *Interactor) Startup(ctx context.Context) (sessiondto.CurrentSessionOutput, error) {
	snapshot, err := i.svc.Startup(ctx)
	if err != nil {
		return sessiondto.CurrentSessionOutput{}, err
	}
	return currentOutput(snapshot), nil
}

func (i *Interactor) TabUpserted(ctx context.Context, input sessiondto.TabUpsertInput) error {
	return i.svc.TabUpserted(ctx, input.TabID, input.URL, input.Title)
}

func (i *Interactor) TabClosed(ctx context.Context, tabID string) error {
	return i.svc.TabClosed(ctx, tabID)
}

func (i *Interactor) Finish(ctx context.Context) (sessiondto.FinishOutput, error) {
	session, archived, err := i.svc.Finish(ctx)
	if !archived {
		return sessiondto.FinishOutput{}, err
	}
	out := sessionOutput(session)
	return sessiondto.FinishOutput{Archived: true, Session: &out}, err
}

func (i *Interactor) Sessions(ctx context.Context) (sessiondto.SessionsOutput, error) {
	archive, limit, err := i.svc.Sessions(ctx)
	if err != nil {
		return sessiondto.SessionsOutput{}, err
	}
	out := sessiondto.SessionsOutput{MaxSessions: limit, Sessions: make([]sessiondto.SessionOutput, 0, len(archive))}
	for _, session := range archive {
		out.Sessions = append(out.Sessions, sessionOutput(session))
	}
	if snapshot, ok := i.svc.Current(); ok {
		current := currentOutput(snapshot)
		out.Current = &current
	}
	return out, nil
}

func (i *Interactor) SetMaxSessions(ctx context.Context, n int) (int, error) {
	return i.svc.SetMaxSessions(ctx, n)
}

func currentOutput(snapshot domain.Snapshot) sessiondto.CurrentSessionOutput {
	entries := snapshot.Entries()
	out := sessiondto.CurrentSessionOutput{
		ID:    snapshot.SessionID,
		Start: snapshot.SessionStart,
		Tabs:  make([]sessiondto.TabRecordOutput, 0, len(entries)),
	}
	for _, e := range entries {
		rec := recordOutput(e.TabRecord)
		rec.TabID = e.TabID
		out.Tabs = append(out.Tabs, rec)
	}
	return out
}

func sessionOutput(session domain.Session) sessiondto.SessionOutput {
	out := sessiondto.SessionOutput{
		ID:       session.ID,
		Start:    session.Start,
		End:      session.End,
		TabCount: session.TabCount,
		Tabs:     make([]sessiondto.TabRecordOutput, 0, len(session.Tabs)),
	}
	for _, rec := range session.Tabs {
		out.Tabs = append(out.Tabs, recordOutput(rec))
	}
	return out
}

func recordOutput(rec domain.TabRecord) sessiondto.TabRecordOutput {
	out := sessiondto.TabRecordOutput{
		URL:    rec.URL,
		Title:  rec.Title,
		Domain: rec.Domain,
		Opened: rec.Opened,
		Closed: rec.Closed,
	}
	if d, ok := rec.OpenDuration(); ok {
		out.OpenMs = d.Milliseconds()
	}
	return out
}
