package in

import (
	"context"

	"tabclock/internal/modules/session/dto"
)

// Usecase is not safe for concurrent use; a single owner must serialize calls.
type Usecase interface {
	Restore(ctx context.Context) error
	Begin(ctx context.Context) (dto.CurrentSessionOutput, error)
	Startup(ctx context.Context) (dto.CurrentSessionOutput, error)
	TabUpserted(ctx context.Context, input dto.TabUpsertInput) error
	TabClosed(ctx context.Context, tabID string) error
	Finish(ctx context.Context) (dto.FinishOutput, error)
	Sessions(ctx context.Context) (dto.SessionsOutput, error)
	SetMaxSessions(ctx context.Context, n int) (int, error)
}
