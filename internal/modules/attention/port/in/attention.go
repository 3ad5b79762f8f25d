package in

import (
	"context"

	"tabclock/internal/modules/attention/dto"
)

// Usecase is not safe for concurrent use; a single owner must serialize calls.
type Usecase interface {
	TabActivated(ctx context.Context, input dto.TabActivatedInput) error
	TabUpdated(ctx context.Context, input dto.TabUpdatedInput) error
	TabRemoved(ctx context.Context, tabID string) error
	WindowFocusChanged(ctx context.Context, windowID string) error
	Tick(ctx context.Context) error
	Flush(ctx context.Context) error
	Bootstrap(ctx context.Context) error
	TimeData(ctx context.Context, days int) (dto.TimeDataOutput, error)
	State(ctx context.Context) dto.StateOutput
}
