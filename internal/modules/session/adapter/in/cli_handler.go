package in

import (
	"context"

	sessiondto "tabclock/internal/modules/session/dto"
	sessionin "tabclock/internal/modules/session/port/in"
)

type CLIHandler struct {
	usecase sessionin.Usecase
}

func NewCLIHandler(usecase sessionin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

// Sessions reads the archive and checkpoint directly, without a running
// daemon.
func (h CLIHandler) Sessions(ctx context.Context) (sessiondto.SessionsOutput, error) {
	if err := h.usecase.Restore(ctx); err != nil {
		return sessiondto.SessionsOutput{}, err
	}
	return h.usecase.Sessions(ctx)
}
