package in

import (
	"context"

	attentiondto "tabclock/internal/modules/attention/dto"
	attentionin "tabclock/internal/modules/attention/port/in"
)

type CLIHandler struct {
	usecase attentionin.Usecase
}

func NewCLIHandler(usecase attentionin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

// Report reads the ledger directly, without a running daemon.
func (h CLIHandler) Report(ctx context.Context, days int) (attentiondto.TimeDataOutput, error) {
	return h.usecase.TimeData(ctx, days)
}
