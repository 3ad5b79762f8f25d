package out

import (
	"context"

	"tabclock/internal/modules/attention/domain"
)

type LedgerStore interface {
	// Add merges one credit into the durable ledger as a single atomic
	// read-modify-write.
	Add(ctx context.Context, credit domain.Credit) error
	Load(ctx context.Context) (domain.Ledger, error)
}
