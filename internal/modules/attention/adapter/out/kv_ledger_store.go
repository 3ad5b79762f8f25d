package out

import (
	"context"
	"encoding/json"
	"fmt"

	"tabclock/internal/modules/attention/domain"
	attentionout "tabclock/internal/modules/attention/port/out"
	"tabclock/internal/platform/kv"
)

// LedgerKey holds the whole ledger as one JSON document.
const LedgerKey = "time_data"

type KVLedgerStore struct {
	store kv.Store
}

func NewKVLedgerStore(store kv.Store) attentionout.LedgerStore {
	return &KVLedgerStore{store: store}
}

func (s *KVLedgerStore) Add(ctx context.Context, credit domain.Credit) error {
	return s.store.Update(ctx, LedgerKey, func(current []byte) ([]byte, error) {
		ledger, err := decodeLedger(current)
		if err != nil {
			return nil, err
		}
		ledger.Add(credit)
		payload, err := json.Marshal(ledger)
		if err != nil {
			return nil, fmt.Errorf("encode ledger: %w", err)
		}
		return payload, nil
	})
}

func (s *KVLedgerStore) Load(ctx context.Context) (domain.Ledger, error) {
	ledger := domain.Ledger{}
	if _, err := kv.GetJSON(ctx, s.store, LedgerKey, &ledger); err != nil {
		return nil, err
	}
	if ledger == nil {
		ledger = domain.Ledger{}
	}
	return ledger, nil
}

func decodeLedger(raw []byte) (domain.Ledger, error) {
	ledger := domain.Ledger{}
	if len(raw) == 0 {
		return ledger, nil
	}
	if err := json.Unmarshal(raw, &ledger); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	if ledger == nil {
		ledger = domain.Ledger{}
	}
	return ledger, nil
}
