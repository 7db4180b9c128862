// Package store provides access to lender rate tables.
package store

import (
	"context"
	"sort"

	"github.com/dealcraft/dealcalc/pkg/rates"
)

// RateStore supplies lender rate sheets to the review aggregator.
type RateStore interface {
	// Lenders lists the known lender IDs.
	Lenders(ctx context.Context) ([]string, error)

	// RateTable returns every rate-sheet entry for one lender.
	RateTable(ctx context.Context, lenderID string) ([]rates.Entry, error)
}

// MemoryStore is a RateStore over an in-memory table, typically loaded from
// the deal configuration file.
type MemoryStore struct {
	byLender map[string][]rates.Entry
}

// NewMemoryStore groups the given entries by lender.
func NewMemoryStore(entries []rates.Entry) *MemoryStore {
	byLender := make(map[string][]rates.Entry)
	for _, entry := range entries {
		byLender[entry.LenderID] = append(byLender[entry.LenderID], entry)
	}
	return &MemoryStore{byLender: byLender}
}

// Lenders returns the lender IDs in stable order.
func (s *MemoryStore) Lenders(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.byLender))
	for id := range s.byLender {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// RateTable returns the entries for one lender; unknown lenders yield an
// empty table, not an error.
func (s *MemoryStore) RateTable(_ context.Context, lenderID string) ([]rates.Entry, error) {
	return s.byLender[lenderID], nil
}
