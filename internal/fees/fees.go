// Package fees holds the negotiated base service fee schedule, keyed by
// category and program. The schedule is read-mostly process-wide state:
// lookups are lock-free, and a bulk reload replaces the whole table
// atomically so readers never observe a partial table.
package fees

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

// ScheduleRow is one row of the external fee-schedule source.
type ScheduleRow struct {
	Category      string
	Program       string
	BasePriceType string
	Key           string // composite key as exported; recomputed when blank
	Price         float64
}

// Source reads fee-schedule rows for bootstrapping, typically the backing
// datastore's fee table.
type Source interface {
	FeeScheduleRows(ctx context.Context) ([]ScheduleRow, error)
}

// Schedule is an injectable fee lookup. Construct once with NewSchedule,
// hand references to whoever needs lookups, and Reload when the full
// table arrives.
type Schedule struct {
	table atomic.Pointer[map[string]float64]
}

// defaultFees is the small built-in seed set used until a bulk load
// replaces it.
var defaultFees = map[string]float64{
	key("Electronics", "Standard"):    4.50,
	key("Electronics", "Premium"):     6.00,
	key("Home Goods", "Standard"):     3.25,
	key("Apparel", "Standard"):        2.00,
	key("Major Appliance", "Freight"): 12.50,
}

// NewSchedule returns a schedule seeded with the built-in defaults.
func NewSchedule() *Schedule {
	s := &Schedule{}
	seed := make(map[string]float64, len(defaultFees))
	for k, v := range defaultFees {
		seed[k] = v
	}
	s.table.Store(&seed)
	return s
}

// BaseFee returns the negotiated base check-in fee for a category and
// program. A miss is "no fee", zero, never an error.
func (s *Schedule) BaseFee(category, program string) float64 {
	return (*s.table.Load())[key(category, program)]
}

// Len reports the number of loaded fee entries.
func (s *Schedule) Len() int {
	return len(*s.table.Load())
}

// Reload replaces the whole table with the given rows. The swap is
// atomic from a reader's perspective; the old table serves lookups until
// the new one is fully built.
func (s *Schedule) Reload(rows []ScheduleRow) {
	next := make(map[string]float64, len(rows))
	for _, row := range rows {
		k := row.Key
		if k == "" {
			k = key(row.Category, row.Program)
		} else {
			k = normalize(k)
		}
		next[k] = row.Price
	}
	s.table.Store(&next)
}

// LoadFrom bootstraps the schedule from an external source, replacing
// the current table wholesale.
func (s *Schedule) LoadFrom(ctx context.Context, src Source) error {
	rows, err := src.FeeScheduleRows(ctx)
	if err != nil {
		return fmt.Errorf("load fee schedule: %w", err)
	}
	s.Reload(rows)
	return nil
}

func key(category, program string) string {
	return normalize(category + "|" + program)
}

func normalize(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}
