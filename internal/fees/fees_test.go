package fees

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestBaseFeeDefaults(t *testing.T) {
	s := NewSchedule()

	if got := s.BaseFee("Electronics", "Standard"); got != 4.50 {
		t.Errorf("BaseFee(Electronics, Standard) = %v, want 4.50", got)
	}
	// Lookup is case-insensitive.
	if got := s.BaseFee("electronics", "standard"); got != 4.50 {
		t.Errorf("case-folded lookup = %v, want 4.50", got)
	}
	// A miss is zero, not an error.
	if got := s.BaseFee("Nonexistent", "Nope"); got != 0 {
		t.Errorf("miss = %v, want 0", got)
	}
}

func TestReloadReplacesWholesale(t *testing.T) {
	s := NewSchedule()
	s.Reload([]ScheduleRow{
		{Category: "Electronics", Program: "Standard", Price: 9.99},
	})

	if got := s.BaseFee("Electronics", "Standard"); got != 9.99 {
		t.Errorf("reloaded fee = %v, want 9.99", got)
	}
	// Defaults not present in the reload are gone: replace, not merge.
	if got := s.BaseFee("Apparel", "Standard"); got != 0 {
		t.Errorf("stale default survived reload: %v", got)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestReloadUsesExportedKeyWhenPresent(t *testing.T) {
	s := NewSchedule()
	s.Reload([]ScheduleRow{
		{Key: "Toys|Clearance", Price: 1.25},
	})
	if got := s.BaseFee("Toys", "Clearance"); got != 1.25 {
		t.Errorf("fee via exported key = %v, want 1.25", got)
	}
}

type stubSource struct {
	rows []ScheduleRow
	err  error
}

func (s stubSource) FeeScheduleRows(context.Context) ([]ScheduleRow, error) {
	return s.rows, s.err
}

func TestLoadFrom(t *testing.T) {
	s := NewSchedule()
	err := s.LoadFrom(context.Background(), stubSource{rows: []ScheduleRow{
		{Category: "Home Goods", Program: "Standard", Price: 5.55},
	}})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if got := s.BaseFee("Home Goods", "Standard"); got != 5.55 {
		t.Errorf("fee = %v, want 5.55", got)
	}

	wantErr := errors.New("boom")
	if err := s.LoadFrom(context.Background(), stubSource{err: wantErr}); !errors.Is(err, wantErr) {
		t.Errorf("LoadFrom error = %v, want wrapped boom", err)
	}
	// A failed load leaves the previous table intact.
	if got := s.BaseFee("Home Goods", "Standard"); got != 5.55 {
		t.Errorf("fee after failed load = %v, want 5.55", got)
	}
}

func TestConcurrentLookupDuringReload(t *testing.T) {
	s := NewSchedule()
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				// Must always see a complete table: either the old fee or
				// the new one, never a partially built map.
				got := s.BaseFee("Electronics", "Standard")
				if got != 4.50 && got != 7.00 {
					t.Errorf("observed partial table: %v", got)
					return
				}
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		s.Reload([]ScheduleRow{{Category: "Electronics", Program: "Standard", Price: 7.00}})
	}
	close(stop)
	wg.Wait()
}
