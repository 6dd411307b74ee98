package lifecycle

import (
	"testing"
	"time"

	"github.com/ignite/liquidation-pipeline/internal/unit"
)

func d(y int, m time.Month, day int) *time.Time {
	t := time.Date(y, m, day, 12, 0, 0, 0, time.Local)
	return &t
}

func TestCurrentStagePriority(t *testing.T) {
	tests := []struct {
		name string
		rec  unit.Record
		want Stage
	}{
		{"no milestones", unit.Record{UnitID: "1"}, StageNone},
		{"received only", unit.Record{ReceivedDate: d(2025, 2, 1)}, StageReceived},
		{"checked in beats received", unit.Record{ReceivedDate: d(2025, 2, 1), CheckedInDate: d(2025, 2, 2)}, StageCheckedIn},
		{"listed beats tested", unit.Record{TestedDate: d(2025, 2, 3), FirstListedDate: d(2025, 2, 4)}, StageListed},
		{"sold beats everything", unit.Record{
			ReceivedDate:    d(2025, 2, 1),
			CheckedInDate:   d(2025, 2, 2),
			TestedDate:      d(2025, 2, 3),
			FirstListedDate: d(2025, 2, 4),
			OrderClosedDate: d(2025, 2, 10),
		}, StageSold},
		// Priority is by stage, not by date recency: a later tested date
		// does not outrank a listing.
		{"priority not recency", unit.Record{TestedDate: d(2025, 3, 1), FirstListedDate: d(2025, 2, 4)}, StageListed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CurrentStage(&tt.rec); got != tt.want {
				t.Errorf("CurrentStage = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpandEventsCountMatchesPresentMilestones(t *testing.T) {
	rec := unit.Record{
		UnitID:          "12345",
		ReceivedDate:    d(2025, 2, 1),
		TestedDate:      d(2025, 2, 5),
		OrderClosedDate: d(2025, 2, 12),
	}
	events := ExpandEvents(&rec, *d(2025, 2, 14))

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for _, ev := range events {
		if ev.UnitID != "12345" {
			t.Errorf("event unit id = %q", ev.UnitID)
		}
		if !ev.BusinessDate.Equal(*d(2025, 2, 14)) {
			t.Errorf("event business date = %v", ev.BusinessDate)
		}
	}

	if ExpandEvents(&unit.Record{UnitID: "9"}, *d(2025, 2, 14)) != nil {
		t.Error("record without milestones should yield no events")
	}
}

func TestExpandEventsFiscalPlacementPerEventDate(t *testing.T) {
	// Fiscal 2025 starts Saturday 2025-02-01: received lands in week 1,
	// the closed order a week later in week 2.
	rec := unit.Record{
		UnitID:          "7",
		ReceivedDate:    d(2025, 2, 1),
		OrderClosedDate: d(2025, 2, 8),
	}
	events := ExpandEvents(&rec, *d(2025, 2, 10))

	byStage := map[Stage]Event{}
	for _, ev := range events {
		byStage[ev.Stage] = ev
	}

	if got := byStage[StageReceived].FiscalWeek; got != 1 {
		t.Errorf("received fiscal week = %d, want 1", got)
	}
	if got := byStage[StageSold].FiscalWeek; got != 2 {
		t.Errorf("sold fiscal week = %d, want 2", got)
	}
	if got := byStage[StageReceived].FiscalDay; got != 1 {
		t.Errorf("received fiscal day = %d, want 1 (Saturday)", got)
	}
}
