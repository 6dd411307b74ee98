// Package lifecycle derives a unit's current stage and expands its
// milestone dates into discrete events. This is a pure derivation: every
// run recomputes from whatever milestone dates the row carries, there is
// no persisted previous state to transition from.
package lifecycle

import (
	"time"

	"github.com/ignite/liquidation-pipeline/internal/fiscal"
	"github.com/ignite/liquidation-pipeline/internal/unit"
)

// Stage is a named lifecycle checkpoint. The zero value means the unit
// has no milestone dates at all.
type Stage string

const (
	StageNone      Stage = ""
	StageReceived  Stage = "Received"
	StageCheckedIn Stage = "CheckedIn"
	StageTested    Stage = "Tested"
	StageListed    Stage = "Listed"
	StageSold      Stage = "Sold"
)

// Event is one dated milestone for one unit in one run. Events are
// append-only: a unit re-received in a later file produces an additional
// Received event, it never replaces the earlier one.
type Event struct {
	UnitID       string
	Stage        Stage
	EventDate    time.Time
	BusinessDate time.Time // the file's declared business date
	FiscalWeek   int       // of the event date, not the file's
	FiscalDay    int
}

// milestone pairs a stage with its date accessor, ordered highest
// priority first: Sold > Listed > Tested > CheckedIn > Received.
type milestone struct {
	stage Stage
	date  func(*unit.Record) *time.Time
}

var milestones = []milestone{
	{StageSold, func(r *unit.Record) *time.Time { return r.OrderClosedDate }},
	{StageListed, func(r *unit.Record) *time.Time { return r.FirstListedDate }},
	{StageTested, func(r *unit.Record) *time.Time { return r.TestedDate }},
	{StageCheckedIn, func(r *unit.Record) *time.Time { return r.CheckedInDate }},
	{StageReceived, func(r *unit.Record) *time.Time { return r.ReceivedDate }},
}

// CurrentStage returns the highest-priority stage whose milestone date is
// present, or StageNone when the record has no milestone dates.
func CurrentStage(rec *unit.Record) Stage {
	for _, m := range milestones {
		if m.date(rec) != nil {
			return m.stage
		}
	}
	return StageNone
}

// ExpandEvents emits one event per present milestone date. Each event
// carries the fiscal week and day of its own date, computed here, not
// copied from the unit's order-closed placement.
func ExpandEvents(rec *unit.Record, businessDate time.Time) []Event {
	var events []Event
	for _, m := range milestones {
		d := m.date(rec)
		if d == nil {
			continue
		}
		events = append(events, Event{
			UnitID:       rec.UnitID,
			Stage:        m.stage,
			EventDate:    *d,
			BusinessDate: businessDate,
			FiscalWeek:   fiscal.WeekNumber(*d),
			FiscalDay:    fiscal.DayOfWeek(*d),
		})
	}
	return events
}
