// Package store is the pipeline's client of the backing datastore. The
// contract is deliberately narrow: upsert by natural key for the three
// keyed stores, plain append for the event log, and row reads for
// lookup-table bootstrapping. The store's query/aggregation surface for
// reporting is not defined here.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/liquidation-pipeline/internal/fees"
	"github.com/ignite/liquidation-pipeline/internal/lifecycle"
	"github.com/ignite/liquidation-pipeline/internal/unit"
)

// FileRun records one ingestion invocation. Created at the start of a
// run, updated exactly once at the end; never touched mid-run.
type FileRun struct {
	ID           uuid.UUID
	FileName     string
	Category     string
	BusinessDate time.Time
	RowCount     int
	Processed    bool
	CreatedAt    time.Time
	ProcessedAt  *time.Time
}

// SalesMetric is the sales reporting row derived 1:1 from a sold unit.
// Upserted by unit ID: a later run's row replaces the earlier one, since
// corrections and re-uploads are expected.
type SalesMetric struct {
	UnitID          string
	Program         string
	MasterProgram   string
	Category        string
	Marketplace     string
	FiscalWeek      int
	FiscalDay       int
	OrderClosedDate time.Time
	SalePrice       *float64
	Discount        *float64
	GrossSale       *float64
	RefundAmount    *float64
	IsRefunded      bool
	EffectiveRetail *float64
	TotalFees       *float64
}

// NewSalesMetric derives the sales row for a unit, or nil when the unit
// has no closed order.
func NewSalesMetric(rec *unit.Record) *SalesMetric {
	if rec.OrderClosedDate == nil {
		return nil
	}
	m := &SalesMetric{
		UnitID:          rec.UnitID,
		Program:         rec.Program,
		MasterProgram:   rec.MasterProgram,
		Category:        rec.Category,
		Marketplace:     rec.Marketplace,
		OrderClosedDate: *rec.OrderClosedDate,
		SalePrice:       rec.SalePrice,
		Discount:        rec.Discount,
		GrossSale:       rec.GrossSale,
		RefundAmount:    rec.RefundAmount,
		IsRefunded:      rec.IsRefunded,
		EffectiveRetail: rec.EffectiveRetail,
		TotalFees:       rec.TotalFees,
	}
	if rec.FiscalWeek != nil {
		m.FiscalWeek = *rec.FiscalWeek
	}
	if rec.FiscalDay != nil {
		m.FiscalDay = *rec.FiscalDay
	}
	return m
}

// FeeMetric is the fee reporting row for a unit with at least one fee
// component present. Same upsert-by-unit-ID replace semantics as sales.
type FeeMetric struct {
	UnitID        string
	Program       string
	MasterProgram string
	Category      string
	Marketplace   string

	CheckInFee      *float64
	PackagingFee    *float64
	PickPackShipFee *float64
	RefurbFee       *float64
	MarketplaceFee  *float64
	TotalFees       *float64

	InvoicedCheckInFee   *float64
	InvoicedOverboxFee   *float64
	InvoicedPPSFee       *float64
	InvoicedShippingFee  *float64
	InvoicedMerchantFee  *float64
	InvoicedThreePMPFee  *float64
	InvoicedRevshareFee  *float64
	InvoicedMarketingFee *float64
	InvoicedRefundFee    *float64
}

// NewFeeMetric derives the fee row for a unit, or nil when no fee
// component is present at all.
func NewFeeMetric(rec *unit.Record) *FeeMetric {
	if !rec.HasAnyFee() {
		return nil
	}
	return &FeeMetric{
		UnitID:        rec.UnitID,
		Program:       rec.Program,
		MasterProgram: rec.MasterProgram,
		Category:      rec.Category,
		Marketplace:   rec.Marketplace,

		CheckInFee:      rec.CheckInFee,
		PackagingFee:    rec.PackagingFee,
		PickPackShipFee: rec.PickPackShipFee,
		RefurbFee:       rec.RefurbFee,
		MarketplaceFee:  rec.MarketplaceFee,
		TotalFees:       rec.TotalFees,

		InvoicedCheckInFee:   rec.InvoicedCheckInFee,
		InvoicedOverboxFee:   rec.InvoicedOverboxFee,
		InvoicedPPSFee:       rec.InvoicedPPSFee,
		InvoicedShippingFee:  rec.InvoicedShippingFee,
		InvoicedMerchantFee:  rec.InvoicedMerchantFee,
		InvoicedThreePMPFee:  rec.InvoicedThreePMPFee,
		InvoicedRevshareFee:  rec.InvoicedRevshareFee,
		InvoicedMarketingFee: rec.InvoicedMarketingFee,
		InvoicedRefundFee:    rec.InvoicedRefundFee,
	}
}

// Store is the persistence contract the orchestrator drives. Upserts are
// last-write-wins full-row replaces on the natural key; AppendEvents is
// pure append with no key at all.
type Store interface {
	CreateFileRun(ctx context.Context, run *FileRun) error
	MarkFileRunProcessed(ctx context.Context, id uuid.UUID, rowCount int) error
	ListFileRuns(ctx context.Context, limit int) ([]FileRun, error)

	UpsertUnits(ctx context.Context, recs []*unit.Record) error
	AppendEvents(ctx context.Context, events []lifecycle.Event) error
	UpsertSalesMetrics(ctx context.Context, metrics []*SalesMetric) error
	UpsertFeeMetrics(ctx context.Context, metrics []*FeeMetric) error

	FeeScheduleRows(ctx context.Context) ([]fees.ScheduleRow, error)
}
