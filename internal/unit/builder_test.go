package unit

import (
	"testing"

	"github.com/ignite/liquidation-pipeline/internal/fees"
	"github.com/ignite/liquidation-pipeline/internal/tabular"
)

func newTestBuilder() *Builder {
	schedule := fees.NewSchedule()
	schedule.Reload([]fees.ScheduleRow{
		{Category: "Electronics", Program: "Standard", Price: 4.50},
	})
	return NewBuilder(schedule)
}

func TestEffectiveRetail(t *testing.T) {
	b := newTestBuilder()

	tests := []struct {
		name string
		row  tabular.Row
		want *float64
	}{
		{
			"min of both",
			tabular.Row{tabular.FieldUnitID: "1", tabular.FieldUPCRetail: "50", tabular.FieldCategoryAvgRetail: "40"},
			f(40),
		},
		{
			"upc only",
			tabular.Row{tabular.FieldUnitID: "1", tabular.FieldUPCRetail: "50"},
			f(50),
		},
		{
			"category average only",
			tabular.Row{tabular.FieldUnitID: "1", tabular.FieldCategoryAvgRetail: "40"},
			f(40),
		},
		{
			"neither",
			tabular.Row{tabular.FieldUnitID: "1"},
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := b.FromRow(tt.row)
			assertFloatPtr(t, "EffectiveRetail", rec.EffectiveRetail, tt.want)
		})
	}
}

func TestGrossSaleDefaultsToSalePrice(t *testing.T) {
	b := newTestBuilder()

	rec := b.FromRow(tabular.Row{tabular.FieldUnitID: "1", tabular.FieldSalePrice: "25.00"})
	assertFloatPtr(t, "GrossSale", rec.GrossSale, f(25))

	rec = b.FromRow(tabular.Row{
		tabular.FieldUnitID:    "1",
		tabular.FieldSalePrice: "25.00",
		tabular.FieldGrossSale: "27.50",
	})
	assertFloatPtr(t, "GrossSale explicit", rec.GrossSale, f(27.5))
}

func TestIsRefunded(t *testing.T) {
	b := newTestBuilder()

	rec := b.FromRow(tabular.Row{tabular.FieldUnitID: "1", tabular.FieldRefundAmount: "10.00"})
	if !rec.IsRefunded {
		t.Error("refund of 10.00 should set IsRefunded")
	}
	rec = b.FromRow(tabular.Row{tabular.FieldUnitID: "1", tabular.FieldRefundAmount: "0"})
	if rec.IsRefunded {
		t.Error("refund of 0 should not set IsRefunded")
	}
	rec = b.FromRow(tabular.Row{tabular.FieldUnitID: "1"})
	if rec.IsRefunded {
		t.Error("absent refund should not set IsRefunded")
	}
}

func TestTotalFeesSumsOnlyPresentComponents(t *testing.T) {
	b := newTestBuilder()

	rec := b.FromRow(tabular.Row{
		tabular.FieldUnitID:       "1",
		tabular.FieldPackagingFee: "2.00",
		tabular.FieldRefurbFee:    "3.50",
	})
	assertFloatPtr(t, "TotalFees", rec.TotalFees, f(5.5))

	rec = b.FromRow(tabular.Row{tabular.FieldUnitID: "1"})
	assertFloatPtr(t, "TotalFees all absent", rec.TotalFees, nil)
}

func TestCheckInFeeFallback(t *testing.T) {
	b := newTestBuilder()

	// No invoiced or calculated fee, category+program known -> schedule.
	rec := b.FromRow(tabular.Row{
		tabular.FieldUnitID:   "1",
		tabular.FieldCategory: "Electronics",
		tabular.FieldProgram:  "Standard",
	})
	assertFloatPtr(t, "fallback CheckInFee", rec.CheckInFee, f(4.5))
	assertFloatPtr(t, "fallback leaves invoiced nil", rec.InvoicedCheckInFee, nil)

	// Invoiced fee present: the fallback must not fire and must never
	// overwrite it.
	rec = b.FromRow(tabular.Row{
		tabular.FieldUnitID:             "1",
		tabular.FieldCategory:           "Electronics",
		tabular.FieldProgram:            "Standard",
		tabular.FieldInvoicedCheckInFee: "3.75",
	})
	assertFloatPtr(t, "invoiced kept", rec.InvoicedCheckInFee, f(3.75))
	assertFloatPtr(t, "no calculated fallback", rec.CheckInFee, nil)

	// Missing program: no fallback basis.
	rec = b.FromRow(tabular.Row{
		tabular.FieldUnitID:   "1",
		tabular.FieldCategory: "Electronics",
	})
	assertFloatPtr(t, "no program no fallback", rec.CheckInFee, nil)
}

func TestFiscalPlacementFromOrderClosedOnly(t *testing.T) {
	b := newTestBuilder()

	// Fiscal 2025 starts Saturday 2025-02-01.
	rec := b.FromRow(tabular.Row{
		tabular.FieldUnitID:          "1",
		tabular.FieldOrderClosedDate: "02/01/2025",
	})
	if rec.FiscalWeek == nil || *rec.FiscalWeek != 1 {
		t.Errorf("FiscalWeek = %v, want 1", rec.FiscalWeek)
	}
	if rec.FiscalDay == nil || *rec.FiscalDay != 1 {
		t.Errorf("FiscalDay = %v, want 1", rec.FiscalDay)
	}

	// Milestones other than order-closed do not place the unit fiscally.
	rec = b.FromRow(tabular.Row{
		tabular.FieldUnitID:       "1",
		tabular.FieldReceivedDate: "02/01/2025",
	})
	if rec.FiscalWeek != nil || rec.FiscalDay != nil {
		t.Errorf("fiscal placement without order close: week=%v day=%v", rec.FiscalWeek, rec.FiscalDay)
	}
}

func TestHasAnyFee(t *testing.T) {
	b := newTestBuilder()

	rec := b.FromRow(tabular.Row{tabular.FieldUnitID: "1"})
	if rec.HasAnyFee() {
		t.Error("record with no fees reports HasAnyFee")
	}
	rec = b.FromRow(tabular.Row{tabular.FieldUnitID: "1", tabular.FieldInvoicedShippingFee: "1.00"})
	if !rec.HasAnyFee() {
		t.Error("record with invoiced shipping fee should report HasAnyFee")
	}
}

func f(v float64) *float64 { return &v }

func assertFloatPtr(t *testing.T, label string, got, want *float64) {
	t.Helper()
	switch {
	case want == nil && got != nil:
		t.Errorf("%s = %v, want nil", label, *got)
	case want != nil && got == nil:
		t.Errorf("%s = nil, want %v", label, *want)
	case want != nil && got != nil && *got != *want:
		t.Errorf("%s = %v, want %v", label, *got, *want)
	}
}
