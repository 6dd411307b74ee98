package unit

import (
	"github.com/ignite/liquidation-pipeline/internal/fees"
	"github.com/ignite/liquidation-pipeline/internal/fiscal"
	"github.com/ignite/liquidation-pipeline/internal/tabular"
)

// Builder turns resolved extract rows into canonical records. The fee
// schedule supplies a base check-in fee when the extract carries no
// invoiced one.
type Builder struct {
	Fees *fees.Schedule
}

// NewBuilder creates a builder backed by the given fee schedule.
func NewBuilder(schedule *fees.Schedule) *Builder {
	return &Builder{Fees: schedule}
}

// FromRow builds one Record from a resolved row. The caller guarantees
// the row carries a unit identifier; everything else is optional.
func (b *Builder) FromRow(row tabular.Row) *Record {
	rec := &Record{
		UnitID:        row.Get(tabular.FieldUnitID),
		Program:       row.Get(tabular.FieldProgram),
		MasterProgram: row.Get(tabular.FieldMasterProgram),
		Category:      row.Get(tabular.FieldCategory),
		Title:         row.Get(tabular.FieldTitle),
		ProductStatus: row.Get(tabular.FieldProductStatus),
		Marketplace:   row.Get(tabular.FieldMarketplace),

		UPCRetail:         tabular.ParseMoney(row.Get(tabular.FieldUPCRetail)),
		CategoryAvgRetail: tabular.ParseMoney(row.Get(tabular.FieldCategoryAvgRetail)),
		SalePrice:         tabular.ParseMoney(row.Get(tabular.FieldSalePrice)),
		Discount:          tabular.ParseMoney(row.Get(tabular.FieldDiscount)),
		GrossSale:         tabular.ParseMoney(row.Get(tabular.FieldGrossSale)),
		RefundAmount:      tabular.ParseMoney(row.Get(tabular.FieldRefundAmount)),

		CheckInFee:      tabular.ParseMoney(row.Get(tabular.FieldCheckInFee)),
		PackagingFee:    tabular.ParseMoney(row.Get(tabular.FieldPackagingFee)),
		PickPackShipFee: tabular.ParseMoney(row.Get(tabular.FieldPickPackShipFee)),
		RefurbFee:       tabular.ParseMoney(row.Get(tabular.FieldRefurbFee)),
		MarketplaceFee:  tabular.ParseMoney(row.Get(tabular.FieldMarketplaceFee)),

		InvoicedCheckInFee:   tabular.ParseMoney(row.Get(tabular.FieldInvoicedCheckInFee)),
		InvoicedOverboxFee:   tabular.ParseMoney(row.Get(tabular.FieldInvoicedOverboxFee)),
		InvoicedPPSFee:       tabular.ParseMoney(row.Get(tabular.FieldInvoicedPPSFee)),
		InvoicedShippingFee:  tabular.ParseMoney(row.Get(tabular.FieldInvoicedShippingFee)),
		InvoicedMerchantFee:  tabular.ParseMoney(row.Get(tabular.FieldInvoicedMerchantFee)),
		InvoicedThreePMPFee:  tabular.ParseMoney(row.Get(tabular.FieldInvoicedThreePMPFee)),
		InvoicedRevshareFee:  tabular.ParseMoney(row.Get(tabular.FieldInvoicedRevshareFee)),
		InvoicedMarketingFee: tabular.ParseMoney(row.Get(tabular.FieldInvoicedMarketingFee)),
		InvoicedRefundFee:    tabular.ParseMoney(row.Get(tabular.FieldInvoicedRefundFee)),

		ReceivedDate:    tabular.ParseDate(row.Get(tabular.FieldReceivedDate)),
		CheckedInDate:   tabular.ParseDate(row.Get(tabular.FieldCheckedInDate)),
		TestedDate:      tabular.ParseDate(row.Get(tabular.FieldTestedDate)),
		FirstListedDate: tabular.ParseDate(row.Get(tabular.FieldFirstListedDate)),
		OrderClosedDate: tabular.ParseDate(row.Get(tabular.FieldOrderClosedDate)),
	}

	rec.EffectiveRetail = effectiveRetail(rec.UPCRetail, rec.CategoryAvgRetail)

	if rec.GrossSale == nil && rec.SalePrice != nil {
		v := *rec.SalePrice
		rec.GrossSale = &v
	}

	rec.IsRefunded = rec.RefundAmount != nil && *rec.RefundAmount > 0

	// The fee-schedule fallback is advisory: it fills the calculated
	// check-in fee, it never touches the invoiced one.
	if rec.InvoicedCheckInFee == nil && rec.CheckInFee == nil &&
		rec.Category != "" && rec.Program != "" && b.Fees != nil {
		if base := b.Fees.BaseFee(rec.Category, rec.Program); base > 0 {
			rec.CheckInFee = &base
		}
	}

	rec.TotalFees = sumPresent(rec.CalculatedFees())

	// Fiscal placement comes from the order-closed date only. Other
	// milestones get their own fiscal week/day per lifecycle event, not
	// copied from here.
	if rec.OrderClosedDate != nil {
		week := fiscal.WeekNumber(*rec.OrderClosedDate)
		day := fiscal.DayOfWeek(*rec.OrderClosedDate)
		rec.FiscalWeek = &week
		rec.FiscalDay = &day
	}

	return rec
}

// effectiveRetail is min(upc, categoryAvg) when both are present, the
// present one when only one is, nil when neither is.
func effectiveRetail(upc, categoryAvg *float64) *float64 {
	switch {
	case upc != nil && categoryAvg != nil:
		v := *upc
		if *categoryAvg < v {
			v = *categoryAvg
		}
		return &v
	case upc != nil:
		v := *upc
		return &v
	case categoryAvg != nil:
		v := *categoryAvg
		return &v
	default:
		return nil
	}
}

// sumPresent sums only the components that are present; all-absent
// yields nil, not zero.
func sumPresent(components []*float64) *float64 {
	var sum float64
	any := false
	for _, c := range components {
		if c != nil {
			sum += *c
			any = true
		}
	}
	if !any {
		return nil
	}
	return &sum
}
