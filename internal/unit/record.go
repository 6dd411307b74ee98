// Package unit builds the canonical per-unit record from one resolved
// extract row. Records are immutable once built; a later ingestion run
// for the same unit supersedes the earlier record, it never merges.
package unit

import "time"

// Record is the canonical in-memory representation of one liquidation
// unit. Nullable attributes are pointers: nil means the source file did
// not carry the column or the cell was blank/unparseable.
type Record struct {
	UnitID string

	Program       string
	MasterProgram string
	Category      string
	Title         string
	ProductStatus string
	Marketplace   string

	UPCRetail         *float64
	CategoryAvgRetail *float64
	EffectiveRetail   *float64
	SalePrice         *float64
	Discount          *float64
	GrossSale         *float64
	RefundAmount      *float64
	IsRefunded        bool

	// Calculated fee components. Absent components contribute nothing to
	// TotalFees, not zero-as-present.
	CheckInFee      *float64
	PackagingFee    *float64
	PickPackShipFee *float64
	RefurbFee       *float64
	MarketplaceFee  *float64
	TotalFees       *float64

	// Invoiced fee components.
	InvoicedCheckInFee   *float64
	InvoicedOverboxFee   *float64
	InvoicedPPSFee       *float64
	InvoicedShippingFee  *float64
	InvoicedMerchantFee  *float64
	InvoicedThreePMPFee  *float64
	InvoicedRevshareFee  *float64
	InvoicedMarketingFee *float64
	InvoicedRefundFee    *float64

	// Milestone dates, all pinned to local noon.
	ReceivedDate    *time.Time
	CheckedInDate   *time.Time
	TestedDate      *time.Time
	FirstListedDate *time.Time
	OrderClosedDate *time.Time

	// Fiscal placement of the closed order; nil until the unit sells.
	FiscalWeek *int
	FiscalDay  *int
}

// CalculatedFees returns the calculated fee components in a fixed order.
func (r *Record) CalculatedFees() []*float64 {
	return []*float64{r.CheckInFee, r.PackagingFee, r.PickPackShipFee, r.RefurbFee, r.MarketplaceFee}
}

// InvoicedFees returns the invoiced fee components in a fixed order.
func (r *Record) InvoicedFees() []*float64 {
	return []*float64{
		r.InvoicedCheckInFee, r.InvoicedOverboxFee, r.InvoicedPPSFee,
		r.InvoicedShippingFee, r.InvoicedMerchantFee, r.InvoicedThreePMPFee,
		r.InvoicedRevshareFee, r.InvoicedMarketingFee, r.InvoicedRefundFee,
	}
}

// HasAnyFee reports whether any fee component, calculated or invoiced,
// is present.
func (r *Record) HasAnyFee() bool {
	for _, f := range r.CalculatedFees() {
		if f != nil {
			return true
		}
	}
	for _, f := range r.InvoicedFees() {
		if f != nil {
			return true
		}
	}
	return false
}
