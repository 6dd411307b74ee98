package tabular

import "strings"

// Field is a logical column name used across all extract eras. Raw files
// spell these many different ways; resolution happens against the
// candidate lists below, never against literal headers.
type Field string

const (
	FieldUnitID        Field = "unit_id"
	FieldProgram       Field = "program"
	FieldMasterProgram Field = "master_program"
	FieldCategory      Field = "category"
	FieldTitle         Field = "title"
	FieldProductStatus Field = "product_status"
	FieldMarketplace   Field = "marketplace"

	FieldUPCRetail         Field = "upc_retail"
	FieldCategoryAvgRetail Field = "category_avg_retail"
	FieldSalePrice         Field = "sale_price"
	FieldDiscount          Field = "discount"
	FieldGrossSale         Field = "gross_sale"
	FieldRefundAmount      Field = "refund_amount"

	// Calculated fee components.
	FieldCheckInFee      Field = "check_in_fee"
	FieldPackagingFee    Field = "packaging_fee"
	FieldPickPackShipFee Field = "pick_pack_ship_fee"
	FieldRefurbFee       Field = "refurb_fee"
	FieldMarketplaceFee  Field = "marketplace_fee"

	// Invoiced fee components.
	FieldInvoicedCheckInFee   Field = "invoiced_check_in_fee"
	FieldInvoicedOverboxFee   Field = "invoiced_overbox_fee"
	FieldInvoicedPPSFee       Field = "invoiced_pps_fee"
	FieldInvoicedShippingFee  Field = "invoiced_shipping_fee"
	FieldInvoicedMerchantFee  Field = "invoiced_merchant_fee"
	FieldInvoicedThreePMPFee  Field = "invoiced_3pmp_fee"
	FieldInvoicedRevshareFee  Field = "invoiced_revshare_fee"
	FieldInvoicedMarketingFee Field = "invoiced_marketing_fee"
	FieldInvoicedRefundFee    Field = "invoiced_refund_fee"

	// Milestone dates.
	FieldReceivedDate    Field = "received_date"
	FieldCheckedInDate   Field = "checked_in_date"
	FieldTestedDate      Field = "tested_date"
	FieldFirstListedDate Field = "first_listed_date"
	FieldOrderClosedDate Field = "order_closed_date"
)

// fieldCandidates lists acceptable literal header spellings per logical
// field, highest priority first. The spellings drifted across extract
// eras without a documented rationale, so treat the order here as
// configuration: newest era first, then legacy variants.
var fieldCandidates = map[Field][]string{
	FieldUnitID:        {"Unit_ID", "UnitId", "Unit ID", "Unit Number", "UnitNumber", "Item_ID", "Item ID"},
	FieldProgram:       {"Program_Name", "Program Name", "Program"},
	FieldMasterProgram: {"Master_Program_Name", "Master Program Name", "Master_Program", "MasterProgram"},
	FieldCategory:      {"Category_Name", "Category Name", "Category"},
	FieldTitle:         {"Title", "Item_Title", "Product_Title", "Description"},
	FieldProductStatus: {"Product_Status", "Product Status", "Status"},
	FieldMarketplace:   {"Marketplace", "Sales_Channel", "Channel"},

	FieldUPCRetail:         {"UPC_Retail", "UPC Retail", "Retail_Price", "Retail Price", "Retail"},
	FieldCategoryAvgRetail: {"Category_Average_Retail", "Category Average Retail", "Cat_Avg_Retail", "Category_Avg_Retail"},
	FieldSalePrice:         {"Sale_Price", "Sale Price", "Sold_Price", "Sold Price"},
	FieldDiscount:          {"Discount", "Discount_Amount", "Discount Amount"},
	FieldGrossSale:         {"Gross_Sale", "Gross Sale", "Gross_Sale_Amount"},
	FieldRefundAmount:      {"Refund_Amount", "Refund Amount", "Refunded_Amount", "Refund"},

	FieldCheckInFee:      {"CheckIn_Fee", "Check_In_Fee", "Check In Fee", "CheckInFee"},
	FieldPackagingFee:    {"Packaging_Fee", "Packaging Fee", "PackagingFee"},
	FieldPickPackShipFee: {"PPS_Fee", "Pick_Pack_Ship_Fee", "Pick Pack Ship Fee", "PickPackShip_Fee"},
	FieldRefurbFee:       {"Refurb_Fee", "Refurbishing_Fee", "Refurbishing Fee", "RefurbFee"},
	FieldMarketplaceFee:  {"Marketplace_Fee", "Marketplace Fee", "MarketplaceFee"},

	FieldInvoicedCheckInFee:   {"Invoiced_CheckInFee", "CheckInFeeInvoiced", "Invoiced_Check_In_Fee", "Invoiced Check In Fee"},
	FieldInvoicedOverboxFee:   {"Invoiced_OverboxFee", "OverboxFeeInvoiced", "Invoiced_Overbox_Fee", "Invoiced Overbox Fee"},
	FieldInvoicedPPSFee:       {"Invoiced_PPSFee", "PPSFeeInvoiced", "Invoiced_PPS_Fee", "Invoiced PPS Fee"},
	FieldInvoicedShippingFee:  {"Invoiced_ShippingFee", "ShippingFeeInvoiced", "Invoiced_Shipping_Fee", "Invoiced Shipping Fee"},
	FieldInvoicedMerchantFee:  {"Invoiced_MerchantFee", "MerchantFeeInvoiced", "Invoiced_Merchant_Fee", "Invoiced Merchant Fee"},
	FieldInvoicedThreePMPFee:  {"Invoiced_3PMPFee", "3PMPFeeInvoiced", "Invoiced_3PMP_Fee", "Invoiced 3PMP Fee"},
	FieldInvoicedRevshareFee:  {"Invoiced_RevshareFee", "RevshareFeeInvoiced", "Invoiced_Revshare_Fee", "Invoiced Revshare Fee"},
	FieldInvoicedMarketingFee: {"Invoiced_MarketingFee", "MarketingFeeInvoiced", "Invoiced_Marketing_Fee", "Invoiced Marketing Fee"},
	FieldInvoicedRefundFee:    {"Invoiced_RefundFee", "RefundFeeInvoiced", "Invoiced_Refund_Fee", "Invoiced Refund Fee"},

	FieldReceivedDate:    {"Received_On", "Received On", "Received_Date", "Received Date", "Date_Received"},
	FieldCheckedInDate:   {"CheckedIn_Date", "Checked_In_Date", "Checked In Date", "CheckIn_Date", "Date_Checked_In"},
	FieldTestedDate:      {"Tested_On", "Tested On", "Tested_Date", "Tested Date", "Date_Tested"},
	FieldFirstListedDate: {"First_Listed_Date", "First Listed Date", "FirstListed_Date", "Listed_Date", "Date_Listed"},
	FieldOrderClosedDate: {"Order_Closed_Date", "Order Closed Date", "OrderClosed_Date", "Closed_Date", "Date_Sold"},
}

// FieldIndex maps logical fields to their column position in one file.
// Fields absent from the map were not present in that file.
type FieldIndex map[Field]int

// normalizeHeader lowercases and strips whitespace, underscores, and
// hyphens so "Received_On", "received on", and "ReceivedOn" all collide.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.Trim(h, "\"'")
	r := strings.NewReplacer(" ", "", "_", "", "-", "")
	return r.Replace(h)
}

// ResolveFields matches a raw header row against the candidate lists.
// Resolution order per field: exact literal match in priority order, then
// normalized match. A field with no matching candidate is simply absent.
func ResolveFields(header []string) FieldIndex {
	literal := make(map[string]int, len(header))
	normalized := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.Trim(strings.TrimSpace(h), "\"'"))
		if _, ok := literal[h]; !ok {
			literal[h] = i
		}
		n := normalizeHeader(h)
		if _, ok := normalized[n]; !ok {
			normalized[n] = i
		}
	}

	idx := make(FieldIndex, len(fieldCandidates))
	for field, candidates := range fieldCandidates {
		// Full literal pass first: an exact spelling anywhere in the list
		// outranks a normalized collision with a higher-priority candidate.
		matched := false
		for _, cand := range candidates {
			if col, ok := literal[cand]; ok {
				idx[field] = col
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		for _, cand := range candidates {
			if col, ok := normalized[normalizeHeader(cand)]; ok {
				idx[field] = col
				break
			}
		}
	}

	// The identifier column must be found even in files whose header era
	// we have never seen; fall back to any column mentioning "unit".
	if _, ok := idx[FieldUnitID]; !ok {
		for i, h := range header {
			if strings.Contains(strings.ToLower(h), "unit") {
				idx[FieldUnitID] = i
				break
			}
		}
	}

	return idx
}
