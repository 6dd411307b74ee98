package tabular

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FileCategory is the extract type inferred from the filename.
type FileCategory string

const (
	CategorySales     FileCategory = "Sales"
	CategoryInbound   FileCategory = "Inbound"
	CategoryOutbound  FileCategory = "Outbound"
	CategoryInventory FileCategory = "Inventory"
	CategoryUnknown   FileCategory = "Unknown"
)

// ImpliesSales reports whether files of this category carry closed-order
// sales data worth a sales-metric row.
func (c FileCategory) ImpliesSales() bool {
	return c == CategorySales
}

// ImpliesFees reports whether files of this category carry fee columns
// worth a fee-metric row. Inbound and outbound extracts both invoice
// service fees.
func (c FileCategory) ImpliesFees() bool {
	return c == CategorySales || c == CategoryInbound || c == CategoryOutbound
}

var categoryKeywords = []struct {
	keyword  string
	category FileCategory
}{
	{"sales", CategorySales},
	{"inbound", CategoryInbound},
	{"outbound", CategoryOutbound},
	{"inventory", CategoryInventory},
}

// CategoryFromName infers the file category by case-insensitive substring
// match. Unknown is a processable category, not an error: the pipeline
// still attempts identifier-column detection on unknown files.
func CategoryFromName(filename string) FileCategory {
	lower := strings.ToLower(filename)
	for _, ck := range categoryKeywords {
		if strings.Contains(lower, ck.keyword) {
			return ck.category
		}
	}
	return CategoryUnknown
}

// Filenames carry a business date as MM.DD.YY, MM-DD-YYYY, MM_DD_YY and
// the like. Mixed separators occur in the wild, so each is matched
// independently.
var filenameDateRe = regexp.MustCompile(`(\d{1,2})[._-](\d{1,2})[._-](\d{2,4})`)

// BusinessDateFromName extracts the declared business date from a
// filename. Two-digit years are 2000-based. The first plausible match
// wins; nil means the caller should default to today.
func BusinessDateFromName(filename string) *time.Time {
	for _, m := range filenameDateRe.FindAllStringSubmatch(filename, -1) {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		if len(m[3]) == 3 {
			continue
		}
		if month < 1 || month > 12 || day < 1 || day > 31 {
			continue
		}
		if year < 1990 || year > 2100 {
			continue
		}
		d := time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.Local)
		return &d
	}
	return nil
}
