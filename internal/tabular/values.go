package tabular

import (
	"strconv"
	"strings"
	"time"

	"github.com/ignite/liquidation-pipeline/internal/fiscal"
)

// Monetary values outside this range are sentinel or garbage exports
// (e.g. 99999999 placeholders) and are rejected rather than ingested.
const maxMoneyMagnitude = 1_000_000

// ParseMoney parses a currency cell: thousands separators and currency
// symbols are stripped, blank or non-numeric leftovers yield nil, and
// implausible magnitudes are rejected.
func ParseMoney(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if s == "" || s == "-" {
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	if neg {
		v = -v
	}
	if v < -maxMoneyMagnitude || v > maxMoneyMagnitude {
		return nil
	}
	return &v
}

var dateLayouts = []string{
	"01/02/2006 03:04:05 PM",
	"1/2/2006 3:04:05 PM",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses a date cell in any of the formats the extracts have
// used over the years. The result is pinned to local noon so timezone
// midnight rounding cannot move it across a day boundary. Years outside
// 1990–2100 are rejected as corrupted exports.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err != nil {
			continue
		}
		if t.Year() < 1990 || t.Year() > 2100 {
			return nil
		}
		noon := fiscal.Noon(t)
		return &noon
	}
	return nil
}
