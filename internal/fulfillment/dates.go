package fulfillment

import (
	"fmt"
	"strings"
	"time"
)

const (
	dashedLayout  = "2006-01-02"
	compactLayout = "20060102"
)

// NormalizeDate converts YYYYMMDD, YYYY-MM-DD or an RFC3339 timestamp into YYYY-MM-DD.
// Blank input yields "" and ok=false.
func NormalizeDate(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}
	switch len(value) {
	case len(compactLayout):
		if t, err := time.Parse(compactLayout, value); err == nil {
			return t.Format(dashedLayout), true
		}
	case len(dashedLayout):
		if t, err := time.Parse(dashedLayout, value); err == nil {
			return t.Format(dashedLayout), true
		}
	default:
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return t.Format(dashedLayout), true
		}
	}
	return "", false
}

// NormalizeDateOrEmpty returns the dashed form or "" when raw is not a valid date.
func NormalizeDateOrEmpty(raw string) string {
	out, _ := NormalizeDate(raw)
	return out
}

// IsWellFormedDate reports whether raw parses as one of the accepted date forms.
func IsWellFormedDate(raw string) bool {
	_, ok := NormalizeDate(raw)
	return ok
}

// CompactDate returns the YYYYMMDD form, or "" for invalid input.
func CompactDate(raw string) string {
	dashed, ok := NormalizeDate(raw)
	if !ok {
		return ""
	}
	return strings.ReplaceAll(dashed, "-", "")
}

// ShipmentReference derives outbound(nodash)-order(nodash)-seq. Never stored.
func ShipmentReference(outboundDate, orderDate string, orderSeq int) string {
	outbound := CompactDate(outboundDate)
	order := CompactDate(orderDate)
	if outbound == "" || order == "" {
		return ""
	}
	return fmt.Sprintf("%s-%s-%d", outbound, order, orderSeq)
}
