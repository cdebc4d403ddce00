package fulfillment

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	pkgerrors "github.com/angelmondragon/shipment-console/pkg/errors"
)

// maxQuantity bounds a single quantity input.
const maxQuantity = 1_000_000_000

// ExpiryTotal sums the expiry lot quantities of a line.
func ExpiryTotal(line OrderLine) int {
	total := 0
	for _, e := range line.Expiries {
		total += e.Quantity
	}
	return total
}

// ParseQuantity is the edit boundary for quantities: full-width digits are narrowed,
// blanks read as zero, and negative or non-numeric input is rejected.
func ParseQuantity(raw string) (int, error) {
	value := strings.TrimSpace(width.Narrow.String(raw))
	value = strings.ReplaceAll(value, ",", "")
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "quantity must be a whole number").
			WithDetails(map[string]any{"value": raw})
	}
	if n < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative").
			WithDetails(map[string]any{"value": raw})
	}
	if n > maxQuantity {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity too large").
			WithDetails(map[string]any{"value": raw})
	}
	return n, nil
}

func validateExpiry(detail ExpiryDetail) (ExpiryDetail, error) {
	if detail.Quantity < 0 {
		return ExpiryDetail{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if detail.ExpiryDate != "" {
		dashed, ok := NormalizeDate(detail.ExpiryDate)
		if !ok {
			return ExpiryDetail{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid expiry date").
				WithDetails(map[string]any{"expiry_date": detail.ExpiryDate})
		}
		detail.ExpiryDate = dashed
	}
	detail.LotNumber = strings.TrimSpace(width.Narrow.String(detail.LotNumber))
	return detail, nil
}

func recompute(line OrderLine) OrderLine {
	line.OutboundQty = ExpiryTotal(line)
	return line
}

// AddExpiry appends a lot and recomputes the outbound quantity.
func AddExpiry(line OrderLine, detail ExpiryDetail) (OrderLine, error) {
	clean, err := validateExpiry(detail)
	if err != nil {
		return line, err
	}
	clean.ID = nil
	out := line.Clone()
	out.Expiries = append(out.Expiries, clean)
	return recompute(out), nil
}

// UpdateExpiry replaces the lot at idx, keeping its persisted id.
func UpdateExpiry(line OrderLine, idx int, detail ExpiryDetail) (OrderLine, error) {
	if idx < 0 || idx >= len(line.Expiries) {
		return line, pkgerrors.New(pkgerrors.CodeValidation, "expiry lot not found").
			WithDetails(map[string]any{"index": idx})
	}
	clean, err := validateExpiry(detail)
	if err != nil {
		return line, err
	}
	out := line.Clone()
	clean.ID = out.Expiries[idx].ID
	out.Expiries[idx] = clean
	return recompute(out), nil
}

// RemoveExpiry drops the lot at idx. A persisted lot is recorded for deletion.
func RemoveExpiry(line OrderLine, idx int) (OrderLine, error) {
	if idx < 0 || idx >= len(line.Expiries) {
		return line, pkgerrors.New(pkgerrors.CodeValidation, "expiry lot not found").
			WithDetails(map[string]any{"index": idx})
	}
	out := line.Clone()
	removed := out.Expiries[idx]
	out.Expiries = append(out.Expiries[:idx], out.Expiries[idx+1:]...)
	if removed.ID != nil {
		out.DeletedExpiryIDs = append(out.DeletedExpiryIDs, *removed.ID)
	}
	return recompute(out), nil
}

// ReplaceExpiries swaps the whole lot list; persisted lots missing from the new list
// are recorded for deletion.
func ReplaceExpiries(line OrderLine, details []ExpiryDetail) (OrderLine, error) {
	keep := make(map[int64]struct{}, len(details))
	cleaned := make([]ExpiryDetail, 0, len(details))
	for _, d := range details {
		c, err := validateExpiry(d)
		if err != nil {
			return line, err
		}
		if c.ID != nil {
			keep[*c.ID] = struct{}{}
		}
		cleaned = append(cleaned, c)
	}
	out := line.Clone()
	for _, existing := range out.Expiries {
		if existing.ID == nil {
			continue
		}
		if _, ok := keep[*existing.ID]; !ok {
			out.DeletedExpiryIDs = append(out.DeletedExpiryIDs, *existing.ID)
		}
	}
	out.Expiries = cleaned
	return recompute(out), nil
}

// Mismatch describes a line whose lots do not add up to its outbound quantity.
type Mismatch struct {
	LineNo      int `json:"line_no"`
	ExpiryTotal int `json:"expiry_total"`
	OutboundQty int `json:"outbound_qty"`
}

// FindMismatches lists every line whose expiry total differs from its outbound quantity.
func FindMismatches(lines []OrderLine) []Mismatch {
	var out []Mismatch
	for _, line := range lines {
		total := ExpiryTotal(line)
		if total != line.OutboundQty {
			out = append(out, Mismatch{LineNo: line.LineNo, ExpiryTotal: total, OutboundQty: line.OutboundQty})
		}
	}
	return out
}

// ValidateReconciliation blocks the whole batch when any candidate line mismatches.
func ValidateReconciliation(lines []OrderLine) error {
	mismatches := FindMismatches(lines)
	if len(mismatches) == 0 {
		return nil
	}
	nums := make([]string, len(mismatches))
	lineNos := make([]int, len(mismatches))
	for i, m := range mismatches {
		nums[i] = strconv.Itoa(m.LineNo)
		lineNos[i] = m.LineNo
	}
	msg := fmt.Sprintf("expiry quantities do not match outbound quantity on line(s) %s", strings.Join(nums, ", "))
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]any{
		"lines":      lineNos,
		"mismatches": mismatches,
	})
}
