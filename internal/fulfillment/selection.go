package fulfillment

import (
	"fmt"
	"sort"

	pkgerrors "github.com/angelmondragon/shipment-console/pkg/errors"
)

// Selection is an immutable, sorted set of positions in the current line list.
type Selection struct {
	positions []int
}

// NewSelection builds a selection from arbitrary positions, dropping duplicates.
func NewSelection(positions ...int) Selection {
	if len(positions) == 0 {
		return Selection{}
	}
	seen := make(map[int]struct{}, len(positions))
	out := make([]int, 0, len(positions))
	for _, p := range positions {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Ints(out)
	return Selection{positions: out}
}

// Positions returns a copy of the selected positions in ascending order.
func (s Selection) Positions() []int {
	return append([]int(nil), s.positions...)
}

func (s Selection) Len() int { return len(s.positions) }

func (s Selection) Empty() bool { return len(s.positions) == 0 }

func (s Selection) Contains(pos int) bool {
	i := sort.SearchInts(s.positions, pos)
	return i < len(s.positions) && s.positions[i] == pos
}

func (s Selection) Equal(other Selection) bool {
	if len(s.positions) != len(other.positions) {
		return false
	}
	for i := range s.positions {
		if s.positions[i] != other.positions[i] {
			return false
		}
	}
	return true
}

// AutoSelect seeds every editable line that already carries expiry input, but only
// while no line of the batch has been shipped. ok=false means leave the selection alone.
func AutoSelect(lines []OrderLine, flags []LineFlags) (Selection, bool) {
	if anyShipped(flags) {
		return Selection{}, false
	}
	var positions []int
	for i, line := range lines {
		if i >= len(flags) || !flags[i].Editable() {
			continue
		}
		if ExpiryTotal(line) > 0 {
			positions = append(positions, i)
		}
	}
	return NewSelection(positions...), true
}

// Toggle flips one line in or out of the selection. Received lines are never
// selectable; shipped ones are, so a batch can be picked for cancellation.
func (s Selection) Toggle(pos int, flags []LineFlags) (Selection, error) {
	if pos < 0 || pos >= len(flags) {
		return s, pkgerrors.New(pkgerrors.CodeValidation, "line position out of range").
			WithDetails(map[string]any{"position": pos})
	}
	if flags[pos].Locked {
		return s, pkgerrors.New(pkgerrors.CodeValidation, "line has been received and cannot be selected").
			WithDetails(map[string]any{"position": pos})
	}
	if s.Contains(pos) {
		next := make([]int, 0, len(s.positions))
		for _, p := range s.positions {
			if p != pos {
				next = append(next, p)
			}
		}
		return Selection{positions: next}, nil
	}
	return NewSelection(append(s.Positions(), pos)...), nil
}

// SelectAllEligible selects every not-locked position.
func SelectAllEligible(flags []LineFlags) Selection {
	var positions []int
	for i, f := range flags {
		if !f.Locked {
			positions = append(positions, i)
		}
	}
	return NewSelection(positions...)
}

// SelectBatch selects every not-locked line the server shipped on outboundDate.
// loaded is the as-loaded snapshot; local edits never move a line between batches.
func SelectBatch(loaded []OrderLine, flags []LineFlags, outboundDate string) (Selection, error) {
	date, ok := NormalizeDate(outboundDate)
	if !ok {
		return Selection{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid outbound_date").
			WithDetails(map[string]any{"outbound_date": outboundDate})
	}
	var positions []int
	for i, f := range flags {
		if f.Locked || i >= len(loaded) {
			continue
		}
		if d, ok := NormalizeDate(loaded[i].OutboundDate); ok && d == date {
			positions = append(positions, i)
		}
	}
	if len(positions) == 0 {
		return Selection{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no selectable line was shipped on %s", date))
	}
	return NewSelection(positions...), nil
}
