package fulfillment

// LineFlags are derived per line on every list change and never persisted.
type LineFlags struct {
	Locked  bool `json:"locked"`
	Shipped bool `json:"shipped"`
	Planned bool `json:"planned"`
	Ready   bool `json:"ready"`
}

// Editable reports whether the line still accepts quantity, expiry and selection changes.
func (f LineFlags) Editable() bool {
	return !f.Locked && !f.Shipped
}

// DeriveFlags computes flags from the as-loaded snapshot and the current edits.
// Locked and Shipped come from loaded only, so local edits cannot unlock history.
func DeriveFlags(loaded, current []OrderLine) []LineFlags {
	flags := make([]LineFlags, len(current))
	for i, line := range current {
		var f LineFlags
		if i < len(loaded) {
			f.Locked = loaded[i].ReceivingDate != ""
			f.Shipped = loaded[i].OutboundDate != ""
		}
		total := ExpiryTotal(line)
		if f.Editable() {
			f.Planned = total > 0
			f.Ready = line.OutboundQty > 0 && total == line.OutboundQty
		}
		flags[i] = f
	}
	return flags
}

func anyShipped(flags []LineFlags) bool {
	for _, f := range flags {
		if f.Shipped {
			return true
		}
	}
	return false
}
