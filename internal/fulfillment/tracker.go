package fulfillment

// ConfirmedKeys is the display-only set of summaries the server reports as shipped.
// Business rules never consult it; they use flags derived from the loaded lines.
type ConfirmedKeys struct {
	keys map[SummaryKey]struct{}
}

// Observe folds one search result into a new set: summaries with a well-formed raw
// outbound date are added, summaries present without one are dropped.
func (c ConfirmedKeys) Observe(summaries []OrderSummary) ConfirmedKeys {
	next := make(map[SummaryKey]struct{}, len(c.keys)+len(summaries))
	for k := range c.keys {
		next[k] = struct{}{}
	}
	for _, s := range summaries {
		if IsWellFormedDate(s.OutboundDate) {
			next[s.Key()] = struct{}{}
		} else {
			delete(next, s.Key())
		}
	}
	return ConfirmedKeys{keys: next}
}

func (c ConfirmedKeys) Has(key SummaryKey) bool {
	_, ok := c.keys[key]
	return ok
}

func (c ConfirmedKeys) Len() int { return len(c.keys) }
