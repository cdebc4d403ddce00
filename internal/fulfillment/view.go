package fulfillment

// SummaryView is a summary plus its display-only emphasis.
type SummaryView struct {
	OrderSummary
	Confirmed bool   `json:"confirmed"`
	Reference string `json:"reference,omitempty"`
}

// LineView is a line with its derived flags.
type LineView struct {
	OrderLine
	Position    int       `json:"position"`
	Flags       LineFlags `json:"flags"`
	Selected    bool      `json:"selected"`
	ExpiryTotal int       `json:"expiry_total"`
	Reference   string    `json:"reference,omitempty"`
}

// SessionView is the read model the HTTP layer renders.
type SessionView struct {
	ID         string        `json:"id"`
	Busy       bool          `json:"busy"`
	Query      *SearchQuery  `json:"query,omitempty"`
	Summaries  []SummaryView `json:"summaries"`
	Current    *OrderSummary `json:"current,omitempty"`
	Lines      []LineView    `json:"lines"`
	Selection  []int         `json:"selection"`
	Mismatches []Mismatch    `json:"mismatches,omitempty"`
}

// View renders the session.
func (s *Session) View() SessionView {
	st := s.snapshot()
	view := SessionView{
		ID:        s.ID,
		Busy:      s.Busy(),
		Query:     st.query,
		Current:   st.current,
		Summaries: make([]SummaryView, 0, len(st.summaries)),
		Lines:     make([]LineView, 0, len(st.lines)),
		Selection: st.selection.Positions(),
	}
	for _, sum := range st.summaries {
		view.Summaries = append(view.Summaries, SummaryView{
			OrderSummary: sum,
			Confirmed:    st.confirmed.Has(sum.Key()),
			Reference:    ShipmentReference(sum.OutboundDate, sum.OrderDate, sum.OrderSeq),
		})
	}
	flags := DeriveFlags(st.loaded, st.lines)
	var editable []OrderLine
	for i, line := range st.lines {
		lv := LineView{
			OrderLine:   line,
			Position:    i,
			Flags:       flags[i],
			Selected:    st.selection.Contains(i),
			ExpiryTotal: ExpiryTotal(line),
		}
		if st.current != nil && i < len(st.loaded) {
			lv.Reference = ShipmentReference(st.loaded[i].OutboundDate, st.current.OrderDate, st.current.OrderSeq)
		}
		if flags[i].Editable() && lv.Selected {
			editable = append(editable, line)
		}
		view.Lines = append(view.Lines, lv)
	}
	view.Mismatches = FindMismatches(editable)
	return view
}
