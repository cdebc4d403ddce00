package fulfillment

import (
	"sync"
	"sync/atomic"
	"time"

	pkgerrors "github.com/angelmondragon/shipment-console/pkg/errors"
)

// Session holds one operator's console state. Every shared resource is swapped
// wholesale under mu; mu is never held across a gateway call.
type Session struct {
	ID    string
	Owner string

	busy atomic.Bool

	mu       sync.RWMutex
	state    sessionState
	lastUsed time.Time
}

type sessionState struct {
	query     *SearchQuery
	summaries []OrderSummary
	current   *OrderSummary
	loaded    []OrderLine
	lines     []OrderLine
	selection Selection
	confirmed ConfirmedKeys
}

// NewSession returns an empty session.
func NewSession(id string) *Session {
	return &Session{ID: id, lastUsed: time.Now()}
}

// Busy reports whether a search, confirm or cancel is in flight.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

func errBusy() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "another console operation is in progress")
}

// acquire claims the busy flag; the returned release must be deferred.
func (s *Session) acquire() (func(), error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, errBusy()
	}
	return func() { s.busy.Store(false) }, nil
}

// editableLocked gates operator edits. It runs under mu, so an edit either
// lands before an orchestrator snapshots the session or is refused.
func (s *Session) editableLocked() error {
	if s.busy.Load() {
		return errBusy()
	}
	if s.state.current == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "select an order summary first")
	}
	return nil
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

// IdleSince reports the last time the session was used.
func (s *Session) IdleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUsed
}

func (s *Session) snapshot() sessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.summaries = cloneSummaries(s.state.summaries)
	st.loaded = cloneLines(s.state.loaded)
	st.lines = cloneLines(s.state.lines)
	if s.state.current != nil {
		cur := *s.state.current
		st.current = &cur
	}
	if s.state.query != nil {
		q := *s.state.query
		st.query = &q
	}
	return st
}

func (s *Session) replaceSummaries(query SearchQuery, summaries []OrderSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := query
	s.state.query = &q
	s.state.summaries = cloneSummaries(summaries)
	s.state.confirmed = s.state.confirmed.Observe(summaries)
	if s.state.current != nil {
		key := s.state.current.Key()
		s.state.current = nil
		for _, sum := range s.state.summaries {
			if sum.Key() == key {
				cur := sum
				s.state.current = &cur
				break
			}
		}
		if s.state.current == nil {
			s.state.loaded, s.state.lines, s.state.selection = nil, nil, Selection{}
		}
	}
}

// replaceDetail installs a freshly loaded line list and resets the selection before
// auto-seeding it.
func (s *Session) replaceDetail(summary OrderSummary, lines []OrderLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := summary
	s.state.current = &cur
	s.state.loaded = cloneLines(lines)
	s.state.lines = cloneLines(lines)
	s.state.selection = Selection{}
	s.applyAutoSelectLocked()
}

func (s *Session) invalidateDetail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.current = nil
	s.state.loaded = nil
	s.state.lines = nil
	s.state.selection = Selection{}
}

func (s *Session) reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy.Load() {
		return errBusy()
	}
	s.state = sessionState{}
	return nil
}

// updateLines applies fn to a copy of the current lines and swaps the result in.
func (s *Session) updateLines(fn func(lines []OrderLine, flags []LineFlags) ([]OrderLine, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	flags := DeriveFlags(s.state.loaded, s.state.lines)
	next, err := fn(cloneLines(s.state.lines), flags)
	if err != nil {
		return err
	}
	s.state.lines = next
	s.applyAutoSelectLocked()
	return nil
}

func (s *Session) updateSelection(fn func(sel Selection, loaded []OrderLine, flags []LineFlags) (Selection, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	flags := DeriveFlags(s.state.loaded, s.state.lines)
	next, err := fn(s.state.selection, s.state.loaded, flags)
	if err != nil {
		return err
	}
	s.state.selection = next
	return nil
}

// applyShipmentFields echoes the shared shipment fields onto every editable line and
// onto the open summary.
func (s *Session) applyShipmentFields(fields ShipmentFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	flags := DeriveFlags(s.state.loaded, s.state.lines)
	next := cloneLines(s.state.lines)
	for i := range next {
		if flags[i].Editable() {
			next[i].ShipmentFields = fields
		}
	}
	s.state.lines = next
	s.echoSummaryLocked(fields)
	return nil
}

func (s *Session) echoSummaryLocked(fields ShipmentFields) {
	apply := func(sum *OrderSummary) {
		if fields.OutboundDate != "" {
			sum.OutboundDate = fields.OutboundDate
		}
		if fields.EstimatedArrival != "" {
			sum.EstimatedArrival = fields.EstimatedArrival
		}
	}
	apply(s.state.current)
	key := s.state.current.Key()
	next := cloneSummaries(s.state.summaries)
	for i := range next {
		if next[i].Key() == key {
			apply(&next[i])
		}
	}
	s.state.summaries = next
}

func (s *Session) applyAutoSelectLocked() {
	flags := DeriveFlags(s.state.loaded, s.state.lines)
	next, ok := AutoSelect(s.state.lines, flags)
	if !ok || next.Equal(s.state.selection) {
		return
	}
	s.state.selection = next
}
