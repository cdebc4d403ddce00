package fulfillment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shipment-console/pkg/enums"
	pkgerrors "github.com/angelmondragon/shipment-console/pkg/errors"
)

func TestCancelBlockedWhenAnyBatchLineReceived(t *testing.T) {
	gw := &stubGateway{}
	console := newTestConsole(t, gw)
	s := seedSession(
		shippedLine(1, "V1", "2025-01-05", ""),
		shippedLine(2, "V1", "2025-01-05", "2025-01-09"),
		shippedLine(3, "V1", "2025-01-05", ""),
	)

	for _, opts := range []CancelOptions{{}, {Confirmed: true}} {
		_, err := console.Cancel(context.Background(), s, operator, opts)
		requireCode(t, err, pkgerrors.CodeStateConflict)
	}

	require.NoError(t, console.SelectAll(s))
	assert.Equal(t, []int{0, 2}, s.View().Selection)
	_, err := console.Cancel(context.Background(), s, operator, CancelOptions{Confirmed: true})
	typed := requireCode(t, err, pkgerrors.CodeStateConflict)
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []int{2}, details["lines"])
	assert.Empty(t, gw.cancels)
	assert.False(t, s.Busy())
}

func TestCancelRequiresSelectionToEqualBatch(t *testing.T) {
	gw := &stubGateway{}
	console := newTestConsole(t, gw)
	s := seedSession(
		shippedLine(1, "V1", "2025-01-05", ""),
		shippedLine(2, "V1", "2025-01-05", ""),
		shippedLine(3, "V1", "2025-01-06", ""),
	)
	require.NoError(t, console.ToggleLine(s, 0))

	_, err := console.Cancel(context.Background(), s, operator, CancelOptions{Confirmed: true})
	typed := requireCode(t, err, pkgerrors.CodeValidation)
	assert.Contains(t, typed.Message(), "2025-01-05")
	assert.Empty(t, gw.cancels)
}

func TestCancelTwoStepSubmitsFullBatch(t *testing.T) {
	gw := &stubGateway{
		searchFn: func(context.Context, SearchQuery) ([]OrderSummary, error) {
			return []OrderSummary{testSummary}, nil
		},
		detailFn: func(context.Context, string, int, string) ([]RawLine, error) {
			return []RawLine{
				{LineNo: 1, VendorID: "V1", OrderQty: 20},
				{LineNo: 2, VendorID: "V2", OrderQty: 20},
				{LineNo: 3, VendorID: "V1", OrderQty: 20, OutboundDate: "20250106", OutboundQty: 5},
			}, nil
		},
	}
	rec := &stubRecorder{}
	console, err := NewConsole(ConsoleParams{Gateway: gw, Recorder: rec, Logger: testLogger()})
	require.NoError(t, err)
	s := seedSession(
		shippedLine(1, "V1", "2025-01-05", ""),
		shippedLine(2, "V2", "2025-01-05", ""),
		shippedLine(3, "V1", "2025-01-06", ""),
	)
	require.NoError(t, console.ToggleLine(s, 0))
	require.NoError(t, console.ToggleLine(s, 1))

	outcome, err := console.Cancel(context.Background(), s, Actor{UserID: "u-1", VendorID: "V9"}, CancelOptions{})
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentOutcomeConfirmationRequired, outcome.Status)
	require.NotNil(t, outcome.Plan)
	assert.Equal(t, "2025-01-05", outcome.Plan.OutboundDate)
	assert.Equal(t, []int{1, 2}, outcome.Plan.LineNos)
	assert.Equal(t, "20250105-20250102-7", outcome.Plan.Reference)
	assert.Empty(t, gw.cancels)

	outcome, err = console.Cancel(context.Background(), s, Actor{UserID: "u-1", VendorID: "V9"}, CancelOptions{Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentOutcomeSuccess, outcome.Status)
	require.Len(t, gw.cancels, 1)
	req := gw.cancels[0]
	assert.Equal(t, "V9", req.VendorID)
	assert.Equal(t, "u-1", req.UserID)
	assert.Equal(t, []CancelLine{{LineNo: 1, VendorID: "V1"}, {LineNo: 2, VendorID: "V2"}}, req.Lines)

	assert.Equal(t, 1, gw.details)
	assert.Len(t, gw.searches, 1)
	view := s.View()
	require.Len(t, view.Lines, 3)
	assert.False(t, view.Lines[0].Flags.Shipped)
	assert.True(t, view.Lines[2].Flags.Shipped)
	assert.Empty(t, view.Selection)
	assert.Equal(t, []bool{true}, rec.cancels)
}

func TestCancelDefaultsToAllShippedLinesWhenNothingSelected(t *testing.T) {
	gw := &stubGateway{}
	console := newTestConsole(t, gw)
	s := seedSession(
		shippedLine(1, "V1", "2025-01-05", ""),
		shippedLine(2, "", "2025-01-05", ""),
	)
	require.Empty(t, s.View().Selection)

	outcome, err := console.Cancel(context.Background(), s, operator, CancelOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, outcome.Plan.Positions)

	_, err = console.Cancel(context.Background(), s, operator, CancelOptions{Confirmed: true})
	require.NoError(t, err)
	require.Len(t, gw.cancels, 1)
	assert.Equal(t, "V1", gw.cancels[0].VendorID, "falls back to the summary vendor")
}

func TestCancelNoDefaultWhileLinesPending(t *testing.T) {
	console := newTestConsole(t, &stubGateway{})
	s := seedSession(
		shippedLine(1, "V1", "2025-01-05", ""),
		pendingLine(2, "V1"),
	)
	_, err := console.Cancel(context.Background(), s, operator, CancelOptions{})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestCancelFailureLeavesStateUntouched(t *testing.T) {
	cases := map[string]struct {
		fn   func(context.Context, CancelRequest) (Result, error)
		code pkgerrors.Code
	}{
		"rejected":  {fn: func(context.Context, CancelRequest) (Result, error) { return Result{Message: "already invoiced"}, nil }, code: pkgerrors.CodeConflict},
		"transport": {fn: func(context.Context, CancelRequest) (Result, error) { return Result{}, errors.New("dial tcp") }, code: pkgerrors.CodeDependency},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			gw := &stubGateway{cancelFn: tc.fn}
			console := newTestConsole(t, gw)
			s := seedSession(shippedLine(1, "V1", "2025-01-05", ""))
			before := s.View()

			_, err := console.Cancel(context.Background(), s, operator, CancelOptions{Confirmed: true})
			requireCode(t, err, tc.code)
			assert.Equal(t, before, s.View())
			assert.Zero(t, gw.details)
			assert.Empty(t, gw.searches)
		})
	}
}

// detailGateway serves one summary whose detail is rows.
func detailGateway(rows ...RawLine) *stubGateway {
	return &stubGateway{
		searchFn: func(context.Context, SearchQuery) ([]OrderSummary, error) {
			return []OrderSummary{testSummary}, nil
		},
		detailFn: func(context.Context, string, int, string) ([]RawLine, error) {
			return rows, nil
		},
	}
}

func shippedRow(no int, outboundDate string) RawLine {
	id := int64(100 + no)
	return RawLine{
		LineNo: no, VendorID: "V1", OrderQty: 20, OutboundQty: 5, OutboundDate: outboundDate,
		ExpiryID: &id, ExpiryDate: "2026-06-30", ExpiryQty: 5,
	}
}

func openLoaded(t *testing.T, console *Console) *Session {
	t.Helper()
	s := console.Sessions().Create("u-1")
	require.NoError(t, console.Search(context.Background(), s, operator, SearchQuery{}))
	require.NoError(t, console.OpenDetail(context.Background(), s, operator, testSummary.Key()))
	return s
}

func TestCancelMixedOrderByTogglingShippedLines(t *testing.T) {
	gw := detailGateway(
		shippedRow(1, "20250105"),
		shippedRow(2, "20250105"),
		RawLine{LineNo: 3, VendorID: "V1", OrderQty: 20},
	)
	console := newTestConsole(t, gw)
	s := openLoaded(t, console)

	require.NoError(t, console.SelectAll(s))
	_, err := console.Cancel(context.Background(), s, operator, CancelOptions{Confirmed: true})
	requireCode(t, err, pkgerrors.CodeValidation)

	require.NoError(t, console.ClearSelection(s))
	require.NoError(t, console.ToggleLine(s, 0))
	require.NoError(t, console.ToggleLine(s, 1))

	outcome, err := console.Cancel(context.Background(), s, operator, CancelOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, outcome.Plan.LineNos)

	_, err = console.Cancel(context.Background(), s, operator, CancelOptions{Confirmed: true})
	require.NoError(t, err)
	require.Len(t, gw.cancels, 1)
	assert.Equal(t, []CancelLine{{LineNo: 1, VendorID: "V1"}, {LineNo: 2, VendorID: "V1"}}, gw.cancels[0].Lines)
}

func TestCancelOneOfTwoBatchesBySelectingTheBatch(t *testing.T) {
	gw := detailGateway(
		shippedRow(1, "20250105"),
		shippedRow(2, "20250105"),
		shippedRow(3, "20250106"),
	)
	console := newTestConsole(t, gw)
	s := openLoaded(t, console)

	_, err := console.Cancel(context.Background(), s, operator, CancelOptions{Confirmed: true})
	requireCode(t, err, pkgerrors.CodeValidation)
	assert.Empty(t, gw.cancels)

	require.NoError(t, console.SelectBatch(s, "2025-01-06"))
	assert.Equal(t, []int{2}, s.View().Selection)
	_, err = console.Cancel(context.Background(), s, operator, CancelOptions{Confirmed: true})
	require.NoError(t, err)
	require.Len(t, gw.cancels, 1)
	assert.Equal(t, []CancelLine{{LineNo: 3, VendorID: "V1"}}, gw.cancels[0].Lines)

	require.NoError(t, console.SelectBatch(s, "20250105"))
	outcome, err := console.Cancel(context.Background(), s, operator, CancelOptions{})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-05", outcome.Plan.OutboundDate)
	assert.Equal(t, []int{1, 2}, outcome.Plan.LineNos)
}
