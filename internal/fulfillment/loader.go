package fulfillment

import (
	"context"
	"strings"

	pkgerrors "github.com/angelmondragon/shipment-console/pkg/errors"
)

// scopeQuery pins vendor-role operators to their own vendor id.
func scopeQuery(query SearchQuery, actor Actor) SearchQuery {
	if actor.VendorID != "" {
		query.VendorID = actor.VendorID
	}
	query.DateFrom = NormalizeDateOrEmpty(query.DateFrom)
	query.DateTo = NormalizeDateOrEmpty(query.DateTo)
	query.VendorID = strings.TrimSpace(query.VendorID)
	return query
}

func loadSummaries(ctx context.Context, gw Gateway, s *Session, actor Actor, query SearchQuery) ([]OrderSummary, error) {
	scoped := scopeQuery(query, actor)
	summaries, err := gw.SearchOrders(ctx, scoped)
	if err != nil {
		return nil, wrapGatewayError(err, "search orders")
	}
	// A malformed outbound date normalizes to "", which the tracker treats the
	// same as a missing one.
	for i := range summaries {
		summaries[i].OrderDate = NormalizeDateOrEmpty(summaries[i].OrderDate)
		summaries[i].OutboundDate = NormalizeDateOrEmpty(summaries[i].OutboundDate)
		summaries[i].EstimatedArrival = NormalizeDateOrEmpty(summaries[i].EstimatedArrival)
	}
	s.replaceSummaries(scoped, summaries)
	return summaries, nil
}

// reloadSummaries repeats the last search. No prior search means nothing to reload.
func reloadSummaries(ctx context.Context, gw Gateway, s *Session, actor Actor) error {
	st := s.snapshot()
	if st.query == nil {
		return nil
	}
	_, err := loadSummaries(ctx, gw, s, actor, *st.query)
	return err
}

func loadDetail(ctx context.Context, gw Gateway, s *Session, actor Actor, summary OrderSummary) error {
	rows, err := gw.GetOrderDetails(ctx, summary.OrderDate, summary.OrderSeq, actor.VendorID)
	if err != nil {
		return wrapGatewayError(err, "load order details")
	}
	s.replaceDetail(summary, GroupRawLines(rows))
	return nil
}

func wrapGatewayError(err error, msg string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func errorMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		return typed.Message()
	}
	return err.Error()
}
