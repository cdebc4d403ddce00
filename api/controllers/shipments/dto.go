package shipments

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/angelmondragon/shipment-console/internal/fulfillment"
	pkgerrors "github.com/angelmondragon/shipment-console/pkg/errors"
)

const maxQueryLength = 120

type searchRequest struct {
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
	VendorID string `json:"vendor_id" validate:"max=64"`
	StoreID  string `json:"store_id" validate:"max=64"`
	AgentID  string `json:"agent_id" validate:"max=64"`
	Status   string `json:"status" validate:"omitempty,oneof=pending shipped"`
	Query    string `json:"query"`
}

type detailRequest struct {
	OrderDate string `json:"order_date" validate:"required"`
	OrderSeq  int    `json:"order_seq" validate:"gte=0"`
}

// quantityInput accepts a JSON number or a string so operators can type
// full-width or comma grouped digits.
type quantityInput string

func (q *quantityInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*q = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = quantityInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*q = quantityInput(n.String())
	return nil
}

type expiryRequest struct {
	ID         *int64        `json:"id"`
	ExpiryDate string        `json:"expiry_date"`
	Quantity   quantityInput `json:"quantity"`
	LotNumber  string        `json:"lot_number" validate:"max=64"`
}

func (e expiryRequest) toDetail() (fulfillment.ExpiryDetail, error) {
	qty, err := fulfillment.ParseQuantity(string(e.Quantity))
	if err != nil {
		return fulfillment.ExpiryDetail{}, err
	}
	return fulfillment.ExpiryDetail{
		ID:         e.ID,
		ExpiryDate: strings.TrimSpace(e.ExpiryDate),
		Quantity:   qty,
		LotNumber:  e.LotNumber,
	}, nil
}

type replaceExpiriesRequest struct {
	Expiries []expiryRequest `json:"expiries" validate:"dive"`
}

func (r replaceExpiriesRequest) toDetails() ([]fulfillment.ExpiryDetail, error) {
	out := make([]fulfillment.ExpiryDetail, 0, len(r.Expiries))
	for i, e := range r.Expiries {
		d, err := e.toDetail()
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil {
				return nil, typed.WithDetails(map[string]any{"index": i, "value": string(e.Quantity)})
			}
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

type shipmentFieldsRequest struct {
	OutboundDate     string `json:"outbound_date"`
	EstimatedArrival string `json:"estimated_arrival"`
	ShipMethod       string `json:"ship_method" validate:"max=40"`
	LogisticsCompany string `json:"logistics_company" validate:"max=80"`
	TransportNo      string `json:"transport_no" validate:"max=80"`
	Memo             string `json:"memo" validate:"max=500"`
}

func (r shipmentFieldsRequest) toFields() fulfillment.ShipmentFields {
	return fulfillment.ShipmentFields{
		OutboundDate:     r.OutboundDate,
		EstimatedArrival: r.EstimatedArrival,
		ShipMethod:       r.ShipMethod,
		LogisticsCompany: r.LogisticsCompany,
		TransportNo:      r.TransportNo,
		Memo:             r.Memo,
	}
}

const (
	selectionToggle = "toggle"
	selectionAll    = "all"
	selectionClear  = "clear"
	selectionBatch  = "batch"
)

type selectionRequest struct {
	Action       string `json:"action" validate:"required,oneof=toggle all clear batch"`
	Position     *int   `json:"position" validate:"omitempty,gte=0"`
	OutboundDate string `json:"outbound_date" validate:"omitempty,max=32"`
}

type confirmRequest struct {
	AcceptPartial bool `json:"accept_partial"`
}

type cancelRequest struct {
	Confirmed bool `json:"confirmed"`
}

type sessionResponse struct {
	Session fulfillment.SessionView `json:"session"`
}

type confirmResponse struct {
	Outcome *fulfillment.ConfirmOutcome `json:"outcome"`
	Session fulfillment.SessionView     `json:"session"`
}

type cancelResponse struct {
	Outcome *fulfillment.CancelOutcome `json:"outcome"`
	Session fulfillment.SessionView    `json:"session"`
}
