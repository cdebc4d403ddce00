package fulfillment

// GroupRawLines folds per-expiry detail rows back into one line per line number,
// keeping the order in which line numbers first appear.
func GroupRawLines(rows []RawLine) []OrderLine {
	lines := make([]OrderLine, 0, len(rows))
	index := make(map[int]int, len(rows))
	for _, row := range rows {
		pos, ok := index[row.LineNo]
		if !ok {
			pos = len(lines)
			index[row.LineNo] = pos
			lines = append(lines, OrderLine{
				LineNo:        row.LineNo,
				GoodsCode:     row.GoodsCode,
				GoodsName:     row.GoodsName,
				VendorID:      row.VendorID,
				OrderQty:      row.OrderQty,
				OutboundQty:   row.OutboundQty,
				UnitPrice:     row.UnitPrice,
				Amount:        row.Amount,
				ReceivingDate: NormalizeDateOrEmpty(row.ReceivingDate),
				Expiries:      []ExpiryDetail{},
				ShipmentFields: ShipmentFields{
					OutboundDate:     NormalizeDateOrEmpty(row.OutboundDate),
					EstimatedArrival: NormalizeDateOrEmpty(row.EstimatedArrival),
					ShipMethod:       row.ShipMethod,
					LogisticsCompany: row.LogisticsCompany,
					TransportNo:      row.TransportNo,
					Memo:             row.Memo,
				},
			})
		}
		if row.ExpiryID == nil && row.ExpiryDate == "" && row.ExpiryQty == 0 {
			continue
		}
		detail := ExpiryDetail{
			ExpiryDate: NormalizeDateOrEmpty(row.ExpiryDate),
			Quantity:   row.ExpiryQty,
			LotNumber:  row.LotNumber,
		}
		if row.ExpiryID != nil {
			id := *row.ExpiryID
			detail.ID = &id
		}
		lines[pos].Expiries = append(lines[pos].Expiries, detail)
	}
	return lines
}

// ExpiryPair is one (line, expiry lot) pair of a flattened payload.
type ExpiryPair struct {
	LineNo int
	Expiry ExpiryDetail
}

// FlattenExpiries expands confirm payload lines back into (line, lot) pairs.
func FlattenExpiries(lines []ConfirmLine) []ExpiryPair {
	var pairs []ExpiryPair
	for _, line := range lines {
		for _, expiry := range line.Expiries {
			pairs = append(pairs, ExpiryPair{LineNo: line.LineNo, Expiry: expiry})
		}
	}
	return pairs
}
