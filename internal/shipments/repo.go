package shipments

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/shipment-console/pkg/db/models"
	"github.com/angelmondragon/shipment-console/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a purchase-order repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

const summaryColumns = `po.order_date, po.order_seq, po.store_id, po.store_name, po.agent_id,
	po.vendor_id, po.vendor_name,
	COALESCE(SUM(l.order_qty), 0) AS total_order_qty,
	COALESCE(SUM(l.outbound_qty), 0) AS total_outbound_qty,
	COALESCE(SUM(l.amount), 0) AS total_amount,
	MAX(l.outbound_date) AS outbound_date,
	MAX(l.estimated_arrival) AS estimated_arrival`

const summaryGroup = "po.order_date, po.order_seq, po.store_id, po.store_name, po.agent_id, po.vendor_id, po.vendor_name"

func (r *repository) SearchSummaries(ctx context.Context, filters SearchFilters) ([]SummaryRow, error) {
	query := r.db.WithContext(ctx).
		Table("purchase_orders AS po").
		Select(summaryColumns).
		Joins("LEFT JOIN purchase_order_lines AS l ON l.order_date = po.order_date AND l.order_seq = po.order_seq")

	if filters.DateFrom != "" {
		query = query.Where("po.order_date >= ?", filters.DateFrom)
	}
	if filters.DateTo != "" {
		query = query.Where("po.order_date <= ?", filters.DateTo)
	}
	if filters.VendorID != "" {
		query = query.Where("po.vendor_id = ?", filters.VendorID)
	}
	if filters.StoreID != "" {
		query = query.Where("po.store_id = ?", filters.StoreID)
	}
	if filters.AgentID != "" {
		query = query.Where("po.agent_id = ?", filters.AgentID)
	}
	if pattern := filters.likePattern(); pattern != "" {
		query = query.Where(`(LOWER(po.store_name) LIKE ? ESCAPE '\' OR LOWER(po.vendor_name) LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	query = query.Group(summaryGroup)
	switch enums.ShipmentStatus(filters.Status) {
	case enums.ShipmentStatusPending:
		query = query.Having("MAX(l.outbound_date) IS NULL")
	case enums.ShipmentStatusShipped:
		query = query.Having("MAX(l.outbound_date) IS NOT NULL")
	}

	limit := filters.Limit
	if limit <= 0 || limit > maxSearchResults {
		limit = maxSearchResults
	}

	var rows []SummaryRow
	err := query.
		Order("po.order_date ASC").
		Order("po.order_seq ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) FindOrder(ctx context.Context, key OrderKey) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := r.db.WithContext(ctx).
		Where("order_date = ? AND order_seq = ?", key.OrderDate, key.OrderSeq).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListDetailRows(ctx context.Context, key OrderKey) ([]DetailRow, error) {
	var rows []DetailRow
	err := r.db.WithContext(ctx).
		Table("purchase_order_lines AS l").
		Select(`l.order_date, l.order_seq, l.line_no, l.goods_code, l.goods_name, l.vendor_id,
			l.order_qty, l.outbound_qty, l.unit_price, l.amount,
			l.outbound_date, l.estimated_arrival, l.receiving_date,
			l.ship_method, l.logistics_company, l.transport_no, l.memo,
			e.id AS expiry_id, e.expiry_date, e.quantity AS expiry_qty, e.lot_number`).
		Joins("LEFT JOIN line_expiries AS e ON e.order_date = l.order_date AND e.order_seq = l.order_seq AND e.line_no = l.line_no").
		Where("l.order_date = ? AND l.order_seq = ?", key.OrderDate, key.OrderSeq).
		Order("l.line_no ASC").
		Order("e.id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) FindLines(ctx context.Context, key OrderKey, lineNos []int) ([]models.PurchaseOrderLine, error) {
	if len(lineNos) == 0 {
		return nil, nil
	}
	var lines []models.PurchaseOrderLine
	err := r.db.WithContext(ctx).
		Where("order_date = ? AND order_seq = ? AND line_no IN ?", key.OrderDate, key.OrderSeq, lineNos).
		Order("line_no ASC").
		Find(&lines).Error
	return lines, err
}

func (r *repository) FindLinesShippedOn(ctx context.Context, key OrderKey, outboundDate string) ([]models.PurchaseOrderLine, error) {
	var lines []models.PurchaseOrderLine
	err := r.db.WithContext(ctx).
		Where("order_date = ? AND order_seq = ? AND outbound_date = ?", key.OrderDate, key.OrderSeq, outboundDate).
		Order("line_no ASC").
		Find(&lines).Error
	return lines, err
}

func (r *repository) DeleteExpiries(ctx context.Context, key OrderKey, lineNo int, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("order_date = ? AND order_seq = ? AND line_no = ? AND id IN ?", key.OrderDate, key.OrderSeq, lineNo, ids).
		Delete(&models.LineExpiry{}).Error
}

func (r *repository) DeleteLineExpiries(ctx context.Context, key OrderKey, lineNo int) error {
	return r.db.WithContext(ctx).
		Where("order_date = ? AND order_seq = ? AND line_no = ?", key.OrderDate, key.OrderSeq, lineNo).
		Delete(&models.LineExpiry{}).Error
}

func (r *repository) CreateExpiry(ctx context.Context, expiry *models.LineExpiry) error {
	return r.db.WithContext(ctx).Create(expiry).Error
}

// UpdateExpiry rewrites a persisted lot, scoped to its line, and reports the rows touched.
func (r *repository) UpdateExpiry(ctx context.Context, expiry models.LineExpiry) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.LineExpiry{}).
		Where("id = ? AND order_date = ? AND order_seq = ? AND line_no = ?", expiry.ID, expiry.OrderDate, expiry.OrderSeq, expiry.LineNo).
		Updates(map[string]any{
			"expiry_date": expiry.ExpiryDate,
			"quantity":    expiry.Quantity,
			"lot_number":  expiry.LotNumber,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) ListLineExpiries(ctx context.Context, key OrderKey, lineNo int) ([]models.LineExpiry, error) {
	var lots []models.LineExpiry
	err := r.db.WithContext(ctx).
		Where("order_date = ? AND order_seq = ? AND line_no = ?", key.OrderDate, key.OrderSeq, lineNo).
		Order("id ASC").
		Find(&lots).Error
	return lots, err
}

// MarkLineShipped records the shipment only while the line is neither shipped nor received.
func (r *repository) MarkLineShipped(ctx context.Context, key OrderKey, lineNo int, update ShipmentUpdate) (int64, error) {
	var shippedBy any
	if update.ShippedBy != "" {
		shippedBy = update.ShippedBy
	}
	res := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderLine{}).
		Where("order_date = ? AND order_seq = ? AND line_no = ?", key.OrderDate, key.OrderSeq, lineNo).
		Where("outbound_date IS NULL AND receiving_date IS NULL").
		Updates(map[string]any{
			"outbound_qty":      update.Quantity,
			"outbound_date":     update.OutboundDate,
			"estimated_arrival": update.EstimatedArrival,
			"ship_method":       update.ShipMethod,
			"logistics_company": update.LogisticsCompany,
			"transport_no":      update.TransportNo,
			"memo":              update.Memo,
			"shipped_by":        shippedBy,
		})
	return res.RowsAffected, res.Error
}

// ClearShipment withdraws the shipment fields of unreceived lines shipped on outboundDate.
func (r *repository) ClearShipment(ctx context.Context, key OrderKey, outboundDate string, lineNos []int) (int64, error) {
	if len(lineNos) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderLine{}).
		Where("order_date = ? AND order_seq = ? AND line_no IN ?", key.OrderDate, key.OrderSeq, lineNos).
		Where("outbound_date = ? AND receiving_date IS NULL", outboundDate).
		Updates(map[string]any{
			"outbound_date":     nil,
			"estimated_arrival": nil,
			"ship_method":       "",
			"logistics_company": "",
			"transport_no":      "",
			"memo":              "",
			"shipped_by":        nil,
		})
	return res.RowsAffected, res.Error
}
