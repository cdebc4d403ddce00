package shipments

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/shipment-console/pkg/db/models"
	"github.com/angelmondragon/shipment-console/pkg/outbox"
)

// Repository defines persistence operations for the purchase-order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	SearchSummaries(ctx context.Context, filters SearchFilters) ([]SummaryRow, error)
	FindOrder(ctx context.Context, key OrderKey) (*models.PurchaseOrder, error)
	ListDetailRows(ctx context.Context, key OrderKey) ([]DetailRow, error)
	FindLines(ctx context.Context, key OrderKey, lineNos []int) ([]models.PurchaseOrderLine, error)
	FindLinesShippedOn(ctx context.Context, key OrderKey, outboundDate string) ([]models.PurchaseOrderLine, error)
	DeleteExpiries(ctx context.Context, key OrderKey, lineNo int, ids []int64) error
	DeleteLineExpiries(ctx context.Context, key OrderKey, lineNo int) error
	CreateExpiry(ctx context.Context, expiry *models.LineExpiry) error
	UpdateExpiry(ctx context.Context, expiry models.LineExpiry) (int64, error)
	ListLineExpiries(ctx context.Context, key OrderKey, lineNo int) ([]models.LineExpiry, error)
	MarkLineShipped(ctx context.Context, key OrderKey, lineNo int, update ShipmentUpdate) (int64, error)
	ClearShipment(ctx context.Context, key OrderKey, outboundDate string, lineNos []int) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}
