package models

// All lists every row model, in dependency order, for sqlite auto-migration.
func All() []any {
	return []any{
		&PurchaseOrder{},
		&PurchaseOrderLine{},
		&LineExpiry{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
