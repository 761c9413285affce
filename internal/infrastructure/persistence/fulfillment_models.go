package persistence

import (
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"gorm.io/gorm"
)

// FulfillmentModels lists the tables owned by the fulfillment context
func FulfillmentModels() []interface{} {
	return []interface{}{
		&SequenceCounter{},
		&trade.Quotation{},
		&trade.Order{},
		&trade.ProformaInvoice{},
		&trade.Dispatch{},
		&trade.Invoice{},
		&trade.PaymentRecord{},
	}
}

// AutoMigrateFulfillment creates or updates the fulfillment tables from the
// GORM models. Production schemas come from the SQL migrations; this is for
// tests and local SQLite databases.
func AutoMigrateFulfillment(db *gorm.DB) error {
	return db.AutoMigrate(FulfillmentModels()...)
}
