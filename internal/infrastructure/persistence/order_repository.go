package persistence

import (
	"context"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/sequence"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var orderQuery = documentQuery{
	searchColumns: []string{"order_number", "po_number", "buyer_name"},
	filterColumns: map[string]string{
		"status":          "status",
		"buyer_id":        "buyer_id",
		"dispatch_status": "dispatch_status",
		"payment_status":  "payment_status",
	},
	sortFields: OrderSortFields,
}

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	return findOne[trade.Order](ctx, r.db, "ORDER_NOT_FOUND", "Order", "id = ?", id)
}

// FindByNumber finds an order by its order number or PO number
func (r *GormOrderRepository) FindByNumber(ctx context.Context, number string) (*trade.Order, error) {
	if err := checkNumber(number, sequence.EntityOrder, sequence.EntityPONumber); err != nil {
		return nil, err
	}
	return findOne[trade.Order](ctx, r.db, "ORDER_NOT_FOUND", "Order", "order_number = ? OR po_number = ?", number, number)
}

// FindAll finds orders with filtering
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]trade.Order, error) {
	return findAll[trade.Order](ctx, r.db, orderQuery, filter)
}

// Count counts orders matching the filter
func (r *GormOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	return count[trade.Order](ctx, r.db, orderQuery, filter)
}

// Create inserts a new order
func (r *GormOrderRepository) Create(ctx context.Context, order *trade.Order) error {
	return create(ctx, r.db, order, "order")
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, order *trade.Order) error {
	return saveWithLock(ctx, r.db, order, "order")
}

// Ensure GormOrderRepository implements OrderRepository
var _ trade.OrderRepository = (*GormOrderRepository)(nil)
