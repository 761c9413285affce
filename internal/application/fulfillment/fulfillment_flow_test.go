package fulfillment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/application/fulfillment"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/sequence"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/Tous-India/server-kb-crm-sub000/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	repos          fulfillment.Repositories
	documents      *fulfillment.DocumentService
	reconciliation *fulfillment.ReconciliationService
	ledger         *fulfillment.LedgerService
	records        *fulfillment.PaymentRecordService
	conversion     *fulfillment.ConversionService
	events         *recordingPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, persistence.AutoMigrateFulfillment(db))

	repos := persistence.NewFulfillmentRepositories(db)
	cfg := fulfillment.ServiceConfig{
		TxScope: persistence.NewGormTransactionScope(db),
		Repos:   repos,
		Logger:  zap.NewNop(),
	}
	clock := func() time.Time { return testNow }
	h := &harness{
		repos:          repos,
		documents:      fulfillment.NewDocumentService(cfg),
		reconciliation: fulfillment.NewReconciliationService(cfg),
		ledger:         fulfillment.NewLedgerService(cfg),
		records:        fulfillment.NewPaymentRecordService(cfg),
		events:         &recordingPublisher{},
	}
	h.conversion = fulfillment.NewConversionService(cfg, h.reconciliation)

	h.documents.SetClock(clock)
	h.reconciliation.SetClock(clock)
	h.ledger.SetClock(clock)
	h.records.SetClock(clock)
	h.conversion.SetClock(clock)

	h.documents.SetEventPublisher(h.events)
	h.reconciliation.SetEventPublisher(h.events)
	h.ledger.SetEventPublisher(h.events)
	h.records.SetEventPublisher(h.events)
	h.conversion.SetEventPublisher(h.events)
	return h
}

func parts(quantities ...int) []fulfillment.LineItemInput {
	out := make([]fulfillment.LineItemInput, len(quantities))
	for i, q := range quantities {
		out[i] = fulfillment.LineItemInput{
			PartID:     uuid.New(),
			PartNumber: "MS20995C" + string(rune('1'+i)),
			Quantity:   q,
			UnitPrice:  decimal.NewFromInt(100),
		}
	}
	return out
}

func (h *harness) proformaInvoice(t *testing.T, quantities ...int) *fulfillment.ProformaInvoiceResponse {
	t.Helper()
	pi, err := h.documents.CreateProformaInvoice(context.Background(), fulfillment.CreateProformaInvoiceRequest{
		BuyerID:   uuid.New(),
		BuyerName: "Skyline Aero MRO",
		Items:     parts(quantities...),
	})
	require.NoError(t, err)
	return pi
}

func (h *harness) openOrder(t *testing.T, quantities ...int) *fulfillment.OrderResponse {
	t.Helper()
	ctx := context.Background()
	o, err := h.documents.CreateOrder(ctx, fulfillment.CreateOrderRequest{
		BuyerID:   uuid.New(),
		BuyerName: "Skyline Aero MRO",
		Items:     parts(quantities...),
	})
	require.NoError(t, err)
	_, err = h.documents.ChangeStatus(ctx, trade.DocumentOrder, o.ID, fulfillment.ChangeStatusRequest{Status: "OPEN"})
	require.NoError(t, err)
	o, err = h.documents.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	return o
}

func dispatchLine(id uuid.UUID, qty int) []fulfillment.DispatchLineInput {
	return []fulfillment.DispatchLineInput{{LineItemID: id, Quantity: qty}}
}

func TestIdentifierNumbering(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.documents.CreateQuotation(ctx, fulfillment.CreateQuotationRequest{BuyerID: uuid.New(), Items: parts(1)})
	require.NoError(t, err)
	second, err := h.documents.CreateQuotation(ctx, fulfillment.CreateQuotationRequest{BuyerID: uuid.New(), Items: parts(1)})
	require.NoError(t, err)
	assert.Equal(t, "QUO-2026-0001", first.QuotationNumber)
	assert.Equal(t, "QUO-2026-0002", second.QuotationNumber)

	order, err := h.documents.CreateOrder(ctx, fulfillment.CreateOrderRequest{BuyerID: uuid.New(), Items: parts(2)})
	require.NoError(t, err)
	assert.Equal(t, "ORD-00001", order.OrderNumber)
	assert.Equal(t, "PO-2026-0001", order.PONumber)
	assert.Equal(t, "PENDING", order.Status)

	t.Run("peek does not consume", func(t *testing.T) {
		allocator := fulfillment.NewIdentifierAllocator(h.repos.Counters).WithClock(func() time.Time { return testNow })
		for i := 0; i < 2; i++ {
			next, err := allocator.PeekNext(ctx, sequence.EntityOrder, false)
			require.NoError(t, err)
			assert.Equal(t, "ORD-00002", next)
		}
	})

	t.Run("year scoped override on a global series", func(t *testing.T) {
		allocator := fulfillment.NewIdentifierAllocator(h.repos.Counters).WithClock(func() time.Time { return testNow })
		id, err := allocator.AllocateID(ctx, sequence.EntityInvoice, true)
		require.NoError(t, err)
		assert.Equal(t, "INV-2026-00001", id)
	})

	t.Run("unknown series", func(t *testing.T) {
		allocator := fulfillment.NewIdentifierAllocator(h.repos.Counters)
		_, err := allocator.Allocate(ctx, sequence.EntityType("WIDGET"))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestCreateDispatch_PartialThenFull(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pi := h.proformaInvoice(t, 5, 5)
	line1, line2 := pi.Items[0].ID, pi.Items[1].ID

	first, err := h.reconciliation.CreateDispatch(ctx, fulfillment.CreateDispatchRequest{
		SourceType: trade.DocumentProformaInvoice,
		SourceID:   pi.ID,
		Items:      dispatchLine(line1, 4),
		Shipping:   fulfillment.ShippingInput{Carrier: "FedEx", TrackingNumber: "7712 4410 0021"},
		CreatedBy:  "ops@skyline",
	})
	require.NoError(t, err)
	assert.Equal(t, "DSP-00001", first.Dispatch.DispatchNumber)
	assert.Equal(t, 1, first.Dispatch.DispatchSequence)
	assert.True(t, first.Dispatch.IsPartial)
	assert.Equal(t, 10, first.Reconcile.TotalQuantity)
	assert.Equal(t, 4, first.Reconcile.DispatchedQuantity)
	assert.Equal(t, 6, first.Reconcile.PendingQuantity)
	assert.Equal(t, "PARTIAL", first.Reconcile.DispatchStatus)
	assert.False(t, first.Reconcile.Dispatched)

	second, err := h.reconciliation.CreateDispatch(ctx, fulfillment.CreateDispatchRequest{
		SourceType: trade.DocumentProformaInvoice,
		SourceID:   pi.ID,
		Items: []fulfillment.DispatchLineInput{
			{LineItemID: line1, Quantity: 1},
			{LineItemID: line2, Quantity: 5},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Dispatch.DispatchSequence)
	assert.False(t, second.Dispatch.IsPartial)
	assert.Equal(t, 10, second.Reconcile.DispatchedQuantity)
	assert.Equal(t, 0, second.Reconcile.PendingQuantity)
	assert.Equal(t, "FULL", second.Reconcile.DispatchStatus)
	assert.True(t, second.Reconcile.Dispatched)
	assert.Equal(t, 2, second.Reconcile.DispatchCount)

	stored, err := h.documents.GetProformaInvoice(ctx, pi.ID)
	require.NoError(t, err)
	assert.True(t, stored.AllocationComplete)
	assert.Equal(t, 10, stored.Fulfillment.DispatchedQuantity)

	t.Run("nothing left to dispatch", func(t *testing.T) {
		_, err := h.reconciliation.CreateDispatch(ctx, fulfillment.CreateDispatchRequest{
			SourceType: trade.DocumentProformaInvoice,
			SourceID:   pi.ID,
			Items:      dispatchLine(line1, 1),
		})
		require.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("lists by sequence", func(t *testing.T) {
		list, err := h.reconciliation.ListDispatches(ctx, trade.DocumentProformaInvoice, pi.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, 1, list[0].DispatchSequence)
		assert.Equal(t, "FedEx", list[0].Carrier)
		assert.Equal(t, 2, list[1].DispatchSequence)
	})

	assert.Len(t, h.events.ofType(trade.EventTypeDispatchCreated), 2)
}

func TestCreateDispatch_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pi := h.proformaInvoice(t, 5)

	t.Run("more than pending", func(t *testing.T) {
		_, err := h.reconciliation.CreateDispatch(ctx, fulfillment.CreateDispatchRequest{
			SourceType: trade.DocumentProformaInvoice,
			SourceID:   pi.ID,
			Items:      dispatchLine(pi.Items[0].ID, 6),
		})
		require.ErrorIs(t, err, shared.ErrInvalidInput)

		got, err := h.reconciliation.ReconcileQuantities(ctx, trade.DocumentProformaInvoice, pi.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.DispatchedQuantity)
		assert.Equal(t, "NONE", got.DispatchStatus)
	})

	t.Run("foreign line item", func(t *testing.T) {
		_, err := h.reconciliation.CreateDispatch(ctx, fulfillment.CreateDispatchRequest{
			SourceType: trade.DocumentProformaInvoice,
			SourceID:   pi.ID,
			Items:      dispatchLine(uuid.New(), 1),
		})
		require.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("quotations are not dispatch sources", func(t *testing.T) {
		_, err := h.reconciliation.CreateDispatch(ctx, fulfillment.CreateDispatchRequest{
			SourceType: trade.DocumentQuotation,
			SourceID:   uuid.New(),
			Items:      dispatchLine(uuid.New(), 1),
		})
		require.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("missing source", func(t *testing.T) {
		_, err := h.reconciliation.CreateDispatch(ctx, fulfillment.CreateDispatchRequest{
			SourceType: trade.DocumentOrder,
			SourceID:   uuid.New(),
			Items:      dispatchLine(uuid.New(), 1),
		})
		require.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestRepairDispatchInconsistency(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.openOrder(t, 3)
	line := order.Items[0].ID

	first, err := h.reconciliation.CreateDispatch(ctx, fulfillment.CreateDispatchRequest{
		SourceType: trade.DocumentOrder, SourceID: order.ID, Items: dispatchLine(line, 1),
	})
	require.NoError(t, err)
	_, err = h.reconciliation.CreateDispatch(ctx, fulfillment.CreateDispatchRequest{
		SourceType: trade.DocumentOrder, SourceID: order.ID, Items: dispatchLine(line, 2),
	})
	require.NoError(t, err)

	dispatched, err := h.documents.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "DISPATCHED", dispatched.Status)

	repaired, err := h.reconciliation.RepairDispatchInconsistency(ctx, trade.DocumentOrder, order.ID, first.Dispatch.ID, "admin@skyline")
	require.NoError(t, err)
	assert.Equal(t, 2, repaired.DispatchedQuantity)
	assert.Equal(t, 1, repaired.PendingQuantity)
	assert.Equal(t, "PARTIAL", repaired.DispatchStatus)
	assert.Equal(t, "PROCESSING", repaired.DocumentStatus)

	_, err = h.reconciliation.GetDispatch(ctx, first.Dispatch.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Len(t, h.events.ofType(trade.EventTypeDispatchRemoved), 1)

	t.Run("dispatch of another source", func(t *testing.T) {
		other := h.openOrder(t, 1)
		list, err := h.reconciliation.ListDispatches(ctx, trade.DocumentOrder, order.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)

		_, err = h.reconciliation.RepairDispatchInconsistency(ctx, trade.DocumentOrder, other.ID, list[0].ID, "admin@skyline")
		require.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("invoiced dispatch is kept", func(t *testing.T) {
		list, err := h.reconciliation.ListDispatches(ctx, trade.DocumentOrder, order.ID)
		require.NoError(t, err)
		dispatchID := list[0].ID

		_, err = h.conversion.Convert(ctx, fulfillment.ConvertRequest{
			SourceType: trade.DocumentOrder,
			SourceID:   order.ID,
			TargetType: "INVOICE",
			Options:    fulfillment.ConvertOptions{DispatchID: &dispatchID},
		})
		require.NoError(t, err)

		_, err = h.reconciliation.RepairDispatchInconsistency(ctx, trade.DocumentOrder, order.ID, dispatchID, "admin@skyline")
		require.ErrorIs(t, err, shared.ErrInvalidState)
	})
}

func TestRepairDispatchInconsistency_DeliveredOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.openOrder(t, 2)
	handler := fulfillment.NewDispatchDeliveredHandler(h.reconciliation, h.repos.Dispatches, zap.NewNop())

	created, err := h.reconciliation.CreateDispatch(ctx, fulfillment.CreateDispatchRequest{
		SourceType: trade.DocumentOrder, SourceID: order.ID, Items: dispatchLine(order.Items[0].ID, 2),
	})
	require.NoError(t, err)
	for _, status := range []string{"IN_TRANSIT", "DELIVERED"} {
		_, err = h.reconciliation.UpdateDispatchTracking(ctx, fulfillment.UpdateDispatchTrackingRequest{
			DispatchID: created.Dispatch.ID, Status: status,
		})
		require.NoError(t, err)
	}
	for _, e := range h.events.ofType(trade.EventTypeDocumentStatusChanged) {
		require.NoError(t, handler.Handle(ctx, e))
	}

	_, err = h.reconciliation.RepairDispatchInconsistency(ctx, trade.DocumentOrder, order.ID, created.Dispatch.ID, "admin@skyline")
	require.ErrorIs(t, err, shared.ErrInvalidState)

	stored, err := h.documents.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "DELIVERED", stored.Status)
	assert.Equal(t, 2, stored.Fulfillment.DispatchedQuantity)
	assert.Equal(t, "FULL", stored.Fulfillment.DispatchStatus)

	_, err = h.reconciliation.GetDispatch(ctx, created.Dispatch.ID)
	assert.NoError(t, err)
	assert.Empty(t, h.events.ofType(trade.EventTypeDispatchRemoved))
}

func TestRecordPayment_OrderLedger(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order, err := h.documents.CreateOrder(ctx, fulfillment.CreateOrderRequest{BuyerID: uuid.New(), Items: parts(10)})
	require.NoError(t, err)
	require.True(t, order.Totals.TotalAmount.Equal(decimal.NewFromInt(1000)))

	pay := func(amount int64) (*fulfillment.PaymentResult, error) {
		return h.ledger.RecordPayment(ctx, fulfillment.RecordPaymentRequest{
			DocType:    trade.DocumentOrder,
			DocID:      order.ID,
			Amount:     decimal.NewFromInt(amount),
			Method:     "WIRE",
			RecordedBy: "finance@skyline",
		})
	}

	first, err := pay(500)
	require.NoError(t, err)
	assert.True(t, first.BalanceDue.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, "PARTIAL", first.PaymentStatus)

	second, err := pay(500)
	require.NoError(t, err)
	assert.True(t, second.BalanceDue.IsZero())
	assert.Equal(t, "PAID", second.PaymentStatus)

	_, err = pay(-10)
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	ledger, err := h.ledger.GetLedger(ctx, trade.DocumentOrder, order.ID)
	require.NoError(t, err)
	assert.True(t, ledger.PaymentReceived.Equal(decimal.NewFromInt(1000)))
	assert.Len(t, ledger.Payments, 2)

	t.Run("quotations carry no ledger", func(t *testing.T) {
		_, err := h.ledger.RecordPayment(ctx, fulfillment.RecordPaymentRequest{
			DocType: trade.DocumentQuotation, DocID: uuid.New(), Amount: decimal.NewFromInt(1), Method: "WIRE",
		})
		require.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestPaymentRecord_VerifyAppliesRecordedAmount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pi := h.proformaInvoice(t, 20)

	record, err := h.records.Submit(ctx, fulfillment.SubmitPaymentRecordRequest{
		ProformaInvoiceID: pi.ID,
		Amount:            decimal.NewFromInt(1000),
		Method:            "WIRE",
		Reference:         "SWIFT-88213",
		SubmittedBy:       "buyer@skyline",
	})
	require.NoError(t, err)
	assert.Equal(t, "PAY-00001", record.RecordNumber)
	assert.Equal(t, "PENDING", record.Status)

	untouched, err := h.documents.GetProformaInvoice(ctx, pi.ID)
	require.NoError(t, err)
	assert.True(t, untouched.Ledger.PaymentReceived.IsZero())

	verified, err := h.records.Verify(ctx, fulfillment.VerifyPaymentRecordRequest{
		RecordID:       record.ID,
		RecordedAmount: decimal.NewFromInt(950),
		Notes:          "bank fee deducted",
		ReviewedBy:     "finance@skyline",
	})
	require.NoError(t, err)
	assert.Equal(t, "VERIFIED", verified.Record.Status)
	assert.True(t, verified.Record.RecordedAmount.Equal(decimal.NewFromInt(950)))
	assert.True(t, verified.Payment.PaymentReceived.Equal(decimal.NewFromInt(950)))
	assert.True(t, verified.Payment.BalanceDue.Equal(decimal.NewFromInt(1050)))
	require.NotNil(t, verified.Record.ReviewedAt)
	assert.Equal(t, testNow, verified.Record.ReviewedAt.UTC())

	t.Run("cannot be verified twice", func(t *testing.T) {
		_, err := h.records.Verify(ctx, fulfillment.VerifyPaymentRecordRequest{RecordID: record.ID, ReviewedBy: "finance@skyline"})
		require.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("editing a verified record posts the difference", func(t *testing.T) {
		edited, err := h.records.Edit(ctx, fulfillment.EditPaymentRecordRequest{
			RecordID: record.ID,
			Amount:   decimal.NewFromInt(1000),
			Reason:   "fee refunded by bank",
			EditedBy: "finance@skyline",
		})
		require.NoError(t, err)
		require.Len(t, edited.EditHistory, 1)
		assert.True(t, edited.EditHistory[0].PreviousAmount.Equal(decimal.NewFromInt(950)))

		ledger, err := h.ledger.GetLedger(ctx, trade.DocumentProformaInvoice, pi.ID)
		require.NoError(t, err)
		assert.True(t, ledger.PaymentReceived.Equal(decimal.NewFromInt(1000)))
		assert.Len(t, ledger.Payments, 2)
	})
}

func TestPaymentRecord_RejectLeavesLedger(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pi := h.proformaInvoice(t, 2)

	record, err := h.records.Submit(ctx, fulfillment.SubmitPaymentRecordRequest{
		ProformaInvoiceID: pi.ID,
		Amount:            decimal.NewFromInt(200),
		Method:            "CHEQUE",
	})
	require.NoError(t, err)

	rejected, err := h.records.Reject(ctx, fulfillment.RejectPaymentRecordRequest{
		RecordID:   record.ID,
		Notes:      "cheque bounced",
		ReviewedBy: "finance@skyline",
	})
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", rejected.Status)
	assert.Equal(t, "cheque bounced", rejected.AdminNotes)

	ledger, err := h.ledger.GetLedger(ctx, trade.DocumentProformaInvoice, pi.ID)
	require.NoError(t, err)
	assert.True(t, ledger.PaymentReceived.IsZero())
	assert.Empty(t, ledger.Payments)

	_, err = h.records.Edit(ctx, fulfillment.EditPaymentRecordRequest{RecordID: record.ID, Amount: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, shared.ErrInvalidState)

	list, err := h.records.ListByProformaInvoice(ctx, pi.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPaymentRecord_FailedSubmitReleasesNumber(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pi := h.proformaInvoice(t, 1)

	_, err := h.records.Submit(ctx, fulfillment.SubmitPaymentRecordRequest{
		ProformaInvoiceID: pi.ID,
		Amount:            decimal.NewFromInt(-5),
		Method:            "WIRE",
	})
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	record, err := h.records.Submit(ctx, fulfillment.SubmitPaymentRecordRequest{
		ProformaInvoiceID: pi.ID,
		Amount:            decimal.NewFromInt(5),
		Method:            "WIRE",
	})
	require.NoError(t, err)
	assert.Equal(t, "PAY-00001", record.RecordNumber)
}

func TestConvert_QuotationLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	q, err := h.documents.CreateQuotation(ctx, fulfillment.CreateQuotationRequest{
		BuyerID:   uuid.New(),
		BuyerName: "Skyline Aero MRO",
		Items:     parts(4),
		Notes:     "AOG pricing",
	})
	require.NoError(t, err)

	t.Run("draft quotation cannot become an order", func(t *testing.T) {
		_, err := h.conversion.Convert(ctx, fulfillment.ConvertRequest{
			SourceType: trade.DocumentQuotation, SourceID: q.ID, TargetType: "ORDER",
		})
		require.ErrorIs(t, err, shared.ErrInvalidState)
		assert.Contains(t, err.Error(), "ACCEPTED")

		unchanged, err := h.documents.GetQuotation(ctx, q.ID)
		require.NoError(t, err)
		assert.Equal(t, "DRAFT", unchanged.Status)
		assert.Equal(t, q.Version, unchanged.Version)
	})

	_, err = h.documents.ChangeStatus(ctx, trade.DocumentQuotation, q.ID, fulfillment.ChangeStatusRequest{Status: "SENT"})
	require.NoError(t, err)
	_, err = h.documents.ChangeStatus(ctx, trade.DocumentQuotation, q.ID, fulfillment.ChangeStatusRequest{Status: "ACCEPTED"})
	require.NoError(t, err)

	converted, err := h.conversion.Convert(ctx, fulfillment.ConvertRequest{
		SourceType: trade.DocumentQuotation, SourceID: q.ID, TargetType: "ORDER",
	})
	require.NoError(t, err)
	assert.Equal(t, "CONVERTED", converted.SourceStatus)
	assert.Equal(t, trade.DocumentOrder, converted.Target.Type)
	assert.Equal(t, trade.EffectConverted, converted.Effect)

	order, ok := converted.TargetDocument.(fulfillment.OrderResponse)
	require.True(t, ok)
	assert.Equal(t, "OPEN", order.Status)
	assert.Equal(t, "AOG pricing", order.Notes)
	require.NotNil(t, order.SourceQuotationID)
	assert.Equal(t, q.ID, *order.SourceQuotationID)
	assert.Equal(t, q.Items[0].ID, order.Items[0].ID)

	t.Run("second conversion is refused", func(t *testing.T) {
		_, err := h.conversion.Convert(ctx, fulfillment.ConvertRequest{
			SourceType: trade.DocumentQuotation, SourceID: q.ID, TargetType: "ORDER",
		})
		require.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("unsupported pair", func(t *testing.T) {
		_, err := h.conversion.Convert(ctx, fulfillment.ConvertRequest{
			SourceType: trade.DocumentQuotation, SourceID: q.ID, TargetType: "INVOICE",
		})
		require.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	assert.Len(t, h.events.ofType(trade.EventTypeDocumentConverted), 1)
}

func TestConvert_ShippedOrderStaysAnOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order, err := h.documents.CreateOrder(ctx, fulfillment.CreateOrderRequest{
		BuyerID:   uuid.New(),
		BuyerName: "Skyline Aero MRO",
		Items:     parts(2),
	})
	require.NoError(t, err)
	require.Equal(t, "PENDING", order.Status)

	_, err = h.reconciliation.CreateDispatch(ctx, fulfillment.CreateDispatchRequest{
		SourceType: trade.DocumentOrder, SourceID: order.ID, Items: dispatchLine(order.Items[0].ID, 2),
	})
	require.NoError(t, err)

	_, err = h.conversion.Convert(ctx, fulfillment.ConvertRequest{
		SourceType: trade.DocumentOrder, SourceID: order.ID, TargetType: "QUOTATION",
	})
	require.ErrorIs(t, err, shared.ErrInvalidState)

	stored, err := h.documents.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", stored.Status)
	assert.Empty(t, h.events.ofType(trade.EventTypeDocumentConverted))

	quotations, err := h.documents.ListQuotations(ctx, fulfillment.DocumentListFilter{})
	require.NoError(t, err)
	assert.Zero(t, quotations.Total)
}

func TestConvert_InvoiceModesExcludeEachOther(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pi := h.proformaInvoice(t, 4)

	shipped, err := h.conversion.Convert(ctx, fulfillment.ConvertRequest{
		SourceType: trade.DocumentProformaInvoice,
		SourceID:   pi.ID,
		TargetType: "DISPATCH",
		Options:    fulfillment.ConvertOptions{Items: dispatchLine(pi.Items[0].ID, 4)},
	})
	require.NoError(t, err)
	assert.Equal(t, trade.EffectReconciled, shipped.Effect)

	invoiced, err := h.conversion.Convert(ctx, fulfillment.ConvertRequest{
		SourceType: trade.DocumentProformaInvoice,
		SourceID:   pi.ID,
		TargetType: "INVOICE",
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-00001", invoiced.Target.Number)
	invoice, ok := invoiced.TargetDocument.(fulfillment.InvoiceResponse)
	require.True(t, ok)
	assert.True(t, invoice.Totals.TotalAmount.Equal(pi.Totals.TotalAmount))

	dispatchID := shipped.Target.ID
	_, err = h.conversion.Convert(ctx, fulfillment.ConvertRequest{
		SourceType: trade.DocumentProformaInvoice,
		SourceID:   pi.ID,
		TargetType: "INVOICE",
		Options:    fulfillment.ConvertOptions{DispatchID: &dispatchID},
	})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestDispatchDeliveredHandler_CompletesOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.openOrder(t, 2)
	handler := fulfillment.NewDispatchDeliveredHandler(h.reconciliation, h.repos.Dispatches, zap.NewNop())

	created, err := h.reconciliation.CreateDispatch(ctx, fulfillment.CreateDispatchRequest{
		SourceType: trade.DocumentOrder, SourceID: order.ID, Items: dispatchLine(order.Items[0].ID, 2),
	})
	require.NoError(t, err)
	assert.Equal(t, "DISPATCHED", created.Reconcile.DocumentStatus)

	_, err = h.reconciliation.UpdateDispatchTracking(ctx, fulfillment.UpdateDispatchTrackingRequest{
		DispatchID: created.Dispatch.ID,
		Status:     "IN_TRANSIT",
		Carrier:    "DHL",
	})
	require.NoError(t, err)
	delivered, err := h.reconciliation.UpdateDispatchTracking(ctx, fulfillment.UpdateDispatchTrackingRequest{
		DispatchID: created.Dispatch.ID,
		Status:     "DELIVERED",
	})
	require.NoError(t, err)
	assert.Equal(t, "DHL", delivered.Carrier)
	assert.NotNil(t, delivered.DeliveredAt)

	for _, e := range h.events.ofType(trade.EventTypeDocumentStatusChanged) {
		require.NoError(t, handler.Handle(ctx, e))
	}

	stored, err := h.documents.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "DELIVERED", stored.Status)

	t.Run("rejects going back", func(t *testing.T) {
		_, err := h.reconciliation.UpdateDispatchTracking(ctx, fulfillment.UpdateDispatchTrackingRequest{
			DispatchID: created.Dispatch.ID,
			Status:     "IN_TRANSIT",
		})
		require.ErrorIs(t, err, shared.ErrInvalidState)
	})
}

func TestDocumentService_ListOrders(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := h.documents.CreateOrder(ctx, fulfillment.CreateOrderRequest{BuyerID: uuid.New(), BuyerName: "Skyline", Items: parts(1)})
		require.NoError(t, err)
	}
	h.openOrder(t, 1)

	page, err := h.documents.ListOrders(ctx, fulfillment.DocumentListFilter{Page: 1, PageSize: 2, Status: "PENDING"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 2)

	_, err = h.documents.ChangeStatus(ctx, trade.DocumentOrder, page.Items[0].ID, fulfillment.ChangeStatusRequest{Status: "DISPATCHED"})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}
