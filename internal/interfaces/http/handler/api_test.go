package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/application/fulfillment"
	"github.com/Tous-India/server-kb-crm-sub000/internal/infrastructure/event"
	"github.com/Tous-India/server-kb-crm-sub000/internal/infrastructure/logger"
	"github.com/Tous-India/server-kb-crm-sub000/internal/infrastructure/persistence"
	"github.com/Tous-India/server-kb-crm-sub000/internal/interfaces/http/handler"
	"github.com/Tous-India/server-kb-crm-sub000/internal/interfaces/http/middleware"
	"github.com/Tous-India/server-kb-crm-sub000/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field string `json:"field"`
		} `json:"details"`
	} `json:"error"`
	Meta *struct {
		Total    int64 `json:"total"`
		Page     int   `json:"page"`
		PageSize int   `json:"page_size"`
	} `json:"meta"`
}

type api struct {
	t      *testing.T
	engine *gin.Engine
}

func newAPI(t *testing.T, checks map[string]handler.Pinger) *api {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, persistence.AutoMigrateFulfillment(db))
	require.NoError(t, db.AutoMigrate(&event.JournalEntry{}))

	log := zap.NewNop()
	repos := persistence.NewFulfillmentRepositories(db)
	allocator := fulfillment.NewIdentifierAllocator(repos.Counters)
	cfg := fulfillment.ServiceConfig{
		TxScope:   persistence.NewGormTransactionScope(db),
		Repos:     repos,
		Allocator: allocator,
		Logger:    log,
	}
	documents := fulfillment.NewDocumentService(cfg)
	reconciliation := fulfillment.NewReconciliationService(cfg)
	ledger := fulfillment.NewLedgerService(cfg)
	records := fulfillment.NewPaymentRecordService(cfg)
	conversion := fulfillment.NewConversionService(cfg, reconciliation)

	journal := event.NewGormJournalRepository(db)
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewAuditHandler(journal, event.NewFulfillmentSerializer(), log))
	bus.Subscribe(fulfillment.NewDispatchDeliveredHandler(reconciliation, repos.Dispatches, log))
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	documents.SetEventPublisher(bus)
	reconciliation.SetEventPublisher(bus)
	ledger.SetEventPublisher(bus)
	records.SetEventPublisher(bus)
	conversion.SetEventPublisher(bus)

	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(logger.GinMiddleware(log), logger.Recovery(log))
	router.Mount(router.NewRouter(engine), router.Handlers{
		Sequences:      handler.NewSequenceHandler(allocator),
		Documents:      handler.NewDocumentHandler(documents),
		Conversions:    handler.NewConversionHandler(conversion),
		Dispatches:     handler.NewDispatchHandler(reconciliation),
		Ledger:         handler.NewLedgerHandler(ledger),
		PaymentRecords: handler.NewPaymentRecordHandler(records),
		Events:         handler.NewEventHandler(journal),
		Health:         handler.NewHealthHandler("test", checks),
	}).Setup()

	return &api{t: t, engine: engine}
}

func (a *api) do(method, path string, body any, headers ...string) (int, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func lineItems(quantities ...int) []map[string]any {
	out := make([]map[string]any, len(quantities))
	for i, q := range quantities {
		out[i] = map[string]any{
			"part_id":     uuid.NewString(),
			"part_number": fmt.Sprintf("AN960C%d", 416+i),
			"quantity":    q,
			"unit_price":  "100",
		}
	}
	return out
}

func documentBody(quantities ...int) map[string]any {
	return map[string]any{
		"buyer_id":   uuid.NewString(),
		"buyer_name": "Skyline Aero MRO",
		"items":      lineItems(quantities...),
	}
}

func (a *api) createProformaInvoice(quantities ...int) fulfillment.ProformaInvoiceResponse {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/v1/proforma-invoices", documentBody(quantities...))
	require.Equal(a.t, http.StatusCreated, code)
	return decode[fulfillment.ProformaInvoiceResponse](a.t, env)
}

func (a *api) openOrder(quantities ...int) fulfillment.OrderResponse {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/v1/orders", documentBody(quantities...))
	require.Equal(a.t, http.StatusCreated, code)
	o := decode[fulfillment.OrderResponse](a.t, env)
	code, _ = a.do(http.MethodPatch, "/api/v1/orders/"+o.ID.String()+"/status", map[string]any{"status": "OPEN"})
	require.Equal(a.t, http.StatusOK, code)
	return o
}

func dispatchBody(lineID uuid.UUID, qty int) map[string]any {
	return map[string]any{
		"items":    []map[string]any{{"line_item_id": lineID.String(), "quantity": qty}},
		"shipping": map[string]any{"carrier": "BlueDart", "tracking_number": "BD-7781"},
	}
}

func TestSequenceEndpoints(t *testing.T) {
	a := newAPI(t, nil)

	code, env := a.do(http.MethodGet, "/api/v1/sequences/order/peek", nil)
	require.Equal(t, http.StatusOK, code)
	peeked := decode[fulfillment.IdentifierResponse](t, env)
	assert.Equal(t, "ORD-00001", peeked.Identifier)
	assert.False(t, peeked.Consumed)

	code, env = a.do(http.MethodPost, "/api/v1/sequences/order/allocate", nil)
	require.Equal(t, http.StatusCreated, code)
	allocated := decode[fulfillment.IdentifierResponse](t, env)
	assert.Equal(t, "ORD-00001", allocated.Identifier)
	assert.True(t, allocated.Consumed)

	code, env = a.do(http.MethodPost, "/api/v1/sequences/order/allocate", nil)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "ORD-00002", decode[fulfillment.IdentifierResponse](t, env).Identifier)

	t.Run("year scoped by default", func(t *testing.T) {
		code, env := a.do(http.MethodPost, "/api/v1/sequences/purchase-order-number/allocate", nil)
		require.Equal(t, http.StatusCreated, code)
		id := decode[fulfillment.IdentifierResponse](t, env)
		assert.True(t, id.YearScoped)
		assert.Equal(t, "PO-"+strconv.Itoa(time.Now().Year())+"-0001", id.Identifier)
	})

	t.Run("year scope override", func(t *testing.T) {
		code, env := a.do(http.MethodPost, "/api/v1/sequences/invoice/allocate?year_scoped=true", nil)
		require.Equal(t, http.StatusCreated, code)
		assert.Equal(t, "INV-"+strconv.Itoa(time.Now().Year())+"-00001", decode[fulfillment.IdentifierResponse](t, env).Identifier)
	})

	t.Run("unknown series", func(t *testing.T) {
		code, env := a.do(http.MethodPost, "/api/v1/sequences/boarding-pass/allocate", nil)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.False(t, env.Success)
	})

	t.Run("malformed year_scoped", func(t *testing.T) {
		code, _ := a.do(http.MethodGet, "/api/v1/sequences/order/peek?year_scoped=sometimes", nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestDocumentEndpoints(t *testing.T) {
	a := newAPI(t, nil)

	t.Run("validation error lists fields", func(t *testing.T) {
		code, env := a.do(http.MethodPost, "/api/v1/orders", map[string]any{"buyer_name": "Skyline Aero MRO"})
		require.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
		assert.NotEmpty(t, env.Error.Details)
	})

	t.Run("malformed json", func(t *testing.T) {
		code, env := a.do(http.MethodPost, "/api/v1/quotations", `{"buyer_id":`)
		require.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "INVALID_JSON", env.Error.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		code, _ := a.do(http.MethodGet, "/api/v1/orders/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("missing document", func(t *testing.T) {
		code, env := a.do(http.MethodGet, "/api/v1/quotations/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, code)
		assert.False(t, env.Success)
	})

	t.Run("create get and list", func(t *testing.T) {
		code, env := a.do(http.MethodPost, "/api/v1/orders", documentBody(3, 2))
		require.Equal(t, http.StatusCreated, code)
		created := decode[fulfillment.OrderResponse](t, env)
		assert.Equal(t, "PENDING", created.Status)
		assert.Equal(t, "500", created.Totals.Subtotal.String())

		code, env = a.do(http.MethodGet, "/api/v1/orders/"+created.ID.String(), nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, created.OrderNumber, decode[fulfillment.OrderResponse](t, env).OrderNumber)

		code, env = a.do(http.MethodGet, "/api/v1/orders?page=1&page_size=10", nil)
		require.Equal(t, http.StatusOK, code)
		require.NotNil(t, env.Meta)
		assert.Equal(t, int64(1), env.Meta.Total)
		assert.Len(t, decode[[]fulfillment.OrderResponse](t, env), 1)
	})

	t.Run("status change", func(t *testing.T) {
		o := a.openOrder(1)
		code, env := a.do(http.MethodGet, "/api/v1/orders/"+o.ID.String(), nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "OPEN", decode[fulfillment.OrderResponse](t, env).Status)

		code, _ = a.do(http.MethodPatch, "/api/v1/orders/"+o.ID.String()+"/status", map[string]any{"status": "DISPATCHED"})
		assert.Equal(t, http.StatusBadRequest, code, "dispatched follows from dispatches")

		code, _ = a.do(http.MethodPatch, "/api/v1/orders/"+o.ID.String()+"/status", map[string]any{"status": "OPEN"})
		assert.Equal(t, http.StatusUnprocessableEntity, code, "already open")
	})
}

func TestProformaInvoiceDispatchFlow(t *testing.T) {
	a := newAPI(t, nil)
	pi := a.createProformaInvoice(5)
	base := "/api/v1/proforma-invoices/" + pi.ID.String()
	line := pi.Items[0].ID

	code, env := a.do(http.MethodPost, base+"/dispatches", dispatchBody(line, 2), logger.HeaderUserID, "warehouse.blr")
	require.Equal(t, http.StatusCreated, code)
	first := decode[fulfillment.CreateDispatchResponse](t, env)
	assert.True(t, first.Dispatch.IsPartial)
	assert.Equal(t, 2, first.Reconcile.DispatchedQuantity)
	assert.Equal(t, 3, first.Reconcile.PendingQuantity)

	code, _ = a.do(http.MethodPost, base+"/dispatches", dispatchBody(line, 4))
	assert.Equal(t, http.StatusBadRequest, code, "more than is pending")

	code, env = a.do(http.MethodPost, base+"/dispatches", dispatchBody(line, 3))
	require.Equal(t, http.StatusCreated, code)
	second := decode[fulfillment.CreateDispatchResponse](t, env)
	assert.False(t, second.Dispatch.IsPartial)
	assert.Equal(t, 0, second.Reconcile.PendingQuantity)

	code, _ = a.do(http.MethodPost, base+"/dispatches", dispatchBody(line, 1))
	assert.Equal(t, http.StatusUnprocessableEntity, code, "nothing left to dispatch")

	code, env = a.do(http.MethodGet, base+"/dispatches", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]fulfillment.DispatchResponse](t, env), 2)

	code, env = a.do(http.MethodPost, base+"/reconcile", nil)
	require.Equal(t, http.StatusOK, code)
	rec := decode[fulfillment.ReconcileResponse](t, env)
	assert.Equal(t, 5, rec.DispatchedQuantity)
	assert.Equal(t, 2, rec.DispatchCount)

	dispatchPath := "/api/v1/dispatches/" + first.Dispatch.ID.String()
	code, env = a.do(http.MethodPatch, dispatchPath+"/tracking", map[string]any{"status": "IN_TRANSIT", "tracking_number": "BD-9902"})
	require.Equal(t, http.StatusOK, code)
	updated := decode[fulfillment.DispatchResponse](t, env)
	assert.Equal(t, "IN_TRANSIT", updated.Status)
	assert.Equal(t, "BD-9902", updated.TrackingNumber)

	code, _ = a.do(http.MethodPatch, dispatchPath+"/tracking", map[string]any{"status": "LOST"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = a.do(http.MethodGet, dispatchPath, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, first.Dispatch.DispatchNumber, decode[fulfillment.DispatchResponse](t, env).DispatchNumber)

	code, env = a.do(http.MethodDelete, base+"/dispatches/"+second.Dispatch.ID.String(), nil)
	require.Equal(t, http.StatusOK, code)
	repaired := decode[fulfillment.ReconcileResponse](t, env)
	assert.Equal(t, 2, repaired.DispatchedQuantity)
	assert.Equal(t, 3, repaired.PendingQuantity)

	code, _ = a.do(http.MethodDelete, base+"/dispatches/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestOrderDeliveryCompletesFromDispatchTracking(t *testing.T) {
	a := newAPI(t, nil)
	o := a.openOrder(2)
	base := "/api/v1/orders/" + o.ID.String()

	code, env := a.do(http.MethodPost, base+"/dispatches", dispatchBody(o.Items[0].ID, 2))
	require.Equal(t, http.StatusCreated, code)
	d := decode[fulfillment.CreateDispatchResponse](t, env)
	assert.Equal(t, "DISPATCHED", d.Reconcile.DocumentStatus)

	code, env = a.do(http.MethodPost, base+"/complete-delivery", nil)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, decode[handler.CompleteDeliveryResponse](t, env).Completed)

	code, _ = a.do(http.MethodPatch, "/api/v1/dispatches/"+d.Dispatch.ID.String()+"/tracking", map[string]any{"status": "DELIVERED"})
	require.Equal(t, http.StatusOK, code)

	code, env = a.do(http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "DELIVERED", decode[fulfillment.OrderResponse](t, env).Status)
}

func TestPaymentRecordEndpoints(t *testing.T) {
	a := newAPI(t, nil)
	pi := a.createProformaInvoice(4)
	base := "/api/v1/proforma-invoices/" + pi.ID.String()

	code, env := a.do(http.MethodPost, base+"/payment-records", map[string]any{"amount": "150", "method": "WIRE", "reference": "UTR-55102"})
	require.Equal(t, http.StatusCreated, code)
	record := decode[fulfillment.PaymentRecordResponse](t, env)
	assert.Equal(t, "PENDING", record.Status)

	code, env = a.do(http.MethodPost, base+"/payment-records", map[string]any{"amount": "0", "method": "WIRE"})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	code, env = a.do(http.MethodGet, base+"/payment-records", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]fulfillment.PaymentRecordResponse](t, env), 1)

	recordPath := "/api/v1/payment-records/" + record.ID.String()
	code, env = a.do(http.MethodPatch, recordPath, map[string]any{"amount": "120", "reason": "bank charges"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "120", decode[fulfillment.PaymentRecordResponse](t, env).Amount.String())

	code, env = a.do(http.MethodPost, recordPath+"/verify", map[string]any{}, logger.HeaderUserID, "accounts.head")
	require.Equal(t, http.StatusOK, code)
	verified := decode[fulfillment.PaymentRecordResponse](t, env)
	assert.Equal(t, "VERIFIED", verified.Status)
	assert.Equal(t, "accounts.head", verified.ReviewedBy)

	code, _ = a.do(http.MethodPost, recordPath+"/reject", map[string]any{"notes": "duplicate"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, env = a.do(http.MethodGet, base+"/ledger", nil)
	require.Equal(t, http.StatusOK, code)
	ledger := decode[fulfillment.LedgerResponse](t, env)
	assert.Equal(t, "120", ledger.PaymentReceived.String())
	assert.Equal(t, "280", ledger.BalanceDue.String())

	code, env = a.do(http.MethodGet, recordPath+"/events", nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, decode[[]handler.EventResponse](t, env))
}

func TestLedgerEndpoints(t *testing.T) {
	a := newAPI(t, nil)
	o := a.openOrder(3)
	base := "/api/v1/orders/" + o.ID.String()

	code, env := a.do(http.MethodPost, base+"/payments", map[string]any{"amount": "-5", "method": "CASH"})
	require.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	require.NotEmpty(t, env.Error.Details)
	assert.Equal(t, "amount", env.Error.Details[0].Field)

	code, env = a.do(http.MethodPost, base+"/payments", map[string]any{"amount": "100", "method": "CASH"})
	require.Equal(t, http.StatusCreated, code)
	result := decode[fulfillment.PaymentResult](t, env)
	assert.Equal(t, "100", result.PaymentReceived.String())

	code, env = a.do(http.MethodGet, base+"/ledger", nil)
	require.Equal(t, http.StatusOK, code)
	ledger := decode[fulfillment.LedgerResponse](t, env)
	assert.Len(t, ledger.Payments, 1)
	assert.Equal(t, "200", ledger.BalanceDue.String())
}

func TestConversionEndpoint(t *testing.T) {
	a := newAPI(t, nil)
	code, env := a.do(http.MethodPost, "/api/v1/quotations", documentBody(2))
	require.Equal(t, http.StatusCreated, code)
	q := decode[fulfillment.QuotationResponse](t, env)
	convertPath := "/api/v1/quotations/" + q.ID.String() + "/convert"

	code, _ = a.do(http.MethodPost, convertPath, map[string]any{"target_type": "ORDER"})
	assert.Equal(t, http.StatusUnprocessableEntity, code, "draft quotation")

	for _, status := range []string{"SENT", "ACCEPTED"} {
		code, _ = a.do(http.MethodPatch, "/api/v1/quotations/"+q.ID.String()+"/status", map[string]any{"status": status})
		require.Equal(t, http.StatusOK, code, status)
	}

	code, env = a.do(http.MethodPost, convertPath, map[string]any{"target_type": "ORDER"})
	require.Equal(t, http.StatusCreated, code)
	converted := decode[fulfillment.ConvertResponse](t, env)
	assert.Equal(t, q.ID, converted.Source.ID)

	code, _ = a.do(http.MethodPost, convertPath, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestEventHistory(t *testing.T) {
	a := newAPI(t, nil)
	code, env := a.do(http.MethodPost, "/api/v1/orders", documentBody(1), logger.HeaderUserID, "sales.desk")
	require.Equal(t, http.StatusCreated, code)
	o := decode[fulfillment.OrderResponse](t, env)

	code, env = a.do(http.MethodGet, "/api/v1/orders/"+o.ID.String()+"/events", nil)
	require.Equal(t, http.StatusOK, code)
	events := decode[[]handler.EventResponse](t, env)
	require.NotEmpty(t, events)
	assert.Equal(t, "ORDER", events[0].AggregateType)
	assert.Equal(t, "sales.desk", events[0].Actor)
	assert.NotEmpty(t, events[0].RequestID)

	code, env = a.do(http.MethodGet, "/api/v1/quotations/"+o.ID.String()+"/events", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]handler.EventResponse](t, env))

	code, _ = a.do(http.MethodGet, "/api/v1/orders/"+o.ID.String()+"/events?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHealthEndpoints(t *testing.T) {
	healthy := newAPI(t, map[string]handler.Pinger{
		"database": handler.PingFunc(func(context.Context) error { return nil }),
	})
	code, env := healthy.do(http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", decode[handler.HealthResponse](t, env).Checks["database"])

	code, _ = healthy.do(http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, code)

	down := newAPI(t, map[string]handler.Pinger{
		"database": handler.PingFunc(func(context.Context) error { return nil }),
		"redis":    handler.PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	code, env = down.do(http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", env.Error.Code)
	body := decode[handler.HealthResponse](t, env)
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, "connection refused", body.Checks["redis"])
}
