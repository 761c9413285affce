package router

import (
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/gin-gonic/gin"
	"github.com/Tous-India/server-kb-crm-sub000/internal/interfaces/http/handler"
)

// Handlers are the HTTP handlers of the fulfillment API
type Handlers struct {
	Sequences      *handler.SequenceHandler
	Documents      *handler.DocumentHandler
	Conversions    *handler.ConversionHandler
	Dispatches     *handler.DispatchHandler
	Ledger         *handler.LedgerHandler
	PaymentRecords *handler.PaymentRecordHandler
	Events         *handler.EventHandler
	Health         *handler.HealthHandler
	// Docs serves the swagger UI and spec; nil leaves /swagger unmounted
	Docs gin.HandlerFunc
}

// FulfillmentGroups builds the /api/{version} route groups. Each document
// type gets its own static prefix so the document type is fixed by the route.
func FulfillmentGroups(h Handlers) []*DomainGroup {
	sequences := NewDomainGroup("sequences", "/sequences").
		POST("/:entity_type/allocate", h.Sequences.Allocate).
		GET("/:entity_type/peek", h.Sequences.Peek)

	quotations := documentGroup(h, trade.DocumentQuotation, "/quotations").
		POST("", h.Documents.CreateQuotation)

	orders := documentGroup(h, trade.DocumentOrder, "/orders").
		POST("", h.Documents.CreateOrder).
		POST("/:id/complete-delivery", h.Dispatches.CompleteDelivery)
	dispatchRoutes(orders, h, trade.DocumentOrder)
	ledgerRoutes(orders, h, trade.DocumentOrder)

	proformaInvoices := documentGroup(h, trade.DocumentProformaInvoice, "/proforma-invoices").
		POST("", h.Documents.CreateProformaInvoice).
		POST("/:id/payment-records", h.PaymentRecords.Submit).
		GET("/:id/payment-records", h.PaymentRecords.ListByProformaInvoice)
	dispatchRoutes(proformaInvoices, h, trade.DocumentProformaInvoice)
	ledgerRoutes(proformaInvoices, h, trade.DocumentProformaInvoice)

	invoices := documentGroup(h, trade.DocumentInvoice, "/invoices")
	ledgerRoutes(invoices, h, trade.DocumentInvoice)

	dispatches := NewDomainGroup("dispatches", "/dispatches").
		GET("/:id", h.Dispatches.Get).
		PATCH("/:id/tracking", h.Dispatches.UpdateTracking).
		GET("/:id/events", h.Events.History(string(trade.DocumentDispatch)))

	paymentRecords := NewDomainGroup("payment-records", "/payment-records").
		GET("/:id", h.PaymentRecords.Get).
		PATCH("/:id", h.PaymentRecords.Edit).
		POST("/:id/verify", h.PaymentRecords.Verify).
		POST("/:id/reject", h.PaymentRecords.Reject).
		GET("/:id/events", h.Events.History(trade.AggregateTypePaymentRecord))

	return []*DomainGroup{sequences, quotations, orders, proformaInvoices, invoices, dispatches, paymentRecords}
}

// HealthGroup builds the health routes mounted at the engine root
func HealthGroup(h *handler.HealthHandler) *DomainGroup {
	return NewDomainGroup("health", "/health").
		GET("", h.Live).
		GET("/live", h.Live).
		GET("/ready", h.Ready)
}

// DocsGroup mounts the API documentation at the engine root
func DocsGroup(docs gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("docs", "/swagger").
		GET("/*any", docs)
}

// Mount registers the fulfillment API, the health routes and the docs on r
func Mount(r *Router, h Handlers) *Router {
	for _, g := range FulfillmentGroups(h) {
		r.Register(g)
	}
	if h.Health != nil {
		r.RegisterRoot(HealthGroup(h.Health))
	}
	if h.Docs != nil {
		r.RegisterRoot(DocsGroup(h.Docs))
	}
	return r
}

func documentGroup(h Handlers, docType trade.DocumentType, prefix string) *DomainGroup {
	return NewDomainGroup(docType.Label(), prefix).
		GET("", h.Documents.List(docType)).
		GET("/:id", h.Documents.Get(docType)).
		PATCH("/:id/status", h.Documents.ChangeStatus(docType)).
		POST("/:id/convert", h.Conversions.Convert(docType)).
		GET("/:id/events", h.Events.History(string(docType)))
}

func dispatchRoutes(g *DomainGroup, h Handlers, docType trade.DocumentType) {
	g.POST("/:id/dispatches", h.Dispatches.Create(docType)).
		GET("/:id/dispatches", h.Dispatches.List(docType)).
		DELETE("/:id/dispatches/:dispatch_id", h.Dispatches.Repair(docType)).
		POST("/:id/reconcile", h.Dispatches.Reconcile(docType))
}

func ledgerRoutes(g *DomainGroup, h Handlers, docType trade.DocumentType) {
	g.POST("/:id/payments", h.Ledger.RecordPayment(docType)).
		GET("/:id/ledger", h.Ledger.GetLedger(docType))
}
