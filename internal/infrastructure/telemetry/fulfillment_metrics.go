package telemetry

import (
	"context"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// FulfillmentMetrics records the business counters of the fulfillment core.
// It satisfies fulfillment.MetricsRecorder.
type FulfillmentMetrics struct {
	identifiersAllocated *Counter
	dispatchesCreated    *Counter
	dispatchedUnits      *Histogram
	dispatchesRepaired   *Counter
	payments             *Counter
	paymentAmount        metric.Float64Counter
	recordsReviewed      *Counter
	conversions          *Counter
	conflictRetries      *Counter
}

// NewFulfillmentMetrics registers the instruments on meter.
func NewFulfillmentMetrics(meter metric.Meter) (*FulfillmentMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &FulfillmentMetrics{}
	var err error

	if m.identifiersAllocated, err = NewCounter(meter,
		"avp_identifier_allocated_total", "Document numbers handed out", "{identifiers}"); err != nil {
		return nil, err
	}
	if m.dispatchesCreated, err = NewCounter(meter,
		"avp_dispatch_created_total", "Dispatches recorded against orders and proforma invoices", "{dispatches}"); err != nil {
		return nil, err
	}
	if m.dispatchedUnits, err = NewHistogram(meter, HistogramOpts{
		Name:        "avp_dispatch_units",
		Description: "Units shipped per dispatch",
		Unit:        "{units}",
		Boundaries:  QuantityBuckets,
	}); err != nil {
		return nil, err
	}
	if m.dispatchesRepaired, err = NewCounter(meter,
		"avp_dispatch_repaired_total", "Dispatches rolled back by the repair operation", "{dispatches}"); err != nil {
		return nil, err
	}
	if m.payments, err = NewCounter(meter,
		"avp_payment_total", "Ledger entries posted", "{payments}"); err != nil {
		return nil, err
	}
	if m.paymentAmount, err = meter.Float64Counter("avp_payment_amount_total",
		metric.WithDescription("Sum of posted ledger entry amounts in document currency"),
		metric.WithUnit("{currency}"),
	); err != nil {
		return nil, err
	}
	if m.recordsReviewed, err = NewCounter(meter,
		"avp_payment_record_reviewed_total", "Buyer payment records verified or rejected", "{records}"); err != nil {
		return nil, err
	}
	if m.conversions, err = NewCounter(meter,
		"avp_document_conversion_total", "Document conversions by source and target", "{conversions}"); err != nil {
		return nil, err
	}
	if m.conflictRetries, err = NewCounter(meter,
		"avp_conflict_retry_total", "Transactions retried after losing an optimistic race", "{retries}"); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *FulfillmentMetrics) RecordIdentifierAllocated(ctx context.Context, series string) {
	m.identifiersAllocated.Inc(ctx, AttrSeries.String(series))
}

func (m *FulfillmentMetrics) RecordDispatchCreated(ctx context.Context, source trade.DocumentType, quantity int, partial bool) {
	scope := "full"
	if partial {
		scope = "partial"
	}
	attrs := []attribute.KeyValue{AttrDocumentType.String(string(source)), AttrDispatchScope.String(scope)}
	m.dispatchesCreated.Inc(ctx, attrs...)
	m.dispatchedUnits.Record(ctx, float64(quantity), attrs[0])
}

func (m *FulfillmentMetrics) RecordDispatchRepaired(ctx context.Context, source trade.DocumentType) {
	m.dispatchesRepaired.Inc(ctx, AttrDocumentType.String(string(source)))
}

func (m *FulfillmentMetrics) RecordPayment(ctx context.Context, doc trade.DocumentType, kind trade.PaymentKind, amount decimal.Decimal) {
	attrs := []attribute.KeyValue{AttrDocumentType.String(string(doc)), AttrPaymentKind.String(string(kind))}
	m.payments.Inc(ctx, attrs...)
	// adjustments may be negative; counters only take the magnitude
	m.paymentAmount.Add(ctx, amount.Abs().InexactFloat64(), metric.WithAttributes(attrs...))
}

func (m *FulfillmentMetrics) RecordPaymentRecordReviewed(ctx context.Context, status trade.PaymentRecordStatus) {
	m.recordsReviewed.Inc(ctx, AttrRecordStatus.String(string(status)))
}

func (m *FulfillmentMetrics) RecordConversion(ctx context.Context, from, to trade.DocumentType) {
	m.conversions.Inc(ctx, AttrDocumentType.String(string(from)), AttrTargetType.String(string(to)))
}

func (m *FulfillmentMetrics) RecordConflictRetry(ctx context.Context, operation string) {
	m.conflictRetries.Inc(ctx, AttrOperation.String(operation))
}
