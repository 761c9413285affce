package telemetry

import (
	"context"
	"testing"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewFulfillmentMetrics_NilMeter(t *testing.T) {
	m, err := NewFulfillmentMetrics(nil)
	require.Error(t, err)
	assert.Nil(t, m)
	assert.ErrorIs(t, err, ErrMeterNil)
}

func TestFulfillmentMetrics_Records(t *testing.T) {
	provider, reader := newTestMeterProvider(t)
	m, err := NewFulfillmentMetrics(provider.Meter("fulfillment"))
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordIdentifierAllocated(ctx, "ORD")
	m.RecordIdentifierAllocated(ctx, "PI")
	m.RecordDispatchCreated(ctx, trade.DocumentOrder, 3, true)
	m.RecordDispatchCreated(ctx, trade.DocumentOrder, 7, false)
	m.RecordDispatchRepaired(ctx, trade.DocumentProformaInvoice)
	m.RecordPayment(ctx, trade.DocumentProformaInvoice, trade.PaymentKindPayment, decimal.NewFromInt(950))
	m.RecordPayment(ctx, trade.DocumentProformaInvoice, trade.PaymentKindAdjustment, decimal.NewFromInt(-50))
	m.RecordPaymentRecordReviewed(ctx, trade.PaymentRecordStatusVerified)
	m.RecordConversion(ctx, trade.DocumentQuotation, trade.DocumentOrder)
	m.RecordConflictRetry(ctx, "create_dispatch")

	rm := collect(t, reader)
	assert.Equal(t, int64(2), int64Sum(t, rm, "avp_identifier_allocated_total"))
	assert.Equal(t, int64(2), int64Sum(t, rm, "avp_dispatch_created_total"))
	assert.Equal(t, int64(1), int64Sum(t, rm, "avp_dispatch_repaired_total"))
	assert.Equal(t, int64(2), int64Sum(t, rm, "avp_payment_total"))
	assert.Equal(t, int64(1), int64Sum(t, rm, "avp_payment_record_reviewed_total"))
	assert.Equal(t, int64(1), int64Sum(t, rm, "avp_document_conversion_total"))
	assert.Equal(t, int64(1), int64Sum(t, rm, "avp_conflict_retry_total"))

	units, ok := findMetric(rm, "avp_dispatch_units")
	require.True(t, ok)
	hist := units.Data.(metricdata.Histogram[float64])
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
	assert.InDelta(t, 10.0, hist.DataPoints[0].Sum, 1e-9)

	amount, ok := findMetric(rm, "avp_payment_amount_total")
	require.True(t, ok)
	var total float64
	for _, dp := range amount.Data.(metricdata.Sum[float64]).DataPoints {
		total += dp.Value
	}
	assert.InDelta(t, 1000.0, total, 1e-9)
}
