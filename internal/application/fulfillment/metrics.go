package fulfillment

import (
	"context"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// MetricsRecorder receives business measurements from the fulfillment services.
// telemetry.FulfillmentMetrics is the production implementation.
type MetricsRecorder interface {
	RecordIdentifierAllocated(ctx context.Context, series string)
	RecordDispatchCreated(ctx context.Context, source trade.DocumentType, quantity int, partial bool)
	RecordDispatchRepaired(ctx context.Context, source trade.DocumentType)
	RecordPayment(ctx context.Context, doc trade.DocumentType, kind trade.PaymentKind, amount decimal.Decimal)
	RecordPaymentRecordReviewed(ctx context.Context, status trade.PaymentRecordStatus)
	RecordConversion(ctx context.Context, from, to trade.DocumentType)
	RecordConflictRetry(ctx context.Context, operation string)
}

type noopMetrics struct{}

func (noopMetrics) RecordIdentifierAllocated(context.Context, string) {}
func (noopMetrics) RecordDispatchCreated(context.Context, trade.DocumentType, int, bool) {}
func (noopMetrics) RecordDispatchRepaired(context.Context, trade.DocumentType) {}
func (noopMetrics) RecordPaymentRecordReviewed(context.Context, trade.PaymentRecordStatus) {}
func (noopMetrics) RecordConversion(context.Context, trade.DocumentType, trade.DocumentType) {}
func (noopMetrics) RecordConflictRetry(context.Context, string) {}
func (noopMetrics) RecordPayment(context.Context, trade.DocumentType, trade.PaymentKind, decimal.Decimal) {}
