package trade

import (
	"testing"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// orderWithTotal creates an order whose total equals qty x 100
func orderWithTotal(t *testing.T, qty int) *Order {
	t.Helper()
	o, err := NewOrder("ORD-00001", "PO-2026-0001", testBuyer(), testItems(t, qty), PricingInput{}, OrderStatusOpen)
	require.NoError(t, err)
	return o
}

func TestPaymentStatusFor(t *testing.T) {
	tests := []struct {
		received string
		total    string
		want     PaymentStatus
	}{
		{"0", "1000", PaymentStatusUnpaid},
		{"0.01", "1000", PaymentStatusPartial},
		{"999.99", "1000", PaymentStatusPartial},
		{"1000", "1000", PaymentStatusPaid},
		{"1200", "1000", PaymentStatusPaid},
		{"0", "0", PaymentStatusPaid},
	}
	for _, tt := range tests {
		t.Run(tt.received+"/"+tt.total, func(t *testing.T) {
			assert.Equal(t, tt.want, PaymentStatusFor(dec(tt.received), dec(tt.total)))
		})
	}
}

func TestLedger_ApplyPayment(t *testing.T) {
	total := dec("1000")
	l := NewLedger(total)
	assert.Equal(t, PaymentStatusUnpaid, l.PaymentStatus)
	assert.True(t, l.BalanceDue.Equal(total))

	entry, err := l.ApplyPayment(total, PaymentInput{Amount: dec("1200"), Method: " wire ", RecordedBy: "admin"})
	require.NoError(t, err)
	assert.Equal(t, PaymentKindPayment, entry.Kind)
	assert.Equal(t, "wire", entry.Method)
	assert.Equal(t, PaymentStatusPaid, l.PaymentStatus)
	// Raw overpayment is kept for display
	assert.Equal(t, "-200", l.BalanceDue.String())
	assert.Len(t, l.Payments, 1)
}

func TestLedger_ApplyAdjustment(t *testing.T) {
	total := dec("1000")
	l := NewLedger(total)
	_, err := l.ApplyPayment(total, PaymentInput{Amount: dec("400")})
	require.NoError(t, err)

	_, err = l.ApplyAdjustment(total, PaymentInput{Amount: dec("-50")})
	require.NoError(t, err)
	assert.Equal(t, "350", l.PaymentReceived.String())
	assert.Equal(t, "650", l.BalanceDue.String())

	_, err = l.ApplyAdjustment(total, PaymentInput{Amount: dec("-500")})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = l.ApplyAdjustment(total, PaymentInput{Amount: decimal.Zero})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Len(t, l.Payments, 2)
}

func TestLedger_PaymentsJSONRoundTrip(t *testing.T) {
	l := NewLedger(dec("10"))
	recordID := uuid.New()
	_, err := l.ApplyPayment(dec("10"), PaymentInput{Amount: dec("4.50"), PaymentRecordID: &recordID})
	require.NoError(t, err)

	raw, err := l.Payments.Value()
	require.NoError(t, err)
	var scanned PaymentEntries
	require.NoError(t, scanned.Scan(raw))
	require.Len(t, scanned, 1)
	assert.Equal(t, recordID, *scanned[0].PaymentRecordID)
	assert.True(t, scanned[0].Amount.Equal(dec("4.50")))
}

func TestOrder_RecordPayment_PartialThenSettled(t *testing.T) {
	o := orderWithTotal(t, 10)
	require.Equal(t, "1000", o.TotalAmount.String())

	_, err := o.RecordPayment(PaymentInput{Amount: dec("500"), Method: "wire"})
	require.NoError(t, err)
	assert.Equal(t, "500", o.BalanceDue.String())
	assert.Equal(t, PaymentStatusPartial, o.PaymentStatus)

	_, err = o.RecordPayment(PaymentInput{Amount: dec("500"), Method: "wire"})
	require.NoError(t, err)
	assert.True(t, o.BalanceDue.IsZero())
	assert.Equal(t, PaymentStatusPaid, o.PaymentStatus)

	before := o.Ledger
	_, err = o.RecordPayment(PaymentInput{Amount: dec("-10")})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.True(t, before.PaymentReceived.Equal(o.PaymentReceived))
	assert.Len(t, o.Payments, 2)
}

func TestOrder_RecordPayment_Cancelled(t *testing.T) {
	o := orderWithTotal(t, 1)
	require.NoError(t, o.Cancel("buyer withdrew"))

	_, err := o.RecordPayment(PaymentInput{Amount: dec("10")})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.True(t, o.PaymentReceived.IsZero())
}

// ============================================
// Invoice Tests
// ============================================

func newTestInvoice(t *testing.T, qty int) *Invoice {
	t.Helper()
	inv, err := NewInvoice("INV-00001", SourceRef{Type: DocumentOrder, ID: uuid.New(), Number: "ORD-00001"}, nil,
		testBuyer(), testItems(t, qty), PricingInput{}, nil)
	require.NoError(t, err)
	return inv
}

func TestInvoice_StatusFollowsPayments(t *testing.T) {
	inv := newTestInvoice(t, 2) // 200
	assert.Equal(t, InvoiceStatusUnpaid, inv.Status)

	_, err := inv.RecordPayment(PaymentInput{Amount: dec("50")})
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusPartial, inv.Status)

	require.NoError(t, inv.MarkOverdue())
	_, err = inv.RecordPayment(PaymentInput{Amount: dec("50")})
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusOverdue, inv.Status, "overdue sticks until fully paid")

	_, err = inv.RecordPayment(PaymentInput{Amount: dec("100")})
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusPaid, inv.Status)
	assert.NotNil(t, inv.PaidAt)
}

func TestInvoice_CancelAndRefund(t *testing.T) {
	t.Run("cannot cancel with payments", func(t *testing.T) {
		inv := newTestInvoice(t, 1)
		_, err := inv.RecordPayment(PaymentInput{Amount: dec("10")})
		require.NoError(t, err)
		assert.ErrorIs(t, inv.Cancel(), shared.ErrInvalidState)
		require.NoError(t, inv.Refund())
		assert.Equal(t, InvoiceStatusRefunded, inv.Status)

		_, err = inv.RecordPayment(PaymentInput{Amount: dec("10")})
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("cancelled invoice rejects payments", func(t *testing.T) {
		inv := newTestInvoice(t, 1)
		require.NoError(t, inv.Cancel())
		_, err := inv.RecordPayment(PaymentInput{Amount: dec("10")})
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.ErrorIs(t, inv.Refund(), shared.ErrInvalidState)
	})
}

func TestInvoice_ZeroTotalIsPaid(t *testing.T) {
	item, err := NewLineItem(uuid.New(), "PN-FOC", "Free of charge sample", 1, decimal.Zero)
	require.NoError(t, err)
	inv, err := NewInvoice("INV-00002", SourceRef{Type: DocumentProformaInvoice, ID: uuid.New()}, nil,
		testBuyer(), LineItems{item}, PricingInput{}, nil)
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusPaid, inv.Status)
	assert.Equal(t, PaymentStatusPaid, inv.PaymentStatus)
}
