package fulfillment

import (
	"context"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerService applies payments to orders, proforma invoices and invoices
type LedgerService struct {
	serviceBase
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(cfg ServiceConfig) *LedgerService {
	return &LedgerService{serviceBase: newServiceBase(cfg)}
}

// RecordPayment appends a payment to a document ledger and returns the new balance
func (s *LedgerService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResult, error) {
	if !req.Amount.IsPositive() {
		return nil, shared.NewInvalidInputError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !req.DocType.IsBillable() {
		return nil, shared.NewInvalidInputError("INVALID_DOCUMENT_TYPE",
			"Payments can only be recorded against orders, proforma invoices and invoices")
	}

	var result PaymentResult
	err := s.mutate(ctx, "record_payment", req.DocType, req.DocID, func(repos TransactionalRepositories, events *eventBatch) error {
		doc, err := loadPayable(ctx, repos, req.DocType, req.DocID)
		if err != nil {
			return err
		}
		entry, err := doc.RecordPayment(trade.PaymentInput{
			Amount:     req.Amount,
			Method:     req.Method,
			Notes:      req.Notes,
			RecordedBy: req.RecordedBy,
		})
		if err != nil {
			return err
		}
		if err := savePayable(ctx, repos, doc); err != nil {
			return err
		}
		events.collect(doc)
		result = toPaymentResult(doc, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPayment(ctx, req.DocType, trade.PaymentKindPayment, req.Amount)
	s.logger.Info("Payment recorded",
		zap.String("document_type", string(req.DocType)),
		zap.String("document_number", result.Document.Number),
		zap.String("amount", req.Amount.String()),
		zap.String("balance_due", result.BalanceDue.String()),
		zap.String("payment_status", result.PaymentStatus),
	)
	return &result, nil
}

// GetLedger returns the payment state of a document
func (s *LedgerService) GetLedger(ctx context.Context, docType trade.DocumentType, id uuid.UUID) (*LedgerResponse, error) {
	var response LedgerResponse
	switch docType {
	case trade.DocumentOrder:
		o, err := s.repos.Orders.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		response = toLedgerResponse(o.Ledger)
	case trade.DocumentProformaInvoice:
		pi, err := s.repos.ProformaInvoices.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		response = toLedgerResponse(pi.Ledger)
	case trade.DocumentInvoice:
		inv, err := s.repos.Invoices.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		response = toLedgerResponse(inv.Ledger)
	default:
		return nil, shared.NewInvalidInputError("INVALID_DOCUMENT_TYPE",
			"Payments can only be recorded against orders, proforma invoices and invoices")
	}
	return &response, nil
}
