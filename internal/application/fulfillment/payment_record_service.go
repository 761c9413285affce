package fulfillment

import (
	"context"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/sequence"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentRecordService runs the submit / verify / reject protocol for payment
// evidence against proforma invoices. Only verification touches the PI ledger.
type PaymentRecordService struct {
	serviceBase
}

// NewPaymentRecordService creates a new PaymentRecordService
func NewPaymentRecordService(cfg ServiceConfig) *PaymentRecordService {
	return &PaymentRecordService{serviceBase: newServiceBase(cfg)}
}

// Submit creates a PENDING payment record against a proforma invoice
func (s *PaymentRecordService) Submit(ctx context.Context, req SubmitPaymentRecordRequest) (*PaymentRecordResponse, error) {
	var response PaymentRecordResponse
	err := s.inTx(ctx, func(repos TransactionalRepositories, events *eventBatch) error {
		pi, err := repos.ProformaInvoices().FindByID(ctx, req.ProformaInvoiceID)
		if err != nil {
			return err
		}
		if err := pi.AcceptsPayments(); err != nil {
			return err
		}
		// a rejected record rolls the number back with the transaction
		number, err := s.allocator.Within(repos.Counters()).Allocate(ctx, sequence.EntityPaymentRecord)
		if err != nil {
			return err
		}
		record, err := trade.NewPaymentRecord(number, pi, trade.PaymentRecordInput{
			Amount:      req.Amount,
			Currency:    req.Currency,
			Method:      req.Method,
			ProofRef:    req.ProofRef,
			Reference:   req.Reference,
			Notes:       req.Notes,
			SubmittedBy: req.SubmittedBy,
		})
		if err != nil {
			return err
		}
		if err := repos.PaymentRecords().Create(ctx, record); err != nil {
			return err
		}
		events.collect(record)
		response = ToPaymentRecordResponse(record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordIdentifierAllocated(ctx, string(sequence.EntityPaymentRecord))
	s.logger.Info("Payment record submitted",
		zap.String("record_number", response.RecordNumber),
		zap.String("pi_number", response.PINumber),
		zap.String("amount", response.Amount.String()),
	)
	return &response, nil
}

// Verify marks a PENDING record VERIFIED and applies the recorded amount to
// the PI ledger. Both updates commit in one transaction.
func (s *PaymentRecordService) Verify(ctx context.Context, req VerifyPaymentRecordRequest) (*VerifyPaymentRecordResponse, error) {
	var response VerifyPaymentRecordResponse
	err := s.mutate(ctx, "verify_payment_record", trade.DocumentType(trade.AggregateTypePaymentRecord), req.RecordID, func(repos TransactionalRepositories, events *eventBatch) error {
		record, err := repos.PaymentRecords().FindByID(ctx, req.RecordID)
		if err != nil {
			return err
		}
		pi, err := repos.ProformaInvoices().FindByID(ctx, record.ProformaInvoiceID)
		if err != nil {
			return err
		}
		payment, err := record.Verify(req.RecordedAmount, req.Notes, req.ReviewedBy, s.now())
		if err != nil {
			return err
		}
		entry, err := pi.RecordPayment(payment)
		if err != nil {
			return err
		}
		if err := repos.PaymentRecords().SaveWithLock(ctx, record); err != nil {
			return err
		}
		if err := repos.ProformaInvoices().SaveWithLock(ctx, pi); err != nil {
			return err
		}
		events.collect(record, pi)
		response = VerifyPaymentRecordResponse{
			Record:  ToPaymentRecordResponse(record),
			Payment: toPaymentResult(pi, entry),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPaymentRecordReviewed(ctx, trade.PaymentRecordStatusVerified)
	s.metrics.RecordPayment(ctx, trade.DocumentProformaInvoice, trade.PaymentKindPayment, response.Record.RecordedAmount)
	s.logger.Info("Payment record verified",
		zap.String("record_number", response.Record.RecordNumber),
		zap.String("pi_number", response.Record.PINumber),
		zap.String("recorded_amount", response.Record.RecordedAmount.String()),
		zap.String("balance_due", response.Payment.BalanceDue.String()),
		zap.String("reviewed_by", req.ReviewedBy),
	)
	return &response, nil
}

// Reject marks a PENDING record REJECTED without touching the PI ledger
func (s *PaymentRecordService) Reject(ctx context.Context, req RejectPaymentRecordRequest) (*PaymentRecordResponse, error) {
	var response PaymentRecordResponse
	err := s.mutate(ctx, "reject_payment_record", trade.DocumentType(trade.AggregateTypePaymentRecord), req.RecordID, func(repos TransactionalRepositories, events *eventBatch) error {
		record, err := repos.PaymentRecords().FindByID(ctx, req.RecordID)
		if err != nil {
			return err
		}
		if err := record.Reject(req.Notes, req.ReviewedBy, s.now()); err != nil {
			return err
		}
		if err := repos.PaymentRecords().SaveWithLock(ctx, record); err != nil {
			return err
		}
		events.collect(record)
		response = ToPaymentRecordResponse(record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPaymentRecordReviewed(ctx, trade.PaymentRecordStatusRejected)
	s.logger.Info("Payment record rejected",
		zap.String("record_number", response.RecordNumber),
		zap.String("reviewed_by", req.ReviewedBy),
	)
	return &response, nil
}

// Edit changes the amount of a record. Editing a VERIFIED record posts the
// difference to the PI ledger as an adjustment.
func (s *PaymentRecordService) Edit(ctx context.Context, req EditPaymentRecordRequest) (*PaymentRecordResponse, error) {
	var response PaymentRecordResponse
	err := s.mutate(ctx, "edit_payment_record", trade.DocumentType(trade.AggregateTypePaymentRecord), req.RecordID, func(repos TransactionalRepositories, events *eventBatch) error {
		record, err := repos.PaymentRecords().FindByID(ctx, req.RecordID)
		if err != nil {
			return err
		}
		delta, err := record.Edit(req.Amount, req.EditedBy, req.Reason, s.now())
		if err != nil {
			return err
		}
		if !delta.IsZero() {
			pi, err := repos.ProformaInvoices().FindByID(ctx, record.ProformaInvoiceID)
			if err != nil {
				return err
			}
			id := record.ID
			if _, err := pi.AdjustPayment(trade.PaymentInput{
				Amount:          delta,
				Method:          record.Method,
				Notes:           req.Reason,
				RecordedBy:      req.EditedBy,
				PaymentRecordID: &id,
			}); err != nil {
				return err
			}
			if err := repos.ProformaInvoices().SaveWithLock(ctx, pi); err != nil {
				return err
			}
			events.collect(pi)
		}
		if err := repos.PaymentRecords().SaveWithLock(ctx, record); err != nil {
			return err
		}
		events.collect(record)
		response = ToPaymentRecordResponse(record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment record edited",
		zap.String("record_number", response.RecordNumber),
		zap.String("status", response.Status),
		zap.String("edited_by", req.EditedBy),
	)
	return &response, nil
}

// Get retrieves a payment record by ID
func (s *PaymentRecordService) Get(ctx context.Context, id uuid.UUID) (*PaymentRecordResponse, error) {
	record, err := s.repos.PaymentRecords.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToPaymentRecordResponse(record)
	return &response, nil
}

// ListByProformaInvoice lists the records submitted against a PI
func (s *PaymentRecordService) ListByProformaInvoice(ctx context.Context, piID uuid.UUID) ([]PaymentRecordResponse, error) {
	if _, err := s.repos.ProformaInvoices.FindByID(ctx, piID); err != nil {
		return nil, err
	}
	records, err := s.repos.PaymentRecords.FindByProformaInvoice(ctx, piID)
	if err != nil {
		return nil, err
	}
	out := make([]PaymentRecordResponse, len(records))
	for i := range records {
		out[i] = ToPaymentRecordResponse(&records[i])
	}
	return out, nil
}
