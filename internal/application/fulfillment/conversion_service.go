package fulfillment

import (
	"context"
	"fmt"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/sequence"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ConversionService turns one commercial document into the next one along
// Quotation -> Order -> Proforma Invoice -> Dispatch -> Invoice. Every
// conversion is gated by trade.ConversionRules and commits the new document
// together with the version-checked update of its source.
type ConversionService struct {
	serviceBase
	dispatches *ReconciliationService
}

// NewConversionService creates a new ConversionService. Conversions into a
// dispatch are delegated to the given ReconciliationService.
func NewConversionService(cfg ServiceConfig, dispatches *ReconciliationService) *ConversionService {
	if dispatches == nil {
		dispatches = NewReconciliationService(cfg)
	}
	return &ConversionService{serviceBase: newServiceBase(cfg), dispatches: dispatches}
}

// converted is what one conversion step produced
type converted struct {
	source       trade.SourceRef
	sourceStatus string
	target       trade.SourceRef
	document     interface{}
	series       sequence.EntityType
}

// Convert creates the target document from the source
func (s *ConversionService) Convert(ctx context.Context, req ConvertRequest) (*ConvertResponse, error) {
	targetType, err := trade.ParseDocumentType(req.TargetType)
	if err != nil {
		return nil, err
	}
	rule, err := trade.LookupConversion(req.SourceType, targetType)
	if err != nil {
		return nil, err
	}

	if targetType == trade.DocumentDispatch {
		return s.convertToDispatch(ctx, req, rule)
	}

	var out converted
	err = s.mutate(ctx, "convert", req.SourceType, req.SourceID, func(repos TransactionalRepositories, events *eventBatch) error {
		var source shared.AggregateRoot
		var err error
		switch (trade.ConversionKey{From: rule.From, To: rule.To}) {
		case trade.ConversionKey{From: trade.DocumentQuotation, To: trade.DocumentOrder}:
			source, out, err = s.quotationToOrder(ctx, repos, req, rule)
		case trade.ConversionKey{From: trade.DocumentOrder, To: trade.DocumentQuotation}:
			source, out, err = s.orderToQuotation(ctx, repos, req, rule)
		case trade.ConversionKey{From: trade.DocumentQuotation, To: trade.DocumentProformaInvoice}:
			source, out, err = s.quotationToProformaInvoice(ctx, repos, req, rule)
		case trade.ConversionKey{From: trade.DocumentOrder, To: trade.DocumentProformaInvoice}:
			source, out, err = s.orderToProformaInvoice(ctx, repos, req, rule)
		case trade.ConversionKey{From: trade.DocumentOrder, To: trade.DocumentInvoice},
			trade.ConversionKey{From: trade.DocumentProformaInvoice, To: trade.DocumentInvoice}:
			source, out, err = s.toInvoice(ctx, repos, events, req, rule)
		default:
			err = shared.NewInvalidInputError("UNSUPPORTED_CONVERSION",
				fmt.Sprintf("Cannot convert a %s into a %s", rule.From.Label(), rule.To.Label()))
		}
		if err != nil {
			return err
		}
		source.AddDomainEvent(trade.NewDocumentConvertedEvent(out.source, out.target, rule.Effect))
		if agg, ok := out.document.(shared.AggregateRoot); ok {
			events.collect(agg)
		}
		events.collect(source)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordIdentifierAllocated(ctx, string(out.series))
	s.metrics.RecordConversion(ctx, rule.From, rule.To)
	s.logger.Info("Document converted",
		zap.String("source_type", string(out.source.Type)),
		zap.String("source_number", out.source.Number),
		zap.String("target_type", string(out.target.Type)),
		zap.String("target_number", out.target.Number),
		zap.String("effect", string(rule.Effect)),
	)
	return &ConvertResponse{
		Source:         out.source,
		SourceStatus:   out.sourceStatus,
		Target:         out.target,
		Effect:         rule.Effect,
		TargetDocument: toTargetResponse(out.document),
	}, nil
}

func (s *ConversionService) quotationToOrder(ctx context.Context, repos TransactionalRepositories, req ConvertRequest, rule trade.ConversionRule) (shared.AggregateRoot, converted, error) {
	q, err := repos.Quotations().FindByID(ctx, req.SourceID)
	if err != nil {
		return nil, converted{}, err
	}
	if err := rule.Check(string(q.Status)); err != nil {
		return nil, converted{}, err
	}
	o, err := s.newOrder(ctx, repos, trade.Buyer{ID: q.BuyerID, Name: q.BuyerName}, q.Items.Clone(), q.Totals.Pricing(), trade.OrderStatusOpen)
	if err != nil {
		return nil, converted{}, err
	}
	sourceID := q.ID
	o.SourceQuotationID = &sourceID
	o.Notes = notesOr(req.Options.Notes, q.Notes)
	if err := q.MarkConverted(o.ID); err != nil {
		return nil, converted{}, err
	}
	if err := repos.Orders().Create(ctx, o); err != nil {
		return nil, converted{}, err
	}
	if err := repos.Quotations().SaveWithLock(ctx, q); err != nil {
		return nil, converted{}, err
	}
	return q, converted{source: q.Ref(), sourceStatus: q.DocumentStatus(), target: o.Ref(), document: o, series: sequence.EntityOrder}, nil
}

func (s *ConversionService) orderToQuotation(ctx context.Context, repos TransactionalRepositories, req ConvertRequest, rule trade.ConversionRule) (shared.AggregateRoot, converted, error) {
	o, err := repos.Orders().FindByID(ctx, req.SourceID)
	if err != nil {
		return nil, converted{}, err
	}
	if err := rule.Check(string(o.Status)); err != nil {
		return nil, converted{}, err
	}
	if err := o.CanConvertToQuotation(); err != nil {
		return nil, converted{}, err
	}
	number, err := s.allocator.Within(repos.Counters()).Allocate(ctx, sequence.EntityQuotation)
	if err != nil {
		return nil, converted{}, err
	}
	q, err := trade.NewQuotation(number, trade.Buyer{ID: o.BuyerID, Name: o.BuyerName}, o.Items.Clone(), o.Totals.Pricing(), req.Options.ValidUntil)
	if err != nil {
		return nil, converted{}, err
	}
	sourceID := o.ID
	q.SourceOrderID = &sourceID
	q.Notes = notesOr(req.Options.Notes, o.Notes)
	if err := o.MarkConverted(q.ID); err != nil {
		return nil, converted{}, err
	}
	if err := repos.Quotations().Create(ctx, q); err != nil {
		return nil, converted{}, err
	}
	if err := repos.Orders().SaveWithLock(ctx, o); err != nil {
		return nil, converted{}, err
	}
	return o, converted{source: o.Ref(), sourceStatus: o.DocumentStatus(), target: q.Ref(), document: q, series: sequence.EntityQuotation}, nil
}

func (s *ConversionService) quotationToProformaInvoice(ctx context.Context, repos TransactionalRepositories, req ConvertRequest, rule trade.ConversionRule) (shared.AggregateRoot, converted, error) {
	q, err := repos.Quotations().FindByID(ctx, req.SourceID)
	if err != nil {
		return nil, converted{}, err
	}
	if err := rule.Check(string(q.Status)); err != nil {
		return nil, converted{}, err
	}
	ref := q.Ref()
	pi, err := s.newProformaInvoice(ctx, repos, trade.Buyer{ID: q.BuyerID, Name: q.BuyerName}, q.Items.Clone(), q.Totals, &ref, req.Options)
	if err != nil {
		return nil, converted{}, err
	}
	if err := q.LinkProformaInvoice(pi.ID); err != nil {
		return nil, converted{}, err
	}
	if err := repos.ProformaInvoices().Create(ctx, pi); err != nil {
		return nil, converted{}, err
	}
	if err := repos.Quotations().SaveWithLock(ctx, q); err != nil {
		return nil, converted{}, err
	}
	return q, converted{source: ref, sourceStatus: q.DocumentStatus(), target: pi.Ref(), document: pi, series: sequence.EntityProformaInvoice}, nil
}

func (s *ConversionService) orderToProformaInvoice(ctx context.Context, repos TransactionalRepositories, req ConvertRequest, rule trade.ConversionRule) (shared.AggregateRoot, converted, error) {
	o, err := repos.Orders().FindByID(ctx, req.SourceID)
	if err != nil {
		return nil, converted{}, err
	}
	if err := rule.Check(string(o.Status)); err != nil {
		return nil, converted{}, err
	}
	ref := o.Ref()
	pi, err := s.newProformaInvoice(ctx, repos, trade.Buyer{ID: o.BuyerID, Name: o.BuyerName}, o.Items.Clone(), o.Totals, &ref, req.Options)
	if err != nil {
		return nil, converted{}, err
	}
	if err := o.LinkProformaInvoice(pi.ID); err != nil {
		return nil, converted{}, err
	}
	if err := repos.ProformaInvoices().Create(ctx, pi); err != nil {
		return nil, converted{}, err
	}
	if err := repos.Orders().SaveWithLock(ctx, o); err != nil {
		return nil, converted{}, err
	}
	return o, converted{source: ref, sourceStatus: o.DocumentStatus(), target: pi.Ref(), document: pi, series: sequence.EntityProformaInvoice}, nil
}

func (s *ConversionService) newProformaInvoice(ctx context.Context, repos TransactionalRepositories, buyer trade.Buyer, items trade.LineItems, totals trade.Totals, source *trade.SourceRef, opts ConvertOptions) (*trade.ProformaInvoice, error) {
	number, err := s.allocator.Within(repos.Counters()).Allocate(ctx, sequence.EntityProformaInvoice)
	if err != nil {
		return nil, err
	}
	pricing := totals.Pricing()
	if opts.ShippingCharges != nil {
		pricing.ShippingCharges = *opts.ShippingCharges
	}
	pi, err := trade.NewProformaInvoice(number, buyer, items, pricing, source, opts.ValidUntil)
	if err != nil {
		return nil, err
	}
	pi.Notes = opts.Notes
	return pi, nil
}

// toInvoice bills a whole order or PI, or with DispatchID set only the items
// of one of its dispatches. The two modes exclude each other.
func (s *ConversionService) toInvoice(ctx context.Context, repos TransactionalRepositories, events *eventBatch, req ConvertRequest, rule trade.ConversionRule) (shared.AggregateRoot, converted, error) {
	var (
		src    sourceDocument
		buyer  trade.Buyer
		totals trade.Totals
		link   func(inv *trade.Invoice) error
	)

	switch req.SourceType {
	case trade.DocumentOrder:
		o, err := repos.Orders().FindByID(ctx, req.SourceID)
		if err != nil {
			return nil, converted{}, err
		}
		if err := rule.Check(string(o.Status)); err != nil {
			return nil, converted{}, err
		}
		src, buyer, totals = o, trade.Buyer{ID: o.BuyerID, Name: o.BuyerName}, o.Totals
		if req.Options.DispatchID != nil && o.InvoiceID != nil {
			return nil, converted{}, alreadyFullyInvoiced(o.Ref())
		}
		link = func(inv *trade.Invoice) error { return o.LinkInvoice(inv.ID) }
	case trade.DocumentProformaInvoice:
		pi, err := repos.ProformaInvoices().FindByID(ctx, req.SourceID)
		if err != nil {
			return nil, converted{}, err
		}
		if err := rule.Check(string(pi.Status)); err != nil {
			return nil, converted{}, err
		}
		src, buyer, totals = pi, trade.Buyer{ID: pi.BuyerID, Name: pi.BuyerName}, pi.Totals
		if req.Options.DispatchID != nil && pi.InvoiceID != nil {
			return nil, converted{}, alreadyFullyInvoiced(pi.Ref())
		}
		link = func(inv *trade.Invoice) error { return pi.LinkInvoice(inv.ID) }
	}

	ref := src.Ref()
	pricing := totals.Pricing()
	items := src.LineItems().Clone()
	var dispatch *trade.Dispatch

	if req.Options.DispatchID != nil {
		d, err := repos.Dispatches().FindByID(ctx, *req.Options.DispatchID)
		if err != nil {
			return nil, converted{}, err
		}
		if d.SourceType != ref.Type || d.SourceID != ref.ID {
			return nil, converted{}, shared.NewInvalidInputError("DISPATCH_SOURCE_MISMATCH",
				fmt.Sprintf("Dispatch %s does not belong to %s %s", d.DispatchNumber, ref.Type.Label(), ref.Number))
		}
		dispatch = d
		items = d.LineItems(src.LineItems())
		// shipping is billed once, on the full invoice
		pricing.ShippingCharges = decimal.Zero
	} else {
		dispatches, err := repos.Dispatches().FindBySource(ctx, ref.Type, ref.ID)
		if err != nil {
			return nil, converted{}, err
		}
		for i := range dispatches {
			if dispatches[i].IsInvoiced() {
				return nil, converted{}, shared.NewInvalidStateError("DISPATCH_INVOICED",
					fmt.Sprintf("Dispatch %s of %s %s is already invoiced; invoice the remaining dispatches individually",
						dispatches[i].DispatchNumber, ref.Type.Label(), ref.Number))
			}
		}
	}
	if req.Options.ShippingCharges != nil {
		pricing.ShippingCharges = *req.Options.ShippingCharges
	}

	number, err := s.allocator.Within(repos.Counters()).Allocate(ctx, sequence.EntityInvoice)
	if err != nil {
		return nil, converted{}, err
	}
	inv, err := trade.NewInvoice(number, ref, req.Options.DispatchID, buyer, items, pricing, req.Options.DueDate)
	if err != nil {
		return nil, converted{}, err
	}
	inv.Notes = req.Options.Notes

	if dispatch != nil {
		if err := dispatch.LinkInvoice(inv.ID); err != nil {
			return nil, converted{}, err
		}
	} else if err := link(inv); err != nil {
		return nil, converted{}, err
	}

	if err := repos.Invoices().Create(ctx, inv); err != nil {
		return nil, converted{}, err
	}
	if dispatch != nil {
		if err := repos.Dispatches().SaveWithLock(ctx, dispatch); err != nil {
			return nil, converted{}, err
		}
		events.collect(dispatch)
	}
	if err := saveDispatchSource(ctx, repos, src); err != nil {
		return nil, converted{}, err
	}
	return src, converted{source: ref, sourceStatus: src.DocumentStatus(), target: inv.Ref(), document: inv, series: sequence.EntityInvoice}, nil
}

// convertToDispatch routes Order/PI -> Dispatch through the dispatch path so
// the insert and the reconcile share one transaction
func (s *ConversionService) convertToDispatch(ctx context.Context, req ConvertRequest, rule trade.ConversionRule) (*ConvertResponse, error) {
	created, err := s.dispatches.CreateDispatch(ctx, CreateDispatchRequest{
		SourceType: req.SourceType,
		SourceID:   req.SourceID,
		Items:      req.Options.Items,
		Shipping:   req.Options.Shipping,
		CreatedBy:  req.Actor,
	})
	if err != nil {
		return nil, err
	}
	target := trade.SourceRef{Type: trade.DocumentDispatch, ID: created.Dispatch.ID, Number: created.Dispatch.DispatchNumber}
	s.publish(ctx, []shared.DomainEvent{trade.NewDocumentConvertedEvent(created.Reconcile.Source, target, rule.Effect)})
	s.metrics.RecordConversion(ctx, rule.From, rule.To)
	return &ConvertResponse{
		Source:         created.Reconcile.Source,
		SourceStatus:   created.Reconcile.DocumentStatus,
		Target:         target,
		Effect:         rule.Effect,
		TargetDocument: created.Dispatch,
	}, nil
}

func alreadyFullyInvoiced(ref trade.SourceRef) error {
	return shared.NewInvalidStateError("ALREADY_INVOICED",
		fmt.Sprintf("%s %s has already been invoiced in full", ref.Type.Label(), ref.Number))
}

func notesOr(notes, fallback string) string {
	if notes != "" {
		return notes
	}
	return fallback
}

func toTargetResponse(doc interface{}) interface{} {
	switch d := doc.(type) {
	case *trade.Quotation:
		return ToQuotationResponse(d)
	case *trade.Order:
		return ToOrderResponse(d)
	case *trade.ProformaInvoice:
		return ToProformaInvoiceResponse(d)
	case *trade.Invoice:
		return ToInvoiceResponse(d)
	}
	return doc
}
