package trade

import (
	"fmt"
	"strings"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
)

// ConversionEffect describes what happens to the source after a conversion
type ConversionEffect string

const (
	// EffectConverted makes the source terminal
	EffectConverted ConversionEffect = "CONVERTED"
	// EffectLinked stores a back-reference on the source
	EffectLinked ConversionEffect = "LINKED"
	// EffectReconciled re-runs dispatch reconciliation on the source
	EffectReconciled ConversionEffect = "RECONCILED"
)

// ConversionKey identifies one directed conversion
type ConversionKey struct {
	From DocumentType
	To   DocumentType
}

// ConversionRule is one row of the conversion transition table
type ConversionRule struct {
	From DocumentType
	To   DocumentType
	// RequiredStatuses lists the source statuses the conversion is allowed from
	RequiredStatuses []string
	// Requirement is the human description used when the list is long
	Requirement string
	Effect      ConversionEffect
}

// ConversionRules is the central transition table between document types
var ConversionRules = map[ConversionKey]ConversionRule{
	{DocumentQuotation, DocumentOrder}: {
		From: DocumentQuotation, To: DocumentOrder,
		RequiredStatuses: []string{string(QuotationStatusAccepted)},
		Effect:           EffectConverted,
	},
	{DocumentOrder, DocumentQuotation}: {
		From: DocumentOrder, To: DocumentQuotation,
		RequiredStatuses: []string{string(OrderStatusPending)},
		Effect:           EffectConverted,
	},
	{DocumentQuotation, DocumentProformaInvoice}: {
		From: DocumentQuotation, To: DocumentProformaInvoice,
		RequiredStatuses: []string{string(QuotationStatusAccepted)},
		Effect:           EffectLinked,
	},
	{DocumentOrder, DocumentProformaInvoice}: {
		From: DocumentOrder, To: DocumentProformaInvoice,
		RequiredStatuses: []string{
			string(OrderStatusPending), string(OrderStatusQuoted), string(OrderStatusOpen),
			string(OrderStatusProcessing), string(OrderStatusDispatched),
		},
		Requirement: "non-terminal",
		Effect:      EffectLinked,
	},
	{DocumentOrder, DocumentDispatch}: {
		From: DocumentOrder, To: DocumentDispatch,
		RequiredStatuses: []string{
			string(OrderStatusPending), string(OrderStatusQuoted), string(OrderStatusOpen), string(OrderStatusProcessing),
		},
		Requirement: "open",
		Effect:      EffectReconciled,
	},
	{DocumentProformaInvoice, DocumentDispatch}: {
		From: DocumentProformaInvoice, To: DocumentDispatch,
		RequiredStatuses: []string{
			string(ProformaInvoiceStatusPending), string(ProformaInvoiceStatusSent), string(ProformaInvoiceStatusApproved),
		},
		Requirement: "open",
		Effect:      EffectReconciled,
	},
	{DocumentOrder, DocumentInvoice}: {
		From: DocumentOrder, To: DocumentInvoice,
		RequiredStatuses: []string{
			string(OrderStatusOpen), string(OrderStatusProcessing), string(OrderStatusDispatched), string(OrderStatusDelivered),
		},
		Requirement: "confirmed",
		Effect:      EffectLinked,
	},
	{DocumentProformaInvoice, DocumentInvoice}: {
		From: DocumentProformaInvoice, To: DocumentInvoice,
		RequiredStatuses: []string{
			string(ProformaInvoiceStatusPending), string(ProformaInvoiceStatusSent), string(ProformaInvoiceStatusApproved),
		},
		Requirement: "open",
		Effect:      EffectLinked,
	},
}

// LookupConversion returns the rule for a conversion, or InvalidInput when
// the pair is not a supported conversion
func LookupConversion(from, to DocumentType) (ConversionRule, error) {
	rule, ok := ConversionRules[ConversionKey{From: from, To: to}]
	if !ok {
		return ConversionRule{}, shared.NewInvalidInputError("UNSUPPORTED_CONVERSION",
			fmt.Sprintf("A %s cannot be converted to a %s", from.Label(), to.Label()))
	}
	return rule, nil
}

// Allows reports whether the rule accepts the source status
func (r ConversionRule) Allows(status string) bool {
	for _, s := range r.RequiredStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Check returns an InvalidState error naming the required status when the
// source status does not satisfy the rule
func (r ConversionRule) Check(status string) error {
	if r.Allows(status) {
		return nil
	}
	required := r.Requirement
	if required == "" {
		required = strings.Join(r.RequiredStatuses, " or ")
	}
	return shared.NewInvalidStateError("INVALID_STATE",
		fmt.Sprintf("Only %s %ss can convert to %s, %s is %s",
			required, r.From.Label(), r.To.Label(), r.From.Label(), status))
}
