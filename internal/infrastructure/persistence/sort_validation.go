package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CommonSortFields contains fields common to every document table
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// documentSortFields extends CommonSortFields with document-specific columns
func documentSortFields(extra ...string) map[string]bool {
	fields := make(map[string]bool, len(CommonSortFields)+len(extra))
	for k := range CommonSortFields {
		fields[k] = true
	}
	for _, f := range extra {
		fields[f] = true
	}
	return fields
}

// QuotationSortFields contains allowed sort fields for quotations
var QuotationSortFields = documentSortFields("quotation_number", "buyer_name", "status", "total_amount", "valid_until")

// OrderSortFields contains allowed sort fields for orders
var OrderSortFields = documentSortFields("order_number", "po_number", "buyer_name", "status",
	"total_amount", "balance_due", "dispatch_status", "pending_quantity")

// ProformaInvoiceSortFields contains allowed sort fields for proforma invoices
var ProformaInvoiceSortFields = documentSortFields("pi_number", "buyer_name", "status",
	"total_amount", "balance_due", "payment_status", "dispatch_status")

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = documentSortFields("invoice_number", "buyer_name", "status",
	"total_amount", "balance_due", "due_date")

// PaymentRecordSortFields contains allowed sort fields for payment records
var PaymentRecordSortFields = documentSortFields("record_number", "pi_number", "status", "amount")
