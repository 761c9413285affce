// Package sequence defines the human-readable identifier scheme used by
// commercial documents and the counter store that backs it.
package sequence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
)

// EntityType identifies a numbered document series
type EntityType string

const (
	EntityOrder           EntityType = "ORDER"
	EntityPONumber        EntityType = "PURCHASE_ORDER_NUMBER"
	EntityQuotation       EntityType = "QUOTATION"
	EntityProformaInvoice EntityType = "PROFORMA_INVOICE"
	EntityDispatch        EntityType = "DISPATCH"
	EntityInvoice         EntityType = "INVOICE"
	EntityPaymentRecord   EntityType = "PAYMENT_RECORD"
	EntitySupplierOrder   EntityType = "SUPPLIER_ORDER"
)

// Definition describes how identifiers of one entity type are formatted
type Definition struct {
	Type       EntityType
	Prefix     string
	Width      int
	YearScoped bool
}

// Registry lists every numbered series
var Registry = map[EntityType]Definition{
	EntityOrder:           {Type: EntityOrder, Prefix: "ORD", Width: 5},
	EntityPONumber:        {Type: EntityPONumber, Prefix: "PO", Width: 4, YearScoped: true},
	EntityQuotation:       {Type: EntityQuotation, Prefix: "QUO", Width: 4, YearScoped: true},
	EntityProformaInvoice: {Type: EntityProformaInvoice, Prefix: "PI", Width: 5},
	EntityDispatch:        {Type: EntityDispatch, Prefix: "DSP", Width: 5},
	EntityInvoice:         {Type: EntityInvoice, Prefix: "INV", Width: 5},
	EntityPaymentRecord:   {Type: EntityPaymentRecord, Prefix: "PAY", Width: 5},
	EntitySupplierOrder:   {Type: EntitySupplierOrder, Prefix: "SPO", Width: 4, YearScoped: true},
}

// IsValid checks if the entity type is registered
func (t EntityType) IsValid() bool {
	_, ok := Registry[t]
	return ok
}

// String returns the string representation of EntityType
func (t EntityType) String() string {
	return string(t)
}

// Lookup returns the definition for an entity type
func Lookup(t EntityType) (Definition, error) {
	def, ok := Registry[t]
	if !ok {
		return Definition{}, shared.NewInvalidInputError("UNKNOWN_ENTITY_TYPE", fmt.Sprintf("Unknown identifier series: %s", t))
	}
	return def, nil
}

// ScopeKey returns the counter scope for the given time: the four-digit
// year for year-scoped series, empty otherwise.
func ScopeKey(yearScoped bool, now time.Time) string {
	if !yearScoped {
		return ""
	}
	return strconv.Itoa(now.Year())
}

// Format renders an identifier, e.g. ORD-00042 or QUO-2026-0013.
// Values wider than the configured width are not truncated.
func (d Definition) Format(scopeKey string, value int64) string {
	var b strings.Builder
	b.WriteString(d.Prefix)
	b.WriteByte('-')
	if scopeKey != "" {
		b.WriteString(scopeKey)
		b.WriteByte('-')
	}
	b.WriteString(fmt.Sprintf("%0*d", d.Width, value))
	return b.String()
}

// Parse extracts the scope key and numeric value from an identifier of this series
func (d Definition) Parse(identifier string) (scopeKey string, value int64, err error) {
	rest, ok := strings.CutPrefix(identifier, d.Prefix+"-")
	if !ok {
		return "", 0, shared.NewInvalidInputError("INVALID_IDENTIFIER", fmt.Sprintf("%s does not belong to series %s", identifier, d.Prefix))
	}
	if year, num, found := strings.Cut(rest, "-"); found {
		scopeKey, rest = year, num
	}
	if (scopeKey != "") != d.YearScoped {
		return "", 0, shared.NewInvalidInputError("INVALID_IDENTIFIER", fmt.Sprintf("%s does not match the %s format", identifier, d.Prefix))
	}
	value, err = strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return "", 0, shared.NewInvalidInputError("INVALID_IDENTIFIER", fmt.Sprintf("%s has a non-numeric suffix", identifier))
	}
	return scopeKey, value, nil
}

// CounterRepository is the atomic counter store behind identifier allocation.
// Implementations must increment and return in a single atomic statement.
type CounterRepository interface {
	// Next increments the counter for (entityType, scopeKey), creating it at 1
	// when absent, and returns the new value
	Next(ctx context.Context, entityType EntityType, scopeKey string) (int64, error)

	// Current returns the current counter value, 0 when the counter does not exist
	Current(ctx context.Context, entityType EntityType, scopeKey string) (int64, error)
}
