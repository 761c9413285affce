package trade

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentType tags the kind of commercial document
type DocumentType string

const (
	DocumentQuotation       DocumentType = "QUOTATION"
	DocumentOrder           DocumentType = "ORDER"
	DocumentProformaInvoice DocumentType = "PROFORMA_INVOICE"
	DocumentDispatch        DocumentType = "DISPATCH"
	DocumentInvoice         DocumentType = "INVOICE"
)

// IsValid checks if the document type is known
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentQuotation, DocumentOrder, DocumentProformaInvoice, DocumentDispatch, DocumentInvoice:
		return true
	}
	return false
}

// IsDispatchSource reports whether dispatches can be raised against this type
func (t DocumentType) IsDispatchSource() bool {
	return t == DocumentOrder || t == DocumentProformaInvoice
}

// IsBillable reports whether the type carries a payment ledger
func (t DocumentType) IsBillable() bool {
	return t == DocumentOrder || t == DocumentProformaInvoice || t == DocumentInvoice
}

// String returns the string representation of DocumentType
func (t DocumentType) String() string {
	return string(t)
}

// Label returns a lower-case human name, e.g. "proforma invoice"
func (t DocumentType) Label() string {
	return strings.ToLower(strings.ReplaceAll(string(t), "_", " "))
}

// ParseDocumentType accepts QUOTATION, proforma_invoice or proforma-invoice forms
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	if !t.IsValid() {
		return "", shared.NewInvalidInputError("INVALID_DOCUMENT_TYPE", fmt.Sprintf("Unknown document type: %s", s))
	}
	return t, nil
}

// SourceRef is a typed reference to a document
type SourceRef struct {
	Type   DocumentType `json:"type"`
	ID     uuid.UUID    `json:"id"`
	Number string       `json:"number"`
}

// Matches reports whether the reference points at the given document
func (r SourceRef) Matches(docType DocumentType, id uuid.UUID) bool {
	return r.Type == docType && r.ID == id
}

// LineItem is a part line carried by every commercial document
type LineItem struct {
	ID          uuid.UUID       `json:"id"`
	PartID      uuid.UUID       `json:"part_id"`
	PartNumber  string          `json:"part_number"`
	Description string          `json:"description,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// NewLineItem creates a line item with total_price = quantity x unit_price
func NewLineItem(partID uuid.UUID, partNumber, description string, quantity int, unitPrice decimal.Decimal) (LineItem, error) {
	if strings.TrimSpace(partNumber) == "" {
		return LineItem{}, shared.NewInvalidInputError("INVALID_PART", "Part number cannot be empty")
	}
	if quantity < 1 {
		return LineItem{}, shared.NewInvalidInputError("INVALID_QUANTITY", fmt.Sprintf("Quantity for part %s must be at least 1", partNumber))
	}
	if unitPrice.IsNegative() {
		return LineItem{}, shared.NewInvalidInputError("INVALID_PRICE", fmt.Sprintf("Unit price for part %s cannot be negative", partNumber))
	}
	item := LineItem{
		ID:          uuid.New(),
		PartID:      partID,
		PartNumber:  strings.TrimSpace(partNumber),
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
	}
	item.Recalculate()
	return item, nil
}

// Recalculate refreshes the total price from quantity and unit price
func (i *LineItem) Recalculate() {
	i.TotalPrice = i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity))).Round(2)
}

// LineItems is a JSON-persisted list of line items
type LineItems []LineItem

// Value implements driver.Valuer for JSONB storage
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB storage
func (l *LineItems) Scan(value interface{}) error {
	return scanJSON(value, l, "LineItems")
}

// Validate checks the list is non-empty and every line is well formed
func (l LineItems) Validate() error {
	if len(l) == 0 {
		return shared.NewInvalidInputError("EMPTY_ITEMS", "At least one line item is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(l))
	for _, item := range l {
		if item.Quantity < 1 {
			return shared.NewInvalidInputError("INVALID_QUANTITY", fmt.Sprintf("Quantity for part %s must be at least 1", item.PartNumber))
		}
		if item.UnitPrice.IsNegative() {
			return shared.NewInvalidInputError("INVALID_PRICE", fmt.Sprintf("Unit price for part %s cannot be negative", item.PartNumber))
		}
		if _, dup := seen[item.ID]; dup {
			return shared.NewInvalidInputError("DUPLICATE_LINE", fmt.Sprintf("Line %s appears twice", item.ID))
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

// Recalculate refreshes every line total
func (l LineItems) Recalculate() {
	for i := range l {
		l[i].Recalculate()
	}
}

// TotalQuantity returns the sum of line quantities
func (l LineItems) TotalQuantity() int {
	total := 0
	for _, item := range l {
		total += item.Quantity
	}
	return total
}

// Subtotal returns the sum of line totals
func (l LineItems) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range l {
		subtotal = subtotal.Add(item.TotalPrice)
	}
	return subtotal
}

// Find returns the line with the given id
func (l LineItems) Find(id uuid.UUID) (LineItem, bool) {
	for _, item := range l {
		if item.ID == id {
			return item, true
		}
	}
	return LineItem{}, false
}

// Clone returns a copy carrying the same line ids forward
func (l LineItems) Clone() LineItems {
	out := make(LineItems, len(l))
	copy(out, l)
	return out
}

// Totals holds the computed financial totals of a document
type Totals struct {
	Subtotal        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TaxRate         decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	TaxAmount       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ShippingCharges decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Currency        string          `gorm:"type:varchar(3);not null;default:'USD'"`
	ExchangeRate    decimal.Decimal `gorm:"type:decimal(18,6);not null;default:1"`
}

// PricingInput carries the document-level pricing terms
type PricingInput struct {
	TaxRate         decimal.Decimal
	ShippingCharges decimal.Decimal
	Currency        string
	ExchangeRate    decimal.Decimal
}

// ComputeTotals derives subtotal, tax and total from the items
func ComputeTotals(items LineItems, pricing PricingInput) (Totals, error) {
	if pricing.TaxRate.IsNegative() || pricing.TaxRate.GreaterThan(decimal.NewFromInt(100)) {
		return Totals{}, shared.NewInvalidInputError("INVALID_TAX_RATE", "Tax rate must be between 0 and 100")
	}
	if pricing.ShippingCharges.IsNegative() {
		return Totals{}, shared.NewInvalidInputError("INVALID_SHIPPING", "Shipping charges cannot be negative")
	}
	code := pricing.Currency
	if code == "" {
		code = string(valueobject.DefaultCurrency)
	}
	cur, err := valueobject.ParseCurrency(code)
	if err != nil {
		return Totals{}, shared.NewInvalidInputError("INVALID_CURRENCY", err.Error())
	}
	rate := pricing.ExchangeRate
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}
	if rate.IsNegative() {
		return Totals{}, shared.NewInvalidInputError("INVALID_EXCHANGE_RATE", "Exchange rate must be positive")
	}

	subtotal := items.Subtotal()
	tax := valueobject.NewMoneyUSD(subtotal).CalculatePercentage(pricing.TaxRate).Amount()
	return Totals{
		Subtotal:        subtotal,
		TaxRate:         pricing.TaxRate,
		TaxAmount:       tax,
		ShippingCharges: pricing.ShippingCharges,
		TotalAmount:     subtotal.Add(tax).Add(pricing.ShippingCharges),
		Currency:        cur.String(),
		ExchangeRate:    rate,
	}, nil
}

// Pricing returns the terms the totals were computed with
func (t Totals) Pricing() PricingInput {
	return PricingInput{
		TaxRate:         t.TaxRate,
		ShippingCharges: t.ShippingCharges,
		Currency:        t.Currency,
		ExchangeRate:    t.ExchangeRate,
	}
}

// TotalMoney returns the total as Money in the document currency
func (t Totals) TotalMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(t.TotalAmount, valueobject.Currency(t.Currency))
	return m
}

// TotalInBaseCurrency converts the total at the document's fixed rate
func (t Totals) TotalInBaseCurrency() valueobject.Money {
	rate := t.ExchangeRate
	if !rate.IsPositive() {
		rate = decimal.NewFromInt(1)
	}
	return valueobject.NewMoneyUSD(t.TotalAmount.Div(rate).Round(2))
}

// Buyer identifies the customer on a document
type Buyer struct {
	ID   uuid.UUID
	Name string
}

func (b Buyer) validate() error {
	if b.ID == uuid.Nil {
		return shared.NewInvalidInputError("INVALID_BUYER", "Buyer ID cannot be empty")
	}
	return nil
}

func scanJSON(value interface{}, dest interface{}, name string) error {
	if value == nil {
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan " + name + ": unsupported type")
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, dest)
}
