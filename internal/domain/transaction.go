package domain

import "time"

// RawTransaction is one transaction line as delivered by the source files.
// No uniqueness holds on raw input; nullable fields are pointers.
type RawTransaction struct {
	InvoiceID   string   // invoice identifier, shared by the lines of one order
	ProductID   string   // product identifier
	EntityID    *string  // customer identifier, nil if missing
	Quantity    int64    // signed quantity, negative for returns
	UnitPrice   *float64 // price per unit in Currency, nil if missing
	Currency    string   // ISO currency code
	Timestamp   string   // unparsed transaction timestamp
	Description *string  // free-text product description, nil if missing
}

// Transaction is a normalized transaction line.
// EntityID is non-empty, UnitPrice and ResolvedPrice are strictly positive,
// Currency is supported and Timestamp is parsed (UTC).
type Transaction struct {
	InvoiceID     string
	ProductID     string
	EntityID      string
	Quantity      int64
	UnitPrice     float64   // price per unit in Currency (possibly imputed)
	Currency      string    // supported ISO currency code
	Timestamp     time.Time // parsed timestamp, UTC
	Description   string    // description or the configured sentinel
	ResolvedPrice float64   // UnitPrice converted to the common unit of account
	PriceImputed  bool      // true if UnitPrice was imputed
}

// Day returns the calendar day of the transaction.
func (t *Transaction) Day() time.Time {
	return TruncateDay(t.Timestamp)
}

// TruncateDay returns midnight UTC of the calendar day containing ts.
func TruncateDay(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(TruncateDay(b).Sub(TruncateDay(a)).Hours() / 24)
}

// Supported currency codes of the reference domain.
const (
	CurrencyGBP = "GBP"
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
)

// DefaultSupportedCurrencies is the fixed set of accepted currencies.
var DefaultSupportedCurrencies = []string{CurrencyGBP, CurrencyUSD, CurrencyEUR}

// DefaultBaseCurrency is the common unit of account.
const DefaultBaseCurrency = CurrencyGBP

// DefaultDescriptionSentinel replaces missing descriptions.
const DefaultDescriptionSentinel = "Unknown"
