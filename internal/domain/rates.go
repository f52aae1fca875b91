package domain

import "time"

// ExchangeRate is the multiplicative rate converting one unit of Currency
// into the common unit of account on Date.
type ExchangeRate struct {
	Currency string    // ISO currency code
	Date     time.Time // calendar day, midnight UTC
	Rate     float64   // units of the common currency per unit of Currency
}

// RateKey identifies a rate by (currency, calendar day).
type RateKey struct {
	Currency string
	Date     time.Time
}

// RateTable maps (currency, day) to a rate.
type RateTable map[RateKey]float64

// NewRateTable builds a table from rate rows. Later rows for the same
// key replace earlier ones.
func NewRateTable(rates []*ExchangeRate) RateTable {
	table := make(RateTable, len(rates))
	for _, r := range rates {
		table[RateKey{Currency: r.Currency, Date: TruncateDay(r.Date)}] = r.Rate
	}
	return table
}

// Lookup returns the rate for currency on the calendar day of date.
func (t RateTable) Lookup(currency string, date time.Time) (float64, bool) {
	rate, ok := t[RateKey{Currency: currency, Date: TruncateDay(date)}]
	return rate, ok
}

// Rates returns the table as rate rows.
func (t RateTable) Rates() []*ExchangeRate {
	out := make([]*ExchangeRate, 0, len(t))
	for k, v := range t {
		out = append(out, &ExchangeRate{Currency: k.Currency, Date: k.Date, Rate: v})
	}
	return out
}
