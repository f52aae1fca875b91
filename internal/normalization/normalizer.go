package normalization

import (
	"time"

	"github.com/shopspring/decimal"

	"revenue-feature-lab/internal/domain"
)

// Report counts what each normalization step did to the input.
type Report struct {
	InputRows          int
	NilRows            int // dropped: nil entries in the input
	DuplicatesRemoved  int
	MissingEntity      int // dropped: no entity id
	ImputedSameDay     int // price imputed from (product, currency, day) median
	ImputedGlobal      int // price imputed from product-wide median
	Unimputable        int // dropped: no price observation for the product
	DescriptionsFilled int // retained rows whose description was filled
	InvalidCurrency    int // dropped: currency outside the supported set
	InvalidPrice       int // dropped: resolved price not strictly positive
	InvalidTimestamp   int // dropped: timestamp failed to parse
	OutputRows         int
}

// Dropped returns the total number of rows removed.
func (r *Report) Dropped() int {
	return r.InputRows - r.OutputRows
}

// record is the working state of one raw row inside Normalize.
type record struct {
	raw     *domain.RawTransaction
	ts      time.Time
	tsOK    bool
	day     time.Time
	price   float64
	imputed bool
}

func (r *record) hasValidPrice() bool {
	return r.raw.UnitPrice != nil && *r.raw.UnitPrice > 0
}

// Normalize turns raw rows into normalized transactions.
// Steps, in order:
//  1. Skip nil entries, deduplicate on (invoice, product, timestamp, quantity,
//     unit price), keep first
//  2. Drop rows without entity id
//  3. Impute missing/zero/negative prices: (product, currency, day) median,
//     then product median; drop when the product has no observation
//  4. Drop unsupported currency, non-positive price, unparseable timestamp
//  5. Replace missing descriptions of the remaining rows with the sentinel
//  6. Convert to the common unit using the same-day rate
//
// Returns *domain.MissingRateError if a retained row has no rate for its
// (currency, day). Output order follows input order.
func Normalize(raw []*domain.RawTransaction, rates domain.RateTable, opts Options) ([]*domain.Transaction, *Report, error) {
	report := &Report{InputRows: len(raw)}

	// 1. Deduplicate
	for _, r := range raw {
		if r == nil {
			report.NilRows++
		}
	}
	deduped, removed := Deduplicate(raw)
	report.DuplicatesRemoved = removed

	// 2. Missing entity id
	records := make([]*record, 0, len(deduped))
	for _, r := range deduped {
		if r.EntityID == nil || *r.EntityID == "" {
			report.MissingEntity++
			continue
		}
		rec := &record{raw: r}
		rec.ts, rec.tsOK = ParseTimestamp(r.Timestamp)
		if rec.tsOK {
			rec.day = domain.TruncateDay(rec.ts)
		}
		records = append(records, rec)
	}

	// 3. Unit price imputation
	idx := buildPriceIndex(records)
	priced := records[:0]
	for _, rec := range records {
		if rec.hasValidPrice() {
			rec.price = *rec.raw.UnitPrice
			priced = append(priced, rec)
			continue
		}
		price, source := idx.resolve(rec)
		switch source {
		case imputeSameDay:
			report.ImputedSameDay++
		case imputeProductGlobal:
			report.ImputedGlobal++
		default:
			report.Unimputable++
			continue
		}
		rec.price = price
		rec.imputed = true
		priced = append(priced, rec)
	}

	// 4-6. Validity filter, descriptions, conversion
	supported := opts.supported()
	out := make([]*domain.Transaction, 0, len(priced))
	for _, rec := range priced {
		if _, ok := supported[rec.raw.Currency]; !ok {
			report.InvalidCurrency++
			continue
		}
		if !(rec.price > 0) {
			report.InvalidPrice++
			continue
		}
		if !rec.tsOK {
			report.InvalidTimestamp++
			continue
		}

		description := opts.DescriptionSentinel
		if rec.raw.Description != nil {
			description = *rec.raw.Description
		} else {
			report.DescriptionsFilled++
		}

		resolved, err := Convert(rec.price, rec.raw.Currency, rec.day, rates, opts.BaseCurrency)
		if err != nil {
			return nil, report, err
		}

		out = append(out, &domain.Transaction{
			InvoiceID:     rec.raw.InvoiceID,
			ProductID:     rec.raw.ProductID,
			EntityID:      *rec.raw.EntityID,
			Quantity:      rec.raw.Quantity,
			UnitPrice:     rec.price,
			Currency:      rec.raw.Currency,
			Timestamp:     rec.ts,
			Description:   description,
			ResolvedPrice: resolved,
			PriceImputed:  rec.imputed,
		})
	}

	report.OutputRows = len(out)
	return out, report, nil
}

// Convert returns price expressed in the common unit: price * rate for the
// (currency, day) pair. The base currency converts at exactly 1.
// Returns *domain.MissingRateError when the table has no entry and
// *domain.ValidationError when the entry is not strictly positive.
func Convert(price float64, currency string, day time.Time, rates domain.RateTable, baseCurrency string) (float64, error) {
	if currency == baseCurrency {
		return price, nil
	}
	rate, ok := rates.Lookup(currency, day)
	if !ok {
		return 0, &domain.MissingRateError{Currency: currency, Date: domain.TruncateDay(day)}
	}
	if !(rate > 0) {
		return 0, &domain.ValidationError{
			Stage:  "normalize",
			Row:    -1,
			Field:  "rate",
			Reason: "rate for " + currency + " on " + day.Format(time.DateOnly) + " is not positive",
		}
	}
	resolved, _ := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(rate)).Float64()
	return resolved, nil
}
