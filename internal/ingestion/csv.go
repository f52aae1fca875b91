package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"revenue-feature-lab/internal/domain"
)

const stage = "ingest"

// Transaction file columns. description is optional.
const (
	colInvoice     = "invoice_id"
	colProduct     = "product_id"
	colCustomer    = "customer_id"
	colQuantity    = "quantity"
	colUnitPrice   = "unit_price"
	colCurrency    = "currency"
	colTimestamp   = "timestamp"
	colDescription = "description"
)

var transactionColumns = []string{
	colInvoice, colProduct, colCustomer, colQuantity, colUnitPrice, colCurrency, colTimestamp,
}

// Rate file columns. The rate column is accepted under either name.
const (
	colDate     = "date"
	colRate     = "rate"
	colRateGBP  = "rate_to_gbp"
	colRateCurr = "currency"
)

// ReadTransactions parses a transaction CSV with a header row.
// Empty customer_id, unit_price and description become nil. An unparseable
// unit_price is treated as missing so that imputation can repair it.
// A malformed quantity is not repairable and yields *domain.ValidationError.
func ReadTransactions(r io.Reader) ([]*domain.RawTransaction, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := indexHeader(header, transactionColumns)
	if err != nil {
		return nil, err
	}
	descIdx, hasDesc := lookupColumn(header, colDescription)

	var out []*domain.RawTransaction
	for row := 0; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}

		qtyRaw := strings.TrimSpace(rec[idx[colQuantity]])
		qty, err := strconv.ParseInt(qtyRaw, 10, 64)
		if err != nil {
			return nil, &domain.ValidationError{
				Stage: stage, Row: row, Field: colQuantity,
				Reason: fmt.Sprintf("not an integer: %q", qtyRaw),
			}
		}

		tx := &domain.RawTransaction{
			InvoiceID: strings.TrimSpace(rec[idx[colInvoice]]),
			ProductID: strings.TrimSpace(rec[idx[colProduct]]),
			EntityID:  optionalString(rec[idx[colCustomer]]),
			Quantity:  qty,
			UnitPrice: optionalFloat(rec[idx[colUnitPrice]]),
			Currency:  strings.ToUpper(strings.TrimSpace(rec[idx[colCurrency]])),
			Timestamp: strings.TrimSpace(rec[idx[colTimestamp]]),
		}
		if hasDesc {
			tx.Description = optionalString(rec[descIdx])
		}
		out = append(out, tx)
	}
	return out, nil
}

// ReadRates parses a rate CSV with columns date, currency and rate_to_gbp
// (or rate). Dates use the YYYY-MM-DD layout.
func ReadRates(r io.Reader) ([]*domain.ExchangeRate, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := indexHeader(header, []string{colDate, colRateCurr})
	if err != nil {
		return nil, err
	}
	rateIdx, ok := lookupColumn(header, colRateGBP)
	if !ok {
		rateIdx, ok = lookupColumn(header, colRate)
	}
	if !ok {
		return nil, &domain.ValidationError{Stage: stage, Row: -1, Field: colRate, Reason: "missing column"}
	}

	var out []*domain.ExchangeRate
	for row := 0; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}

		dateRaw := strings.TrimSpace(rec[idx[colDate]])
		date, err := time.Parse(time.DateOnly, dateRaw)
		if err != nil {
			return nil, &domain.ValidationError{
				Stage: stage, Row: row, Field: colDate,
				Reason: fmt.Sprintf("not a date: %q", dateRaw),
			}
		}
		rateRaw := strings.TrimSpace(rec[rateIdx])
		rate, err := strconv.ParseFloat(rateRaw, 64)
		if err != nil {
			return nil, &domain.ValidationError{
				Stage: stage, Row: row, Field: colRate,
				Reason: fmt.Sprintf("not a number: %q", rateRaw),
			}
		}
		out = append(out, &domain.ExchangeRate{
			Currency: strings.ToUpper(strings.TrimSpace(rec[idx[colRateCurr]])),
			Date:     date,
			Rate:     rate,
		})
	}
	return out, nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	return cr
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

func lookupColumn(header []string, name string) (int, bool) {
	for i, h := range header {
		if normalizeHeader(h) == name {
			return i, true
		}
	}
	return 0, false
}

func indexHeader(header []string, required []string) (map[string]int, error) {
	idx := make(map[string]int, len(required))
	for _, name := range required {
		i, ok := lookupColumn(header, name)
		if !ok {
			return nil, &domain.ValidationError{Stage: stage, Row: -1, Field: name, Reason: "missing column"}
		}
		idx[name] = i
	}
	return idx, nil
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func optionalFloat(v string) *float64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}
