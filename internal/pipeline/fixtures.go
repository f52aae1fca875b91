package pipeline

import (
	"fmt"
	"time"

	"revenue-feature-lab/internal/domain"
	"revenue-feature-lab/internal/ingestion"
)

// FixtureStart is the first day covered by the fixtures.
var FixtureStart = time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

// FixtureDays is the number of days covered by the fixtures.
const FixtureDays = 10

var fixtureProducts = []struct {
	id          string
	description string
	price       float64
}{
	{"P100", "Enamel mug", 4.25},
	{"P200", "Linen tote", 9.50},
	{"P300", "Glass vase", 17.00},
}

// Fixtures returns deterministic sample input: four customers over ten days
// in GBP, USD and EUR, with the defects normalization repairs or drops
// (a duplicated line, a missing customer, missing and zero prices, a product
// that is never priced, a missing description, an unsupported currency, an
// unparseable timestamp) and a return.
func Fixtures() *ingestion.StaticSource {
	return &ingestion.StaticSource{Raw: fixtureTransactions(), RateRows: fixtureRates()}
}

func fixtureRates() []*domain.ExchangeRate {
	rates := make([]*domain.ExchangeRate, 0, 2*FixtureDays)
	for d := 0; d < FixtureDays; d++ {
		day := FixtureStart.AddDate(0, 0, d)
		rates = append(rates,
			&domain.ExchangeRate{Currency: domain.CurrencyEUR, Date: day, Rate: 0.84 + 0.001*float64(d)},
			&domain.ExchangeRate{Currency: domain.CurrencyUSD, Date: day, Rate: 0.77 - 0.001*float64(d)},
		)
	}
	return rates
}

func fixtureTransactions() []*domain.RawTransaction {
	customers := []struct {
		id       string
		currency string
		every    int // active every n-th day
	}{
		{"C001", domain.CurrencyGBP, 1},
		{"C002", domain.CurrencyUSD, 2},
		{"C003", domain.CurrencyEUR, 3},
		{"C004", domain.CurrencyGBP, 4},
	}

	var out []*domain.RawTransaction
	for d := 0; d < FixtureDays; d++ {
		day := FixtureStart.AddDate(0, 0, d)
		for ci, c := range customers {
			if d%c.every != 0 {
				continue
			}
			invoice := fmt.Sprintf("INV%02d%d", d, ci)
			ts := day.Add(time.Duration(9+ci) * time.Hour).Format("2006-01-02 15:04:05")
			for pi, p := range fixtureProducts {
				if (d+ci+pi)%3 == 2 {
					continue
				}
				qty := int64(1 + (d+pi)%4)
				out = append(out, fixtureLine(invoice, p.id, c.id, qty, p.price, c.currency, ts, p.description))
			}
		}
	}

	day2 := FixtureStart.AddDate(0, 0, 2).Add(15 * time.Hour).Format("2006-01-02 15:04:05")
	day5 := FixtureStart.AddDate(0, 0, 5).Add(16 * time.Hour).Format(time.RFC3339)
	day7 := FixtureStart.AddDate(0, 0, 7).Add(11 * time.Hour).Format("2006-01-02T15:04:05")

	// Defects
	dup := fixtureLine("INV9001", "P100", "C001", 2, 4.25, domain.CurrencyGBP, day2, "Enamel mug")
	out = append(out,
		dup,
		fixtureLine(dup.InvoiceID, dup.ProductID, "C001", dup.Quantity, *dup.UnitPrice, dup.Currency, dup.Timestamp, "Enamel mug"),
		fixtureLine("INV9002", "P200", "", 1, 9.50, domain.CurrencyGBP, day2, "Linen tote"),
		withPrice(fixtureLine("INV9003", "P300", "C002", 1, 0, domain.CurrencyUSD, day5, "Glass vase"), nil),
		withPrice(fixtureLine("INV9004", "P200", "C003", 2, 0, domain.CurrencyGBP, day7, "Linen tote"), ptr(0.0)),
		withPrice(fixtureLine("INV9005", "P999", "C001", 1, 0, domain.CurrencyGBP, day5, "Gift card"), nil),
		fixtureLine("INV9006", "P100", "C004", 3, 4.25, domain.CurrencyGBP, day7, ""),
		fixtureLine("INV9007", "P100", "C002", 1, 500, "JPY", day5, "Enamel mug"),
		fixtureLine("INV9008", "P100", "C003", 1, 4.25, domain.CurrencyGBP, "not a timestamp", "Enamel mug"),
	)

	// Return against an earlier purchase
	out = append(out, fixtureLine("CINV9009", "P300", "C001", -1, 17.00, domain.CurrencyGBP, day7, "Glass vase"))
	return out
}

func fixtureLine(invoice, product, entity string, qty int64, price float64, currency, ts, description string) *domain.RawTransaction {
	tx := &domain.RawTransaction{
		InvoiceID: invoice,
		ProductID: product,
		Quantity:  qty,
		UnitPrice: ptr(price),
		Currency:  currency,
		Timestamp: ts,
	}
	if entity != "" {
		tx.EntityID = ptr(entity)
	}
	if description != "" {
		tx.Description = ptr(description)
	}
	return tx
}

func withPrice(tx *domain.RawTransaction, price *float64) *domain.RawTransaction {
	tx.UnitPrice = price
	return tx
}

func ptr[T any](v T) *T {
	return &v
}
