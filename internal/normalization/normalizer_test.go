package normalization

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revenue-feature-lab/internal/domain"
)

func ptr[T any](v T) *T {
	return &v
}

func raw(invoice, product, entity string, qty int64, price float64, currency, ts string) *domain.RawTransaction {
	r := &domain.RawTransaction{
		InvoiceID:   invoice,
		ProductID:   product,
		Quantity:    qty,
		UnitPrice:   ptr(price),
		Currency:    currency,
		Timestamp:   ts,
		Description: ptr("item " + product),
	}
	if entity != "" {
		r.EntityID = ptr(entity)
	}
	return r
}

var day1 = time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

func TestDeduplicate_FiveKeyMatch(t *testing.T) {
	a := raw("INV1", "P1", "C1", 2, 5.0, "GBP", "2024-10-01 10:00:00")
	b := raw("INV1", "P1", "C1", 2, 5.0, "GBP", "2024-10-01 10:00:00")
	b.Description = ptr("different text") // non-key field
	c := raw("INV1", "P1", "C1", 3, 5.0, "GBP", "2024-10-01 10:00:00")

	out, removed := Deduplicate([]*domain.RawTransaction{a, b, c})

	require.Len(t, out, 2)
	assert.Equal(t, 1, removed)
	assert.Same(t, a, out[0], "first occurrence must be kept")
	assert.Same(t, c, out[1])
}

func TestDeduplicate_NilPriceDistinctFromValue(t *testing.T) {
	a := raw("INV1", "P1", "C1", 1, 0, "GBP", "2024-10-01")
	a.UnitPrice = nil
	b := raw("INV1", "P1", "C1", 1, 0, "GBP", "2024-10-01")

	out, removed := Deduplicate([]*domain.RawTransaction{a, b})
	assert.Len(t, out, 2)
	assert.Equal(t, 0, removed)
}

func TestDeduplicate_NilEntriesNotDuplicates(t *testing.T) {
	a := raw("INV1", "P1", "C1", 2, 5.0, "GBP", "2024-10-01 10:00:00")
	b := raw("INV1", "P1", "C1", 2, 5.0, "GBP", "2024-10-01 10:00:00")

	out, removed := Deduplicate([]*domain.RawTransaction{nil, a, nil, b})
	require.Len(t, out, 1)
	assert.Equal(t, 1, removed)
}

func TestNormalize_NilRowsCountedSeparately(t *testing.T) {
	rows := []*domain.RawTransaction{
		nil,
		raw("INV1", "P1", "C1", 2, 5.0, "GBP", "2024-10-01 10:00:00"),
		nil,
	}

	out, report, err := Normalize(rows, nil, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, 2, report.NilRows)
	assert.Equal(t, 0, report.DuplicatesRemoved)
	assert.Equal(t, 2, report.Dropped())
}

func TestNormalize_DuplicatesCollapsed(t *testing.T) {
	rows := []*domain.RawTransaction{
		raw("INV1", "P1", "C1", 2, 5.0, "GBP", "2024-10-01 10:00:00"),
		raw("INV1", "P1", "C1", 2, 5.0, "GBP", "2024-10-01 10:00:00"),
	}

	out, report, err := Normalize(rows, domain.RateTable{}, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, 1, report.DuplicatesRemoved)
	assert.Equal(t, 1, report.OutputRows)
}

func TestNormalize_MissingEntityDropped(t *testing.T) {
	rows := []*domain.RawTransaction{
		raw("INV1", "P1", "", 1, 5.0, "GBP", "2024-10-01"),
		raw("INV2", "P1", "C1", 1, 5.0, "GBP", "2024-10-01"),
	}

	out, report, err := Normalize(rows, nil, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "C1", out[0].EntityID)
	assert.Equal(t, 1, report.MissingEntity)
}

func TestNormalize_PriceImputation(t *testing.T) {
	missingSameDay := raw("INV9", "P1", "C1", 1, 0, "GBP", "2024-10-01 12:00:00")
	missingSameDay.UnitPrice = nil
	zeroOtherDay := raw("INV10", "P1", "C2", 1, 0, "GBP", "2024-10-05 12:00:00")
	negativeUnknown := raw("INV11", "P404", "C3", 1, -1, "GBP", "2024-10-01 12:00:00")

	rows := []*domain.RawTransaction{
		raw("INV1", "P1", "C1", 1, 2.0, "GBP", "2024-10-01 09:00:00"),
		raw("INV2", "P1", "C1", 1, 4.0, "GBP", "2024-10-01 10:00:00"),
		raw("INV3", "P1", "C1", 1, 9.0, "GBP", "2024-10-02 10:00:00"),
		raw("INV4", "P1", "C1", 1, 1.0, "USD", "2024-10-01 10:00:00"),
		missingSameDay,
		zeroOtherDay,
		negativeUnknown,
	}
	rates := domain.NewRateTable([]*domain.ExchangeRate{{Currency: "USD", Date: day1, Rate: 0.8}})

	out, report, err := Normalize(rows, rates, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, out, 6)

	// Same product, currency and day: median(2, 4) = 3.
	assert.Equal(t, "INV9", out[4].InvoiceID)
	assert.Equal(t, 3.0, out[4].UnitPrice)
	assert.True(t, out[4].PriceImputed)

	// No same-day group: product median over 2, 4, 9, 1 = 3.
	assert.Equal(t, "INV10", out[5].InvoiceID)
	assert.Equal(t, 3.0, out[5].UnitPrice)

	assert.Equal(t, 1, report.ImputedSameDay)
	assert.Equal(t, 1, report.ImputedGlobal)
	assert.Equal(t, 1, report.Unimputable)
}

func TestNormalize_DescriptionSentinel(t *testing.T) {
	r := raw("INV1", "P1", "C1", 1, 5.0, "GBP", "2024-10-01")
	r.Description = nil

	out, report, err := Normalize([]*domain.RawTransaction{r}, nil, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Unknown", out[0].Description)
	assert.Equal(t, 1, report.DescriptionsFilled)
}

func TestNormalize_DescriptionsFilledOnlyForRetainedRows(t *testing.T) {
	rows := []*domain.RawTransaction{
		raw("INV1", "P1", "C1", 1, 5.0, "JPY", "2024-10-01"),
		raw("INV2", "P1", "C1", 1, 5.0, "GBP", "yesterday"),
		raw("INV3", "P1", "C1", 1, 5.0, "GBP", "2024-10-01"),
	}
	for _, r := range rows {
		r.Description = nil
	}

	out, report, err := Normalize(rows, nil, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Unknown", out[0].Description)
	assert.Equal(t, 1, report.DescriptionsFilled)
	assert.Equal(t, 1, report.InvalidCurrency)
	assert.Equal(t, 1, report.InvalidTimestamp)
}

func TestNormalize_ValidityFilter(t *testing.T) {
	rows := []*domain.RawTransaction{
		raw("INV1", "P1", "C1", 1, 5.0, "JPY", "2024-10-01"),
		raw("INV2", "P1", "C1", 1, 5.0, "GBP", "yesterday"),
		raw("INV3", "P1", "C1", 1, 5.0, "GBP", " 2024-10-01T08:30:00Z "),
	}

	out, report, err := Normalize(rows, nil, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "INV3", out[0].InvoiceID)
	assert.Equal(t, time.Date(2024, 10, 1, 8, 30, 0, 0, time.UTC), out[0].Timestamp)
	assert.Equal(t, 1, report.InvalidCurrency)
	assert.Equal(t, 1, report.InvalidTimestamp)
	assert.Equal(t, 2, report.Dropped())
}

func TestNormalize_CurrencyConversion(t *testing.T) {
	rows := []*domain.RawTransaction{
		raw("INV1", "P1", "C1", 1, 100.0, "EUR", "2024-10-01 10:00:00"),
		raw("INV2", "P2", "C1", 1, 10.0, "GBP", "2024-10-01 10:00:00"),
	}
	rates := domain.NewRateTable([]*domain.ExchangeRate{{Currency: "EUR", Date: day1, Rate: 0.8}})

	out, _, err := Normalize(rows, rates, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 80.0, out[0].ResolvedPrice)
	assert.Equal(t, 100.0, out[0].UnitPrice)
	assert.Equal(t, 10.0, out[1].ResolvedPrice, "base currency converts at 1")
}

func TestNormalize_MissingRateFailsFast(t *testing.T) {
	rows := []*domain.RawTransaction{
		raw("INV1", "P1", "C1", 1, 100.0, "USD", "2024-10-02 10:00:00"),
	}
	rates := domain.NewRateTable([]*domain.ExchangeRate{{Currency: "USD", Date: day1, Rate: 0.8}})

	out, _, err := Normalize(rows, rates, DefaultOptions())
	require.Error(t, err)
	assert.Nil(t, out)

	var rateErr *domain.MissingRateError
	require.True(t, errors.As(err, &rateErr))
	assert.Equal(t, "USD", rateErr.Currency)
	assert.Equal(t, time.Date(2024, 10, 2, 0, 0, 0, 0, time.UTC), rateErr.Date)
}

func TestConvert_NonPositiveRate(t *testing.T) {
	rates := domain.NewRateTable([]*domain.ExchangeRate{{Currency: "USD", Date: day1, Rate: 0}})
	_, err := Convert(10, "USD", day1, rates, "GBP")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestNormalize_Idempotent(t *testing.T) {
	rows := []*domain.RawTransaction{
		raw("INV1", "P1", "C1", 1, 2.5, "GBP", "2024-10-01 10:00:00"),
		raw("INV2", "P1", "C2", -1, 2.5, "EUR", "2024-10-01 11:00:00"),
	}
	rates := domain.NewRateTable([]*domain.ExchangeRate{{Currency: "EUR", Date: day1, Rate: 0.85}})

	first, _, err := Normalize(rows, rates, DefaultOptions())
	require.NoError(t, err)
	second, _, err := Normalize(rows, rates, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, Median(nil))
	assert.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))

	in := []float64{3, 1}
	Median(in)
	assert.Equal(t, []float64{3, 1}, in, "input must not be reordered")
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-10-01", true},
		{"2024-10-01 10:11:12", true},
		{"2024-10-01T10:11:12", true},
		{"2024-10-01T10:11:12+02:00", true},
		{"2024-10-01T10:11:12.123456Z", true},
		{"", false},
		{"01/10/2024", false},
	}
	for _, tc := range cases {
		_, ok := ParseTimestamp(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
	}

	ts, ok := ParseTimestamp("2024-10-01T01:00:00+02:00")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 9, 30, 23, 0, 0, 0, time.UTC), ts)
}
