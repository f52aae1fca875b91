package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingRateError_Matching(t *testing.T) {
	day := time.Date(2024, 10, 2, 0, 0, 0, 0, time.UTC)
	err := fmt.Errorf("normalize: %w", &MissingRateError{Currency: "USD", Date: day})

	assert.True(t, errors.Is(err, ErrMissingRate))
	assert.False(t, errors.Is(err, ErrValidation))

	var rateErr *MissingRateError
	require.True(t, errors.As(err, &rateErr))
	assert.Equal(t, "USD", rateErr.Currency)
	assert.Equal(t, "no exchange rate for USD on 2024-10-02", rateErr.Error())
}

func TestValidationError_Message(t *testing.T) {
	withRow := &ValidationError{Stage: "aggregate", Row: 3, Field: "entity_id", Reason: "empty"}
	assert.Equal(t, "aggregate: row 3: invalid entity_id: empty", withRow.Error())
	assert.True(t, errors.Is(withRow, ErrValidation))

	noRow := &ValidationError{Stage: "split", Row: -1, Field: "train_fraction", Reason: "out of range"}
	assert.Equal(t, "split: invalid train_fraction: out of range", noRow.Error())
}

func TestInsufficientHistoryError_Matching(t *testing.T) {
	err := &InsufficientHistoryError{EntityID: "C1", Day: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)}
	assert.True(t, errors.Is(err, ErrInsufficientHistory))
	assert.Contains(t, err.Error(), "C1")
}

func TestTruncateDay(t *testing.T) {
	ts := time.Date(2024, 10, 1, 23, 59, 59, 0, time.FixedZone("X", 2*3600))
	// 23:59 at +02:00 is 21:59 UTC on the same day.
	assert.Equal(t, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), TruncateDay(ts))

	a := time.Date(2024, 10, 1, 18, 0, 0, 0, time.UTC)
	b := time.Date(2024, 10, 4, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 3, DaysBetween(a, b))
}

func TestRateTable_Lookup(t *testing.T) {
	day := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	table := NewRateTable([]*ExchangeRate{
		{Currency: "USD", Date: day.Add(5 * time.Hour), Rate: 0.8},
	})

	rate, ok := table.Lookup("USD", day.Add(12*time.Hour))
	require.True(t, ok)
	assert.Equal(t, 0.8, rate)

	_, ok = table.Lookup("EUR", day)
	assert.False(t, ok)
	assert.Len(t, table.Rates(), 1)
}
