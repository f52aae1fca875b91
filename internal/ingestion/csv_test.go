package ingestion

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revenue-feature-lab/internal/domain"
)

func TestReadTransactions_Basic(t *testing.T) {
	in := "invoice_id,product_id,customer_id,quantity,unit_price,currency,timestamp,description\n" +
		"INV1,P1,C1,2,3.5,gbp,2024-10-01 09:00:00,Mug\n" +
		"INV1,P2,,-1,,USD,2024-10-01 09:00:00,\n"

	txs, err := ReadTransactions(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, txs, 2)

	first := txs[0]
	assert.Equal(t, "INV1", first.InvoiceID)
	assert.Equal(t, "P1", first.ProductID)
	require.NotNil(t, first.EntityID)
	assert.Equal(t, "C1", *first.EntityID)
	assert.Equal(t, int64(2), first.Quantity)
	require.NotNil(t, first.UnitPrice)
	assert.Equal(t, 3.5, *first.UnitPrice)
	assert.Equal(t, "GBP", first.Currency)
	assert.Equal(t, "2024-10-01 09:00:00", first.Timestamp)
	require.NotNil(t, first.Description)
	assert.Equal(t, "Mug", *first.Description)

	second := txs[1]
	assert.Nil(t, second.EntityID)
	assert.Nil(t, second.UnitPrice)
	assert.Nil(t, second.Description)
	assert.Equal(t, int64(-1), second.Quantity)
}

func TestReadTransactions_ColumnOrderAndOptionalDescription(t *testing.T) {
	in := "Timestamp,Currency,Unit_Price,Quantity,Customer_ID,Product_ID,Invoice_ID\n" +
		"2024-10-01T10:00:00Z,EUR,abc,1,C9,P9,INV9\n"

	txs, err := ReadTransactions(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "INV9", txs[0].InvoiceID)
	assert.Equal(t, "EUR", txs[0].Currency)
	assert.Nil(t, txs[0].UnitPrice, "unparseable price is treated as missing")
	assert.Nil(t, txs[0].Description)
}

func TestReadTransactions_BadQuantity(t *testing.T) {
	in := "invoice_id,product_id,customer_id,quantity,unit_price,currency,timestamp\n" +
		"INV1,P1,C1,1,1.0,GBP,2024-10-01\n" +
		"INV2,P1,C1,two,1.0,GBP,2024-10-01\n"

	_, err := ReadTransactions(strings.NewReader(in))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "ingest", verr.Stage)
	assert.Equal(t, 1, verr.Row)
	assert.Equal(t, "quantity", verr.Field)
}

func TestReadTransactions_MissingColumn(t *testing.T) {
	in := "invoice_id,product_id,quantity,unit_price,currency,timestamp\n"

	_, err := ReadTransactions(strings.NewReader(in))
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "customer_id", verr.Field)
}

func TestReadTransactions_Empty(t *testing.T) {
	txs, err := ReadTransactions(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestReadRates(t *testing.T) {
	in := "date,currency,rate_to_gbp\n" +
		"2024-10-01,usd,0.78\n" +
		"2024-10-01,EUR,0.85\n"

	rates, err := ReadRates(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, "USD", rates[0].Currency)
	assert.Equal(t, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), rates[0].Date)
	assert.Equal(t, 0.78, rates[0].Rate)
}

func TestReadRates_AlternateColumnName(t *testing.T) {
	in := "currency,date,rate\nUSD,2024-10-02,0.79\n"

	rates, err := ReadRates(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, 0.79, rates[0].Rate)
}

func TestReadRates_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		field string
	}{
		{"no rate column", "date,currency\n2024-10-01,USD\n", "rate"},
		{"bad date", "date,currency,rate\n01/10/2024,USD,0.8\n", "date"},
		{"bad rate", "date,currency,rate\n2024-10-01,USD,x\n", "rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadRates(strings.NewReader(tt.in))
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
