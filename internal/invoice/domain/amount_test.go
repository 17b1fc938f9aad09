package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmount_UnmarshalLenient(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
		want  string
	}{
		{"number", `1200.5`, true, "1200.5"},
		{"numeric string", `"99.90"`, true, "99.9"},
		{"padded string", `" 10 "`, true, "10"},
		{"null", `null`, false, ""},
		{"empty string", `""`, false, ""},
		{"words", `"mille"`, false, ""},
		{"comma decimal", `"12,50"`, false, ""},
		{"bool", `true`, false, ""},
		{"object", `{"v":1}`, false, ""},
		{"scientific", `"1.5e3"`, true, "1500"},
		{"huge exponent string", `"1e20000000"`, false, ""},
		{"huge exponent number", `1e20000000`, false, ""},
		{"tiny exponent", `1e-30`, false, ""},
		{"too many digits", `"1234567890123456789012345678901"`, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Amount
			require.NoError(t, json.Unmarshal([]byte(tt.input), &a))
			assert.Equal(t, tt.valid, a.Valid)
			if tt.valid {
				assert.True(t, decimal.RequireFromString(tt.want).Equal(a.Decimal))
			}
		})
	}
}

func TestInRange(t *testing.T) {
	assert.True(t, InRange(decimal.RequireFromString("999999999999.99")))
	assert.True(t, InRange(decimal.RequireFromString("1e20")))
	assert.False(t, InRange(decimal.RequireFromString("1e21")))
	assert.False(t, InRange(decimal.RequireFromString("1e-21")))
}

func TestInvoiceInput_OutOfRange(t *testing.T) {
	ok := decimal.RequireFromString("100")
	huge := decimal.RequireFromString("1e5000000")
	in := InvoiceInput{MontantHT: &huge, MontantTVA: &ok, MontantTTC: &huge}

	details := in.OutOfRange()
	assert.Len(t, details, 2)
	assert.Contains(t, details, "montantHT")
	assert.Contains(t, details, "montantTTC")
}

func TestAmount_Marshal(t *testing.T) {
	b, err := json.Marshal(struct {
		HT  Amount `json:"ht"`
		TVA Amount `json:"tva"`
	}{HT: NewAmount(decimal.NewFromFloat(1000))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ht": 1000.00, "tva": null}`, string(b))
}

func TestDraft_LenientPayload(t *testing.T) {
	body := `{
		"natureFacture": "achat-ocr",
		"numero": "F-12",
		"montantHT": "1000",
		"montantTVA": 200,
		"droitsTimbre": "n/a",
		"montantTTC": null
	}`

	var d Draft
	require.NoError(t, json.Unmarshal([]byte(body), &d))

	inv := d.Invoice(TypeAchatOCR)
	assert.Equal(t, TypeAchatOCR, inv.Type)
	assert.Equal(t, "F-12", *inv.Numero)
	assert.Nil(t, inv.Client)
	assert.True(t, inv.MontantHT.Valid)
	assert.True(t, inv.MontantTVA.Valid)
	assert.False(t, inv.DroitsTimbre.Valid)
	assert.False(t, inv.MontantTTC.Valid)
}
