package pdf

import (
	"strings"

	"github.com/kminvoice/km-invoice/internal/invoice/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Document is the content of a rendered invoice. Numeric fields are lenient:
// a number or numeric string is read, anything else counts as zero.
type Document struct {
	Numero          string        `json:"numero"`
	Client          string        `json:"client"`
	ClientAddress   string        `json:"clientAddress"`
	ClientICE       string        `json:"clientICE"`
	DateFacturation string        `json:"dateFacturation"`
	Devise          string        `json:"devise"`
	NatureFacture   string        `json:"natureFacture"`
	CompteProduit   string        `json:"compteProduit"`
	Description     string        `json:"description"`
	Quantity        domain.Amount `json:"quantity"`
	UnitPrice       domain.Amount `json:"unitPrice"`
	TVARate         domain.Amount `json:"tvaRate"` // percent; unset uses the configured default
	DroitsTimbre    domain.Amount `json:"droitsTimbre"`
	Notes           string        `json:"notes"`

	// fixed holds stored totals, which take precedence over quantity × price
	fixed *Totals
}

// Totals are the computed amounts of a document, rounded to cents
type Totals struct {
	HT     decimal.Decimal
	TVA    decimal.Decimal
	Timbre decimal.Decimal
	TTC    decimal.Decimal
	Rate   decimal.Decimal
}

func orZero(a domain.Amount) decimal.Decimal {
	if !a.Valid {
		return decimal.Zero
	}
	return a.Decimal
}

// Compute derives HT = quantity × unit price, TVA = HT × rate / 100 and
// TTC = HT + TVA + droits de timbre.
func (d *Document) Compute(defaultRate decimal.Decimal) Totals {
	if d.fixed != nil {
		return *d.fixed
	}

	rate := defaultRate
	if d.TVARate.Valid {
		rate = d.TVARate.Decimal
	}

	ht := orZero(d.Quantity).Mul(orZero(d.UnitPrice)).Round(2)
	tva := ht.Mul(rate).Div(hundred).Round(2)
	timbre := orZero(d.DroitsTimbre).Round(2)

	return Totals{
		HT:     ht,
		TVA:    tva,
		Timbre: timbre,
		TTC:    ht.Add(tva).Add(timbre),
		Rate:   rate,
	}
}

// FromInvoice builds a document from a stored invoice, keeping its totals
func FromInvoice(inv *domain.Invoice) Document {
	totals := Totals{
		HT:     orZero(inv.MontantHT).Round(2),
		TVA:    orZero(inv.MontantTVA).Round(2),
		Timbre: orZero(inv.DroitsTimbre).Round(2),
		TTC:    orZero(inv.MontantTTC).Round(2),
	}
	if !totals.HT.IsZero() {
		totals.Rate = totals.TVA.Mul(hundred).Div(totals.HT).Round(2)
	}

	return Document{
		Numero:          deref(inv.Numero),
		Client:          deref(inv.Client),
		DateFacturation: deref(inv.DateFacturation),
		Devise:          deref(inv.Devise),
		NatureFacture:   inv.Type.Nature(),
		CompteProduit:   deref(inv.CompteProduit),
		fixed:           &totals,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// formatMoney renders 1234567.8 as "1 234 567.80"
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + frac
}
