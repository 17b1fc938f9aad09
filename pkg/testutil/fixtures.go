package testutil

import (
	"fmt"

	"github.com/kminvoice/km-invoice/internal/invoice/domain"
	"github.com/shopspring/decimal"
)

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Invoice returns a complete invoice: HT 1000.00, TVA 20%, timbre 10.00
func (f *FixtureFactory) Invoice(t domain.InvoiceType, opts ...func(*domain.Invoice)) *domain.Invoice {
	seq := f.nextSeq()
	inv := &domain.Invoice{
		Type:            t,
		Numero:          PtrString(fmt.Sprintf("F-2024-%04d", seq)),
		Client:          PtrString(fmt.Sprintf("Client %d SARL", seq)),
		CompteProduit:   PtrString("611100"),
		Devise:          PtrString("MAD"),
		DateFacturation: PtrString("2024-03-15"),
		MontantHT:       Amount("1000.00"),
		MontantTVA:      Amount("200.00"),
		DroitsTimbre:    Amount("10.00"),
		MontantTTC:      Amount("1210.00"),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// WithNumero sets the invoice number
func WithNumero(numero string) func(*domain.Invoice) {
	return func(inv *domain.Invoice) {
		inv.Numero = &numero
	}
}

// WithClient sets the invoice client
func WithClient(client string) func(*domain.Invoice) {
	return func(inv *domain.Invoice) {
		inv.Client = &client
	}
}

// WithoutAmounts clears every amount, as an OCR draft with nothing recognised
func WithoutAmounts() func(*domain.Invoice) {
	return func(inv *domain.Invoice) {
		inv.MontantHT = domain.Amount{}
		inv.MontantTVA = domain.Amount{}
		inv.DroitsTimbre = domain.Amount{}
		inv.MontantTTC = domain.Amount{}
	}
}

// InvoiceInput returns a valid strict add/edit payload
func (f *FixtureFactory) InvoiceInput() domain.InvoiceInput {
	seq := f.nextSeq()
	return domain.InvoiceInput{
		Numero:          fmt.Sprintf("F-2024-%04d", seq),
		Client:          fmt.Sprintf("Client %d SARL", seq),
		CompteProduit:   "711100",
		Devise:          "MAD",
		DateFacturation: "2024-03-15",
		MontantHT:       Decimal("1000.00"),
		MontantTVA:      Decimal("200.00"),
		DroitsTimbre:    Decimal("10.00"),
		MontantTTC:      Decimal("1210.00"),
	}
}

// Tier returns a tier with a 60-day payment delay
func (f *FixtureFactory) Tier(opts ...func(*domain.Tier)) *domain.Tier {
	seq := f.nextSeq()
	delay := 60
	tier := &domain.Tier{
		RaisonSociale: fmt.Sprintf("Fournisseur %d SA", seq),
		NatureTier:    "fournisseur",
		ICE:           fmt.Sprintf("%015d", seq),
		IFField:       fmt.Sprintf("IF%06d", seq),
		DelaiPaiement: &delay,
	}
	for _, opt := range opts {
		opt(tier)
	}
	return tier
}

// WithRaisonSociale sets the tier name
func WithRaisonSociale(name string) func(*domain.Tier) {
	return func(t *domain.Tier) {
		t.RaisonSociale = name
	}
}

// WithoutDelay clears the payment delay
func WithoutDelay() func(*domain.Tier) {
	return func(t *domain.Tier) {
		t.DelaiPaiement = nil
	}
}

// Amount parses a decimal literal into a set amount, panicking on bad input
func Amount(s string) domain.Amount {
	return domain.NewAmount(decimal.RequireFromString(s))
}

// Decimal parses a decimal literal, panicking on bad input
func Decimal(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
