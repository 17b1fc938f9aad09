package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is a row of any of the four invoice tables.
// Exported is nil for staged types, which have no such column.
type Invoice struct {
	ID              int64       `db:"id" json:"id"`
	Type            InvoiceType `db:"-" json:"natureFacture"`
	Numero          *string     `db:"numero" json:"numero"`
	Client          *string     `db:"client" json:"client"`
	CompteProduit   *string     `db:"compte_produit" json:"compteProduit"`
	Devise          *string     `db:"devise" json:"devise"`
	DateFacturation *string     `db:"date_facturation" json:"dateFacturation"`
	MontantHT       Amount      `db:"montant_ht" json:"montantHT"`
	MontantTVA      Amount      `db:"montant_tva" json:"montantTVA"`
	DroitsTimbre    Amount      `db:"droits_timbre" json:"droitsTimbre"`
	MontantTTC      Amount      `db:"montant_ttc" json:"montantTTC"`
	Exported        *bool       `db:"exported" json:"exported,omitempty"`
	CreatedAt       time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updatedAt"`
}

// Draft is the lenient payload of the universal save endpoint
type Draft struct {
	NatureFacture   string  `json:"natureFacture"`
	Numero          *string `json:"numero"`
	Client          *string `json:"client"`
	CompteProduit   *string `json:"compteProduit"`
	Devise          *string `json:"devise"`
	DateFacturation *string `json:"dateFacturation"`
	MontantHT       Amount  `json:"montantHT"`
	MontantTVA      Amount  `json:"montantTVA"`
	DroitsTimbre    Amount  `json:"droitsTimbre"`
	MontantTTC      Amount  `json:"montantTTC"`
}

// Invoice builds an unsaved invoice of type t from the draft
func (d *Draft) Invoice(t InvoiceType) *Invoice {
	return &Invoice{
		Type:            t,
		Numero:          d.Numero,
		Client:          d.Client,
		CompteProduit:   d.CompteProduit,
		Devise:          d.Devise,
		DateFacturation: d.DateFacturation,
		MontantHT:       d.MontantHT,
		MontantTVA:      d.MontantTVA,
		DroitsTimbre:    d.DroitsTimbre,
		MontantTTC:      d.MontantTTC,
	}
}

// InvoiceInput is the strict payload of the achat and vente add/edit
// endpoints. Every field must be present.
type InvoiceInput struct {
	Numero          string           `json:"numero" validate:"required,max=50"`
	Client          string           `json:"client" validate:"required,max=150"`
	CompteProduit   string           `json:"compteProduit" validate:"required,max=150"`
	Devise          string           `json:"devise" validate:"required,max=60"`
	DateFacturation string           `json:"dateFacturation" validate:"required,max=50"`
	MontantHT       *decimal.Decimal `json:"montantHT" validate:"required"`
	MontantTVA      *decimal.Decimal `json:"montantTVA" validate:"required"`
	DroitsTimbre    *decimal.Decimal `json:"droitsTimbre" validate:"required"`
	MontantTTC      *decimal.Decimal `json:"montantTTC" validate:"required"`
}

// OutOfRange returns a detail for every amount that fails InRange
func (in *InvoiceInput) OutOfRange() map[string]string {
	details := make(map[string]string)
	for field, d := range map[string]*decimal.Decimal{
		"montantHT":    in.MontantHT,
		"montantTVA":   in.MontantTVA,
		"droitsTimbre": in.DroitsTimbre,
		"montantTTC":   in.MontantTTC,
	} {
		if d != nil && !InRange(*d) {
			details[field] = "amount out of range"
		}
	}
	return details
}

// Invoice builds an invoice of type t from a validated input
func (in *InvoiceInput) Invoice(t InvoiceType) *Invoice {
	return &Invoice{
		Type:            t,
		Numero:          &in.Numero,
		Client:          &in.Client,
		CompteProduit:   &in.CompteProduit,
		Devise:          &in.Devise,
		DateFacturation: &in.DateFacturation,
		MontantHT:       NewAmount(*in.MontantHT),
		MontantTVA:      NewAmount(*in.MontantTVA),
		DroitsTimbre:    NewAmount(*in.DroitsTimbre),
		MontantTTC:      NewAmount(*in.MontantTTC),
	}
}

// ListFilter narrows an invoice listing. Exported is only valid for final types.
type ListFilter struct {
	Exported *bool
}
