package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Tier is a counterparty of the etat_tier registry
type Tier struct {
	ID            int64     `db:"id" json:"id"`
	RaisonSociale string    `db:"raison_sociale" json:"raison_sociale"`
	NatureTier    string    `db:"nature_tier" json:"nature_tier"`
	ICE           string    `db:"ice" json:"ice"`
	IFField       string    `db:"if_field" json:"if_field"`
	DelaiPaiement *int      `db:"delai_paiement" json:"delai_paiement"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// TierInput is the add/edit payload
type TierInput struct {
	RaisonSociale string       `json:"raison_sociale" validate:"required,max=150"`
	NatureTier    string       `json:"nature_tier" validate:"required,max=100"`
	ICE           string       `json:"ice" validate:"required,max=50"`
	IFField       string       `json:"if_field" validate:"required,max=50"`
	DelaiPaiement PaymentDelay `json:"delai_paiement"`
}

// Tier builds a tier from the input
func (in *TierInput) Tier() *Tier {
	return &Tier{
		RaisonSociale: in.RaisonSociale,
		NatureTier:    in.NatureTier,
		ICE:           in.ICE,
		IFField:       in.IFField,
		DelaiPaiement: in.DelaiPaiement.Days,
	}
}

// PaymentDelay is a number of days. It accepts a JSON integer or a numeric
// string; null and the empty string mean no delay.
type PaymentDelay struct {
	Days *int
}

func (p *PaymentDelay) UnmarshalJSON(data []byte) error {
	p.Days = nil

	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
	}

	days, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("delai_paiement: %q is not a whole number of days", raw)
	}
	p.Days = &days
	return nil
}

func (p PaymentDelay) MarshalJSON() ([]byte, error) {
	if p.Days == nil {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(*p.Days)), nil
}
