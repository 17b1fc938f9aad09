package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Invoice events
	EventInvoiceCreated  = "invoice.created"
	EventInvoiceUpdated  = "invoice.updated"
	EventInvoiceExported = "invoice.exported"
	EventInvoiceDeleted  = "invoice.deleted"

	// Tier events
	EventTierCreated = "tier.created"
	EventTierUpdated = "tier.updated"
	EventTierDeleted = "tier.deleted"
)

// ExchangeInvoiceEvents carries every event the service emits
const ExchangeInvoiceEvents = "invoice.events"

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// InvoiceEvent is published for every invoice mutation.
// Type is the invoice type tag (achat, vente, achat-ocr, vente-ocr).
type InvoiceEvent struct {
	InvoiceID  int64   `json:"invoice_id"`
	Type       string  `json:"type"`
	Numero     *string `json:"numero,omitempty"`
	Client     *string `json:"client,omitempty"`
	MontantTTC *string `json:"montant_ttc,omitempty"`
}

// TierEvent is published for every tier mutation
type TierEvent struct {
	TierID        int64  `json:"tier_id"`
	RaisonSociale string `json:"raison_sociale,omitempty"`
	ICE           string `json:"ice,omitempty"`
}
