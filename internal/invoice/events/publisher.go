package events

import (
	"context"

	"github.com/kminvoice/km-invoice/internal/invoice/domain"
	"github.com/kminvoice/km-invoice/pkg/logger"
	"github.com/kminvoice/km-invoice/pkg/messaging"
)

// Source is the event source name
const Source = "invoice-service"

// InvoiceEventPublisher publishes invoice and tier events.
// Failures are logged and never returned; a nil publisher drops events.
type InvoiceEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewInvoiceEventPublisher declares the invoice exchange and returns a publisher on it
func NewInvoiceEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*InvoiceEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeInvoiceEvents, Source, log)
	if err != nil {
		return nil, err
	}
	return NewWithPublisher(publisher, log), nil
}

// NewWithPublisher wraps any EventPublisher; used with messaging.NopPublisher
// when the broker is disabled, and with recording publishers in tests.
func NewWithPublisher(p messaging.EventPublisher, log *logger.Logger) *InvoiceEventPublisher {
	return &InvoiceEventPublisher{publisher: p, logger: log.WithComponent("events")}
}

func (p *InvoiceEventPublisher) publish(ctx context.Context, eventType string, data interface{}) {
	if p == nil || p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}

func invoicePayload(inv *domain.Invoice) messaging.InvoiceEvent {
	data := messaging.InvoiceEvent{
		InvoiceID: inv.ID,
		Type:      inv.Type.String(),
		Numero:    inv.Numero,
		Client:    inv.Client,
	}
	if inv.MontantTTC.Valid {
		ttc := inv.MontantTTC.Decimal.StringFixed(2)
		data.MontantTTC = &ttc
	}
	return data
}

// PublishInvoiceCreated publishes an invoice created event
func (p *InvoiceEventPublisher) PublishInvoiceCreated(ctx context.Context, inv *domain.Invoice) {
	p.publish(ctx, messaging.EventInvoiceCreated, invoicePayload(inv))
}

// PublishInvoiceUpdated publishes an invoice updated event
func (p *InvoiceEventPublisher) PublishInvoiceUpdated(ctx context.Context, inv *domain.Invoice) {
	p.publish(ctx, messaging.EventInvoiceUpdated, invoicePayload(inv))
}

// PublishInvoiceExported publishes an invoice exported event
func (p *InvoiceEventPublisher) PublishInvoiceExported(ctx context.Context, t domain.InvoiceType, id int64) {
	p.publish(ctx, messaging.EventInvoiceExported, messaging.InvoiceEvent{InvoiceID: id, Type: t.String()})
}

// PublishInvoiceDeleted publishes an invoice deleted event
func (p *InvoiceEventPublisher) PublishInvoiceDeleted(ctx context.Context, t domain.InvoiceType, id int64) {
	p.publish(ctx, messaging.EventInvoiceDeleted, messaging.InvoiceEvent{InvoiceID: id, Type: t.String()})
}

// PublishTierCreated publishes a tier created event
func (p *InvoiceEventPublisher) PublishTierCreated(ctx context.Context, tier *domain.Tier) {
	p.publish(ctx, messaging.EventTierCreated, messaging.TierEvent{
		TierID:        tier.ID,
		RaisonSociale: tier.RaisonSociale,
		ICE:           tier.ICE,
	})
}

// PublishTierUpdated publishes a tier updated event
func (p *InvoiceEventPublisher) PublishTierUpdated(ctx context.Context, tier *domain.Tier) {
	p.publish(ctx, messaging.EventTierUpdated, messaging.TierEvent{
		TierID:        tier.ID,
		RaisonSociale: tier.RaisonSociale,
		ICE:           tier.ICE,
	})
}

// PublishTierDeleted publishes a tier deleted event
func (p *InvoiceEventPublisher) PublishTierDeleted(ctx context.Context, id int64) {
	p.publish(ctx, messaging.EventTierDeleted, messaging.TierEvent{TierID: id})
}
