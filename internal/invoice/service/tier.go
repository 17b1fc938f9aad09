package service

import (
	"context"

	"github.com/kminvoice/km-invoice/internal/invoice/domain"
	"github.com/kminvoice/km-invoice/internal/invoice/events"
	"github.com/kminvoice/km-invoice/pkg/errors"
	"github.com/kminvoice/km-invoice/pkg/logger"
)

// TierStore persists the tier registry
type TierStore interface {
	Create(ctx context.Context, tier *domain.Tier) error
	GetByID(ctx context.Context, id int64) (*domain.Tier, error)
	List(ctx context.Context) ([]*domain.Tier, error)
	Update(ctx context.Context, tier *domain.Tier) error
	Delete(ctx context.Context, id int64) error
}

// TierService manages counterparties
type TierService struct {
	tiers     TierStore
	publisher *events.InvoiceEventPublisher
	logger    *logger.Logger
}

// NewTierService creates a new tier service
func NewTierService(tiers TierStore, publisher *events.InvoiceEventPublisher, log *logger.Logger) *TierService {
	return &TierService{
		tiers:     tiers,
		publisher: publisher,
		logger:    log.WithComponent("tier_service"),
	}
}

func checkDelay(in *domain.TierInput) error {
	if d := in.DelaiPaiement.Days; d != nil && *d < 0 {
		return errors.Validation(map[string]string{
			"delai_paiement": "must be a positive number of days",
		})
	}
	return nil
}

// AddTier registers a tier
func (s *TierService) AddTier(ctx context.Context, in *domain.TierInput) (*domain.Tier, error) {
	if err := checkDelay(in); err != nil {
		return nil, err
	}

	tier := in.Tier()
	if err := s.tiers.Create(ctx, tier); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("tier_id", tier.ID).Str("ice", tier.ICE).Msg("tier added")
	s.publisher.PublishTierCreated(ctx, tier)
	return tier, nil
}

// EditTier replaces every field of a tier
func (s *TierService) EditTier(ctx context.Context, id int64, in *domain.TierInput) (*domain.Tier, error) {
	if err := checkDelay(in); err != nil {
		return nil, err
	}

	tier := in.Tier()
	tier.ID = id
	if err := s.tiers.Update(ctx, tier); err != nil {
		return nil, err
	}

	s.publisher.PublishTierUpdated(ctx, tier)
	return tier, nil
}

// DeleteTier removes a tier
func (s *TierService) DeleteTier(ctx context.Context, id int64) error {
	if err := s.tiers.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Int64("tier_id", id).Msg("tier deleted")
	s.publisher.PublishTierDeleted(ctx, id)
	return nil
}

// GetTier returns a tier by id
func (s *TierService) GetTier(ctx context.Context, id int64) (*domain.Tier, error) {
	return s.tiers.GetByID(ctx, id)
}

// ListTiers lists every tier ordered by id
func (s *TierService) ListTiers(ctx context.Context) ([]*domain.Tier, error) {
	return s.tiers.List(ctx)
}
