package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/kminvoice/km-invoice/internal/invoice/domain"
	"github.com/kminvoice/km-invoice/pkg/database"
	"github.com/kminvoice/km-invoice/pkg/errors"
)

const tierTable = "etat_tier"

var tierColumns = []string{
	"id", "raison_sociale", "nature_tier", "ice", "if_field", "delai_paiement",
	"created_at", "updated_at",
}

// TierRepository handles etat_tier persistence
type TierRepository struct {
	db *database.DB
}

// NewTierRepository creates a new tier repository
func NewTierRepository(db *database.DB) *TierRepository {
	return &TierRepository{db: db}
}

// Create inserts a tier and fills in its id and timestamps
func (r *TierRepository) Create(ctx context.Context, tier *domain.Tier) error {
	query, args, err := psql.Insert(tierTable).
		Columns("raison_sociale", "nature_tier", "ice", "if_field", "delai_paiement").
		Values(tier.RaisonSociale, tier.NatureTier, tier.ICE, tier.IFField, tier.DelaiPaiement).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert %s: %w", tierTable, err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&tier.ID, &tier.CreatedAt, &tier.UpdatedAt); err != nil {
		return mapError(err, "insert "+tierTable)
	}
	return nil
}

// GetByID gets a tier by id
func (r *TierRepository) GetByID(ctx context.Context, id int64) (*domain.Tier, error) {
	query, args, err := psql.Select(tierColumns...).
		From(tierTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s: %w", tierTable, err)
	}

	var tier domain.Tier
	err = r.db.GetContext(ctx, &tier, query, args...)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("tier")
	}
	if err != nil {
		return nil, mapError(err, "select "+tierTable)
	}
	return &tier, nil
}

// List returns every tier ordered by id
func (r *TierRepository) List(ctx context.Context) ([]*domain.Tier, error) {
	query, args, err := psql.Select(tierColumns...).
		From(tierTable).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list %s: %w", tierTable, err)
	}

	tiers := []*domain.Tier{}
	if err := r.db.SelectContext(ctx, &tiers, query, args...); err != nil {
		return nil, mapError(err, "list "+tierTable)
	}
	return tiers, nil
}

// Update overwrites a tier
func (r *TierRepository) Update(ctx context.Context, tier *domain.Tier) error {
	query, args, err := psql.Update(tierTable).
		Set("raison_sociale", tier.RaisonSociale).
		Set("nature_tier", tier.NatureTier).
		Set("ice", tier.ICE).
		Set("if_field", tier.IFField).
		Set("delai_paiement", tier.DelaiPaiement).
		Where(squirrel.Eq{"id": tier.ID}).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update %s: %w", tierTable, err)
	}

	err = r.db.QueryRowxContext(ctx, query, args...).Scan(&tier.CreatedAt, &tier.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NotFound("tier")
	}
	if err != nil {
		return mapError(err, "update "+tierTable)
	}
	return nil
}

// Delete removes a tier
func (r *TierRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := psql.Delete(tierTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete %s: %w", tierTable, err)
	}

	return execOne(ctx, r.db, query, args, "tier", "delete "+tierTable)
}
