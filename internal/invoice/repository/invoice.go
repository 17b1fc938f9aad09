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

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Columns written on insert and update, in this order
var invoiceWriteColumns = []string{
	"numero", "client", "compte_produit", "devise", "date_facturation",
	"montant_ht", "montant_tva", "droits_timbre", "montant_ttc",
}

// InvoiceRepository persists the four invoice tables. The table is picked
// from the invoice type on every call.
type InvoiceRepository struct {
	db *database.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *database.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func selectColumns(t domain.InvoiceType) []string {
	cols := append([]string{"id"}, invoiceWriteColumns...)
	if !t.Staged() {
		cols = append(cols, "exported")
	}
	return append(cols, "created_at", "updated_at")
}

func writeValues(inv *domain.Invoice) []interface{} {
	return []interface{}{
		inv.Numero, inv.Client, inv.CompteProduit, inv.Devise, inv.DateFacturation,
		inv.MontantHT, inv.MontantTVA, inv.DroitsTimbre, inv.MontantTTC,
	}
}

func checkType(t domain.InvoiceType) error {
	if !t.Valid() {
		return errors.BadRequestKey("errors.invalid_nature")
	}
	return nil
}

// Create inserts the invoice and fills in its id and timestamps
func (r *InvoiceRepository) Create(ctx context.Context, t domain.InvoiceType, inv *domain.Invoice) error {
	if err := checkType(t); err != nil {
		return err
	}

	query, args, err := psql.Insert(t.Table()).
		Columns(invoiceWriteColumns...).
		Values(writeValues(inv)...).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert %s: %w", t.Table(), err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return mapError(err, "insert "+t.Table())
	}

	inv.Type = t
	if !t.Staged() {
		exported := false
		inv.Exported = &exported
	}
	return nil
}

// GetByID gets an invoice by id
func (r *InvoiceRepository) GetByID(ctx context.Context, t domain.InvoiceType, id int64) (*domain.Invoice, error) {
	if err := checkType(t); err != nil {
		return nil, err
	}

	query, args, err := psql.Select(selectColumns(t)...).
		From(t.Table()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s: %w", t.Table(), err)
	}

	var inv domain.Invoice
	err = r.db.GetContext(ctx, &inv, query, args...)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("invoice")
	}
	if err != nil {
		return nil, mapError(err, "select "+t.Table())
	}

	inv.Type = t
	return &inv, nil
}

// List returns the invoices of a type ordered by id
func (r *InvoiceRepository) List(ctx context.Context, t domain.InvoiceType, filter domain.ListFilter) ([]*domain.Invoice, error) {
	if err := checkType(t); err != nil {
		return nil, err
	}

	builder := psql.Select(selectColumns(t)...).
		From(t.Table()).
		OrderBy("id")

	if filter.Exported != nil {
		if t.Staged() {
			return nil, errors.BadRequestKey("errors.not_exportable")
		}
		builder = builder.Where(squirrel.Eq{"exported": *filter.Exported})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list %s: %w", t.Table(), err)
	}

	invoices := []*domain.Invoice{}
	if err := r.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, mapError(err, "list "+t.Table())
	}

	for _, inv := range invoices {
		inv.Type = t
	}
	return invoices, nil
}

// Update overwrites every editable column of the invoice
func (r *InvoiceRepository) Update(ctx context.Context, t domain.InvoiceType, inv *domain.Invoice) error {
	if err := checkType(t); err != nil {
		return err
	}

	builder := psql.Update(t.Table())
	for i, v := range writeValues(inv) {
		builder = builder.Set(invoiceWriteColumns[i], v)
	}

	returning := "RETURNING created_at, updated_at"
	dest := []interface{}{&inv.CreatedAt, &inv.UpdatedAt}
	inv.Exported = nil
	if !t.Staged() {
		var exported bool
		returning += ", exported"
		dest = append(dest, &exported)
		inv.Exported = &exported
	}

	query, args, err := builder.
		Where(squirrel.Eq{"id": inv.ID}).
		Suffix(returning).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update %s: %w", t.Table(), err)
	}

	err = r.db.QueryRowxContext(ctx, query, args...).Scan(dest...)
	if stderrors.Is(err, sql.ErrNoRows) {
		inv.Exported = nil
		return errors.NotFound("invoice")
	}
	if err != nil {
		inv.Exported = nil
		return mapError(err, "update "+t.Table())
	}

	inv.Type = t
	return nil
}

// MarkExported flags a final invoice as exported
func (r *InvoiceRepository) MarkExported(ctx context.Context, t domain.InvoiceType, id int64) error {
	if err := checkType(t); err != nil {
		return err
	}
	if t.Staged() {
		return errors.BadRequestKey("errors.not_exportable")
	}

	query, args, err := psql.Update(t.Table()).
		Set("exported", true).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build export %s: %w", t.Table(), err)
	}

	return r.execOne(ctx, query, args, "invoice", "export "+t.Table())
}

// Delete removes an invoice
func (r *InvoiceRepository) Delete(ctx context.Context, t domain.InvoiceType, id int64) error {
	if err := checkType(t); err != nil {
		return err
	}

	query, args, err := psql.Delete(t.Table()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete %s: %w", t.Table(), err)
	}

	return r.execOne(ctx, query, args, "invoice", "delete "+t.Table())
}

// execOne runs a statement that must touch exactly one row
func (r *InvoiceRepository) execOne(ctx context.Context, query string, args []interface{}, resource, op string) error {
	return execOne(ctx, r.db, query, args, resource, op)
}

func execOne(ctx context.Context, db *database.DB, query string, args []interface{}, resource, op string) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err, op)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound(resource)
	}
	return nil
}

// mapError turns constraint violations into app errors and wraps the rest
func mapError(err error, op string) error {
	if appErr := database.MapPQError(err); appErr != nil {
		return appErr
	}
	return fmt.Errorf("%s: %w", op, err)
}
