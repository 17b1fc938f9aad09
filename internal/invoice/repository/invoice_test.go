package repository_test

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/kminvoice/km-invoice/internal/invoice/domain"
	"github.com/kminvoice/km-invoice/internal/invoice/repository"
	"github.com/kminvoice/km-invoice/pkg/errors"
	"github.com/kminvoice/km-invoice/pkg/testutil"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var invoiceRowColumns = []string{
	"id", "numero", "client", "compte_produit", "devise", "date_facturation",
	"montant_ht", "montant_tva", "droits_timbre", "montant_ttc", "exported",
	"created_at", "updated_at",
}

func newInvoiceRepo(t *testing.T) (*repository.InvoiceRepository, *testutil.MockDB) {
	t.Helper()
	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() {
		mockDB.ExpectationsWereMet(t)
		mockDB.Close()
	})
	return repository.NewInvoiceRepository(mockDB.Database()), mockDB
}

func requireAppError(t *testing.T, err error, status int) *errors.AppError {
	t.Helper()
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, status, appErr.StatusCode)
	return appErr
}

func TestInvoiceRepository_Create_Final(t *testing.T) {
	repo, mockDB := newInvoiceRepo(t)
	now := time.Now()
	inv := testutil.NewFixtureFactory().Invoice(domain.TypeAchat, testutil.WithNumero("F-100"))

	mockDB.ExpectQuery("INSERT INTO achat (numero,client,compte_produit,devise,date_facturation,montant_ht,montant_tva,droits_timbre,montant_ttc)").
		WithArgs("F-100", sqlmock.AnyArg(), "611100", "MAD", "2024-03-15", "1000", "200", "10", "1210").
		WillReturnRows(testutil.MockRows("id", "created_at", "updated_at").AddRow(17, now, now))

	err := repo.Create(context.Background(), domain.TypeAchat, inv)
	require.NoError(t, err)

	assert.Equal(t, int64(17), inv.ID)
	assert.Equal(t, domain.TypeAchat, inv.Type)
	require.NotNil(t, inv.Exported)
	assert.False(t, *inv.Exported)
}

func TestInvoiceRepository_Create_StagedAcceptsNulls(t *testing.T) {
	repo, mockDB := newInvoiceRepo(t)
	now := time.Now()
	inv := &domain.Invoice{Numero: testutil.PtrString("OCR-1")}

	mockDB.ExpectQuery("INSERT INTO vente_ocr_invoice").
		WithArgs("OCR-1", nil, nil, nil, nil, nil, nil, nil, nil).
		WillReturnRows(testutil.MockRows("id", "created_at", "updated_at").AddRow(3, now, now))

	require.NoError(t, repo.Create(context.Background(), domain.TypeVenteOCR, inv))
	assert.Equal(t, int64(3), inv.ID)
	assert.Nil(t, inv.Exported)
}

func TestInvoiceRepository_Create_NotNullViolation(t *testing.T) {
	repo, mockDB := newInvoiceRepo(t)
	inv := &domain.Invoice{Numero: testutil.PtrString("F-1")}

	mockDB.ExpectQuery("INSERT INTO achat").
		WillReturnError(&pq.Error{Code: "23502", Column: "client"})

	err := repo.Create(context.Background(), domain.TypeAchat, inv)
	appErr := requireAppError(t, err, http.StatusBadRequest)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Contains(t, appErr.Details, "client")
}

func TestInvoiceRepository_Create_UnknownType(t *testing.T) {
	repo, _ := newInvoiceRepo(t)

	err := repo.Create(context.Background(), domain.InvoiceType("avoir"), &domain.Invoice{})
	requireAppError(t, err, http.StatusBadRequest)
}

func TestInvoiceRepository_GetByID(t *testing.T) {
	repo, mockDB := newInvoiceRepo(t)
	now := time.Now()

	mockDB.ExpectQuery("FROM vente WHERE id = $1").
		WithArgs(int64(5)).
		WillReturnRows(testutil.MockRows(invoiceRowColumns...).
			AddRow(5, "V-5", "Atlas SARL", "711100", "MAD", "2024-01-02", "500.00", "100.00", nil, "600.00", true, now, now))

	inv, err := repo.GetByID(context.Background(), domain.TypeVente, 5)
	require.NoError(t, err)

	assert.Equal(t, int64(5), inv.ID)
	assert.Equal(t, domain.TypeVente, inv.Type)
	assert.Equal(t, "Atlas SARL", *inv.Client)
	assert.Equal(t, "500", inv.MontantHT.Decimal.String())
	assert.False(t, inv.DroitsTimbre.Valid)
	require.NotNil(t, inv.Exported)
	assert.True(t, *inv.Exported)
}

func TestInvoiceRepository_GetByID_NotFound(t *testing.T) {
	repo, mockDB := newInvoiceRepo(t)

	mockDB.ExpectQuery("FROM ocr_invoice WHERE id = $1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), domain.TypeAchatOCR, 99)
	requireAppError(t, err, http.StatusNotFound)
}

func TestInvoiceRepository_List_ExportedFilter(t *testing.T) {
	repo, mockDB := newInvoiceRepo(t)
	now := time.Now()

	mockDB.ExpectQuery("FROM achat WHERE exported = $1 ORDER BY id").
		WithArgs(false).
		WillReturnRows(testutil.MockRows(invoiceRowColumns...).
			AddRow(1, "A-1", "C1", "611100", "MAD", "2024-01-01", "10", "2", "0", "12", false, now, now).
			AddRow(2, "A-2", "C2", "611100", "EUR", "2024-01-02", "20", "4", "0", "24", false, now, now))

	invoices, err := repo.List(context.Background(), domain.TypeAchat, domain.ListFilter{Exported: testutil.PtrBool(false)})
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.Equal(t, "A-2", *invoices[1].Numero)
	assert.Equal(t, domain.TypeAchat, invoices[1].Type)
}

func TestInvoiceRepository_List_StagedHasNoExportedColumn(t *testing.T) {
	repo, mockDB := newInvoiceRepo(t)

	mockDB.ExpectQuery("SELECT id, numero, client, compte_produit, devise, date_facturation, montant_ht, montant_tva, droits_timbre, montant_ttc, created_at, updated_at FROM vente_ocr_invoice ORDER BY id").
		WillReturnRows(testutil.MockRows("id"))

	invoices, err := repo.List(context.Background(), domain.TypeVenteOCR, domain.ListFilter{})
	require.NoError(t, err)
	assert.NotNil(t, invoices)
	assert.Empty(t, invoices)
}

func TestInvoiceRepository_List_StagedRejectsExportedFilter(t *testing.T) {
	repo, _ := newInvoiceRepo(t)

	_, err := repo.List(context.Background(), domain.TypeAchatOCR, domain.ListFilter{Exported: testutil.PtrBool(true)})
	appErr := requireAppError(t, err, http.StatusBadRequest)
	assert.Equal(t, "errors.not_exportable", appErr.MessageKey)
}

func TestInvoiceRepository_Update(t *testing.T) {
	repo, mockDB := newInvoiceRepo(t)
	now := time.Now()
	inv := testutil.NewFixtureFactory().Invoice(domain.TypeVente, testutil.WithClient("Nouveau Client"))
	inv.ID = 8

	mockDB.ExpectQuery("UPDATE vente SET numero = $1, client = $2, compte_produit = $3, devise = $4, date_facturation = $5, montant_ht = $6, montant_tva = $7, droits_timbre = $8, montant_ttc = $9 WHERE id = $10 RETURNING created_at, updated_at, exported").
		WithArgs(sqlmock.AnyArg(), "Nouveau Client", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(8)).
		WillReturnRows(testutil.MockRows("created_at", "updated_at", "exported").AddRow(now, now, true))

	require.NoError(t, repo.Update(context.Background(), domain.TypeVente, inv))
	assert.Equal(t, domain.TypeVente, inv.Type)
	require.NotNil(t, inv.Exported)
	assert.True(t, *inv.Exported)
}

func TestInvoiceRepository_Update_Staged(t *testing.T) {
	repo, mockDB := newInvoiceRepo(t)
	now := time.Now()
	inv := testutil.NewFixtureFactory().Invoice(domain.TypeAchatOCR)
	inv.ID = 3

	mockDB.ExpectQuery("UPDATE ocr_invoice SET numero = $1, client = $2, compte_produit = $3, devise = $4, date_facturation = $5, montant_ht = $6, montant_tva = $7, droits_timbre = $8, montant_ttc = $9 WHERE id = $10 RETURNING created_at, updated_at").
		WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(now, now))

	require.NoError(t, repo.Update(context.Background(), domain.TypeAchatOCR, inv))
	assert.Nil(t, inv.Exported)
}

func TestInvoiceRepository_Update_NotFound(t *testing.T) {
	repo, mockDB := newInvoiceRepo(t)
	inv := testutil.NewFixtureFactory().Invoice(domain.TypeAchat)
	inv.ID = 404

	mockDB.ExpectQuery("UPDATE achat SET").WillReturnError(sql.ErrNoRows)

	err := repo.Update(context.Background(), domain.TypeAchat, inv)
	requireAppError(t, err, http.StatusNotFound)
}

func TestInvoiceRepository_MarkExported(t *testing.T) {
	repo, mockDB := newInvoiceRepo(t)

	mockDB.ExpectExec("UPDATE vente SET exported = $1 WHERE id = $2").
		WithArgs(true, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkExported(context.Background(), domain.TypeVente, 5))
}

func TestInvoiceRepository_MarkExported_Errors(t *testing.T) {
	repo, mockDB := newInvoiceRepo(t)

	err := repo.MarkExported(context.Background(), domain.TypeVenteOCR, 5)
	requireAppError(t, err, http.StatusBadRequest)

	mockDB.ExpectExec("UPDATE achat SET exported = $1 WHERE id = $2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.MarkExported(context.Background(), domain.TypeAchat, 77)
	requireAppError(t, err, http.StatusNotFound)
}

func TestInvoiceRepository_Delete(t *testing.T) {
	repo, mockDB := newInvoiceRepo(t)

	mockDB.ExpectExec("DELETE FROM ocr_invoice WHERE id = $1").
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec("DELETE FROM ocr_invoice WHERE id = $1").
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), domain.TypeAchatOCR, 2))

	err := repo.Delete(context.Background(), domain.TypeAchatOCR, 2)
	requireAppError(t, err, http.StatusNotFound)
}
