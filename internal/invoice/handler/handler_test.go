package handler_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"net/http"
	"strconv"
	"testing"

	"github.com/kminvoice/km-invoice/internal/invoice/domain"
	"github.com/kminvoice/km-invoice/internal/invoice/events"
	"github.com/kminvoice/km-invoice/internal/invoice/extraction"
	"github.com/kminvoice/km-invoice/internal/invoice/handler"
	"github.com/kminvoice/km-invoice/internal/invoice/pdf"
	"github.com/kminvoice/km-invoice/internal/invoice/service"
	"github.com/kminvoice/km-invoice/pkg/config"
	"github.com/kminvoice/km-invoice/pkg/logger"
	"github.com/kminvoice/km-invoice/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type textEngine struct{ text string }

func (e textEngine) Name() string { return "fake" }

func (e textEngine) Recognize(ctx context.Context, page []byte) (string, error) {
	return e.text, nil
}

type testAPI struct {
	router    http.Handler
	invoices  *testutil.MemInvoiceStore
	publisher *testutil.MockPublisher
	fixtures  *testutil.FixtureFactory
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := logger.Nop()

	invoices := testutil.NewMemInvoiceStore()
	publisher := testutil.NewMockPublisher()
	eventPublisher := events.NewWithPublisher(publisher, log)
	renderer := pdf.NewRenderer(&config.PDFConfig{CompanyName: "KM", DefaultTVARate: 20})

	invoiceSvc := service.NewInvoiceService(invoices, renderer, eventPublisher, log)
	tierSvc := service.NewTierService(testutil.NewMemTierStore(), eventPublisher, log)
	parser := extraction.NewService(
		extraction.NewRegistry(textEngine{text: "TOTAL HT: 1000,00\nTOTAL TVA: 200,00\nTOTAL TTC: 1200,00\nICE: 001525252000045"}),
		extraction.NewRasterizer(72, 5),
		false,
		log,
	)

	router := handler.NewRouter(handler.RouterConfig{
		Invoices: handler.NewInvoiceHandler(invoiceSvc, log),
		Tiers:    handler.NewTierHandler(tierSvc, log),
		Parser:   handler.NewParseHandler(parser, 1<<20, log),
		Health: map[string]handler.HealthFunc{
			"database": func(ctx context.Context) map[string]string { return map[string]string{"status": "up"} },
		},
		AllowedOrigins: []string{"http://localhost:3000"},
		Logger:         log,
	})

	return &testAPI{
		router:    router,
		invoices:  invoices,
		publisher: publisher,
		fixtures:  testutil.NewFixtureFactory(),
	}
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

type envelope struct {
	Success bool                   `json:"success"`
	Data    json.RawMessage        `json:"data"`
	Error   *errorBody             `json:"error"`
	Meta    map[string]interface{} `json:"meta"`
}

func (a *testAPI) do(t *testing.T, req *http.Request, wantStatus int) *envelope {
	t.Helper()
	rr := testutil.ExecuteRequest(a.router, req)
	testutil.AssertStatus(t, rr, wantStatus)

	env := &envelope{}
	if rr.Body.Len() > 0 {
		testutil.ParseJSONBody(t, rr, env)
	}
	return env
}

func (e *envelope) object(t *testing.T) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(e.Data, &m))
	return m
}

func (e *envelope) list(t *testing.T) []map[string]interface{} {
	t.Helper()
	var l []map[string]interface{}
	require.NoError(t, json.Unmarshal(e.Data, &l))
	return l
}

func invoicePayload(in domain.InvoiceInput) map[string]interface{} {
	return map[string]interface{}{
		"numero":          in.Numero,
		"client":          in.Client,
		"compteProduit":   in.CompteProduit,
		"devise":          in.Devise,
		"dateFacturation": in.DateFacturation,
		"montantHT":       in.MontantHT.String(),
		"montantTVA":      in.MontantTVA.String(),
		"droitsTimbre":    in.DroitsTimbre.String(),
		"montantTTC":      in.MontantTTC.String(),
	}
}

func (a *testAPI) createInvoice(t *testing.T, nature string) int64 {
	t.Helper()
	req := testutil.NewHTTPRequest(http.MethodPost, "/"+nature+"/add", invoicePayload(a.fixtures.InvoiceInput()))
	env := a.do(t, req, http.StatusCreated)
	return int64(env.object(t)["id"].(float64))
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	data := api.do(t, testutil.NewHTTPRequest(http.MethodGet, "/health", nil), http.StatusOK).object(t)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, map[string]interface{}{"status": "up"}, data["database"])
}

func TestIndex(t *testing.T) {
	api := newTestAPI(t)

	data := api.do(t, testutil.NewHTTPRequest(http.MethodGet, "/", nil), http.StatusOK).object(t)
	assert.ElementsMatch(t, []interface{}{"achat", "vente", "achat-ocr", "vente-ocr"}, data["invoiceTypes"])
}

func TestGeneratePDF(t *testing.T) {
	api := newTestAPI(t)
	req := testutil.NewHTTPRequest(http.MethodPost, "/generate_pdf", map[string]interface{}{
		"numero":      "F-1",
		"client":      "Atlas SARL",
		"quantity":    "2",
		"unitPrice":   150,
		"tvaRate":     "oops",
		"description": "Audit",
	})

	data := api.do(t, req, http.StatusOK).object(t)
	raw, err := base64.StdEncoding.DecodeString(data["pdf"].(string))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))
}

func TestGeneratePDF_InvalidJSON(t *testing.T) {
	api := newTestAPI(t)

	env := api.do(t, testutil.NewRawRequest(http.MethodPost, "/generate_pdf", "{"), http.StatusBadRequest)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestUniversalSaveAndDelete(t *testing.T) {
	api := newTestAPI(t)

	req := testutil.NewHTTPRequest(http.MethodPost, "/invoice/save", map[string]interface{}{
		"natureFacture": "achat-ocr",
		"numero":        "OCR-1",
		"montantHT":     "n/a",
		"montantTTC":    "1200.50",
	})
	data := api.do(t, req, http.StatusCreated).object(t)
	id := data["invoice_id"].(float64)
	assert.Equal(t, 1, api.invoices.Count(domain.TypeAchatOCR))

	staged := api.do(t, testutil.NewHTTPRequest(http.MethodGet, "/achat-invoice", nil), http.StatusOK).list(t)
	require.Len(t, staged, 1)
	assert.Nil(t, staged[0]["montantHT"])
	assert.Equal(t, 1200.5, staged[0]["montantTTC"])
	assert.NotContains(t, staged[0], "exported")

	// invoice_id may arrive as a string from form-backed pages
	req = testutil.NewRawRequest(http.MethodPost, "/invoice/delete", `{"natureFacture":"achat-ocr","invoice_id":"`+formatID(id)+`"}`)
	api.do(t, req, http.StatusOK)
	assert.Zero(t, api.invoices.Count(domain.TypeAchatOCR))

	req = testutil.NewHTTPRequest(http.MethodPost, "/invoice/delete", map[string]interface{}{"natureFacture": "achat-ocr", "invoice_id": id})
	env := api.do(t, req, http.StatusNotFound)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestUniversalSave_InvalidNature(t *testing.T) {
	api := newTestAPI(t)
	req := testutil.NewHTTPRequest(http.MethodPost, "/invoice/save", map[string]interface{}{"natureFacture": "avoir"})
	req.Header.Set("Accept-Language", "en")

	env := api.do(t, req, http.StatusBadRequest)
	assert.Equal(t, "Invalid natureFacture", env.Error.Message)
}

func TestUniversalDelete_BadID(t *testing.T) {
	api := newTestAPI(t)
	req := testutil.NewRawRequest(http.MethodPost, "/invoice/delete", `{"natureFacture":"vente","invoice_id":0}`)

	env := api.do(t, req, http.StatusBadRequest)
	assert.Contains(t, env.Error.Details, "invoice_id")
}

func TestStrictCreate_Validation(t *testing.T) {
	api := newTestAPI(t)
	payload := invoicePayload(api.fixtures.InvoiceInput())
	delete(payload, "client")
	delete(payload, "montantTTC")

	env := api.do(t, testutil.NewHTTPRequest(http.MethodPost, "/vente/add", payload), http.StatusBadRequest)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Details, "client")
	assert.Contains(t, env.Error.Details, "montantTTC")
	api.publisher.AssertNoEventsPublished(t)
}

func TestStrictCreate_InvalidAmount(t *testing.T) {
	api := newTestAPI(t)
	payload := invoicePayload(api.fixtures.InvoiceInput())
	payload["montantHT"] = "mille"

	api.do(t, testutil.NewHTTPRequest(http.MethodPost, "/achat/add", payload), http.StatusBadRequest)
}

func TestStrictCreate_AmountOutOfRange(t *testing.T) {
	api := newTestAPI(t)
	payload := invoicePayload(api.fixtures.InvoiceInput())
	payload["montantTTC"] = "1e20000000"

	env := api.do(t, testutil.NewHTTPRequest(http.MethodPost, "/achat/add", payload), http.StatusBadRequest)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Details, "montantTTC")
	assert.Zero(t, api.invoices.Count(domain.TypeAchat))
}

func TestUniversalSave_AmountOutOfRange(t *testing.T) {
	api := newTestAPI(t)
	req := testutil.NewHTTPRequest(http.MethodPost, "/invoice/save", map[string]interface{}{
		"natureFacture": "vente-ocr",
		"montantHT":     "1e20000000",
	})
	api.do(t, req, http.StatusCreated)

	staged := api.do(t, testutil.NewHTTPRequest(http.MethodGet, "/vente-invoice", nil), http.StatusOK).list(t)
	require.Len(t, staged, 1)
	assert.Nil(t, staged[0]["montantHT"])
}

func TestStrictCreate_UnknownNature(t *testing.T) {
	api := newTestAPI(t)
	payload := invoicePayload(api.fixtures.InvoiceInput())

	api.do(t, testutil.NewHTTPRequest(http.MethodPost, "/avoir/add", payload), http.StatusBadRequest)
	api.do(t, testutil.NewHTTPRequest(http.MethodPost, "/achat-ocr/add", payload), http.StatusBadRequest)
}

func TestInvoiceLifecycle(t *testing.T) {
	api := newTestAPI(t)
	id := api.createInvoice(t, "vente")
	path := "/vente/"

	pending := api.do(t, testutil.NewHTTPRequest(http.MethodGet, "/vente", nil), http.StatusOK)
	require.Len(t, pending.list(t), 1)
	assert.Equal(t, float64(1), pending.Meta["total"])

	achats := api.do(t, testutil.NewHTTPRequest(http.MethodGet, "/achat", nil), http.StatusOK)
	assert.Empty(t, achats.list(t))

	payload := invoicePayload(api.fixtures.InvoiceInput())
	payload["client"] = "Client Modifié"
	updated := api.do(t, testutil.NewHTTPRequest(http.MethodPut, path+"edit/"+formatID(float64(id)), payload), http.StatusOK).object(t)
	assert.Equal(t, "Client Modifié", updated["client"])

	api.do(t, testutil.NewHTTPRequest(http.MethodPost, path+"export/"+formatID(float64(id)), nil), http.StatusOK)

	pendingAfter := api.do(t, testutil.NewHTTPRequest(http.MethodGet, "/vente", nil), http.StatusOK)
	assert.Empty(t, pendingAfter.list(t))
	exported := api.do(t, testutil.NewHTTPRequest(http.MethodGet, "/vente-exported", nil), http.StatusOK).list(t)
	require.Len(t, exported, 1)
	assert.Equal(t, true, exported[0]["exported"])

	data := api.do(t, testutil.NewHTTPRequest(http.MethodGet, path+"pdf/"+formatID(float64(id)), nil), http.StatusOK).object(t)
	assert.NotEmpty(t, data["pdf"])

	rr := testutil.ExecuteRequest(api.router, testutil.NewHTTPRequest(http.MethodDelete, path+"delete/"+formatID(float64(id)), nil))
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	api.do(t, testutil.NewHTTPRequest(http.MethodGet, path+"pdf/"+formatID(float64(id)), nil), http.StatusNotFound)
}

func TestInvoiceRoutes_BadID(t *testing.T) {
	api := newTestAPI(t)

	api.do(t, testutil.NewHTTPRequest(http.MethodPost, "/achat/export/abc", nil), http.StatusBadRequest)
	api.do(t, testutil.NewHTTPRequest(http.MethodPost, "/achat/export/0", nil), http.StatusBadRequest)
	api.do(t, testutil.NewHTTPRequest(http.MethodPost, "/achat/export/7", nil), http.StatusNotFound)
}

func TestNotFound_Localized(t *testing.T) {
	api := newTestAPI(t)
	req := testutil.NewHTTPRequest(http.MethodGet, "/achat/pdf/99", nil)
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9")

	env := api.do(t, req, http.StatusNotFound)
	assert.Equal(t, "facture introuvable", env.Error.Message)
}

func TestTierRoutes(t *testing.T) {
	api := newTestAPI(t)

	add := testutil.NewHTTPRequest(http.MethodPost, "/etat-tier/add", map[string]interface{}{
		"raison_sociale": "Atlas Distribution SARL",
		"nature_tier":    "fournisseur",
		"ice":            "001525252000045",
		"if_field":       "1024587",
		"delai_paiement": "60",
	})
	data := api.do(t, add, http.StatusCreated).object(t)
	id := formatID(data["tier_id"].(float64))

	edit := testutil.NewHTTPRequest(http.MethodPost, "/etat-tier/edit/"+id, map[string]interface{}{
		"raison_sociale": "Atlas Maroc SA",
		"nature_tier":    "fournisseur",
		"ice":            "001525252000045",
		"if_field":       "1024587",
		"delai_paiement": 0,
	})
	edited := api.do(t, edit, http.StatusOK).object(t)
	assert.Equal(t, "Atlas Maroc SA", edited["raison_sociale"])
	assert.Equal(t, float64(0), edited["delai_paiement"])

	tiers := api.do(t, testutil.NewHTTPRequest(http.MethodGet, "/etat-tier", nil), http.StatusOK).list(t)
	require.Len(t, tiers, 1)

	api.do(t, testutil.NewHTTPRequest(http.MethodPost, "/etat-tier/delete/"+id, nil), http.StatusOK)
	api.do(t, testutil.NewHTTPRequest(http.MethodPost, "/etat-tier/delete/"+id, nil), http.StatusNotFound)
}

func TestTierAdd_Validation(t *testing.T) {
	api := newTestAPI(t)

	env := api.do(t, testutil.NewHTTPRequest(http.MethodPost, "/etat-tier/add", map[string]interface{}{
		"raison_sociale": "Sans ICE",
	}), http.StatusBadRequest)
	assert.Contains(t, env.Error.Details, "ice")
	assert.Contains(t, env.Error.Details, "if_field")

	api.do(t, testutil.NewHTTPRequest(http.MethodPost, "/etat-tier/add", map[string]interface{}{
		"raison_sociale": "A", "nature_tier": "client", "ice": "1", "if_field": "2",
		"delai_paiement": "soixante",
	}), http.StatusBadRequest)

	env = api.do(t, testutil.NewHTTPRequest(http.MethodPost, "/etat-tier/add", map[string]interface{}{
		"raison_sociale": "A", "nature_tier": "client", "ice": "1", "if_field": "2",
		"delai_paiement": -3,
	}), http.StatusBadRequest)
	assert.Contains(t, env.Error.Details, "delai_paiement")
}

func TestParseInvoice(t *testing.T) {
	api := newTestAPI(t)
	req := testutil.NewMultipartRequest(t, "/api/parse-invoice?natureFacture=vente", "file", "scan.png", testPNG(t))

	data := api.do(t, req, http.StatusOK).object(t)
	assert.Equal(t, "fake", data["engine"])
	assert.Equal(t, map[string]interface{}{
		"total_ht":  "1000,00",
		"total_tva": "200,00",
		"total_ttc": "1200,00",
		"ice":       "001525252000045",
	}, data["structured"])

	suggestion := data["suggestion"].(map[string]interface{})
	assert.Equal(t, "vente-ocr", suggestion["natureFacture"])
	assert.Equal(t, float64(1000), suggestion["montantHT"])
}

func TestParseInvoice_MissingFile(t *testing.T) {
	api := newTestAPI(t)
	req := testutil.NewMultipartRequest(t, "/api/parse-invoice", "document", "scan.png", testPNG(t))

	env := api.do(t, req, http.StatusBadRequest)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestParseInvoice_Unreadable(t *testing.T) {
	api := newTestAPI(t)
	req := testutil.NewMultipartRequest(t, "/api/parse-invoice", "file", "notes.txt", []byte("hello"))

	api.do(t, req, http.StatusUnprocessableEntity)
}

func formatID(id float64) string {
	return strconv.FormatInt(int64(id), 10)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	b, err := extraction.EncodePNG(image.NewGray(image.Rect(0, 0, 8, 8)))
	require.NoError(t, err)
	return b
}
