package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kminvoice/km-invoice/internal/invoice/domain"
	"github.com/kminvoice/km-invoice/internal/invoice/pdf"
	"github.com/kminvoice/km-invoice/internal/invoice/service"
	"github.com/kminvoice/km-invoice/pkg/errors"
	"github.com/kminvoice/km-invoice/pkg/httputil"
	"github.com/kminvoice/km-invoice/pkg/logger"
)

// InvoiceHandler handles invoice endpoints
type InvoiceHandler struct {
	service *service.InvoiceService
	logger  *logger.Logger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(svc *service.InvoiceService, log *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		service: svc,
		logger:  log,
	}
}

// Routes registers the invoice routes
func (h *InvoiceHandler) Routes(r chi.Router) {
	r.Get("/", h.Index)
	r.Post("/generate_pdf", h.GeneratePDF)

	r.Post("/invoice/save", h.Save)
	r.Post("/invoice/delete", h.DeleteByTag)

	for _, nature := range []string{domain.NatureAchat, domain.NatureVente} {
		nature := nature
		r.Get("/"+nature, h.listPending(nature))
		r.Get("/"+nature+"-exported", h.listExported(nature))
		r.Get("/"+nature+"-invoice", h.listStaged(nature))
	}

	r.Route("/{nature}", func(r chi.Router) {
		r.Post("/add", h.Create)
		r.Put("/edit/{id}", h.Update)
		r.Post("/export/{id}", h.Export)
		r.Delete("/delete/{id}", h.Delete)
		r.Get("/pdf/{id}", h.RenderPDF)
	})
}

// Index describes the invoice types the API serves
func (h *InvoiceHandler) Index(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"service":      "invoice-service",
		"invoiceTypes": domain.Types(),
	})
}

// GeneratePDF renders a document posted by the UI
func (h *InvoiceHandler) GeneratePDF(w http.ResponseWriter, r *http.Request) {
	var doc pdf.Document
	if err := httputil.DecodeJSONLocalized(r, &doc); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	encoded, err := h.service.RenderDocument(r.Context(), doc)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"pdf": encoded})
}

// Save stores a draft of any type tag
func (h *InvoiceHandler) Save(w http.ResponseWriter, r *http.Request) {
	var draft domain.Draft
	if err := httputil.DecodeJSONLocalized(r, &draft); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	inv, err := h.service.Save(r.Context(), &draft)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.Created(w, map[string]int64{"invoice_id": inv.ID})
}

// deleteRequest accepts invoice_id as a number or a numeric string
type deleteRequest struct {
	NatureFacture string      `json:"natureFacture"`
	InvoiceID     json.Number `json:"invoice_id"`
}

// DeleteByTag deletes an invoice of any type tag
func (h *InvoiceHandler) DeleteByTag(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := httputil.DecodeJSONLocalized(r, &req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	id, err := strconv.ParseInt(req.InvoiceID.String(), 10, 64)
	if err != nil || id <= 0 {
		httputil.ErrorLocalized(w, r, errors.Validation(map[string]string{
			"invoice_id": "must be a positive integer",
		}))
		return
	}

	if err := h.service.DeleteByTag(r.Context(), req.NatureFacture, id); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]int64{"invoice_id": id})
}

func (h *InvoiceHandler) decodeInput(r *http.Request) (*domain.InvoiceInput, error) {
	var in domain.InvoiceInput
	if err := httputil.DecodeJSONLocalized(r, &in); err != nil {
		return nil, err
	}
	if err := httputil.Validate(&in); err != nil {
		return nil, err
	}
	if details := in.OutOfRange(); len(details) > 0 {
		return nil, errors.Validation(details)
	}
	return &in, nil
}

// Create adds a complete achat or vente invoice
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeInput(r)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	inv, err := h.service.Create(r.Context(), chi.URLParam(r, "nature"), in)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.Created(w, inv)
}

// Update replaces an achat or vente invoice
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.URLParamInt64(r, "id")
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	in, err := h.decodeInput(r)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	inv, err := h.service.Update(r.Context(), chi.URLParam(r, "nature"), id, in)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, inv)
}

// Export marks an invoice as exported
func (h *InvoiceHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.URLParamInt64(r, "id")
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	if err := h.service.Export(r.Context(), chi.URLParam(r, "nature"), id); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{"invoice_id": id, "exported": true})
}

// Delete deletes an achat or vente invoice
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.URLParamInt64(r, "id")
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "nature"), id); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.NoContent(w)
}

// RenderPDF renders a stored invoice
func (h *InvoiceHandler) RenderPDF(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.URLParamInt64(r, "id")
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	encoded, err := h.service.RenderInvoice(r.Context(), chi.URLParam(r, "nature"), id)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"pdf": encoded})
}

func (h *InvoiceHandler) listPending(nature string) http.HandlerFunc {
	return h.list(func(r *http.Request) ([]*domain.Invoice, error) {
		return h.service.ListPending(r.Context(), nature)
	})
}

func (h *InvoiceHandler) listExported(nature string) http.HandlerFunc {
	return h.list(func(r *http.Request) ([]*domain.Invoice, error) {
		return h.service.ListExported(r.Context(), nature)
	})
}

func (h *InvoiceHandler) listStaged(nature string) http.HandlerFunc {
	return h.list(func(r *http.Request) ([]*domain.Invoice, error) {
		return h.service.ListStaged(r.Context(), nature)
	})
}

func (h *InvoiceHandler) list(fetch func(r *http.Request) ([]*domain.Invoice, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invoices, err := fetch(r)
		if err != nil {
			httputil.ErrorLocalized(w, r, err)
			return
		}
		if invoices == nil {
			invoices = []*domain.Invoice{}
		}

		httputil.JSONWithMeta(w, http.StatusOK, invoices, &httputil.Meta{Total: int64(len(invoices))})
	}
}
