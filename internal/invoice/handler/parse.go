package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kminvoice/km-invoice/internal/invoice/extraction"
	"github.com/kminvoice/km-invoice/pkg/httputil"
	"github.com/kminvoice/km-invoice/pkg/logger"
)

// ParseHandler runs OCR on uploaded invoices
type ParseHandler struct {
	service       *extraction.Service
	maxUploadSize int64
	logger        *logger.Logger
}

// NewParseHandler creates a new parse handler
func NewParseHandler(svc *extraction.Service, maxUploadSize int64, log *logger.Logger) *ParseHandler {
	return &ParseHandler{
		service:       svc,
		maxUploadSize: maxUploadSize,
		logger:        log,
	}
}

// Routes registers the parse route
func (h *ParseHandler) Routes(r chi.Router) {
	r.Post("/api/parse-invoice", h.Parse)
}

// Parse reads the multipart "file" field. An optional natureFacture form
// value adds a staged draft suggestion to the result.
func (h *ParseHandler) Parse(w http.ResponseWriter, r *http.Request) {
	upload, err := httputil.ReadUpload(w, r, "file", h.maxUploadSize)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	result, err := h.service.Parse(r.Context(), upload.Filename, upload.Data, r.FormValue("natureFacture"))
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}
