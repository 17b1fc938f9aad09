package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kminvoice/km-invoice/internal/invoice/domain"
	"github.com/kminvoice/km-invoice/internal/invoice/service"
	"github.com/kminvoice/km-invoice/pkg/httputil"
	"github.com/kminvoice/km-invoice/pkg/logger"
)

// TierHandler handles the etat-tier registry
type TierHandler struct {
	service *service.TierService
	logger  *logger.Logger
}

// NewTierHandler creates a new tier handler
func NewTierHandler(svc *service.TierService, log *logger.Logger) *TierHandler {
	return &TierHandler{
		service: svc,
		logger:  log,
	}
}

// Routes registers the tier routes
func (h *TierHandler) Routes(r chi.Router) {
	r.Route("/etat-tier", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/add", h.Add)
		r.Get("/{id}", h.Get)
		r.Post("/edit/{id}", h.Edit)
		r.Post("/delete/{id}", h.Delete)
	})
}

func decodeTier(r *http.Request) (*domain.TierInput, error) {
	var in domain.TierInput
	if err := httputil.DecodeJSONLocalized(r, &in); err != nil {
		return nil, err
	}
	if err := httputil.Validate(&in); err != nil {
		return nil, err
	}
	return &in, nil
}

// List lists every tier
func (h *TierHandler) List(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.service.ListTiers(r.Context())
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	if tiers == nil {
		tiers = []*domain.Tier{}
	}

	httputil.JSONWithMeta(w, http.StatusOK, tiers, &httputil.Meta{Total: int64(len(tiers))})
}

// Get gets a tier by id
func (h *TierHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.URLParamInt64(r, "id")
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	tier, err := h.service.GetTier(r.Context(), id)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, tier)
}

// Add registers a tier
func (h *TierHandler) Add(w http.ResponseWriter, r *http.Request) {
	in, err := decodeTier(r)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	tier, err := h.service.AddTier(r.Context(), in)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.Created(w, map[string]int64{"tier_id": tier.ID})
}

// Edit replaces a tier
func (h *TierHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.URLParamInt64(r, "id")
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	in, err := decodeTier(r)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	tier, err := h.service.EditTier(r.Context(), id, in)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, tier)
}

// Delete removes a tier
func (h *TierHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.URLParamInt64(r, "id")
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	if err := h.service.DeleteTier(r.Context(), id); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]int64{"tier_id": id})
}
