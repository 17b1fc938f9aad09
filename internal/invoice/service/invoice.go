package service

import (
	"context"
	"net/http"

	"github.com/kminvoice/km-invoice/internal/invoice/domain"
	"github.com/kminvoice/km-invoice/internal/invoice/events"
	"github.com/kminvoice/km-invoice/internal/invoice/pdf"
	"github.com/kminvoice/km-invoice/pkg/errors"
	"github.com/kminvoice/km-invoice/pkg/logger"
)

// InvoiceStore persists invoices of every type
type InvoiceStore interface {
	Create(ctx context.Context, t domain.InvoiceType, inv *domain.Invoice) error
	GetByID(ctx context.Context, t domain.InvoiceType, id int64) (*domain.Invoice, error)
	List(ctx context.Context, t domain.InvoiceType, filter domain.ListFilter) ([]*domain.Invoice, error)
	Update(ctx context.Context, t domain.InvoiceType, inv *domain.Invoice) error
	MarkExported(ctx context.Context, t domain.InvoiceType, id int64) error
	Delete(ctx context.Context, t domain.InvoiceType, id int64) error
}

// InvoiceService handles invoice business logic
type InvoiceService struct {
	invoices  InvoiceStore
	renderer  *pdf.Renderer
	publisher *events.InvoiceEventPublisher
	logger    *logger.Logger
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(
	invoices InvoiceStore,
	renderer *pdf.Renderer,
	publisher *events.InvoiceEventPublisher,
	log *logger.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoices:  invoices,
		renderer:  renderer,
		publisher: publisher,
		logger:    log.WithComponent("invoice_service"),
	}
}

func resolveTag(tag string) (domain.InvoiceType, error) {
	t, ok := domain.ResolveNature(tag)
	if !ok {
		return "", errors.BadRequestKey("errors.invalid_nature")
	}
	return t, nil
}

func finalType(nature string) (domain.InvoiceType, error) {
	t, ok := domain.FinalType(nature)
	if !ok {
		return "", errors.BadRequestKey("errors.invalid_nature")
	}
	return t, nil
}

// Save stores a draft in the table selected by its natureFacture tag
func (s *InvoiceService) Save(ctx context.Context, draft *domain.Draft) (*domain.Invoice, error) {
	t, err := resolveTag(draft.NatureFacture)
	if err != nil {
		return nil, err
	}

	inv := draft.Invoice(t)
	if err := s.invoices.Create(ctx, t, inv); err != nil {
		return nil, err
	}

	s.logger.WithInvoice(t.String(), inv.ID).Info().Msg("invoice saved")
	s.publisher.PublishInvoiceCreated(ctx, inv)
	return inv, nil
}

// DeleteByTag deletes an invoice from the table selected by tag
func (s *InvoiceService) DeleteByTag(ctx context.Context, tag string, id int64) error {
	t, err := resolveTag(tag)
	if err != nil {
		return err
	}
	return s.delete(ctx, t, id)
}

// Create adds a complete achat or vente invoice
func (s *InvoiceService) Create(ctx context.Context, nature string, in *domain.InvoiceInput) (*domain.Invoice, error) {
	t, err := finalType(nature)
	if err != nil {
		return nil, err
	}

	inv := in.Invoice(t)
	if err := s.invoices.Create(ctx, t, inv); err != nil {
		return nil, err
	}

	s.logger.WithInvoice(t.String(), inv.ID).Info().Msg("invoice created")
	s.publisher.PublishInvoiceCreated(ctx, inv)
	return inv, nil
}

// Update replaces every field of an achat or vente invoice
func (s *InvoiceService) Update(ctx context.Context, nature string, id int64, in *domain.InvoiceInput) (*domain.Invoice, error) {
	t, err := finalType(nature)
	if err != nil {
		return nil, err
	}

	inv := in.Invoice(t)
	inv.ID = id
	if err := s.invoices.Update(ctx, t, inv); err != nil {
		return nil, err
	}

	s.publisher.PublishInvoiceUpdated(ctx, inv)
	return inv, nil
}

// Export marks an achat or vente invoice as exported
func (s *InvoiceService) Export(ctx context.Context, nature string, id int64) error {
	t, err := finalType(nature)
	if err != nil {
		return err
	}

	if err := s.invoices.MarkExported(ctx, t, id); err != nil {
		return err
	}

	s.logger.WithInvoice(t.String(), id).Info().Msg("invoice exported")
	s.publisher.PublishInvoiceExported(ctx, t, id)
	return nil
}

// Delete deletes an achat or vente invoice
func (s *InvoiceService) Delete(ctx context.Context, nature string, id int64) error {
	t, err := finalType(nature)
	if err != nil {
		return err
	}
	return s.delete(ctx, t, id)
}

func (s *InvoiceService) delete(ctx context.Context, t domain.InvoiceType, id int64) error {
	if err := s.invoices.Delete(ctx, t, id); err != nil {
		return err
	}

	s.logger.WithInvoice(t.String(), id).Info().Msg("invoice deleted")
	s.publisher.PublishInvoiceDeleted(ctx, t, id)
	return nil
}

// Get returns an invoice of any type tag
func (s *InvoiceService) Get(ctx context.Context, tag string, id int64) (*domain.Invoice, error) {
	t, err := resolveTag(tag)
	if err != nil {
		return nil, err
	}
	return s.invoices.GetByID(ctx, t, id)
}

// ListPending lists achat or vente invoices not yet exported
func (s *InvoiceService) ListPending(ctx context.Context, nature string) ([]*domain.Invoice, error) {
	return s.listFinal(ctx, nature, false)
}

// ListExported lists exported achat or vente invoices
func (s *InvoiceService) ListExported(ctx context.Context, nature string) ([]*domain.Invoice, error) {
	return s.listFinal(ctx, nature, true)
}

func (s *InvoiceService) listFinal(ctx context.Context, nature string, exported bool) ([]*domain.Invoice, error) {
	t, err := finalType(nature)
	if err != nil {
		return nil, err
	}
	return s.invoices.List(ctx, t, domain.ListFilter{Exported: &exported})
}

// ListStaged lists the OCR drafts of a nature
func (s *InvoiceService) ListStaged(ctx context.Context, nature string) ([]*domain.Invoice, error) {
	t, ok := domain.LookupType(nature, true)
	if !ok {
		return nil, errors.BadRequestKey("errors.invalid_nature")
	}
	return s.invoices.List(ctx, t, domain.ListFilter{})
}

// RenderDocument renders a free-form document as a base64 PDF
func (s *InvoiceService) RenderDocument(ctx context.Context, doc pdf.Document) (string, error) {
	out, err := s.renderer.RenderBase64(ctx, doc)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.logger.Error().Err(err).Str("numero", doc.Numero).Msg("failed to render pdf")
		return "", pdfFailed(err)
	}
	return out, nil
}

// RenderInvoice renders a stored invoice of any type tag as a base64 PDF
func (s *InvoiceService) RenderInvoice(ctx context.Context, tag string, id int64) (string, error) {
	inv, err := s.Get(ctx, tag, id)
	if err != nil {
		return "", err
	}
	return s.RenderDocument(ctx, pdf.FromInvoice(inv))
}

func pdfFailed(err error) error {
	e := errors.NewWithKey("PDF_FAILED", "errors.pdf_failed", http.StatusInternalServerError)
	e.Err = err
	return e
}
