package extraction

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kminvoice/km-invoice/internal/invoice/domain"
	apperrors "github.com/kminvoice/km-invoice/pkg/errors"
	"github.com/kminvoice/km-invoice/pkg/logger"
)

// Result is the outcome of parsing an uploaded invoice
type Result struct {
	RawText          string            `json:"raw_text"`
	Structured       map[string]string `json:"structured"`
	Suggestion       *domain.Draft     `json:"suggestion,omitempty"`
	Pages            int               `json:"pages"`
	Engine           string            `json:"engine"`
	Warnings         []string          `json:"warnings,omitempty"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
}

// Service orchestrates parsing: rasterise, enhance, recognise, extract
type Service struct {
	registry   *Registry
	rasterizer *Rasterizer
	enhance    bool
	log        *logger.Logger
}

// NewService creates a new extraction service
func NewService(registry *Registry, rasterizer *Rasterizer, enhance bool, log *logger.Logger) *Service {
	return &Service{
		registry:   registry,
		rasterizer: rasterizer,
		enhance:    enhance,
		log:        log,
	}
}

// Parse recognises the text of an uploaded image or PDF and extracts the
// structured fields. With a nature set, a staged draft is suggested too.
func (s *Service) Parse(ctx context.Context, filename string, data []byte, nature string) (*Result, error) {
	start := time.Now()

	if nature != "" {
		if _, ok := domain.LookupType(nature, true); !ok {
			return nil, apperrors.BadRequestKey("errors.invalid_nature")
		}
	}

	engines := s.registry.Engines()
	if len(engines) == 0 {
		return nil, apperrors.Unprocessable("errors.ocr_failed", errors.New("no OCR engine configured"))
	}

	images, warnings, err := s.rasterizer.Pages(filename, data)
	if err != nil {
		return nil, apperrors.Unprocessable("errors.unsupported_file", err)
	}

	pages := make([][]byte, len(images))
	for i, img := range images {
		if s.enhance {
			img = Enhance(img)
		}
		if pages[i], err = EncodePNG(img); err != nil {
			return nil, apperrors.Wrap(err, "OCR_FAILED", "failed to encode page", http.StatusInternalServerError)
		}
	}

	// Try engines in order; if one fails, fall through to the next
	var (
		text    string
		used    Engine
		lastErr error
	)
	for _, engine := range engines {
		s.log.Info().
			Str("engine", engine.Name()).
			Str("filename", filename).
			Int("pages", len(pages)).
			Msg("trying text recognition")

		text, lastErr = s.recognize(ctx, engine, pages)
		if lastErr == nil {
			used = engine
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.log.Warn().Err(lastErr).
			Str("engine", engine.Name()).
			Msg("engine failed, trying next")
	}
	if used == nil {
		s.log.Error().Err(lastErr).Str("filename", filename).Msg("all OCR engines failed")
		return nil, apperrors.Unprocessable("errors.ocr_failed", lastErr)
	}

	result := &Result{
		RawText:    text,
		Structured: ExtractFields(text),
		Pages:      len(pages),
		Engine:     used.Name(),
		Warnings:   warnings,
	}
	if nature != "" {
		result.Suggestion, _ = Suggest(result.Structured, nature)
	}
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	s.log.Info().
		Str("engine", result.Engine).
		Int("fields_extracted", len(result.Structured)).
		Int64("duration_ms", result.ProcessingTimeMs).
		Msg("invoice parsed")

	return result, nil
}

func (s *Service) recognize(ctx context.Context, engine Engine, pages [][]byte) (string, error) {
	texts := make([]string, 0, len(pages))
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := engine.Recognize(ctx, page)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i+1, err)
		}
		texts = append(texts, text)
	}
	return strings.Join(texts, "\n"), nil
}
