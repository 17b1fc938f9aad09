// Package tesseract recognises page text with a local Tesseract install.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Engine runs Tesseract through gosseract, one client per page
type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// New creates an engine for the given Tesseract language codes, e.g. "fra"
func New(languages ...string) *Engine {
	if len(languages) == 0 {
		languages = []string{"fra"}
	}
	return &Engine{languages: languages, clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize returns the text of a PNG encoded page
func (e *Engine) Recognize(ctx context.Context, page []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetImageFromBytes(page); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
