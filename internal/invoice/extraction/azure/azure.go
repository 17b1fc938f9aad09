// Package azure recognises page text with Azure Computer Vision.
package azure

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
)

// Engine calls the printed-text OCR endpoint of a Computer Vision resource
type Engine struct {
	client   computervision.BaseClient
	language computervision.OcrLanguages
}

// New creates an engine for the resource endpoint authorised by key
func New(endpoint, key string) *Engine {
	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(key)

	return &Engine{
		client:   client,
		language: computervision.Fr,
	}
}

func (e *Engine) Name() string { return "azure" }

// Recognize returns the page text, one OCR line per output line
func (e *Engine) Recognize(ctx context.Context, page []byte) (string, error) {
	result, err := e.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(bytes.NewReader(page)),
		e.language,
	)
	if err != nil {
		return "", fmt.Errorf("recognize printed text: %w", err)
	}
	return resultText(result), nil
}

func resultText(result computervision.OcrResult) string {
	if result.Regions == nil {
		return ""
	}

	var lines []string
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			words := make([]string, 0, len(*line.Words))
			for _, word := range *line.Words {
				if word.Text != nil {
					words = append(words, *word.Text)
				}
			}
			lines = append(lines, strings.Join(words, " "))
		}
	}
	return strings.Join(lines, "\n")
}
