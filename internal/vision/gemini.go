// Package vision extracts receipt contents with a Gemini model.
package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"tamerun/internal/log"
)

const fallbackCategory = "Other"

var ErrMissingAPIKey = errors.New("gemini api key is required")

// generator is the subset of *genai.Models the analyzer calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiAnalyzer implements ports.ReceiptAnalyzer.
type GeminiAnalyzer struct {
	models generator
	model  string
	logger *log.Logger
}

func NewGeminiAnalyzer(ctx context.Context, apiKey, model string, logger *log.Logger) (*GeminiAnalyzer, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newAnalyzer(client.Models, model, logger), nil
}

func newAnalyzer(models generator, model string, logger *log.Logger) *GeminiAnalyzer {
	return &GeminiAnalyzer{
		models: models,
		model:  model,
		logger: logger.WithComponent(log.ComponentReceipt),
	}
}

// AnalyzeReceipt returns the model's raw text. An empty answer is returned
// as "" so the caller's normalizer reports it.
func (a *GeminiAnalyzer) AnalyzeReceipt(ctx context.Context, image []byte, mimeType string, categories []string) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: BuildPrompt(categories)},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     image,
					},
				},
			},
		},
	}

	a.logger.DebugContext(ctx, "Calling Gemini",
		"model", a.model,
		log.FieldReceiptSize, len(image))

	resp, err := a.models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}

// BuildPrompt asks for the receipt as JSON and restricts item categories to
// the given vocabulary.
func BuildPrompt(categories []string) string {
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		if c = strings.TrimSpace(c); c != "" {
			names = append(names, c)
		}
	}
	if len(names) == 0 {
		names = []string{fallbackCategory}
	}

	var b strings.Builder
	b.WriteString("This image is a shop receipt. Extract the following information as JSON:\n\n")
	b.WriteString("1. Store name (storeName)\n")
	b.WriteString("2. Date (date: YYYY-MM-DD)\n")
	b.WriteString("3. Total amount (totalAmount: number only)\n")
	b.WriteString("4. Items (items: array)\n")
	b.WriteString("   - For each item:\n")
	b.WriteString("     - Item name (name)\n")
	b.WriteString("     - Price (price: number only)\n")
	b.WriteString("     - Category (category: choose one of)\n")
	for _, n := range names {
		b.WriteString("       * ")
		b.WriteString(n)
		b.WriteString("\n")
	}
	b.WriteString("\nIf the receipt cannot be read or a field is unknown, set that field to null.\n\n")
	b.WriteString("Reply with JSON in exactly this shape and nothing else:\n")
	b.WriteString(`{
  "storeName": "store name",
  "date": "YYYY-MM-DD",
  "totalAmount": 0,
  "items": [
    {
      "name": "item name",
      "price": 0,
      "category": "category name"
    }
  ]
}
`)
	return b.String()
}
