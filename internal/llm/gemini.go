package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-pro"

// Gemini pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 1.25
	geminiOutputPricePerMillion = 10.00 // including thinking
)

// GeminiVision uses Google's Gemini API for image analysis.
type GeminiVision struct {
	client *genai.Client
	model  string
}

// NewGeminiVision creates a Gemini client for the given API key and model.
// An empty model selects DefaultGeminiModel.
func NewGeminiVision(ctx context.Context, apiKey, model string) (*GeminiVision, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiVision{client: client, model: model}, nil
}

// Generate implements Vision.
func (g *GeminiVision) Generate(ctx context.Context, prompt string, images []Image) (*Response, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images provided")
	}

	// Build parts: prompt first, then all images
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
	}
	for _, img := range images {
		mimeType := img.MIMEType
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{Data: img.Data, MIMEType: mimeType},
		})
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	usage := Usage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
		usage.CostUSD = calculateGeminiCost(usage.InputTokens, usage.OutputTokens, geminiInputPricePerMillion, geminiOutputPricePerMillion)
	}

	text := result.Text()
	log.Info().
		Str("model", g.model).
		Int("imageCount", len(images)).
		Int("responseLength", len(text)).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("vision llm call")

	if text == "" {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	return &Response{Model: g.model, Text: text, Usage: usage}, nil
}

func calculateGeminiCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}
