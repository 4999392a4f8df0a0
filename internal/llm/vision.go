package llm

import "context"

// Image is one encoded image sent to the model.
type Image struct {
	Data     []byte
	MIMEType string
}

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	TotalTokens  int64   `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Response is the raw text answer of a vision model.
type Response struct {
	Model string
	Text  string
	Usage Usage
}

// Vision can answer a prompt about a set of images.
type Vision interface {
	// Generate sends the prompt followed by all images in a single request.
	Generate(ctx context.Context, prompt string, images []Image) (*Response, error)
}
