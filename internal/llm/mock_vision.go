package llm

import (
	"context"
	"sync"
)

// MockVision is a test double for Vision.
// If GenerateFunc is not set, Generate answers with Text.
// Thread-safe for use in concurrent tests.
type MockVision struct {
	GenerateFunc func(ctx context.Context, prompt string, images []Image) (*Response, error)
	Text         string

	mu sync.Mutex

	// Calls records the number of images of every Generate call.
	Calls []int
}

var _ Vision = (*MockVision)(nil)

func (m *MockVision) Generate(ctx context.Context, prompt string, images []Image) (*Response, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, len(images))
	fn := m.GenerateFunc
	text := m.Text
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt, images)
	}
	return &Response{Model: "mock", Text: text}, nil
}

// CallCount returns how many times Generate was called.
func (m *MockVision) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
