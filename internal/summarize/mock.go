package summarize

import (
	"context"
	"time"
)

type mockGenerator struct{}

// NewMockGenerator returns a backend that emits a fixed structured summary,
// useful for wiring tests and offline runs.
func NewMockGenerator() Generator { return &mockGenerator{} }

const mockSummary = `**KEY DECISIONS**
• Mock decision recorded

**ACTION ITEMS**
• [Owner]: follow up on the mock transcript by Friday

**NEXT STEPS**
• Review the generated transcript

**KEY RISKS**
• Summary produced by the mock backend`

func (m *mockGenerator) Generate(ctx context.Context, req Request, consumer func(Chunk) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(20 * time.Millisecond):
	}
	return consumer(Chunk{
		Content: mockSummary,
		Partial: false,
		Latency: 20 * time.Millisecond,
	})
}
