package embedding

import (
	"context"
)

// mockEngine implements Engine with overridable function fields.
type mockEngine struct {
	EmbedFunc      func(ctx context.Context, text string) ([]float32, error)
	EmbedBatchFunc func(ctx context.Context, texts []string) ([][]float32, error)
	DimensionsFunc func() int
	NameFunc       func() string
}

func (m *mockEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return []float32{0.1, 0.2, 0.3, 0.4}, nil
}

func (m *mockEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.EmbedBatchFunc != nil {
		return m.EmbedBatchFunc(ctx, texts)
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{0.1, 0.2, 0.3, 0.4}
	}
	return result, nil
}

func (m *mockEngine) Dimensions() int {
	if m.DimensionsFunc != nil {
		return m.DimensionsFunc()
	}
	return 4
}

func (m *mockEngine) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock-engine"
}
