package analyzer

import (
	"context"
	"fmt"

	"kubeops-dashboard/internal/models"
)

// LLMAdapter rewrites or extends rule-engine recommendations
type LLMAdapter interface {
	EnrichRecommendations(ctx context.Context, recommendations []string, req models.AnalyzeRequest) ([]string, error)
}

const noopPlaceholder = "LLM adapter placeholder: connect provider to generate context-aware runbooks."

// NoopAdapter appends a placeholder line and otherwise returns its input
type NoopAdapter struct{}

func (NoopAdapter) EnrichRecommendations(_ context.Context, recommendations []string, _ models.AnalyzeRequest) ([]string, error) {
	out := make([]string, 0, len(recommendations)+1)
	out = append(out, recommendations...)
	return append(out, noopPlaceholder), nil
}

// NewAdapter returns the adapter registered for provider
func NewAdapter(provider string) (LLMAdapter, error) {
	switch provider {
	case "", "noop":
		return NoopAdapter{}, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", provider)
	}
}
