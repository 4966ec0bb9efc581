package analyzer

import (
	"context"
	"testing"

	"kubeops-dashboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopAdapterAppendsPlaceholder(t *testing.T) {
	in := []string{"a", "b"}
	out, err := NoopAdapter{}.EnrichRecommendations(context.Background(), in, models.AnalyzeRequest{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", noopPlaceholder}, out)
	assert.Equal(t, []string{"a", "b"}, in)
}

func TestNewAdapter(t *testing.T) {
	for _, provider := range []string{"", "noop"} {
		a, err := NewAdapter(provider)
		require.NoError(t, err)
		assert.IsType(t, NoopAdapter{}, a)
	}

	_, err := NewAdapter("openai")
	assert.Error(t, err)
}
