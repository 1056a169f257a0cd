package namesplit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicSplitterTwoTokens(t *testing.T) {
	s := NewHeuristicSplitter()

	result, err := s.Split(context.Background(), "Dana Cohen")
	require.NoError(t, err)
	assert.Equal(t, "Dana", result.FirstName)
	assert.Equal(t, "Cohen", result.LastName)
	assert.Zero(t, result.TokensUsed)
}

func TestHeuristicSplitterManyTokens(t *testing.T) {
	s := NewHeuristicSplitter()

	result, err := s.Split(context.Background(), "Maria  de la  Cruz")
	require.NoError(t, err)
	assert.Equal(t, "Maria de la", result.FirstName)
	assert.Equal(t, "Cruz", result.LastName)
}

func TestHeuristicSplitterSingleToken(t *testing.T) {
	s := NewHeuristicSplitter()

	result, err := s.Split(context.Background(), "  Cher ")
	require.NoError(t, err)
	assert.Equal(t, "Cher", result.FirstName)
	assert.Empty(t, result.LastName)
}

func TestHeuristicSplitterEmpty(t *testing.T) {
	s := NewHeuristicSplitter()

	result, err := s.Split(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, result.FirstName)
	assert.Empty(t, result.LastName)
}
