package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyTransformer(t *testing.T) {
	doc := map[string]any{
		"id":    "42",
		"title": "hello",
		"views": 10,
	}

	src := `
text := import("text")
output := {
	id: doc.id,
	title: text.to_upper(doc.title),
	popular: doc.views > 5
}`

	out, err := ApplyTransformer(context.Background(), src, doc)
	require.NoError(t, err)

	assert.Equal(t, "42", out["id"])
	assert.Equal(t, "HELLO", out["title"])
	assert.Equal(t, true, out["popular"])
}

func TestApplyTransformerMissingOutput(t *testing.T) {
	_, err := ApplyTransformer(context.Background(), `x := doc.id`, map[string]any{"id": 1})
	require.ErrorIs(t, err, ErrTransformerNoResult)
}

func TestApplyTransformerNonMapOutput(t *testing.T) {
	_, err := ApplyTransformer(context.Background(), `output := "not a map"`, map[string]any{"id": 1})
	require.ErrorIs(t, err, ErrTransformerNoResult)
}

func TestApplyTransformerSyntaxError(t *testing.T) {
	_, err := ApplyTransformer(context.Background(), `output := {`, map[string]any{"id": 1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTransformerNoResult)
}
