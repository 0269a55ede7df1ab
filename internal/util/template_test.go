package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplatePlainText(t *testing.T) {
	out, err := RenderTemplate("no markers here", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers here", out)
}

func TestRenderTemplateSubstitution(t *testing.T) {
	out, err := RenderTemplate("weather in {{.city}}", map[string]any{"city": "Paris"})
	require.NoError(t, err)
	assert.Equal(t, "weather in Paris", out)
}

func TestRenderTemplateFuncs(t *testing.T) {
	out, err := RenderTemplate(`{{upper .name}}: {{join ", " .items}}`, map[string]any{
		"name":  "list",
		"items": []any{"a", "b", 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "LIST: a, b, 3", out)
}

func TestRenderTemplateMissingKeyIsZero(t *testing.T) {
	out, err := RenderTemplate("value: {{.missing}}", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "value: <no value>", out)
}

func TestRenderTemplateParseError(t *testing.T) {
	_, err := RenderTemplate("{{.unclosed", nil)
	assert.Error(t, err)
}
