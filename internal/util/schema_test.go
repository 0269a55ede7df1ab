package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type weatherArgs struct {
	Location string `json:"location" description:"city name"`
	Units    string `json:"units,omitempty"`
	Days     int    `json:"days,omitempty"`
	Internal string `json:"-"`
}

func TestSchemaFromStruct(t *testing.T) {
	schema := SchemaFromStruct(weatherArgs{})

	assert.Equal(t, "object", schema["type"])
	props := schema["properties"].(map[string]any)
	require.Contains(t, props, "location")
	require.Contains(t, props, "units")
	require.Contains(t, props, "days")
	assert.NotContains(t, props, "Internal")

	loc := props["location"].(map[string]any)
	assert.Equal(t, "string", loc["type"])
	assert.Equal(t, "city name", loc["description"])
	assert.Equal(t, "integer", props["days"].(map[string]any)["type"])

	assert.Equal(t, []string{"location"}, schema["required"])
}

func TestSchemaFromStructPointer(t *testing.T) {
	schema := SchemaFromStruct(&weatherArgs{})
	assert.Contains(t, schema["properties"].(map[string]any), "location")
}

func TestSchemaFromNonStruct(t *testing.T) {
	schema := SchemaFromStruct("not a struct")
	assert.Equal(t, "object", schema["type"])
	assert.Empty(t, schema["properties"])
}

func TestValidateArgumentsOK(t *testing.T) {
	schema := SchemaFromStruct(weatherArgs{})
	err := ValidateArguments(map[string]any{"location": "Paris", "days": float64(3)}, schema)
	assert.NoError(t, err)
}

func TestValidateArgumentsMissingRequired(t *testing.T) {
	schema := SchemaFromStruct(weatherArgs{})
	err := ValidateArguments(map[string]any{"units": "celsius"}, schema)
	require.Error(t, err)
	verr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Equal(t, "location", verr.Field)
}

func TestValidateArgumentsWrongType(t *testing.T) {
	schema := SchemaFromStruct(weatherArgs{})
	err := ValidateArguments(map[string]any{"location": 42}, schema)
	require.Error(t, err)
	verr := err.(*ValidationError)
	assert.Equal(t, "location", verr.Field)
}

func TestValidateArgumentsRequiredAsAnySlice(t *testing.T) {
	// Schemas round-tripped through JSON carry []any.
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"q": map[string]any{"type": "string"},
		},
		"required": []any{"q"},
	}
	assert.Error(t, ValidateArguments(map[string]any{}, schema))
	assert.NoError(t, ValidateArguments(map[string]any{"q": "x"}, schema))
}

func TestValidateArgumentsUnknownFieldsAllowed(t *testing.T) {
	schema := SchemaFromStruct(weatherArgs{})
	err := ValidateArguments(map[string]any{"location": "Paris", "extra": true}, schema)
	assert.NoError(t, err)
}
