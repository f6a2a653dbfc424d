package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleArgs struct {
	Title    string  `json:"title" description:"Short title."`
	Count    int     `json:"count"`
	Priority string  `json:"priority" enum:"high,medium,low"`
	Note     *string `json:"note,omitempty"`
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(sampleArgs{})

	assert.Equal(t, "object", schema["type"])
	assert.ElementsMatch(t, []string{"title", "count", "priority"}, schema["required"])

	properties, ok := schema["properties"].(map[string]any)
	require.True(t, ok)

	title, _ := properties["title"].(map[string]any)
	assert.Equal(t, "string", title["type"])
	assert.Equal(t, "Short title.", title["description"])

	count, _ := properties["count"].(map[string]any)
	assert.Equal(t, "integer", count["type"])

	priority, _ := properties["priority"].(map[string]any)
	assert.Equal(t, []string{"high", "medium", "low"}, priority["enum"])
}

func TestValidateParameters(t *testing.T) {
	schema := CreateSchema(sampleArgs{})

	err := ValidateParameters(map[string]any{
		"title":    "Ship it",
		"count":    float64(3),
		"priority": "high",
	}, schema)
	assert.NoError(t, err)

	err = ValidateParameters(map[string]any{"title": "Ship it", "count": float64(3)}, schema)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "priority", verr.Field)

	err = ValidateParameters(map[string]any{
		"title":    "Ship it",
		"count":    "three",
		"priority": "high",
	}, schema)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "count", verr.Field)

	err = ValidateParameters(map[string]any{
		"title":    "Ship it",
		"count":    float64(3),
		"priority": "urgent",
	}, schema)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "priority", verr.Field)
}
