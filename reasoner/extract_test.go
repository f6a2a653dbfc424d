package reasoner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences(`{"a":1}`))
	assert.Equal(t, "plain text", StripFences("  plain text\n"))
}

func TestFirstJSONObject(t *testing.T) {
	obj, ok := FirstJSONObject(`Sure! Here you go: {"candidates": ["ceo"]} hope that helps`)
	require.True(t, ok)
	assert.Equal(t, `{"candidates": ["ceo"]}`, obj)

	obj, ok = FirstJSONObject(`{"a": {"b": 1}, "c": "}"}` + " trailing")
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": 1}, "c": "}"}`, obj)

	_, ok = FirstJSONObject("no json here")
	assert.False(t, ok)

	_, ok = FirstJSONObject(`{"unterminated": true`)
	assert.False(t, ok)
}

func TestUnmarshalToleratesFencesAndProse(t *testing.T) {
	var v struct {
		Candidates []string `json:"candidates"`
	}
	raw := "Of course.\n```json\n{\"candidates\": [\"marketing\", \"design\"]}\n```\nLet me know."
	require.NoError(t, Unmarshal(raw, &v))
	assert.Equal(t, []string{"marketing", "design"}, v.Candidates)
}

func TestUnmarshalReturnsParseError(t *testing.T) {
	var v map[string]any
	err := Unmarshal("I cannot answer that.", &v)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "I cannot answer that.", pe.Raw)

	err = Unmarshal(`{"broken": }`, &v)
	require.True(t, errors.As(err, &pe))
}

func TestHeuristicIndices(t *testing.T) {
	assert.Equal(t, []int{2, 3}, HeuristicIndices("I suggest role_2 and role_3", 5))
	assert.Equal(t, []int{1}, HeuristicIndices("agent 1 fits best", 5))
	assert.Equal(t, []int{1, 3}, HeuristicIndices("picks: 1, 3", 5))
	assert.Empty(t, HeuristicIndices("role_9 only", 5))
	assert.Empty(t, HeuristicIndices("nobody", 5))
}

func TestMentionedIDs(t *testing.T) {
	known := []string{"ceo", "marketing", "engineering"}
	assert.Equal(t, []string{"ceo", "engineering"},
		MentionedIDs("The CEO and the Engineering lead should join.", known))
	assert.Empty(t, MentionedIDs("nobody relevant", known))
}
