package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRoster(t *testing.T) {
	r := Default()
	assert.Equal(t, 5, r.Len())
	assert.Equal(t, []string{"ceo", "marketing", "engineering", "design", "hr"}, r.IDs())
}

func TestResolveCaseInsensitive(t *testing.T) {
	r := Default()

	role, ok := r.Resolve("CEO")
	require.True(t, ok)
	assert.Equal(t, "ceo", role.ID)

	role, ok = r.Resolve(" Engineering ")
	require.True(t, ok)
	assert.Equal(t, "engineering", role.ID)

	role, ok = r.Resolve("marketing lead")
	require.True(t, ok)
	assert.Equal(t, "marketing", role.ID)

	_, ok = r.Resolve("janitor")
	assert.False(t, ok)
}

func TestNormalizeDropsUnmatched(t *testing.T) {
	r := Default()
	got := r.Normalize([]string{"Design", "janitor", "HR", "design"})
	assert.Equal(t, []string{"design", "hr"}, got)

	assert.Empty(t, r.Normalize([]string{"nobody", "anyone"}))
}

func TestByIndex(t *testing.T) {
	r := Default()
	role, ok := r.ByIndex(1)
	require.True(t, ok)
	assert.Equal(t, "ceo", role.ID)

	_, ok = r.ByIndex(0)
	assert.False(t, ok)
	_, ok = r.ByIndex(6)
	assert.False(t, ok)
}

func TestParseYAML(t *testing.T) {
	doc := []byte(`
roles:
  - id: ops
    title: Operations Lead
    description: Keeps the lights on.
    knowledge: Knows runbooks and infrastructure.
  - id: sales
    title: Sales Lead
    description: Owns the pipeline.
    knowledge: Knows accounts and quotas.
`)
	r, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"ops", "sales"}, r.IDs())

	_, err = Parse([]byte("roles: []"))
	assert.Error(t, err)

	_, err = Parse([]byte("roles:\n  - title: No ID"))
	assert.Error(t, err)
}
