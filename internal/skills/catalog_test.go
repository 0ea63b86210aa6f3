package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	all := c.All()
	assert.Equal(t, "JavaScript", all[0])
	assert.Equal(t, "Technical Writing", all[len(all)-1])
	assert.Contains(t, all, "C#")
	assert.Contains(t, all, "C# for Games")
	assert.Len(t, c.Categories(), 14)
}

func TestSearch(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []string{"Python"}, c.Search("  PYTH "))
	assert.Equal(t, []string{}, c.Search("   "))
	assert.Equal(t, []string{}, c.Search("basket weaving"))

	// "a" appears in far more than ten labels
	res := c.Search("a")
	assert.Len(t, res, MaxSearchResults)
	assert.Equal(t, "JavaScript", res[0])
}

func TestSuggestions(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	res := c.Suggestions([]string{"JavaScript", "python"})
	assert.Len(t, res, MaxSuggestions)
	assert.NotContains(t, res, "JavaScript")
	assert.Equal(t, "TypeScript", res[0])
	assert.Contains(t, res, "Python", "comparison is case sensitive")
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(`
categories:
  - name: A
    skills: [" Go ", Go, ""]
  - name: Empty
    skills: []
  - name: B
    skills: [Rust, Go]
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "Rust"}, c.All())
	assert.Len(t, c.Categories(), 2)

	_, err = Parse([]byte("categories: []"))
	assert.Error(t, err)
	_, err = Parse([]byte("categories: ["))
	assert.Error(t, err)
}
