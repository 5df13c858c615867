package profile

import (
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strip(t *testing.T, in string) map[string]any {
	t.Helper()
	out, err := StripLanguageSuffixes([]byte(in))
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	return m
}

func TestStripLanguageSuffixes(t *testing.T) {
	m := strip(t, `{"title:de": "Hallo", "description": "plain"}`)
	assert.Equal(t, "Hallo", m["title"])
	assert.Equal(t, "plain", m["description"])
	assert.NotContains(t, m, "title:de")
}

func TestStripPlainKeyWins(t *testing.T) {
	m := strip(t, `{"title": "Hello", "title:de": "Hallo", "title:fr": "Bonjour"}`)
	assert.Equal(t, "Hello", m["title"])
}

func TestStripSmallestSuffixWins(t *testing.T) {
	m := strip(t, `{"title:fr": "Bonjour", "title:de": "Hallo"}`)
	assert.Equal(t, "Hallo", m["title"])
}

func TestStripRecursive(t *testing.T) {
	m := strip(t, `{"blocks": [{"label:de": "Block", "items": {"name:en": "nested"}}]}`)
	blocks := m["blocks"].([]any)
	block := blocks[0].(map[string]any)
	assert.Equal(t, "Block", block["label"])
	items := block["items"].(map[string]any)
	assert.Equal(t, "nested", items["name"])
}

func TestStripIgnoresNonLanguageSuffixes(t *testing.T) {
	m := strip(t, `{"foo:not-a-lang-tag!": 1, "bar:": 2, ":de": 3}`)
	assert.Contains(t, m, "foo:not-a-lang-tag!")
	assert.Contains(t, m, "bar:")
	assert.Contains(t, m, ":de")
}

func TestStripRegionalTags(t *testing.T) {
	m := strip(t, `{"title:pt-BR": "Olá"}`)
	assert.Equal(t, "Olá", m["title"])
}
