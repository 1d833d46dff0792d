package domain //nolint:testpackage // Need access to unexported validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigDocument(t *testing.T) {
	doc, err := ParseConfigDocument([]byte("retriever:\n  top_k: 5\nparser: pdf\n"))
	require.NoError(t, err)

	assert.Equal(t, "pdf", doc["parser"])
	retriever, ok := doc["retriever"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 5, retriever["top_k"])
}

func TestParseConfigDocument_Invalid(t *testing.T) {
	_, err := ParseConfigDocument([]byte(":\n\t- broken"))
	require.Error(t, err)
}

func TestConfigDocument_Hash(t *testing.T) {
	a := ConfigDocument{"parser": "pdf", "top_k": 5}
	b := ConfigDocument{"top_k": 5, "parser": "pdf"}
	c := ConfigDocument{"parser": "pdf", "top_k": 6}

	assert.Equal(t, a.Hash(), b.Hash(), "hash must not depend on construction order")
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.NotEmpty(t, ConfigDocument(nil).Hash(), "empty documents still hash")
}

func TestConfigDocument_Clone(t *testing.T) {
	original := ConfigDocument{"parser": "pdf"}
	clone := original.Clone()
	clone["parser"] = "html"

	assert.Equal(t, "pdf", original["parser"])
	assert.Nil(t, ConfigDocument(nil).Clone())
}

func TestNewTrialConfig(t *testing.T) {
	tc, err := NewTrialConfig("proj-1", "trial-1", "v1", ConfigDocument{"top_k": 3}, map[string]string{"author": "ops"})
	require.NoError(t, err)

	assert.NotEmpty(t, tc.ID)
	assert.False(t, tc.IsDefault)

	clone := tc.Clone()
	clone.Metadata["author"] = "someone-else"
	assert.Equal(t, "ops", tc.Metadata["author"])
}
