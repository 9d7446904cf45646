package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupportedDocument(t *testing.T) {
	assert.True(t, SupportedDocument("notes.txt"))
	assert.True(t, SupportedDocument("README.MD"))
	assert.True(t, SupportedDocument("report.pdf"))
	assert.False(t, SupportedDocument("image.png"))
	assert.False(t, SupportedDocument("archive"))
}

func TestExtractTextFromPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("# Heading\n\nbody"), 0o644))

	text, err := ExtractTextFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Heading\n\nbody", text)

	_, err = ExtractTextFromFile(filepath.Join(t.TempDir(), "clip.mov"))
	assert.ErrorContains(t, err, "unsupported file type")
}
