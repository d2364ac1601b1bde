package processor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-parser-go/internal/types"
)

func TestDiscoverDocuments(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "zoe.PDF", "adam.docx", "notes.txt", "scan.doc", "bob.pdf", "README")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.pdf"), 0755))

	found, err := DiscoverDocuments(dir)
	require.NoError(t, err)

	var names []string
	for _, doc := range found {
		names = append(names, doc.Name)
	}
	assert.Equal(t, []string{"adam.docx", "bob.pdf", "zoe.PDF"}, names)

	assert.Equal(t, types.FormatDOCX, found[0].Format)
	assert.Equal(t, types.FormatPDF, found[2].Format, "扩展名不区分大小写")
	assert.Equal(t, filepath.Join(dir, "bob.pdf"), found[1].Path)
}

func TestDiscoverDocumentsEmpty(t *testing.T) {
	found, err := DiscoverDocuments(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestDiscoverDocumentsMissingDir(t *testing.T) {
	_, err := DiscoverDocuments(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
