package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_SplitsOnFormFeed(t *testing.T) {
	doc := "Report writing requires clarity.\fWeather was sunny that day.\f"

	pages, err := Read(strings.NewReader(doc), "report.txt")
	require.NoError(t, err)
	require.Len(t, pages, 2)

	assert.Equal(t, "Report writing requires clarity.", pages[0].Text())
	assert.Equal(t, "Weather was sunny that day.", pages[1].Text())

	page, ok := pages[1].Metadata().Page()
	require.True(t, ok)
	assert.Equal(t, 2, page)
	assert.Equal(t, "report.txt", pages[1].Metadata()["source"])
}

func TestRead_BlankPagesKeepNumbering(t *testing.T) {
	pages, err := Read(strings.NewReader("one\f \n\fthree"), "")
	require.NoError(t, err)
	require.Len(t, pages, 2)

	page, _ := pages[1].Metadata().Page()
	assert.Equal(t, 3, page)
	_, hasSource := pages[0].Metadata()["source"]
	assert.False(t, hasSource)
}

func TestRead_SinglePageAndCRLF(t *testing.T) {
	pages, err := Read(strings.NewReader("line one\r\nline two"), "")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "line one\nline two", pages[0].Text())
}

func TestRead_Empty(t *testing.T) {
	pages, err := Read(strings.NewReader(""), "")
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("first\fsecond"), 0o644))

	pages, err := Load(path)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "doc.txt", pages[0].Metadata()["source"])

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}
