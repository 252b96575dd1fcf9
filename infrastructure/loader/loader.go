// Package loader reads source documents into pages.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/helixml/passage/domain/passage"
)

// PageBreak separates pages in text extracted from paginated documents.
const PageBreak = '\f'

// Load reads a text document from path. Pages are separated by form feeds
// and numbered from 1; blank pages are skipped but keep their number.
func Load(path string) ([]passage.Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Read(f, filepath.Base(path))
}

// Read splits r into pages. source is recorded in every page's metadata
// when non-empty.
func Read(r io.Reader, source string) ([]passage.Page, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	scanner.Split(splitPages)

	var pages []passage.Page
	number := 0
	for scanner.Scan() {
		number++
		text := strings.ReplaceAll(scanner.Text(), "\r\n", "\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		md := passage.Metadata{"page": number}
		if source != "" {
			md["source"] = source
		}
		pages = append(pages, passage.NewPage(text, md))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return pages, nil
}

func splitPages(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == PageBreak {
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
