package passage

// Page is one unit of source text supplied by a document loader, with the
// metadata every chunk starting on it inherits.
type Page struct {
	text     string
	metadata Metadata
}

// NewPage creates a Page.
func NewPage(text string, metadata Metadata) Page {
	return Page{
		text:     text,
		metadata: metadata.Clone(),
	}
}

// NewNumberedPage creates a Page whose metadata records its 1-based page number.
func NewNumberedPage(number int, text string) Page {
	return NewPage(text, Metadata{"page": number})
}

// Text returns the page text.
func (p Page) Text() string { return p.text }

// Metadata returns a copy of the page metadata.
func (p Page) Metadata() Metadata { return p.metadata.Clone() }

// WithText returns a copy of the page with its text replaced.
func (p Page) WithText(text string) Page {
	return NewPage(text, p.metadata)
}
