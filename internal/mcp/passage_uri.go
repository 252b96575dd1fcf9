package mcp

import (
	"fmt"
	"net/url"
)

// PassageURI identifies a stored chunk, optionally with the source page and
// document it came from.
// Immutable value object, methods return copies.
type PassageURI struct {
	id     int64
	page   int
	source string
}

// NewPassageURI creates a PassageURI for the chunk id.
func NewPassageURI(id int64) PassageURI {
	return PassageURI{id: id}
}

// WithPage returns a copy pointing at a 1-based page. Non-positive pages are ignored.
func (u PassageURI) WithPage(page int) PassageURI {
	if page > 0 {
		u.page = page
	}
	return u
}

// WithSource returns a copy carrying the source document name.
func (u PassageURI) WithSource(source string) PassageURI {
	u.source = source
	return u
}

// String builds the passage:// URI string.
func (u PassageURI) String() string {
	base := fmt.Sprintf("passage://chunks/%d", u.id)
	q := url.Values{}
	if u.page > 0 {
		q.Set("page", fmt.Sprint(u.page))
	}
	if u.source != "" {
		q.Set("source", u.source)
	}
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}
