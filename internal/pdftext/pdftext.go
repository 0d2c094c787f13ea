// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdftext turns PDF bytes into ordered page text.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// ErrExtraction reports content that is not a readable PDF or has no pages.
var ErrExtraction = errors.New("pdf extraction failed")

// PageSeparator joins consecutive page texts.
const PageSeparator = "\n\n"

// ExcerptPages is the number of leading pages used for relevance screening.
const ExcerptPages = 3

// Document is the page text of one PDF in page order.
type Document struct {
	Pages []string
}

// Text joins the first n pages with PageSeparator. n <= 0 means all pages.
// Pages without a text layer contribute nothing.
func (d *Document) Text(n int) string {
	pages := d.Pages
	if n > 0 && n < len(pages) {
		pages = pages[:n]
	}
	var parts []string
	for _, p := range pages {
		if strings.TrimSpace(p) == "" {
			continue
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, PageSeparator)
}

// Excerpt joins the first n pages that carry text, skipping leading scans
// and cover images. n <= 0 means all pages.
func (d *Document) Excerpt(n int) string {
	var parts []string
	for _, p := range d.Pages {
		if n > 0 && len(parts) == n {
			break
		}
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, PageSeparator)
}

// Open parses content and reads the text of every page. A PDF whose pages
// carry no text layer yields empty page strings, not an error; a corrupt
// container or a document with zero pages wraps ErrExtraction.
func Open(content []byte) (doc *Document, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("%w: %v", ErrExtraction, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	n := r.NumPage()
	if n == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrExtraction)
	}

	doc = &Document{Pages: make([]string, n)}
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page is treated as having no text layer.
			continue
		}
		doc.Pages[i-1] = strings.TrimSpace(text)
	}
	return doc, nil
}

// Extract returns the text of the first maxPages pages (all when
// maxPages <= 0) joined by PageSeparator.
func Extract(content []byte, maxPages int) (string, error) {
	doc, err := Open(content)
	if err != nil {
		return "", err
	}
	return doc.Text(maxPages), nil
}
