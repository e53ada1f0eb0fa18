package viewer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"greenlens/internal/domain"
	"greenlens/internal/port"
)

// PDFViewer is a headless DocumentViewer for terminal use. It inspects the
// document with pdfcpu and reports navigation as text lines.
type PDFViewer struct {
	source port.DocumentSource
	out    io.Writer

	mu         sync.Mutex
	url        string
	pages      int
	page       int
	highlights []string
}

var _ port.DocumentViewer = (*PDFViewer)(nil)

// NewPDFViewer creates a headless viewer writing to out.
func NewPDFViewer(source port.DocumentSource, out io.Writer) *PDFViewer {
	return &PDFViewer{source: source, out: out, page: -1}
}

// Load fetches the document and reads its page count.
func (v *PDFViewer) Load(ctx context.Context, url string) error {
	data, err := v.source.Fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("fetching document: %w", err)
	}
	pages, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return fmt.Errorf("reading page count: %w", err)
	}

	v.mu.Lock()
	v.url, v.pages, v.page, v.highlights = url, pages, -1, nil
	v.mu.Unlock()

	_, _ = fmt.Fprintf(v.out, "Loaded document (%d pages)\n", pages)
	return nil
}

// JumpToPage moves to a 0-based page index, rejecting indices the document does not have.
func (v *PDFViewer) JumpToPage(_ context.Context, index int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.url == "" {
		return fmt.Errorf("jump to page %d: no document loaded", index)
	}
	if index < 0 || index >= v.pages {
		return fmt.Errorf("%w: page %d of %d", domain.ErrPageOutOfRange, index+1, v.pages)
	}
	v.page = index
	_, _ = fmt.Fprintf(v.out, "Page %d/%d\n", index+1, v.pages)
	return nil
}

// Highlight records the search strings for the loaded document.
func (v *PDFViewer) Highlight(_ context.Context, texts []string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.highlights = append([]string(nil), texts...)
	return nil
}

// Surface is a no-op; a terminal viewer is always visible.
func (v *PDFViewer) Surface(context.Context) error {
	return nil
}

// Layout always reports wide.
func (v *PDFViewer) Layout() domain.Layout {
	return domain.LayoutWide
}

// Pages returns the page count of the loaded document.
func (v *PDFViewer) Pages() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pages
}

// Page returns the current 0-based page, or -1 before the first jump.
func (v *PDFViewer) Page() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}

// Highlights returns the search strings last passed to Highlight.
func (v *PDFViewer) Highlights() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.highlights...)
}
