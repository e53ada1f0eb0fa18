package viewer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"greenlens/internal/domain"
	"greenlens/mocks"
)

// minimalPDF builds a valid PDF with the given number of blank pages.
func minimalPDF(pages int) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for i := 0; i < pages; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func TestPDFViewer_LoadAndJump(t *testing.T) {
	source := new(mocks.MockDocumentSource)
	source.On("Fetch", mock.Anything, "http://x/abc.pdf").Return(minimalPDF(3), nil)

	var out bytes.Buffer
	v := NewPDFViewer(source, &out)

	require.NoError(t, v.Load(context.Background(), "http://x/abc.pdf"))
	assert.Equal(t, 3, v.Pages())
	assert.Equal(t, -1, v.Page())

	require.NoError(t, v.JumpToPage(context.Background(), 2))
	assert.Equal(t, 2, v.Page())
	assert.Contains(t, out.String(), "Loaded document (3 pages)")
	assert.Contains(t, out.String(), "Page 3/3")
}

func TestPDFViewer_JumpOutOfRange(t *testing.T) {
	source := new(mocks.MockDocumentSource)
	source.On("Fetch", mock.Anything, "http://x/abc.pdf").Return(minimalPDF(2), nil)

	v := NewPDFViewer(source, &bytes.Buffer{})
	require.NoError(t, v.Load(context.Background(), "http://x/abc.pdf"))

	assert.True(t, errors.Is(v.JumpToPage(context.Background(), 2), domain.ErrPageOutOfRange))
	assert.True(t, errors.Is(v.JumpToPage(context.Background(), -1), domain.ErrPageOutOfRange))
	assert.Equal(t, -1, v.Page())
}

func TestPDFViewer_JumpBeforeLoad(t *testing.T) {
	v := NewPDFViewer(new(mocks.MockDocumentSource), &bytes.Buffer{})
	assert.Error(t, v.JumpToPage(context.Background(), 0))
}

func TestPDFViewer_LoadRejectsNonPDF(t *testing.T) {
	source := new(mocks.MockDocumentSource)
	source.On("Fetch", mock.Anything, "http://x/abc.pdf").Return([]byte("not a pdf"), nil)

	v := NewPDFViewer(source, &bytes.Buffer{})
	assert.Error(t, v.Load(context.Background(), "http://x/abc.pdf"))
}

func TestPDFViewer_LoadFetchError(t *testing.T) {
	source := new(mocks.MockDocumentSource)
	source.On("Fetch", mock.Anything, "http://x/abc.pdf").Return(nil, errors.New("403"))

	v := NewPDFViewer(source, &bytes.Buffer{})
	err := v.Load(context.Background(), "http://x/abc.pdf")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestPDFViewer_HighlightAndSurface(t *testing.T) {
	v := NewPDFViewer(new(mocks.MockDocumentSource), &bytes.Buffer{})

	require.NoError(t, v.Highlight(context.Background(), []string{"a", "b"}))
	require.NoError(t, v.Surface(context.Background()))

	assert.Equal(t, []string{"a", "b"}, v.Highlights())
	assert.Equal(t, domain.LayoutWide, v.Layout())
}
