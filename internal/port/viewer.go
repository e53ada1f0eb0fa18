package port

import (
	"context"

	"greenlens/internal/domain"
)

// DocumentViewer is the capability surface of the document renderer.
// Load returns once the viewer has signalled load completion and Surface
// once the viewer has signalled it is visible and ready for navigation.
type DocumentViewer interface {
	Load(ctx context.Context, url string) error
	JumpToPage(ctx context.Context, index int) error
	Highlight(ctx context.Context, texts []string) error
	Surface(ctx context.Context) error
	Layout() domain.Layout
}
