package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"greenlens/internal/domain"
	"greenlens/internal/port"
)

var lineBreakRun = regexp.MustCompile(`\s*\n\s*`)

// SyncService defines the cross-view synchronization contract.
type SyncService interface {
	Present(ctx context.Context, fileURL string, result *domain.AnalysisResult) error
	JumpTo(ctx context.Context, initiative domain.Initiative) (int, error)
	HighlightSet(result *domain.AnalysisResult) []string
}

var _ SyncService = (*Synchronizer)(nil)

// Synchronizer keeps the findings list and the document viewer in step.
// It only reads analysis results; it never touches WorkflowState.
type Synchronizer struct {
	viewer   port.DocumentViewer
	resolver port.URLResolver
	logger   *slog.Logger
}

// NewSynchronizer creates a Synchronizer. resolver may be nil, in which case
// document locations are loaded as-is.
func NewSynchronizer(viewer port.DocumentViewer, resolver port.URLResolver, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{viewer: viewer, resolver: resolver, logger: logger}
}

// HighlightSet returns the evidence text of every initiative with each line
// break, and the whitespace around it, removed.
func HighlightSet(result *domain.AnalysisResult) []string {
	if result == nil {
		return nil
	}
	out := make([]string, 0, len(result.Initiatives))
	for _, in := range result.Initiatives {
		out = append(out, lineBreakRun.ReplaceAllString(in.EvidenceText, ""))
	}
	return out
}

// PageIndex converts a 1-based page label into a 0-based viewer index.
// Out-of-range results are passed through unchanged.
func PageIndex(label string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(label))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidPageLabel, label)
	}
	return n - 1, nil
}

// HighlightSet is a convenience wrapper around the package-level function.
func (s *Synchronizer) HighlightSet(result *domain.AnalysisResult) []string {
	return HighlightSet(result)
}

// Present loads the analysed document and highlights every initiative's evidence.
func (s *Synchronizer) Present(ctx context.Context, fileURL string, result *domain.AnalysisResult) error {
	if result == nil {
		return domain.ErrNoResult
	}

	url := fileURL
	if s.resolver != nil {
		resolved, err := s.resolver.Resolve(ctx, fileURL)
		if err != nil {
			return fmt.Errorf("resolving document location: %w", err)
		}
		url = resolved
	}

	if err := s.viewer.Load(ctx, url); err != nil {
		return fmt.Errorf("loading document: %w", err)
	}
	texts := HighlightSet(result)
	if err := s.viewer.Highlight(ctx, texts); err != nil {
		return fmt.Errorf("highlighting evidence: %w", err)
	}

	s.logger.Info("document presented", "highlights", len(texts))
	return nil
}

// JumpTo navigates the viewer to the initiative's page. In compact layouts
// the viewer is surfaced first and navigation waits for its ready signal.
// It returns the 0-based page index it navigated to.
func (s *Synchronizer) JumpTo(ctx context.Context, initiative domain.Initiative) (int, error) {
	index, err := PageIndex(initiative.PageLabel)
	if err != nil {
		return 0, err
	}

	if s.viewer.Layout() == domain.LayoutCompact {
		if err := s.viewer.Surface(ctx); err != nil {
			return index, fmt.Errorf("surfacing viewer: %w", err)
		}
	}

	if err := s.viewer.JumpToPage(ctx, index); err != nil {
		return index, fmt.Errorf("jumping to page %d: %w", index, err)
	}
	s.logger.Debug("jumped to initiative", "page_label", initiative.PageLabel, "index", index)
	return index, nil
}
