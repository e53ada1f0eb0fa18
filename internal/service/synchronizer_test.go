package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"greenlens/internal/domain"
	"greenlens/internal/logging"
	"greenlens/internal/service"
	"greenlens/mocks"
)

func TestHighlightSet_CollapsesLineBreaks(t *testing.T) {
	result := &domain.AnalysisResult{Initiatives: []domain.Initiative{
		{EvidenceText: "The company\n   reduced emissions"},
		{EvidenceText: "Scope 1 \r\n and\n\n\tScope 2"},
		{EvidenceText: "single line stays  as is"},
	}}

	got := service.HighlightSet(result)

	assert.Equal(t, []string{
		"The companyreduced emissions",
		"Scope 1andScope 2",
		"single line stays  as is",
	}, got)
}

func TestHighlightSet_NilResult(t *testing.T) {
	assert.Nil(t, service.HighlightSet(nil))
}

func TestPageIndex(t *testing.T) {
	tests := []struct {
		label string
		want  int
		err   bool
	}{
		{label: "3", want: 2},
		{label: "1", want: 0},
		{label: " 12 ", want: 11},
		{label: "0", want: -1},
		{label: "iv", err: true},
		{label: "", err: true},
		{label: "3a", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := service.PageIndex(tt.label)
			if tt.err {
				assert.True(t, errors.Is(err, domain.ErrInvalidPageLabel))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSynchronizer_JumpTo_WideLayout(t *testing.T) {
	viewer := new(mocks.MockDocumentViewer)
	viewer.On("Layout").Return(domain.LayoutWide)
	viewer.On("JumpToPage", mock.Anything, 2).Return(nil).Once()
	viewer.On("JumpToPage", mock.Anything, 0).Return(nil).Once()

	syncer := service.NewSynchronizer(viewer, nil, logging.Discard())

	index, err := syncer.JumpTo(context.Background(), domain.Initiative{PageLabel: "3"})
	require.NoError(t, err)
	assert.Equal(t, 2, index)

	index, err = syncer.JumpTo(context.Background(), domain.Initiative{PageLabel: "1"})
	require.NoError(t, err)
	assert.Equal(t, 0, index)

	viewer.AssertExpectations(t)
	viewer.AssertNotCalled(t, "Surface", mock.Anything)
}

func TestSynchronizer_JumpTo_CompactSurfacesFirst(t *testing.T) {
	viewer := new(mocks.MockDocumentViewer)
	var order []string
	viewer.On("Layout").Return(domain.LayoutCompact)
	viewer.On("Surface", mock.Anything).Run(func(mock.Arguments) { order = append(order, "surface") }).Return(nil)
	viewer.On("JumpToPage", mock.Anything, 4).Run(func(mock.Arguments) { order = append(order, "jump") }).Return(nil)

	syncer := service.NewSynchronizer(viewer, nil, logging.Discard())
	index, err := syncer.JumpTo(context.Background(), domain.Initiative{PageLabel: "5"})
	require.NoError(t, err)

	assert.Equal(t, 4, index)
	assert.Equal(t, []string{"surface", "jump"}, order)
}

func TestSynchronizer_JumpTo_SurfaceFailureSkipsNavigation(t *testing.T) {
	viewer := new(mocks.MockDocumentViewer)
	viewer.On("Layout").Return(domain.LayoutCompact)
	viewer.On("Surface", mock.Anything).Return(context.DeadlineExceeded)

	syncer := service.NewSynchronizer(viewer, nil, logging.Discard())
	_, err := syncer.JumpTo(context.Background(), domain.Initiative{PageLabel: "5"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	viewer.AssertNotCalled(t, "JumpToPage", mock.Anything, mock.Anything)
}

func TestSynchronizer_JumpTo_InvalidLabel(t *testing.T) {
	viewer := new(mocks.MockDocumentViewer)
	syncer := service.NewSynchronizer(viewer, nil, logging.Discard())

	_, err := syncer.JumpTo(context.Background(), domain.Initiative{PageLabel: "n/a"})

	assert.True(t, errors.Is(err, domain.ErrInvalidPageLabel))
	viewer.AssertNotCalled(t, "JumpToPage", mock.Anything, mock.Anything)
}

func TestSynchronizer_JumpTo_OutOfRangePassesThrough(t *testing.T) {
	viewer := new(mocks.MockDocumentViewer)
	viewer.On("Layout").Return(domain.LayoutWide)
	viewer.On("JumpToPage", mock.Anything, 998).Return(domain.ErrPageOutOfRange)

	syncer := service.NewSynchronizer(viewer, nil, logging.Discard())
	index, err := syncer.JumpTo(context.Background(), domain.Initiative{PageLabel: "999"})

	assert.Equal(t, 998, index)
	assert.True(t, errors.Is(err, domain.ErrPageOutOfRange))
}

func TestSynchronizer_Present(t *testing.T) {
	viewer := new(mocks.MockDocumentViewer)
	resolver := new(mocks.MockURLResolver)
	var order []string

	resolver.On("Resolve", mock.Anything, "http://x/abc.pdf").Return("http://signed/abc.pdf", nil)
	viewer.On("Load", mock.Anything, "http://signed/abc.pdf").
		Run(func(mock.Arguments) { order = append(order, "load") }).Return(nil)
	viewer.On("Highlight", mock.Anything, []string{"ab", "cd"}).
		Run(func(mock.Arguments) { order = append(order, "highlight") }).Return(nil)

	syncer := service.NewSynchronizer(viewer, resolver, logging.Discard())
	err := syncer.Present(context.Background(), "http://x/abc.pdf", &domain.AnalysisResult{
		Initiatives: []domain.Initiative{{EvidenceText: "a\nb"}, {EvidenceText: "c \n d"}},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"load", "highlight"}, order)
	viewer.AssertExpectations(t)
}

func TestSynchronizer_Present_LoadFailureSkipsHighlight(t *testing.T) {
	viewer := new(mocks.MockDocumentViewer)
	viewer.On("Load", mock.Anything, "http://x/abc.pdf").Return(domain.ErrViewerDetached)

	syncer := service.NewSynchronizer(viewer, nil, logging.Discard())
	err := syncer.Present(context.Background(), "http://x/abc.pdf", &domain.AnalysisResult{})

	assert.True(t, errors.Is(err, domain.ErrViewerDetached))
	viewer.AssertNotCalled(t, "Highlight", mock.Anything, mock.Anything)
}

func TestSynchronizer_Present_NoResult(t *testing.T) {
	syncer := service.NewSynchronizer(new(mocks.MockDocumentViewer), nil, logging.Discard())
	assert.ErrorIs(t, syncer.Present(context.Background(), "http://x/a.pdf", nil), domain.ErrNoResult)
}
