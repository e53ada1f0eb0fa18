package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"greenlens/internal/domain"
	"greenlens/internal/logging"
	"greenlens/internal/service"
	"greenlens/mocks"
)

type fakeSource struct {
	mu    sync.Mutex
	fn    service.Observer
	ready chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{ready: make(chan struct{})}
}

func (f *fakeSource) Observe(fn service.Observer) func() {
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
	fn(domain.WorkflowState{Phase: domain.PhaseIdle})
	close(f.ready)
	return func() {}
}

func (f *fakeSource) publish(s domain.WorkflowState) {
	<-f.ready
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fn(s)
}

func resultState(url string, result *domain.AnalysisResult) domain.WorkflowState {
	return domain.WorkflowState{
		Phase:  domain.PhaseShowingResult,
		Ticket: &domain.UploadTicket{Identifier: "k", LocationURL: url},
		Result: result,
	}
}

func startPresenter(t *testing.T, source *fakeSource, syncer *mocks.MockSyncService) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	p := service.NewPresenter(source, syncer, logging.Discard())
	go func() { done <- p.Run(ctx) }()

	return func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("presenter did not stop")
		}
	}
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestPresenter_PresentsEachResultOnce(t *testing.T) {
	source := newFakeSource()
	syncer := new(mocks.MockSyncService)

	first := &domain.AnalysisResult{Initiatives: []domain.Initiative{{PageLabel: "1"}}}
	second := &domain.AnalysisResult{Initiatives: []domain.Initiative{{PageLabel: "2"}}}

	firstDone := make(chan struct{})
	secondDone := make(chan struct{})
	syncer.On("Present", mock.Anything, "http://x/a.pdf", first).
		Run(func(mock.Arguments) { close(firstDone) }).Return(nil).Once()
	syncer.On("Present", mock.Anything, "http://x/b.pdf", second).
		Run(func(mock.Arguments) { close(secondDone) }).Return(nil).Once()

	stop := startPresenter(t, source, syncer)

	source.publish(resultState("http://x/a.pdf", first))
	waitFor(t, firstDone, "first presentation")

	source.publish(resultState("http://x/a.pdf", first))
	source.publish(domain.WorkflowState{Phase: domain.PhaseIdle})
	source.publish(resultState("http://x/b.pdf", second))
	waitFor(t, secondDone, "second presentation")

	stop()
	syncer.AssertExpectations(t)
}

func TestPresenter_AbandonsOnReset(t *testing.T) {
	source := newFakeSource()
	syncer := new(mocks.MockSyncService)
	result := &domain.AnalysisResult{}

	started := make(chan struct{})
	abandoned := make(chan struct{})
	syncer.On("Present", mock.Anything, "http://x/a.pdf", result).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			close(started)
			<-ctx.Done()
			close(abandoned)
		}).Return(context.Canceled).Once()

	stop := startPresenter(t, source, syncer)

	source.publish(resultState("http://x/a.pdf", result))
	waitFor(t, started, "presentation start")

	source.publish(domain.WorkflowState{Phase: domain.PhaseIdle})
	waitFor(t, abandoned, "presentation to be abandoned")

	stop()
	syncer.AssertExpectations(t)
}

func TestPresenter_IgnoresNonResultStates(t *testing.T) {
	source := newFakeSource()
	syncer := new(mocks.MockSyncService)

	stop := startPresenter(t, source, syncer)
	source.publish(domain.WorkflowState{Phase: domain.PhaseUploading, CurrentStep: service.UploadingStep})
	source.publish(domain.WorkflowState{Phase: domain.PhaseAwaitingStream, ProgressPercent: 40})
	source.publish(domain.WorkflowState{Phase: domain.PhaseIdle, Error: "boom"})
	stop()

	syncer.AssertNotCalled(t, "Present", mock.Anything, mock.Anything, mock.Anything)
}
