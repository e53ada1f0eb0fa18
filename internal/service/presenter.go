package service

import (
	"context"
	"log/slog"
	"sync"

	"greenlens/internal/domain"
)

// StateSource publishes workflow state snapshots.
type StateSource interface {
	Observe(fn Observer) (cancel func())
}

// Presenter loads every new analysis result into the document viewer as soon
// as the workflow enters showing_result.
type Presenter struct {
	source StateSource
	syncer SyncService
	logger *slog.Logger
}

// NewPresenter creates a new Presenter.
func NewPresenter(source StateSource, syncer SyncService, logger *slog.Logger) *Presenter {
	return &Presenter{source: source, syncer: syncer, logger: logger}
}

// Run presents results until ctx is done. A presentation still waiting for a
// viewer is abandoned once the workflow leaves the result it belongs to.
func (p *Presenter) Run(ctx context.Context) error {
	latest := make(chan domain.WorkflowState, 1)
	stop := p.source.Observe(func(s domain.WorkflowState) {
		select {
		case latest <- s:
		default:
			select {
			case <-latest:
			default:
			}
			latest <- s
		}
	})
	defer stop()

	var (
		wg        sync.WaitGroup
		current   *domain.AnalysisResult
		cancelRun = func() {}
	)
	defer func() {
		cancelRun()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-latest:
			if s.Phase != domain.PhaseShowingResult || s.Result == nil {
				cancelRun()
				current = nil
				continue
			}
			if s.Result == current {
				continue
			}
			cancelRun()
			current = s.Result

			runCtx, cancel := context.WithCancel(ctx)
			cancelRun = cancel
			wg.Add(1)
			go func(fileURL string, result *domain.AnalysisResult) {
				defer wg.Done()
				p.present(runCtx, fileURL, result)
			}(s.FileURL(), s.Result)
		}
	}
}

func (p *Presenter) present(ctx context.Context, fileURL string, result *domain.AnalysisResult) {
	if err := p.syncer.Present(ctx, fileURL, result); err != nil {
		if ctx.Err() != nil {
			p.logger.Debug("presentation abandoned", "file_url", fileURL)
			return
		}
		p.logger.Warn("presenting result failed", "file_url", fileURL, "error", err)
		return
	}
	p.logger.Info("result presented", "file_url", fileURL, "initiatives", len(result.Initiatives))
}
