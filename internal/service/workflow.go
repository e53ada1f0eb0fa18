package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"greenlens/internal/domain"
	"greenlens/internal/port"
)

// UploadingStep is shown while the upload call is in flight. The backend may
// be cold-starting, which adds tens of seconds to the first request.
const UploadingStep = "Uploading PDF (can take an extra 50s if the server was inactive)"

// Observer receives a snapshot after every state transition. It is called
// with the workflow lock held and must not call back into the workflow.
type Observer func(domain.WorkflowState)

// WorkflowService defines the upload workflow contract.
type WorkflowService interface {
	StartUpload(ctx context.Context, file domain.CandidateFile) error
	Reset()
	Close()
	State() domain.WorkflowState
	Observe(fn Observer) (cancel func())
}

var _ WorkflowService = (*Workflow)(nil)

// Workflow is the upload/analysis state machine. It owns the single
// WorkflowState record and at most one ticket/stream pair at a time.
type Workflow struct {
	gate     port.Gate
	uploader port.Uploader
	opener   port.StreamOpener
	logger   *slog.Logger

	// streams outlive the StartUpload call that opened them
	baseCtx context.Context
	stop    context.CancelFunc

	mu           sync.Mutex
	state        domain.WorkflowState
	gen          uint64
	stream       port.ProgressStream
	cancelUpload context.CancelFunc
	closed       bool
	observers    []Observer

	pumps sync.WaitGroup
}

// NewWorkflow creates an idle workflow.
func NewWorkflow(gate port.Gate, uploader port.Uploader, opener port.StreamOpener, logger *slog.Logger) *Workflow {
	ctx, cancel := context.WithCancel(context.Background())
	return &Workflow{
		gate:     gate,
		uploader: uploader,
		opener:   opener,
		logger:   logger,
		baseCtx:  ctx,
		stop:     cancel,
		state:    domain.WorkflowState{Phase: domain.PhaseIdle},
	}
}

// State returns a snapshot of the current state.
func (w *Workflow) State() domain.WorkflowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Observe registers fn and immediately calls it with the current state.
// The returned func unregisters it.
func (w *Workflow) Observe(fn Observer) (cancel func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.observers = append(w.observers, fn)
	idx := len(w.observers) - 1
	fn(w.state)

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if idx < len(w.observers) {
			w.observers[idx] = nil
		}
	}
}

// StartUpload validates file, uploads it and, on success, opens the progress
// stream for the returned ticket. It blocks for the duration of the upload
// only; stream events are applied in the background.
func (w *Workflow) StartUpload(ctx context.Context, file domain.CandidateFile) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return domain.ErrWorkflowClosed
	}
	w.teardownLocked()

	if err := w.gate.Validate(file); err != nil {
		w.state.Error = err.Error()
		w.notifyLocked()
		w.mu.Unlock()
		w.logger.Info("file rejected", "name", file.Name, "reason", err)
		return err
	}

	uploadCtx, cancel := context.WithCancel(ctx)
	w.cancelUpload = cancel
	gen := w.gen
	w.state = domain.WorkflowState{
		Phase:           domain.PhaseUploading,
		CurrentStep:     UploadingStep,
		ProgressPercent: 0,
	}
	w.notifyLocked()
	w.mu.Unlock()

	w.logger.Info("uploading document", "name", file.Name, "size", file.Size)
	ticket, err := w.uploader.Upload(uploadCtx, file)
	cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.gen {
		return domain.ErrSuperseded
	}
	w.cancelUpload = nil

	if err == nil && !ticket.Valid() {
		err = domain.NewUploadError(0, "upload response is missing file_key or file_url", nil)
	}
	if err != nil {
		w.failLocked(err.Error())
		w.logger.Warn("upload failed", "error", err)
		return err
	}

	w.state = domain.WorkflowState{
		Phase:  domain.PhaseAwaitingStream,
		Ticket: ticket,
	}
	w.notifyLocked()

	return w.openStreamLocked(ticket)
}

// openStreamLocked performs the awaiting_stream entry transition: exactly one
// stream bound to the current ticket.
func (w *Workflow) openStreamLocked(ticket *domain.UploadTicket) error {
	stream, err := w.opener.Open(w.baseCtx, ticket.Identifier)
	if err != nil {
		err = domain.InterruptedError(err)
		w.failLocked(err.Error())
		w.logger.Warn("opening progress stream failed", "file_key", ticket.Identifier, "error", err)
		return fmt.Errorf("opening progress stream: %w", err)
	}

	w.stream = stream
	w.pumps.Add(1)
	go w.pump(w.gen, stream)

	w.logger.Info("progress stream opened", "file_key", ticket.Identifier)
	return nil
}

// pump applies events from one stream in arrival order until the stream
// ends or is superseded.
func (w *Workflow) pump(gen uint64, stream port.ProgressStream) {
	defer w.pumps.Done()

	for ev := range stream.Events() {
		if !w.apply(gen, stream, ev) {
			stream.Close()
			return
		}
	}
	w.streamEnded(gen, stream, stream.Err())
}

// apply reports whether the pump should keep reading.
func (w *Workflow) apply(gen uint64, stream port.ProgressStream, ev domain.ProgressEvent) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.gen || w.stream != stream {
		return false
	}
	if w.state.Phase != domain.PhaseAwaitingStream {
		return false
	}

	if ev.Kind == domain.EventKindProgress {
		w.state.CurrentStep = ev.Step
		w.state.ProgressPercent = ev.Percent
	}

	switch {
	case ev.Kind == domain.EventKindError:
		msg := ev.Message
		if msg == "" {
			msg = domain.ErrStreamError.Error()
		}
		w.logger.Warn("analysis failed", "error", msg)
		w.failLocked(msg)
		return false
	case ev.Result != nil:
		w.closeStreamLocked()
		w.state.Result = ev.Result
		w.state.Phase = domain.PhaseShowingResult
		w.logger.Info("analysis complete", "initiatives", len(ev.Result.Initiatives))
		w.notifyLocked()
		return false
	}

	w.notifyLocked()
	return true
}

func (w *Workflow) streamEnded(gen uint64, stream port.ProgressStream, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.gen || w.stream != stream || w.state.Phase != domain.PhaseAwaitingStream {
		return
	}
	if err == nil || !errors.Is(err, domain.ErrStreamInterrupted) {
		err = domain.InterruptedError(err)
	}
	w.logger.Warn("progress stream ended without a result", "error", err)
	w.failLocked(err.Error())
}

// Reset acknowledges an error or starts over: every transient field is
// cleared and the workflow returns to idle.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.teardownLocked()
	w.notifyLocked()
}

// Close tears the workflow down for good and waits for stream pumps to exit.
func (w *Workflow) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.teardownLocked()
	w.notifyLocked()
	w.mu.Unlock()

	w.stop()
	w.pumps.Wait()
}

// failLocked closes the stream and returns to idle with msg as the error.
func (w *Workflow) failLocked(msg string) {
	w.closeStreamLocked()
	w.state = domain.WorkflowState{Phase: domain.PhaseIdle, Error: msg}
	w.notifyLocked()
}

// teardownLocked closes the stream, cancels any upload in flight and clears
// all state. Late upload results and stream events are discarded by the
// generation bump.
func (w *Workflow) teardownLocked() {
	w.gen++
	w.closeStreamLocked()
	if w.cancelUpload != nil {
		w.cancelUpload()
		w.cancelUpload = nil
	}
	w.state = domain.WorkflowState{Phase: domain.PhaseIdle}
}

func (w *Workflow) closeStreamLocked() {
	if w.stream == nil {
		return
	}
	w.stream.Close()
	w.stream = nil
}

func (w *Workflow) notifyLocked() {
	snapshot := w.state
	for _, fn := range w.observers {
		if fn != nil {
			fn(snapshot)
		}
	}
}
