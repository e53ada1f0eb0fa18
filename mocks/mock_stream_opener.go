package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"greenlens/internal/domain"
	"greenlens/internal/port"
)

// MockStreamOpener is a mock implementation of port.StreamOpener.
type MockStreamOpener struct {
	mock.Mock
}

func (m *MockStreamOpener) Open(ctx context.Context, identifier string) (port.ProgressStream, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(port.ProgressStream), args.Error(1)
}

// FakeStream is a hand-driven port.ProgressStream. Tests push events with
// Send and end the stream with Finish. Like the real stream, Events is
// closed once the owner calls Close.
type FakeStream struct {
	in     chan domain.ProgressEvent
	events chan domain.ProgressEvent
	done   chan struct{}
	fin    chan struct{}

	mu       sync.Mutex
	err      error
	closed   bool
	finished bool
}

// NewFakeStream creates an open FakeStream.
func NewFakeStream() *FakeStream {
	s := &FakeStream{
		in:     make(chan domain.ProgressEvent),
		events: make(chan domain.ProgressEvent),
		done:   make(chan struct{}),
		fin:    make(chan struct{}),
	}
	go s.forward()
	return s
}

func (s *FakeStream) forward() {
	defer close(s.events)
	for {
		select {
		case ev := <-s.in:
			select {
			case s.events <- ev:
			case <-s.done:
				return
			}
		case <-s.done:
			return
		case <-s.fin:
			return
		}
	}
}

func (s *FakeStream) Events() <-chan domain.ProgressEvent {
	return s.events
}

func (s *FakeStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close marks the stream closed by its owner.
func (s *FakeStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

// Closed reports whether the owner closed the stream.
func (s *FakeStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Send hands ev to the stream. It returns false if the stream was already
// closed by its owner.
func (s *FakeStream) Send(ev domain.ProgressEvent) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.in <- ev:
		return true
	case <-s.done:
		return false
	}
}

// Finish ends the stream with err (nil for a clean end of stream) once every
// event already sent has been delivered.
func (s *FakeStream) Finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.finished = true
	s.err = err
	close(s.fin)
}
