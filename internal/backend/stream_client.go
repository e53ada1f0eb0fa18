package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"greenlens/internal/config"
	"greenlens/internal/domain"
	"greenlens/internal/port"
)

const defaultMaxEventBytes = 16 * 1024 * 1024

// StreamClient implements port.StreamOpener over the backend's
// text/event-stream progress endpoint.
type StreamClient struct {
	urlFor        func(identifier string) string
	client        *http.Client
	maxEventBytes int
	logger        *slog.Logger
}

var _ port.StreamOpener = (*StreamClient)(nil)

// NewStreamClient creates a stream opener from the backend config.
func NewStreamClient(cfg *config.BackendConfig, logger *slog.Logger) *StreamClient {
	return &StreamClient{
		urlFor:        cfg.ProcessURL,
		client:        &http.Client{},
		maxEventBytes: cfg.MaxEventBytes,
		logger:        logger,
	}
}

// NewStreamClientWithEndpoint creates a client whose streams live under
// processURL (for testing).
func NewStreamClientWithEndpoint(processURL string, logger *slog.Logger) *StreamClient {
	base := strings.TrimRight(processURL, "/")
	return &StreamClient{
		urlFor:        func(id string) string { return base + "/" + id },
		client:        &http.Client{},
		maxEventBytes: defaultMaxEventBytes,
		logger:        logger,
	}
}

// Open starts a progress stream for identifier. The connection is made in
// the background; connection failures surface through Err once Events closes.
func (c *StreamClient) Open(ctx context.Context, identifier string) (port.ProgressStream, error) {
	if identifier == "" {
		return nil, fmt.Errorf("opening progress stream: empty identifier")
	}

	streamCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, c.urlFor(identifier), http.NoBody)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Request-ID", uuid.New().String())

	maxBytes := c.maxEventBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxEventBytes
	}
	s := &stream{
		events: make(chan domain.ProgressEvent, 16),
		cancel: cancel,
		logger: c.logger.With("file_key", identifier),
	}
	go s.run(streamCtx, c.client, req, maxBytes)
	return s, nil
}

type stream struct {
	events chan domain.ProgressEvent
	cancel context.CancelFunc
	logger *slog.Logger

	mu     sync.Mutex
	err    error
	closed bool
}

func (s *stream) Events() <-chan domain.ProgressEvent {
	return s.events
}

func (s *stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the stream. It is idempotent; no events are delivered after it returns.
func (s *stream) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

func (s *stream) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.err = nil
		return
	}
	s.err = err
}

func (s *stream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *stream) run(ctx context.Context, client *http.Client, req *http.Request, maxBytes int) {
	defer close(s.events)
	defer s.cancel()

	resp, err := client.Do(req)
	if err != nil {
		s.finish(domain.InterruptedError(err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		s.finish(domain.InterruptedError(fmt.Errorf("stream endpoint returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))))
		return
	}

	r := newSSEReader(resp.Body, maxBytes)
	for {
		raw, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			s.finish(domain.InterruptedError(err))
			return
		}
		if raw.Name != "" && raw.Name != "message" {
			s.logger.Debug("ignoring named event", "event", raw.Name)
			continue
		}

		ev, ok := decodeEvent(raw.Data, s.logger)
		if !ok {
			continue
		}

		select {
		case s.events <- ev:
		case <-ctx.Done():
			s.finish(domain.InterruptedError(ctx.Err()))
			return
		}
		if ev.Terminal() {
			s.finish(nil)
			return
		}
		if s.isClosed() {
			s.finish(nil)
			return
		}
	}
}

type wireMessage struct {
	Type     string          `json:"type"`
	Step     string          `json:"step"`
	Progress float64         `json:"progress"`
	Error    string          `json:"error"`
	Message  string          `json:"message"`
	Response json.RawMessage `json:"response"`
}

// decodeEvent turns one data payload into a ProgressEvent. Malformed or
// unrecognised payloads are logged and dropped.
func decodeEvent(data string, logger *slog.Logger) (domain.ProgressEvent, bool) {
	var msg wireMessage
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		logger.Warn("dropping malformed stream message", "error", err)
		return domain.ProgressEvent{}, false
	}

	ev := domain.ProgressEvent{Step: msg.Step, Percent: msg.Progress, Message: msg.Message}
	switch domain.EventKind(msg.Type) {
	case domain.EventKindProgress:
		ev.Kind = domain.EventKindProgress
	case domain.EventKindError:
		ev.Kind = domain.EventKindError
		ev.Message = msg.Error
		if ev.Message == "" {
			ev.Message = msg.Message
		}
	}

	if len(msg.Response) > 0 && string(msg.Response) != "null" {
		var result domain.AnalysisResult
		if err := json.Unmarshal(msg.Response, &result); err != nil {
			logger.Warn("dropping undecodable analysis result", "error", err)
		} else {
			ev.Result = &result
		}
	}

	if ev.Kind == "" && ev.Result == nil {
		logger.Warn("dropping unrecognised stream message", "type", msg.Type)
		return domain.ProgressEvent{}, false
	}
	return ev, true
}
