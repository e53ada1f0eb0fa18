package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"greenlens/internal/config"
	"greenlens/internal/domain"
	"greenlens/internal/port"
)

// FileField is the multipart field the backend reads the document from.
const FileField = "file"

// maxErrorBody bounds how much of a failed response is read for its detail.
const maxErrorBody = 64 * 1024

// TransferClient implements port.Uploader against the backend upload endpoint.
type TransferClient struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

var _ port.Uploader = (*TransferClient)(nil)

// NewTransferClient creates an upload client from the backend config.
func NewTransferClient(cfg *config.BackendConfig, logger *slog.Logger) *TransferClient {
	return NewTransferClientWithEndpoint(cfg.UploadURL(), cfg.UploadTimeout, logger)
}

// NewTransferClientWithEndpoint creates a client pointing at a custom endpoint (for testing).
func NewTransferClientWithEndpoint(endpoint string, timeout time.Duration, logger *slog.Logger) *TransferClient {
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	return &TransferClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type uploadResponse struct {
	Message          string `json:"message"`
	FileKey          string `json:"file_key"`
	FileURL          string `json:"file_url"`
	OriginalFilename string `json:"original_filename"`
	FileSize         int64  `json:"file_size"`
}

type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// Upload streams file as multipart/form-data and returns the ticket the
// backend assigned to it. Every failure is reported as *domain.UploadError.
func (c *TransferClient) Upload(ctx context.Context, file domain.CandidateFile) (*domain.UploadTicket, error) {
	if file.Body == nil {
		return nil, domain.NewUploadError(0, "upload failed: empty file body", nil)
	}

	body, err := newUploadBody(file)
	if err != nil {
		return nil, domain.NewUploadError(0, fmt.Sprintf("preparing upload body: %v", err), err)
	}
	defer body.close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, http.NoBody)
	if err != nil {
		return nil, domain.NewUploadError(0, fmt.Sprintf("creating upload request: %v", err), err)
	}
	if err := body.attach(req); err != nil {
		return nil, domain.NewUploadError(0, fmt.Sprintf("preparing upload body: %v", err), err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.NewUploadError(0, err.Error(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := errorDetail(raw)
		if msg == "" {
			msg = fmt.Sprintf("upload failed with status %d", resp.StatusCode)
		}
		c.logger.Warn("upload rejected by backend", "status", resp.StatusCode, "detail", msg)
		return nil, domain.NewUploadError(resp.StatusCode, msg, nil)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, domain.NewUploadError(resp.StatusCode, fmt.Sprintf("decoding upload response: %v", err), err)
	}
	ticket := &domain.UploadTicket{
		Identifier:   out.FileKey,
		LocationURL:  out.FileURL,
		OriginalName: out.OriginalFilename,
		Size:         out.FileSize,
	}
	if !ticket.Valid() {
		return nil, domain.NewUploadError(resp.StatusCode, "upload response is missing file_key or file_url", nil)
	}

	c.logger.Info("upload accepted",
		"file_key", ticket.Identifier,
		"name", file.Name,
		"size", file.Size,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return ticket, nil
}

// uploadBody produces the multipart request body. The backend answers a
// missing trailing slash with a 307, so the body must be replayable: seekable
// files are re-streamed from their starting offset, anything else is buffered.
type uploadBody struct {
	file     domain.CandidateFile
	boundary string

	seeker io.Seeker
	offset int64
	buf    []byte

	mu   sync.Mutex
	pr   *io.PipeReader
	done chan struct{}
}

var errBodyReplaced = errors.New("upload body replaced")

func newUploadBody(file domain.CandidateFile) (*uploadBody, error) {
	b := &uploadBody{
		file:     file,
		boundary: multipart.NewWriter(io.Discard).Boundary(),
	}

	if seeker, ok := file.Body.(io.Seeker); ok {
		offset, err := seeker.Seek(0, io.SeekCurrent)
		if err == nil {
			b.seeker, b.offset = seeker, offset
			return b, nil
		}
	}

	var buf bytes.Buffer
	if err := writeFilePart(b.writer(&buf), file); err != nil {
		return nil, err
	}
	b.buf = buf.Bytes()
	return b, nil
}

func (b *uploadBody) writer(w io.Writer) *multipart.Writer {
	mw := multipart.NewWriter(w)
	_ = mw.SetBoundary(b.boundary)
	return mw
}

// attach sets the body, GetBody and Content-Type of req.
func (b *uploadBody) attach(req *http.Request) error {
	req.Header.Set("Content-Type", b.writer(io.Discard).FormDataContentType())

	if b.buf != nil {
		req.Body = io.NopCloser(bytes.NewReader(b.buf))
		req.ContentLength = int64(len(b.buf))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b.buf)), nil
		}
		return nil
	}

	body, err := b.open()
	if err != nil {
		return err
	}
	req.Body = body
	req.ContentLength = -1
	req.GetBody = b.open
	return nil
}

// open rewinds the file and streams a fresh copy of the part. A previous
// stream is stopped first so the file is never read by two writers.
func (b *uploadBody) open() (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopLocked()
	if _, err := b.seeker.Seek(b.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding file: %w", err)
	}

	pr, pw := io.Pipe()
	mw := b.writer(pw)
	done := make(chan struct{})
	go func() {
		defer close(done)
		pw.CloseWithError(writeFilePart(mw, b.file))
	}()
	b.pr, b.done = pr, done
	return pr, nil
}

func (b *uploadBody) stopLocked() {
	if b.pr == nil {
		return
	}
	_ = b.pr.CloseWithError(errBodyReplaced)
	<-b.done
	b.pr, b.done = nil, nil
}

func (b *uploadBody) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
}

func writeFilePart(mw *multipart.Writer, file domain.CandidateFile) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		FileField, escapeQuotes(file.Name)))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("creating form part: %w", err)
	}
	if _, err := io.Copy(part, file.Body); err != nil {
		return fmt.Errorf("copying file body: %w", err)
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// errorDetail extracts the backend's {"detail": ...} message. FastAPI-style
// validation errors carry a list; those are returned as raw JSON.
func errorDetail(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil || len(er.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(er.Detail, &s); err == nil {
		return s
	}
	if string(er.Detail) == "null" {
		return ""
	}
	return string(er.Detail)
}
