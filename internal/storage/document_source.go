package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"greenlens/internal/config"
	"greenlens/internal/port"
)

// DocumentSource resolves and fetches analysed documents. Locations under the
// configured public bucket endpoint go through ObjectStorage; everything else
// is treated as a plain HTTP URL.
type DocumentSource struct {
	store      port.ObjectStorage
	cfg        config.S3Config
	httpClient *http.Client
	logger     *slog.Logger
}

var (
	_ port.DocumentSource = (*DocumentSource)(nil)
	_ port.URLResolver    = (*DocumentSource)(nil)
)

// NewDocumentSource creates a DocumentSource. store may be nil when no bucket
// is configured.
func NewDocumentSource(store port.ObjectStorage, cfg config.S3Config, httpClient *http.Client, logger *slog.Logger) *DocumentSource {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &DocumentSource{store: store, cfg: cfg, httpClient: httpClient, logger: logger}
}

// objectKey returns the bucket key for url, or "" if url is not a bucket location.
func (s *DocumentSource) objectKey(url string) string {
	if s.store == nil || !s.cfg.Enabled() {
		return ""
	}
	prefix := strings.TrimRight(s.cfg.PublicEndpoint, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	key := strings.TrimPrefix(url, prefix)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	return key
}

// Resolve returns a presigned URL for bucket locations and url unchanged otherwise.
func (s *DocumentSource) Resolve(ctx context.Context, url string) (string, error) {
	key := s.objectKey(url)
	if key == "" {
		return url, nil
	}
	signed, err := s.store.GetPresignedURL(ctx, s.cfg.Bucket, key, s.cfg.PresignExpiry)
	if err != nil {
		return "", fmt.Errorf("presigning %s: %w", key, err)
	}
	s.logger.Debug("resolved document location", "key", key)
	return signed, nil
}

// Fetch returns the document bytes addressed by url.
func (s *DocumentSource) Fetch(ctx context.Context, url string) ([]byte, error) {
	if key := s.objectKey(url); key != "" {
		data, err := s.store.Download(ctx, s.cfg.Bucket, key)
		if err != nil {
			return nil, fmt.Errorf("downloading %s: %w", key, err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating document request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching document: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching document: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading document body: %w", err)
	}
	return data, nil
}
