package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"greenlens/internal/config"
	"greenlens/internal/logging"
	"greenlens/mocks"
)

func bucketConfig() config.S3Config {
	return config.S3Config{
		Bucket:         "reports",
		PublicEndpoint: "https://pub.example.r2.dev",
		PresignExpiry:  600,
	}
}

func TestDocumentSource_Resolve_BucketLocation(t *testing.T) {
	store := new(mocks.MockObjectStorage)
	store.On("GetPresignedURL", mock.Anything, "reports", "abc.pdf", int64(600)).
		Return("https://signed.example/abc.pdf?sig=1", nil)

	src := NewDocumentSource(store, bucketConfig(), nil, logging.Discard())
	got, err := src.Resolve(context.Background(), "https://pub.example.r2.dev/abc.pdf")

	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/abc.pdf?sig=1", got)
	store.AssertExpectations(t)
}

func TestDocumentSource_Resolve_ForeignURLUnchanged(t *testing.T) {
	store := new(mocks.MockObjectStorage)
	src := NewDocumentSource(store, bucketConfig(), nil, logging.Discard())

	got, err := src.Resolve(context.Background(), "https://elsewhere.example/x.pdf")

	require.NoError(t, err)
	assert.Equal(t, "https://elsewhere.example/x.pdf", got)
	store.AssertNotCalled(t, "GetPresignedURL", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentSource_Resolve_PresignError(t *testing.T) {
	store := new(mocks.MockObjectStorage)
	store.On("GetPresignedURL", mock.Anything, "reports", "abc.pdf", int64(600)).
		Return("", errors.New("no credentials"))

	src := NewDocumentSource(store, bucketConfig(), nil, logging.Discard())
	_, err := src.Resolve(context.Background(), "https://pub.example.r2.dev/abc.pdf")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credentials")
}

func TestDocumentSource_Fetch_FromBucket(t *testing.T) {
	store := new(mocks.MockObjectStorage)
	store.On("Download", mock.Anything, "reports", "abc.pdf").Return([]byte("%PDF-1.7"), nil)

	src := NewDocumentSource(store, bucketConfig(), nil, logging.Discard())
	data, err := src.Fetch(context.Background(), "https://pub.example.r2.dev/abc.pdf?x=1")

	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), data)
	store.AssertExpectations(t)
}

func TestDocumentSource_Fetch_HTTPFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/docs/report.pdf", r.URL.Path)
		_, _ = w.Write([]byte("%PDF-1.4 body"))
	}))
	defer srv.Close()

	src := NewDocumentSource(nil, config.S3Config{}, srv.Client(), logging.Discard())
	data, err := src.Fetch(context.Background(), srv.URL+"/docs/report.pdf")

	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(data))
}

func TestDocumentSource_Fetch_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	src := NewDocumentSource(nil, config.S3Config{}, srv.Client(), logging.Discard())
	_, err := src.Fetch(context.Background(), srv.URL+"/missing.pdf")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
