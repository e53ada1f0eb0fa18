package port

import "context"

// ObjectStorage abstracts access to the bucket holding analysed documents.
type ObjectStorage interface {
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	GetPresignedURL(ctx context.Context, bucket, key string, expirySeconds int64) (string, error)
}

// DocumentSource fetches the bytes of a document addressed by its location URL.
type DocumentSource interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// URLResolver turns a ticket location into a URL a document viewer can load.
type URLResolver interface {
	Resolve(ctx context.Context, url string) (string, error)
}
