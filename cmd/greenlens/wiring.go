package main

import (
	"fmt"
	"net/http"

	"greenlens/internal/backend"
	"greenlens/internal/config"
	"greenlens/internal/logging"
	"greenlens/internal/port"
	"greenlens/internal/service"
	"greenlens/internal/storage"
	s3storage "greenlens/internal/storage/s3"
	"greenlens/internal/validator"
)

// newDocumentSource returns the source used to fetch and resolve analysed
// documents. The bucket client is only created when one is configured.
func newDocumentSource(cfg *config.Config) (*storage.DocumentSource, error) {
	var store port.ObjectStorage
	if cfg.S3.Enabled() {
		s3Client, err := s3storage.NewS3Client(&cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		store = s3Client
	}
	return storage.NewDocumentSource(store, cfg.S3, &http.Client{}, logging.New("storage")), nil
}

// newWorkflow wires the gate, transfer client and stream consumer into a workflow.
func newWorkflow(cfg *config.Config) *service.Workflow {
	gate := validator.NewUploadGate(cfg.Upload.MaxBytes())
	uploader := backend.NewTransferClient(&cfg.Backend, logging.New("transfer"))
	opener := backend.NewStreamClient(&cfg.Backend, logging.New("stream"))
	return service.NewWorkflow(gate, uploader, opener, logging.New("workflow"))
}
