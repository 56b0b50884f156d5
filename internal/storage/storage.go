// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

// Package storage provides the object storage drivers that hold article
// images: an S3-compatible driver and a Google Cloud Storage driver.
package storage

import (
	"context"
	"io"

	"fastodigama/internal/config"
)

// Bucket is a single public bucket addressed by object key.
type Bucket interface {
	// Upload stores body under key and returns its public URL.
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// URL returns the public URL for key.
	URL(key string) string
	Close() error
}

// Open builds the driver selected by cfg.StorageDriver. It returns
// (nil, nil) when the driver's settings are incomplete so the admin can
// run without image uploads.
func Open(ctx context.Context, cfg *config.Config) (Bucket, error) {
	if !cfg.StorageConfigured() {
		return nil, nil
	}
	if cfg.StorageDriver == "gcs" {
		g, err := NewGCS(ctx, cfg.GCSBucket, cfg.GCSCredentialsJSON, cfg.GCSPublicURL)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	s, err := NewS3(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
	if err != nil {
		return nil, err
	}
	return s, nil
}
