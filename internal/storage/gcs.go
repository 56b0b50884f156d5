// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsPublicHost = "https://storage.googleapis.com"

// GCS stores objects in a Google Cloud Storage bucket. The bucket is
// expected to grant public read through IAM.
type GCS struct {
	client    *storage.Client
	bucket    string
	publicURL string
}

// NewGCS creates a GCS driver. An empty credentialsJSON uses Application
// Default Credentials.
func NewGCS(ctx context.Context, bucket, credentialsJSON, publicURL string, opts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs: bucket is required")
	}
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}

	publicURL = strings.TrimRight(publicURL, "/")
	if publicURL == "" {
		publicURL = gcsPublicHost + "/" + bucket
	}
	return &GCS{client: client, bucket: bucket, publicURL: publicURL}, nil
}

// Upload streams body into the bucket in a single request.
func (g *GCS) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	wc := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "public, max-age=31536000, immutable"
	wc.ChunkSize = 0
	if _, err := io.Copy(wc, body); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("gcs upload %s: %w", key, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("gcs upload %s: %w", key, err)
	}
	return g.URL(key), nil
}

// Delete removes an object, ignoring keys that no longer exist.
func (g *GCS) Delete(ctx context.Context, key string) error {
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete %s: %w", key, err)
	}
	return nil
}

// URL returns the public URL for key.
func (g *GCS) URL(key string) string {
	return g.publicURL + "/" + key
}

func (g *GCS) Close() error {
	return g.client.Close()
}
