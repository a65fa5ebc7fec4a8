package core

import (
	"context"
	"io"
)

// FileStore stores uploaded files (logos, profile pictures) and resolves
// stored paths to fetchable URLs. Implementations live in services/storage.
type FileStore interface {
	// Upload stores the content under bucket/path and returns the stored path.
	Upload(ctx context.Context, bucket, path string, r io.Reader) (string, error)
	// PublicURL resolves a stored path to a URL the frontend can fetch.
	PublicURL(bucket, path string) string
}

// Buckets
const (
	BucketLogos    = "logos"
	BucketProfiles = "profiles"
)
