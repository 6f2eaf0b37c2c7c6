// Package storage selects and drives a region's upload backend.
// Grounded on original_source/terradev_cli/core/dataset_stager.py's
// _upload_chunk region-prefix dispatch.
package storage

import (
	"context"
	"io"
	"strings"
)

// Backend uploads one object into a region-scoped namespace.
type Backend interface {
	Name() string
	Upload(ctx context.Context, region, key string, r io.Reader) error
}

// Select picks the backend for region by prefix, in the order S3-like,
// then GCS-like, then Azure-like, then SCP (if configured), then the
// always-available local fallback. The first matching prefix wins —
// "us-central-1" matches the S3-like "us-" prefix before the GCS-like
// "us-central" check is ever reached, exactly mirroring the Python
// original's region.startswith ladder.
func Select(region string, s3b, gcsb, azb, scpb Backend, local Backend) Backend {
	switch {
	case hasAnyPrefix(region, "us-", "eu-", "ap-") && s3b != nil:
		return s3b
	case hasAnyPrefix(region, "us-central", "europe-", "asia-") && gcsb != nil:
		return gcsb
	case hasAnyPrefix(region, "east", "west", "north", "south") && azb != nil:
		return azb
	case scpb != nil:
		return scpb
	default:
		return local
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
