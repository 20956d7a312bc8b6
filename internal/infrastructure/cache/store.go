// Package cache provides the key-value record store behind the pipeline's
// resumability contract.  Every per-patent artifact (fetched citations,
// classification results, enrichment scores, sector assignments) is one JSON
// record under a record kind, and "does a record exist for this ID" is the
// only question the batch jobs ask before redoing work.
//
// Two backends exist: a filesystem store (one file per record, matching the
// original cache layout) and a Redis store for operators who want the cache
// off the local disk.  Both serialize records as JSON.
package cache

import (
	"context"

	"github.com/ipbench/ipsignal/pkg/errors"
)

// Record kinds.  A kind maps to a subdirectory (filesystem) or key prefix
// (redis); records within a kind are keyed by patent ID except for the runs
// kind, which is keyed by run ID plus the manifest key.
const (
	KindCitations          = "citations"
	KindClassifications    = "classifications"
	KindLLMScores          = "llm-scores"
	KindIPRScores          = "ipr-scores"
	KindProsecutionScores  = "prosecution-scores"
	KindSectors            = "sectors"
	KindRuns               = "runs"
)

// ManifestKey is the well-known key in the runs kind whose record points at
// the most recent successful run.  It replaces the fragile
// latest-file-by-filename-sort convention: readers resolve "latest" through
// the manifest, never by directory order.
const ManifestKey = "manifest"

// ErrNotFound is returned by Get when no record exists for the key.
var ErrNotFound = errors.New(errors.ErrCodeNotFound, "cache record not found")

// Store is the record store contract.  Implementations must make Put
// effectively atomic per record: concurrent writers racing on the same key
// are tolerated because record content is a deterministic function of
// immutable upstream inputs, so last-write-wins converges.
type Store interface {
	// Get unmarshals the record for kind/key into dest.  Returns ErrNotFound
	// when the record does not exist and a STORE_* error when it exists but
	// cannot be read or decoded.
	Get(ctx context.Context, kind, key string, dest interface{}) error

	// Put marshals value and writes it as the record for kind/key,
	// overwriting any existing record.
	Put(ctx context.Context, kind, key string, value interface{}) error

	// Exists reports whether a record exists for kind/key.
	Exists(ctx context.Context, kind, key string) (bool, error)

	// Keys returns all record keys for the kind, sorted, for coverage
	// statistics and validation sweeps.
	Keys(ctx context.Context, kind string) ([]string, error)

	// Delete removes the record for kind/key.  Deleting a missing record is
	// not an error.
	Delete(ctx context.Context, kind, key string) error
}

// Manifest is the record stored under KindRuns/ManifestKey.
type Manifest struct {
	LatestRunID string `json:"latest_run_id"`
}
