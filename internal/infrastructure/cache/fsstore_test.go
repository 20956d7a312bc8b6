package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ipbench/ipsignal/pkg/errors"
)

type sampleRecord struct {
	PatentID string    `json:"patent_id"`
	Count    int       `json:"count"`
	At       time.Time `json:"at"`
}

func newTestStore(t *testing.T) (Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewFilesystemStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestFilesystemStoreRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	at := time.Date(2026, 1, 21, 8, 0, 0, 0, time.UTC)
	in := sampleRecord{PatentID: "10000001", Count: 42, At: at}
	require.NoError(t, store.Put(ctx, KindClassifications, "10000001", in))

	var out sampleRecord
	require.NoError(t, store.Get(ctx, KindClassifications, "10000001", &out))
	assert.Equal(t, in, out)

	ok, err := store.Exists(ctx, KindClassifications, "10000001")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFilesystemStoreNotFound(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var out sampleRecord
	err := store.Get(ctx, KindCitations, "nope", &out)
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := store.Exists(ctx, KindCitations, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting a missing record is not an error.
	assert.NoError(t, store.Delete(ctx, KindCitations, "nope"))
}

func TestFilesystemStoreKeysSorted(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"9000000", "10000002", "10000001"} {
		require.NoError(t, store.Put(ctx, KindCitations, id, sampleRecord{PatentID: id}))
	}

	keys, err := store.Keys(ctx, KindCitations)
	require.NoError(t, err)
	assert.Equal(t, []string{"10000001", "10000002", "9000000"}, keys)

	// A kind never written to lists as empty, not as an error.
	keys, err = store.Keys(ctx, KindSectors)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFilesystemStoreRePutIsByteIdentical(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	rec := sampleRecord{PatentID: "10000001", Count: 7, At: time.Date(2026, 1, 21, 8, 0, 0, 0, time.UTC)}
	require.NoError(t, store.Put(ctx, KindClassifications, "10000001", rec))
	path := filepath.Join(dir, KindClassifications, "10000001.json")
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, KindClassifications, "10000001", rec))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFilesystemStoreCorruptRecord(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	kindDir := filepath.Join(dir, KindClassifications)
	require.NoError(t, os.MkdirAll(kindDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(kindDir, "bad.json"), []byte("{truncated"), 0o644))

	var out sampleRecord
	err := store.Get(ctx, KindClassifications, "bad", &out)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStoreCorrupt))
}

func TestFilesystemStoreSanitizesKeys(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, KindRuns, "a/b:c", sampleRecord{PatentID: "x"}))

	// The record lands inside the kind directory, not somewhere traversed to.
	_, err := os.Stat(filepath.Join(dir, KindRuns, "a_b_c.json"))
	assert.NoError(t, err)

	var out sampleRecord
	require.NoError(t, store.Get(ctx, KindRuns, "a/b:c", &out))
	assert.Equal(t, "x", out.PatentID)
}
