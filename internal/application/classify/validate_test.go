package classify

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipbench/ipsignal/internal/domain/citation"
	"github.com/ipbench/ipsignal/internal/infrastructure/cache"
	"github.com/ipbench/ipsignal/internal/infrastructure/monitoring/logging"
)

func TestValidateAgainstGroundTruth(t *testing.T) {
	store, err := cache.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	put := func(id string, competitor int) {
		require.NoError(t, store.Put(ctx, cache.KindClassifications, id, citation.Classification{
			PatentID:              id,
			HasCitationData:       true,
			TotalForwardCitations: competitor,
			CompetitorCitations:   competitor,
		}))
	}
	put("10000001", 2)
	put("10000002", 5)

	truthPath := filepath.Join(t.TempDir(), "ground-truth.json")
	require.NoError(t, os.WriteFile(truthPath, []byte(`{
		"classifications": {
			"10000001": {"competitor_citations": 2},
			"10000002": {"competitor_citations": 4},
			"10000003": {"competitor_citations": 1}
		}
	}`), 0o644))

	report, err := Validate(ctx, store, truthPath, logging.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Compared)
	assert.Equal(t, 1, report.Matches)
	assert.Equal(t, 1, report.Mismatches)
	assert.Equal(t, 1, report.MissingRecords)
	require.Len(t, report.Examples, 1)
	assert.Equal(t, Discrepancy{PatentID: "10000002", Got: 5, Want: 4}, report.Examples[0])
}

func TestValidateMissingGroundTruthIsNotFatal(t *testing.T) {
	store, err := cache.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	report, err := Validate(ctx, store, filepath.Join(t.TempDir(), "absent.json"), logging.NewNopLogger())
	require.NoError(t, err)
	assert.Zero(t, report.Compared)

	report, err = Validate(ctx, store, "", logging.NewNopLogger())
	require.NoError(t, err)
	assert.Zero(t, report.Compared)
}

func TestValidateRejectsMalformedGroundTruth(t *testing.T) {
	store, err := cache.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{nope`), 0o644))

	_, err = Validate(context.Background(), store, bad, logging.NewNopLogger())
	assert.Error(t, err)
}
