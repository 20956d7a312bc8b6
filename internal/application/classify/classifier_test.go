package classify

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipbench/ipsignal/internal/domain/citation"
	"github.com/ipbench/ipsignal/internal/domain/patent"
	"github.com/ipbench/ipsignal/internal/domain/taxonomy"
	"github.com/ipbench/ipsignal/internal/infrastructure/cache"
	"github.com/ipbench/ipsignal/internal/infrastructure/monitoring/logging"
)

func testMatcher(t *testing.T) *taxonomy.Matcher {
	t.Helper()
	m, err := taxonomy.NewMatcher(&taxonomy.Taxonomy{
		ExcludePatterns: []string{`broadcom`},
		Categories: map[string]taxonomy.Category{
			"semiconductors": {
				Enabled: true,
				Companies: []taxonomy.Company{
					{Name: "Samsung", Patterns: []string{`samsung`}},
					{Name: "Qualcomm", Patterns: []string{`qualcomm`}},
				},
			},
		},
	})
	require.NoError(t, err)
	return m
}

func testService(t *testing.T, store cache.Store) *service {
	t.Helper()
	svc := NewService(store, testMatcher(t), nil, 10, logging.NewNopLogger()).(*service)
	svc.now = func() time.Time { return time.Date(2026, 1, 21, 8, 0, 0, 0, time.UTC) }
	svc.newRunID = func() string { return "run-test" }
	return svc
}

func citingBy(org, citingID string) citation.CitingPatent {
	cp := citation.CitingPatent{PatentID: citingID}
	cp.Assignees = append(cp.Assignees, struct {
		AssigneeOrganization string `json:"assignee_organization"`
	}{AssigneeOrganization: org})
	return cp
}

func putCitations(t *testing.T, store cache.Store, patentID string, citing ...citation.CitingPatent) {
	t.Helper()
	require.NoError(t, store.Put(context.Background(), cache.KindCitations, patentID, citation.CitationRecord{
		PatentID:      patentID,
		FetchedAt:     time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC),
		CitingPatents: citing,
	}))
}

func snapshotOf(ids ...string) *patent.Snapshot {
	snap := &patent.Snapshot{}
	for _, id := range ids {
		snap.Candidates = append(snap.Candidates, patent.Patent{ID: id})
	}
	return snap
}

func TestRunClassifiesCitationsByClass(t *testing.T) {
	store, err := cache.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	// Ten forward citations: two from a competitor, one from an excluded
	// affiliate, seven from unrelated entities.
	citing := []citation.CitingPatent{
		citingBy("Samsung Electronics Co., Ltd.", "20000001"),
		citingBy("Samsung Display Co., Ltd.", "20000002"),
		citingBy("Broadcom Corp.", "20000003"),
	}
	for i := 0; i < 7; i++ {
		citing = append(citing, citingBy("Acme Widgets LLC", "3000000"+string(rune('0'+i))))
	}
	putCitations(t, store, "10000001", citing...)

	svc := testService(t, store)
	summary, err := svc.Run(ctx, snapshotOf("10000001"), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 10, summary.TotalCitations)
	assert.Equal(t, 2, summary.CompetitorCitations)
	assert.Equal(t, 1, summary.AffiliateCitations)
	assert.Equal(t, 7, summary.NeutralCitations)
	assert.Equal(t, 1, summary.PatentsWithCompetitorCitations)

	var rec citation.Classification
	require.NoError(t, store.Get(ctx, cache.KindClassifications, "10000001", &rec))
	assert.True(t, rec.HasCitationData)
	assert.Equal(t, 10, rec.TotalForwardCitations)
	assert.Equal(t, 2, rec.CompetitorCitations)
	assert.Equal(t, 1, rec.AffiliateCitations)
	assert.Equal(t, 7, rec.NeutralCitations)
	assert.True(t, rec.Conserved())

	// Two Samsung entities collapse into one distinct competitor company.
	assert.Equal(t, 1, rec.CompetitorCount)
	assert.Equal(t, []string{"Samsung"}, rec.CompetitorNames)
	assert.Len(t, rec.Details, 10)
	assert.Equal(t, "samsung electronics", rec.Details[0].NormalizedAssignee)
	assert.Equal(t, "acme widgets", rec.Details[3].NormalizedAssignee)

	require.Len(t, summary.TopCompetitors, 1)
	assert.Equal(t, citation.CompetitorShare{Company: "Samsung", Citations: 2}, summary.TopCompetitors[0])
}

func TestRunNoDataRecord(t *testing.T) {
	store, err := cache.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	svc := testService(t, store)
	summary, err := svc.Run(ctx, snapshotOf("10000001"), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.NoData)
	assert.Zero(t, summary.Errored)

	var rec citation.Classification
	require.NoError(t, store.Get(ctx, cache.KindClassifications, "10000001", &rec))
	assert.False(t, rec.HasCitationData)
	assert.True(t, rec.Conserved())
}

func TestRunIsResumable(t *testing.T) {
	dir := t.TempDir()
	store, err := cache.NewFilesystemStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	putCitations(t, store, "10000001", citingBy("Samsung Electronics Co., Ltd.", "20000001"))

	svc := testService(t, store)
	first, err := svc.Run(ctx, snapshotOf("10000001"), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Processed)

	path := filepath.Join(dir, cache.KindClassifications, "10000001.json")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// Second run reuses the record and still folds it into the totals.
	second, err := svc.Run(ctx, snapshotOf("10000001"), Options{})
	require.NoError(t, err)
	assert.Zero(t, second.Processed)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, 1, second.CompetitorCitations)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRunForceRecomputes(t *testing.T) {
	store, err := cache.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	putCitations(t, store, "10000001", citingBy("Acme Widgets LLC", "20000001"))
	svc := testService(t, store)
	_, err = svc.Run(ctx, snapshotOf("10000001"), Options{})
	require.NoError(t, err)

	// The citation data changed upstream; a forced run must see it.
	putCitations(t, store, "10000001",
		citingBy("Acme Widgets LLC", "20000001"),
		citingBy("Qualcomm Incorporated", "20000002"),
	)
	summary, err := svc.Run(ctx, snapshotOf("10000001"), Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Zero(t, summary.Skipped)

	var rec citation.Classification
	require.NoError(t, store.Get(ctx, cache.KindClassifications, "10000001", &rec))
	assert.Equal(t, 2, rec.TotalForwardCitations)
	assert.Equal(t, []string{"Qualcomm"}, rec.CompetitorNames)
}

func TestRunDryRunWritesNothing(t *testing.T) {
	store, err := cache.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	putCitations(t, store, "10000001", citingBy("Samsung Electronics Co., Ltd.", "20000001"))

	svc := testService(t, store)
	summary, err := svc.Run(ctx, snapshotOf("10000001"), Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.CompetitorCitations)

	var rec citation.Classification
	assert.ErrorIs(t, store.Get(ctx, cache.KindClassifications, "10000001", &rec), cache.ErrNotFound)

	keys, err := store.Keys(ctx, cache.KindRuns)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRunStartLimitSlice(t *testing.T) {
	store, err := cache.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	snap := snapshotOf("1", "2", "3", "4", "5")
	svc := testService(t, store)

	summary, err := svc.Run(ctx, snap, Options{Start: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)

	keys, err := store.Keys(ctx, cache.KindClassifications)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, keys)

	_, err = svc.Run(ctx, snap, Options{Start: 9})
	assert.Error(t, err)
}

func TestRunMalformedCitationRecordContinues(t *testing.T) {
	dir := t.TempDir()
	store, err := cache.NewFilesystemStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	kindDir := filepath.Join(dir, cache.KindCitations)
	require.NoError(t, os.MkdirAll(kindDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(kindDir, "10000001.json"), []byte("{broken"), 0o644))
	putCitations(t, store, "10000002", citingBy("Samsung Electronics Co., Ltd.", "20000001"))

	svc := testService(t, store)
	summary, err := svc.Run(ctx, snapshotOf("10000001", "10000002"), Options{})
	require.NoError(t, err)

	// The malformed record degrades to no-data; the batch keeps going.
	assert.Equal(t, 1, summary.Errored)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.CompetitorCitations)

	var rec citation.Classification
	require.NoError(t, store.Get(ctx, cache.KindClassifications, "10000001", &rec))
	assert.False(t, rec.HasCitationData)
}

func TestRunUpdatesManifest(t *testing.T) {
	store, err := cache.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	svc := testService(t, store)
	summary, err := svc.Run(ctx, snapshotOf("10000001"), Options{})
	require.NoError(t, err)

	var manifest cache.Manifest
	require.NoError(t, store.Get(ctx, cache.KindRuns, cache.ManifestKey, &manifest))
	assert.Equal(t, summary.RunID, manifest.LatestRunID)

	var persisted citation.RunSummary
	require.NoError(t, store.Get(ctx, cache.KindRuns, summary.RunID, &persisted))
	assert.Equal(t, summary.RunID, persisted.RunID)
}
