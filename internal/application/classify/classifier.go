// Package classify implements the citation classification pipeline: for each
// portfolio patent, every cached forward citation is classified as
// competitor, affiliate, or neutral, and the per-patent aggregate is
// persisted for the scoring stage.
package classify

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ipbench/ipsignal/internal/domain/assignee"
	"github.com/ipbench/ipsignal/internal/domain/citation"
	"github.com/ipbench/ipsignal/internal/domain/patent"
	"github.com/ipbench/ipsignal/internal/domain/taxonomy"
	"github.com/ipbench/ipsignal/internal/infrastructure/cache"
	"github.com/ipbench/ipsignal/internal/infrastructure/monitoring/logging"
	"github.com/ipbench/ipsignal/internal/infrastructure/monitoring/prometheus"
	"github.com/ipbench/ipsignal/pkg/errors"
)

// Options control one classification run.
type Options struct {
	// DryRun computes everything but writes nothing to the cache.
	DryRun bool

	// Force recomputes patents that already have a classification record.
	Force bool

	// Start is the zero-based portfolio index to begin at.
	Start int

	// Limit caps the number of patents processed; 0 means the rest of the
	// portfolio.
	Limit int
}

// Service runs classification over a portfolio snapshot.
type Service interface {
	Run(ctx context.Context, snap *patent.Snapshot, opts Options) (*citation.RunSummary, error)
}

type service struct {
	store   cache.Store
	matcher *taxonomy.Matcher
	metrics *prometheus.PipelineMetrics
	logger  logging.Logger

	topCompetitors int
	now            func() time.Time
	newRunID       func() string
}

// NewService wires the classification pipeline. metrics may be nil.
func NewService(store cache.Store, matcher *taxonomy.Matcher, metrics *prometheus.PipelineMetrics, topCompetitors int, log logging.Logger) Service {
	if topCompetitors < 1 {
		topCompetitors = 10
	}
	return &service{
		store:          store,
		matcher:        matcher,
		metrics:        metrics,
		logger:         log,
		topCompetitors: topCompetitors,
		now:            time.Now,
		newRunID:       func() string { return uuid.NewString() },
	}
}

func (s *service) Run(ctx context.Context, snap *patent.Snapshot, opts Options) (*citation.RunSummary, error) {
	if opts.Start < 0 || opts.Start > len(snap.Candidates) {
		return nil, errors.Newf(errors.ErrCodeValidation, "start index %d out of range [0,%d]", opts.Start, len(snap.Candidates))
	}
	slice := snap.Candidates[opts.Start:]
	if opts.Limit > 0 && opts.Limit < len(slice) {
		slice = slice[:opts.Limit]
	}

	summary := &citation.RunSummary{
		RunID:     s.newRunID(),
		StartedAt: s.now(),
		DryRun:    opts.DryRun,
		Start:     opts.Start,
		Limit:     opts.Limit,
	}
	competitorTotals := make(map[string]int)

	s.logger.Info("classification run started",
		logging.String("run_id", summary.RunID),
		logging.Int("patents", len(slice)),
		logging.Bool("dry_run", opts.DryRun),
		logging.Bool("force", opts.Force),
	)

	for i := range slice {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeTimeout, "classification run canceled")
		}
		p := &slice[i]
		s.processPatent(ctx, p, opts, summary, competitorTotals)
	}

	summary.TopCompetitors = topShares(competitorTotals, s.topCompetitors)

	if !opts.DryRun {
		if err := s.store.Put(ctx, cache.KindRuns, summary.RunID, summary); err != nil {
			return nil, err
		}
		if err := s.store.Put(ctx, cache.KindRuns, cache.ManifestKey, cache.Manifest{LatestRunID: summary.RunID}); err != nil {
			return nil, err
		}
	}

	s.logger.Info("classification run finished",
		logging.String("run_id", summary.RunID),
		logging.Int("processed", summary.Processed),
		logging.Int("skipped", summary.Skipped),
		logging.Int("errored", summary.Errored),
		logging.Int("no_data", summary.NoData),
		logging.Int("competitor_citations", summary.CompetitorCitations),
	)
	return summary, nil
}

// processPatent runs the per-patent state machine. It never returns an
// error: per-patent failures are logged and folded into the run summary so
// one bad record cannot abort an overnight batch.
func (s *service) processPatent(ctx context.Context, p *patent.Patent, opts Options, summary *citation.RunSummary, competitorTotals map[string]int) {
	started := s.now()

	if !opts.Force {
		var existing citation.Classification
		err := s.store.Get(ctx, cache.KindClassifications, p.ID, &existing)
		if err == nil {
			summary.Skipped++
			if s.metrics != nil {
				s.metrics.PatentsSkipped.Inc()
			}
			s.fold(&existing, summary, competitorTotals)
			return
		}
		if err != cache.ErrNotFound {
			// A corrupt classification record is recomputed rather than
			// trusted.
			s.logger.Warn("existing classification unreadable, recomputing",
				logging.String("patent_id", p.ID), logging.Err(err))
		}
	}

	result, err := s.classifyOne(ctx, p)
	if err != nil {
		summary.Errored++
		if s.metrics != nil {
			s.metrics.PatentsErrored.Inc()
		}
		s.logger.Warn("classification failed, recording as no-data",
			logging.String("patent_id", p.ID), logging.Err(err))
		result = s.noDataRecord(p.ID)
	}

	if !result.HasCitationData {
		summary.NoData++
		if s.metrics != nil {
			s.metrics.PatentsNoData.Inc()
		}
	}

	if !opts.DryRun {
		if err := s.store.Put(ctx, cache.KindClassifications, p.ID, result); err != nil {
			summary.Errored++
			s.logger.Error("classification write failed",
				logging.String("patent_id", p.ID), logging.Err(err))
			return
		}
	}

	summary.Processed++
	if s.metrics != nil {
		s.metrics.PatentsProcessed.Inc()
		s.metrics.PatentProcessDuration.Observe(s.now().Sub(started).Seconds())
	}
	s.fold(result, summary, competitorTotals)
}

// classifyOne builds the classification record for one patent from its
// cached citation record.
func (s *service) classifyOne(ctx context.Context, p *patent.Patent) (*citation.Classification, error) {
	var record citation.CitationRecord
	err := s.store.Get(ctx, cache.KindCitations, p.ID, &record)
	if err == cache.ErrNotFound {
		return s.noDataRecord(p.ID), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCitationDataInvalid, "citation record unreadable").WithDetail(p.ID)
	}

	result := &citation.Classification{
		PatentID:              p.ID,
		HasCitationData:       true,
		TotalForwardCitations: len(record.CitingPatents),
		ClassifiedAt:          s.now(),
	}

	competitors := make(map[string]struct{})
	for _, citing := range record.CitingPatents {
		match, decidingAssignee := s.classifyCiting(&citing)

		switch match.Class {
		case taxonomy.ClassCompetitor:
			result.CompetitorCitations++
			competitors[match.Company] = struct{}{}
		case taxonomy.ClassAffiliate:
			result.AffiliateCitations++
		default:
			result.NeutralCitations++
		}
		if s.metrics != nil {
			s.metrics.CitationsClassified.WithLabelValues(string(match.Class)).Inc()
		}

		result.Details = append(result.Details, citation.Detail{
			CitingPatentID:     citing.PatentID,
			Assignee:           decidingAssignee,
			NormalizedAssignee: assignee.Normalize(decidingAssignee),
			Class:              string(match.Class),
			Company:            match.Company,
			Category:           match.Category,
		})
	}

	result.CompetitorCount = len(competitors)
	result.CompetitorNames = sortedKeys(competitors)
	return result, nil
}

// classifyCiting classifies one citing patent from its assignee list.
// Affiliate wins over competitor so a portfolio-family co-assignment never
// counts as competitive interest; otherwise the first competitor assignee
// decides.
func (s *service) classifyCiting(citing *citation.CitingPatent) (taxonomy.Match, string) {
	best := taxonomy.Match{Class: taxonomy.ClassNeutral}
	bestAssignee := ""

	for _, a := range citing.Assignees {
		m := s.matcher.Classify(a.AssigneeOrganization)
		switch m.Class {
		case taxonomy.ClassAffiliate:
			return m, a.AssigneeOrganization
		case taxonomy.ClassCompetitor:
			if best.Class != taxonomy.ClassCompetitor {
				best = m
				bestAssignee = a.AssigneeOrganization
			}
		case taxonomy.ClassNeutral:
			if bestAssignee == "" {
				bestAssignee = a.AssigneeOrganization
			}
		}
	}
	return best, bestAssignee
}

func (s *service) noDataRecord(patentID string) *citation.Classification {
	return &citation.Classification{
		PatentID:        patentID,
		HasCitationData: false,
		ClassifiedAt:    s.now(),
	}
}

// fold adds one classification record into the run totals.
func (s *service) fold(c *citation.Classification, summary *citation.RunSummary, competitorTotals map[string]int) {
	summary.TotalCitations += c.TotalForwardCitations
	summary.CompetitorCitations += c.CompetitorCitations
	summary.AffiliateCitations += c.AffiliateCitations
	summary.NeutralCitations += c.NeutralCitations
	if c.CompetitorCitations > 0 {
		summary.PatentsWithCompetitorCitations++
	}
	for _, d := range c.Details {
		if d.Class == string(taxonomy.ClassCompetitor) {
			competitorTotals[d.Company]++
		}
	}
}

// topShares returns the N companies with the most competitor citations,
// descending, ties broken by name so the summary is stable.
func topShares(totals map[string]int, n int) []citation.CompetitorShare {
	shares := make([]citation.CompetitorShare, 0, len(totals))
	for company, count := range totals {
		shares = append(shares, citation.CompetitorShare{Company: company, Citations: count})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Citations != shares[j].Citations {
			return shares[i].Citations > shares[j].Citations
		}
		return shares[i].Company < shares[j].Company
	})
	if len(shares) > n {
		shares = shares[:n]
	}
	return shares
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
