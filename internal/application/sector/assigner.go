// Package sector assigns each portfolio patent to a technology sector using
// a fixed priority chain: externally computed term-cluster assignments win,
// then configured CPC prefix rules, then a broad CPC class table, and
// finally the general bucket.
package sector

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/ipbench/ipsignal/internal/config"
	"github.com/ipbench/ipsignal/internal/domain/patent"
	"github.com/ipbench/ipsignal/internal/infrastructure/cache"
	"github.com/ipbench/ipsignal/internal/infrastructure/monitoring/logging"
	"github.com/ipbench/ipsignal/pkg/errors"
)

// Provenance records which rule in the priority chain decided a sector.
const (
	ProvenanceTerm        = "term"
	ProvenanceCPCSubgroup = "cpc-subgroup"
	ProvenanceCPCClass    = "cpc-class"
	ProvenanceNone        = "none"
)

// GeneralSector is the catch-all bucket for patents no rule claims.
const GeneralSector = "general"

// Assignment is the persisted per-patent sector record.
type Assignment struct {
	PatentID    string    `json:"patent_id"`
	Sector      string    `json:"sector"`
	SuperSector string    `json:"super_sector,omitempty"`
	Provenance  string    `json:"provenance"`
	AssignedAt  time.Time `json:"assigned_at"`
}

// Assigner applies the sector priority chain. Immutable after construction
// and safe for concurrent use.
type Assigner struct {
	terms         map[string]string
	patterns      []config.SectorPattern
	classFallback map[string]string
	logger        logging.Logger
	now           func() time.Time
}

// NewAssigner builds the assigner from configuration. The term-assignment
// file is optional; CPC patterns are ordered longest prefix first so a
// subgroup rule always beats a shorter one.
func NewAssigner(cfg config.SectorConfig, log logging.Logger) (*Assigner, error) {
	a := &Assigner{
		terms:         make(map[string]string),
		classFallback: make(map[string]string),
		logger:        log,
		now:           time.Now,
	}

	if cfg.TermAssignmentsPath != "" {
		if _, err := os.Stat(cfg.TermAssignmentsPath); os.IsNotExist(err) {
			log.Warn("term assignment file not found, relying on CPC rules",
				logging.String("path", cfg.TermAssignmentsPath))
		} else {
			terms, err := loadTermAssignments(cfg.TermAssignmentsPath)
			if err != nil {
				return nil, err
			}
			a.terms = terms
		}
	}

	a.patterns = sortPatterns(cfg.Patterns)
	for _, p := range cfg.ClassFallback {
		a.classFallback[p.Prefix] = p.Sector
	}
	return a, nil
}

// Assign resolves one patent through the priority chain.
func (a *Assigner) Assign(p *patent.Patent) Assignment {
	result := Assignment{PatentID: p.ID, AssignedAt: a.now()}

	if sector, ok := a.terms[p.ID]; ok {
		result.Sector = sector
		result.Provenance = ProvenanceTerm
		return result
	}

	if sector, ok := matchPrefix(a.patterns, p.CPCCodes); ok {
		result.Sector = sector
		result.Provenance = ProvenanceCPCSubgroup
		return result
	}

	for _, code := range p.CPCCodes {
		if len(code) < 4 {
			continue
		}
		if sector, ok := a.classFallback[code[:4]]; ok {
			result.Sector = sector
			result.Provenance = ProvenanceCPCClass
			return result
		}
	}

	result.Sector = GeneralSector
	result.Provenance = ProvenanceNone
	return result
}

// Run assigns every snapshot candidate, persists the records, and mirrors
// the sector onto the in-memory patents for downstream stages.
func (a *Assigner) Run(ctx context.Context, store cache.Store, snap *patent.Snapshot) (map[string]int, error) {
	counts := make(map[string]int)
	for i := range snap.Candidates {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeTimeout, "sector run canceled")
		}
		p := &snap.Candidates[i]
		assignment := a.Assign(p)
		if err := store.Put(ctx, cache.KindSectors, p.ID, assignment); err != nil {
			return nil, err
		}
		p.Sector = assignment.Sector
		p.SuperSector = assignment.SuperSector
		counts[assignment.Sector]++
	}

	a.logger.Info("sector assignment finished", logging.Int("patents", len(snap.Candidates)), logging.Int("sectors", len(counts)))
	return counts, nil
}

// Breakout re-applies longest-prefix matching within one parent sector,
// splitting it into sub-sectors. Patents assigned elsewhere are untouched,
// so the pass is safe to re-run: a patent already broken out of the parent
// still carries it as super sector and stays eligible.
func (a *Assigner) Breakout(ctx context.Context, store cache.Store, snap *patent.Snapshot, parent string, rules []config.SectorPattern) (int, error) {
	sorted := sortPatterns(rules)
	reassigned := 0

	for i := range snap.Candidates {
		if err := ctx.Err(); err != nil {
			return reassigned, errors.Wrap(err, errors.ErrCodeTimeout, "breakout run canceled")
		}
		p := &snap.Candidates[i]

		var current Assignment
		err := store.Get(ctx, cache.KindSectors, p.ID, &current)
		if err == cache.ErrNotFound {
			continue
		}
		if err != nil {
			return reassigned, err
		}
		if current.Sector != parent && current.SuperSector != parent {
			continue
		}

		sector, ok := matchPrefix(sorted, p.CPCCodes)
		if !ok || sector == current.Sector {
			continue
		}

		current.Sector = sector
		current.SuperSector = parent
		current.Provenance = ProvenanceCPCSubgroup
		current.AssignedAt = a.now()
		if err := store.Put(ctx, cache.KindSectors, p.ID, current); err != nil {
			return reassigned, err
		}
		p.Sector = sector
		p.SuperSector = parent
		reassigned++
	}

	a.logger.Info("sector breakout finished",
		logging.String("parent", parent), logging.Int("reassigned", reassigned))
	return reassigned, nil
}

// matchPrefix returns the sector of the first rule whose prefix matches any
// of the CPC codes. Rules must already be sorted longest prefix first.
func matchPrefix(rules []config.SectorPattern, codes []string) (string, bool) {
	for _, rule := range rules {
		for _, code := range codes {
			if len(code) >= len(rule.Prefix) && code[:len(rule.Prefix)] == rule.Prefix {
				return rule.Sector, true
			}
		}
	}
	return "", false
}

// sortPatterns orders rules longest prefix first, ties by prefix, so
// matching is deterministic regardless of configuration order.
func sortPatterns(rules []config.SectorPattern) []config.SectorPattern {
	sorted := make([]config.SectorPattern, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		if len(sorted[i].Prefix) != len(sorted[j].Prefix) {
			return len(sorted[i].Prefix) > len(sorted[j].Prefix)
		}
		return sorted[i].Prefix < sorted[j].Prefix
	})
	return sorted
}

func loadTermAssignments(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigMissing, "term assignment file unreadable").WithDetail(path)
	}
	var terms map[string]string
	if err := json.Unmarshal(data, &terms); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "term assignment file is not valid JSON").WithDetail(path)
	}
	return terms, nil
}
