package ranking

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/ipbench/ipsignal/internal/application/scoring"
	"github.com/ipbench/ipsignal/internal/infrastructure/monitoring/logging"
	"github.com/ipbench/ipsignal/pkg/errors"
)

// Report is the JSON export envelope. The same shape is read back by the
// ranking comparison, so a prior export doubles as a comparison baseline.
type Report struct {
	RunID       string            `json:"run_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Profiles    []string          `json:"profiles"`
	Coverage    *scoring.Coverage `json:"coverage,omitempty"`
	Patents     []RankedPatent    `json:"patents"`
}

// Exporter writes ranked patents to the export directory.
type Exporter struct {
	dir          string
	profileNames []string
	signalNames  []string
	logger       logging.Logger
}

// NewExporter returns an exporter with fixed column orders. Signal columns
// are sorted so the CSV header never depends on map iteration.
func NewExporter(dir string, profileNames, signalNames []string, log logging.Logger) *Exporter {
	signals := make([]string, len(signalNames))
	copy(signals, signalNames)
	sort.Strings(signals)
	return &Exporter{dir: dir, profileNames: profileNames, signalNames: signals, logger: log}
}

// WriteJSON writes the full report and returns the file path.
func (e *Exporter) WriteJSON(report *Report, name string) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "cannot create export directory").WithDetail(e.dir)
	}
	path := filepath.Join(e.dir, name)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSerialization, "report marshal failed")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "report write failed").WithDetail(path)
	}

	e.logger.Info("wrote JSON report", logging.String("path", path), logging.Int("patents", len(report.Patents)))
	return path, nil
}

// WriteCSV writes the ranked list as CSV with a fixed header:
// patent_id, rank, tier, one score column per profile, unified_score, one
// column per signal, sector.
func (e *Exporter) WriteCSV(ranked []RankedPatent, name string) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "cannot create export directory").WithDetail(e.dir)
	}
	path := filepath.Join(e.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "report create failed").WithDetail(path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(e.csvHeader()); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "header write failed").WithDetail(path)
	}
	for i := range ranked {
		if err := w.Write(e.csvRow(&ranked[i])); err != nil {
			return "", errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "row write failed").WithDetail(path)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "report flush failed").WithDetail(path)
	}

	e.logger.Info("wrote CSV report", logging.String("path", path), logging.Int("patents", len(ranked)))
	return path, nil
}

func (e *Exporter) csvHeader() []string {
	header := []string{"patent_id", "rank", "tier"}
	for _, p := range e.profileNames {
		header = append(header, "score_"+p)
	}
	header = append(header, "unified_score")
	header = append(header, e.signalNames...)
	header = append(header, "sector")
	return header
}

func (e *Exporter) csvRow(r *RankedPatent) []string {
	row := []string{r.PatentID, strconv.Itoa(r.Rank), strconv.Itoa(r.Tier)}
	for _, p := range e.profileNames {
		row = append(row, formatScore(r.ProfileScores[p]))
	}
	row = append(row, formatScore(r.Unified))
	for _, s := range e.signalNames {
		if v, ok := r.Signals[s]; ok {
			row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		} else {
			row = append(row, "")
		}
	}
	row = append(row, r.Sector)
	return row
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// LoadReport reads a prior JSON export, for use as a comparison baseline.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigMissing, "baseline report unreadable").WithDetail(path)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "baseline report is not valid JSON").WithDetail(path)
	}
	return &report, nil
}
