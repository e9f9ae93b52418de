package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ozdirect/pricesync/internal/adapters/persistence"
	"github.com/ozdirect/pricesync/internal/domain/catalog"
	exportdomain "github.com/ozdirect/pricesync/internal/domain/export"
	"github.com/ozdirect/pricesync/internal/domain/shared"
	"github.com/ozdirect/pricesync/internal/infrastructure/config"
)

// Hard cap on dirty SKUs loaded per round while building a job.
const maxExportBatchSize = 5000

// Service builds per-country diff CSVs from dirty freight results and, on
// apply, commits them back into the baseline.
type Service struct {
	db        *gorm.DB
	jobs      *persistence.GormExportJobRepository
	masters   *persistence.GormSkuMasterRepository
	results   *persistence.GormFreightResultRepository
	baselines *persistence.GormBaselineRepository
	cfg       *config.ExportConfig
	clock     shared.Clock
	logger    *zap.Logger
}

// NewService creates the export/apply engine.
func NewService(
	db *gorm.DB,
	jobs *persistence.GormExportJobRepository,
	masters *persistence.GormSkuMasterRepository,
	results *persistence.GormFreightResultRepository,
	baselines *persistence.GormBaselineRepository,
	cfg *config.ExportConfig,
	clock shared.Clock,
	logger *zap.Logger,
) *Service {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &Service{
		db:        db,
		jobs:      jobs,
		masters:   masters,
		results:   results,
		baselines: baselines,
		cfg:       cfg,
		clock:     clock,
		logger:    logger,
	}
}

func (s *Service) batchSize() int {
	if s.cfg == nil || s.cfg.BatchSize <= 0 || s.cfg.BatchSize > maxExportBatchSize {
		return maxExportBatchSize
	}
	return s.cfg.BatchSize
}

// CreateExportJob diffs every dirty SKU of the country against its baseline
// and persists the resulting CSV as an export job. Returns NoDirtySkuError
// when no SKU produced a diff.
func (s *Service) CreateExportJob(ctx context.Context, country, createdBy string) (*exportdomain.Job, error) {
	columns := TemplateColumns(country)
	if columns == nil {
		return nil, shared.NewValidationError("country", "must be AU or NZ")
	}

	var jobSkus []*exportdomain.JobSku
	err := s.results.IterChangedSkus(ctx, country, s.batchSize(), func(results []*catalog.FreightResult) error {
		rows, err := s.diffBatch(ctx, country, columns, results)
		if err != nil {
			return err
		}
		jobSkus = append(jobSkus, rows...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(jobSkus) == 0 {
		return nil, shared.NewNoDirtySkuError(country)
	}

	blob, err := renderCSV(columns, jobSkus)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	stamp := now.Format("20060102T150405")
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:6]
	job := &exportdomain.Job{
		ID:        fmt.Sprintf("%s_%s_%s", country, stamp, suffix),
		Country:   country,
		Status:    exportdomain.StatusExported,
		FileName:  fmt.Sprintf("diff_%s_%s_%s.csv", country, stamp, suffix),
		RowCount:  len(jobSkus),
		CsvBlob:   blob,
		CreatedBy: createdBy,
		CreatedAt: now,
	}
	for _, sku := range jobSkus {
		sku.JobID = job.ID
	}
	if err := s.jobs.Create(ctx, job, jobSkus); err != nil {
		return nil, err
	}

	s.logger.Info("export job created",
		zap.String("job_id", job.ID),
		zap.String("country", country),
		zap.Int("row_count", job.RowCount))
	return job, nil
}

// diffBatch loads masters and baselines for one batch of dirty results and
// returns the per-SKU diff rows, skipping SKUs with no diff.
func (s *Service) diffBatch(ctx context.Context, country string, columns []string, results []*catalog.FreightResult) ([]*exportdomain.JobSku, error) {
	skus := make([]string, len(results))
	for i, fr := range results {
		skus[i] = fr.Sku
	}
	masters, err := s.masters.LoadExistingBySkus(ctx, skus)
	if err != nil {
		return nil, err
	}
	baselines, err := s.baselines.LoadBySkus(ctx, country, skus)
	if err != nil {
		return nil, err
	}

	out := make([]*exportdomain.JobSku, 0, len(results))
	for _, fr := range results {
		m, ok := masters[fr.Sku]
		if !ok {
			s.logger.Warn("dirty result without master row", zap.String("sku", fr.Sku))
			continue
		}
		candidates := buildCandidates(country, m, fr)
		payload, changed := diffRow(columns, candidates, baselines[fr.Sku])
		if len(changed) == 0 {
			continue
		}
		out = append(out, &exportdomain.JobSku{
			SkuCode:        fr.Sku,
			Payload:        payload,
			ChangedColumns: changed,
		})
	}
	return out, nil
}

// renderCSV writes the header plus one row per SKU, unchanged cells empty.
func renderCSV(columns []string, rows []*exportdomain.JobSku) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			if col == colSku {
				record[i] = row.SkuCode
				continue
			}
			record[i] = row.Payload[col]
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// GetExportJobFile returns the stored job with its blob. Idempotent.
func (s *Service) GetExportJobFile(ctx context.Context, jobID string) (*exportdomain.Job, error) {
	return s.jobs.FindByID(ctx, jobID)
}

// ApplyExportJob commits a job's diffs into the baseline, clears the
// country's dirty flags for the touched SKUs and marks the job applied, all
// in one transaction. Failure marks the job apply_failed and propagates.
func (s *Service) ApplyExportJob(ctx context.Context, jobID, applierID string) error {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != exportdomain.StatusExported {
		return shared.NewExportJobNotApplicableError(jobID, job.Status)
	}

	jobSkus, err := s.jobs.SkusForJob(ctx, jobID)
	if err != nil {
		return err
	}
	skus := make([]string, len(jobSkus))
	for i, row := range jobSkus {
		skus[i] = row.SkuCode
	}
	existing, err := s.baselines.LoadBySkus(ctx, job.Country, skus)
	if err != nil {
		return err
	}

	merged := make(map[string]map[string]string, len(jobSkus))
	for _, row := range jobSkus {
		base := existing[row.SkuCode]
		if base == nil {
			base = make(map[string]string, len(row.ChangedColumns))
		}
		for _, col := range row.ChangedColumns {
			base[col] = row.Payload[col]
		}
		merged[row.SkuCode] = base
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.baselines.Upsert(ctx, tx, job.Country, merged); err != nil {
			return err
		}
		if err := s.results.ClearKoganDirtyFlags(ctx, tx, job.Country, skus); err != nil {
			return err
		}
		job.Status = exportdomain.StatusApplied
		job.AppliedBy = applierID
		now := s.clock.Now()
		job.AppliedAt = &now
		return s.jobs.UpdateStatus(ctx, tx, job)
	})
	if err != nil {
		job.Status = exportdomain.StatusApplyFailed
		job.Error = truncateMsg(err.Error())
		job.AppliedBy = ""
		job.AppliedAt = nil
		if updateErr := s.jobs.UpdateStatus(ctx, nil, job); updateErr != nil {
			s.logger.Error("failed to persist apply failure", zap.Error(updateErr))
		}
		return err
	}

	s.logger.Info("export job applied",
		zap.String("job_id", job.ID),
		zap.String("country", job.Country),
		zap.Int("row_count", job.RowCount))
	return nil
}

func truncateMsg(msg string) string {
	if len(msg) > 500 {
		return msg[:500]
	}
	return msg
}
