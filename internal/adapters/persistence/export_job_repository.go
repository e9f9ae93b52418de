package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/ozdirect/pricesync/internal/domain/export"
	"github.com/ozdirect/pricesync/internal/domain/shared"
)

// GormExportJobRepository implements export job storage using GORM
type GormExportJobRepository struct {
	db *gorm.DB
}

// NewGormExportJobRepository creates a new GORM export job repository
func NewGormExportJobRepository(db *gorm.DB) *GormExportJobRepository {
	return &GormExportJobRepository{db: db}
}

// Create persists a job with its per-SKU rows in one transaction.
func (r *GormExportJobRepository) Create(ctx context.Context, job *export.Job, skus []*export.JobSku) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(exportJobToModel(job)).Error; err != nil {
			return fmt.Errorf("failed to create export job: %w", err)
		}
		for _, s := range skus {
			model, err := exportJobSkuToModel(s)
			if err != nil {
				return err
			}
			if err := tx.Create(model).Error; err != nil {
				return fmt.Errorf("failed to create export job sku %s: %w", s.SkuCode, err)
			}
		}
		return nil
	})
}

// FindByID loads one job, without its per-SKU rows.
func (r *GormExportJobRepository) FindByID(ctx context.Context, id string) (*export.Job, error) {
	var model ExportJobModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err == gorm.ErrRecordNotFound {
		return nil, shared.NewExportJobNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load export job: %w", err)
	}
	return exportJobToEntity(&model), nil
}

// SkusForJob loads the per-SKU rows of a job ordered by SKU.
func (r *GormExportJobRepository) SkusForJob(ctx context.Context, jobID string) ([]*export.JobSku, error) {
	var models []ExportJobSkuModel
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("sku_code").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load export job skus: %w", err)
	}
	out := make([]*export.JobSku, 0, len(models))
	for i := range models {
		s, err := exportJobSkuToEntity(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// UpdateStatus persists a status transition with its audit fields.
func (r *GormExportJobRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, job *export.Job) error {
	if tx == nil {
		tx = r.db
	}
	err := tx.WithContext(ctx).Model(&ExportJobModel{}).
		Where("id = ?", job.ID).
		Updates(map[string]interface{}{
			"status":     job.Status,
			"error":      job.Error,
			"applied_by": job.AppliedBy,
			"applied_at": job.AppliedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update export job: %w", err)
	}
	return nil
}

func exportJobToModel(e *export.Job) *ExportJobModel {
	return &ExportJobModel{
		ID:        e.ID,
		Country:   e.Country,
		Status:    e.Status,
		FileName:  e.FileName,
		RowCount:  e.RowCount,
		CsvBlob:   e.CsvBlob,
		Error:     e.Error,
		CreatedBy: e.CreatedBy,
		AppliedBy: e.AppliedBy,
		CreatedAt: e.CreatedAt,
		AppliedAt: e.AppliedAt,
	}
}

func exportJobToEntity(m *ExportJobModel) *export.Job {
	return &export.Job{
		ID:        m.ID,
		Country:   m.Country,
		Status:    m.Status,
		FileName:  m.FileName,
		RowCount:  m.RowCount,
		CsvBlob:   m.CsvBlob,
		Error:     m.Error,
		CreatedBy: m.CreatedBy,
		AppliedBy: m.AppliedBy,
		CreatedAt: m.CreatedAt,
		AppliedAt: m.AppliedAt,
	}
}

func exportJobSkuToModel(e *export.JobSku) (*ExportJobSkuModel, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	cols, err := json.Marshal(e.ChangedColumns)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal changed columns: %w", err)
	}
	return &ExportJobSkuModel{
		JobID:              e.JobID,
		SkuCode:            e.SkuCode,
		PayloadJSON:        string(payload),
		ChangedColumnsJSON: string(cols),
	}, nil
}

func exportJobSkuToEntity(m *ExportJobSkuModel) (*export.JobSku, error) {
	var payload map[string]string
	if err := json.Unmarshal([]byte(m.PayloadJSON), &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	var cols []string
	if err := json.Unmarshal([]byte(m.ChangedColumnsJSON), &cols); err != nil {
		return nil, fmt.Errorf("failed to unmarshal changed columns: %w", err)
	}
	return &export.JobSku{
		JobID:          m.JobID,
		SkuCode:        m.SkuCode,
		Payload:        payload,
		ChangedColumns: cols,
	}, nil
}
