package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	syncdomain "github.com/ozdirect/pricesync/internal/domain/sync"
)

// GormChangeCandidateRepository implements change candidate storage using GORM
type GormChangeCandidateRepository struct {
	db *gorm.DB
}

// NewGormChangeCandidateRepository creates a new GORM change candidate repository
func NewGormChangeCandidateRepository(db *gorm.DB) *GormChangeCandidateRepository {
	return &GormChangeCandidateRepository{db: db}
}

// Save upserts candidates on (run_id, sku_code); a retried chunk overwrites
// its earlier rows instead of duplicating them. Candidates with an empty
// field mask are rejected.
func (r *GormChangeCandidateRepository) Save(ctx context.Context, tx *gorm.DB, candidates []*syncdomain.ChangeCandidate) error {
	if tx == nil {
		tx = r.db
	}
	for _, c := range candidates {
		if len(c.ChangedFields) == 0 {
			return fmt.Errorf("candidate %s/%s has an empty change set", c.RunID, c.SkuCode)
		}
		fields, err := json.Marshal(c.ChangedFields)
		if err != nil {
			return fmt.Errorf("failed to marshal changed fields: %w", err)
		}
		values, err := json.Marshal(c.NewValues)
		if err != nil {
			return fmt.Errorf("failed to marshal new values: %w", err)
		}
		model := SyncChangeCandidateModel{
			RunID:             c.RunID,
			SkuCode:           c.SkuCode,
			ChangedFieldsJSON: string(fields),
			NewValuesJSON:     string(values),
			ChangeCount:       c.ChangeCount(),
		}
		err = tx.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}, {Name: "sku_code"}},
			DoUpdates: clause.AssignmentColumns([]string{"changed_fields_json", "new_values_json", "change_count"}),
		}).Create(&model).Error
		if err != nil {
			return fmt.Errorf("failed to save candidate %s/%s: %w", c.RunID, c.SkuCode, err)
		}
	}
	return nil
}

// ForRun streams the candidates of a run whose field mask intersects the
// filter, in bounded batches ordered by SKU. A nil filter passes everything.
func (r *GormChangeCandidateRepository) ForRun(ctx context.Context, runID string, fieldFilter map[string]bool, batchSize int, fn func(batch []*syncdomain.ChangeCandidate) error) error {
	lastSku := ""
	for {
		var models []SyncChangeCandidateModel
		err := r.db.WithContext(ctx).
			Where("run_id = ? AND sku_code > ?", runID, lastSku).
			Order("sku_code").
			Limit(batchSize).
			Find(&models).Error
		if err != nil {
			return fmt.Errorf("failed to load candidates: %w", err)
		}
		if len(models) == 0 {
			return nil
		}
		batch := make([]*syncdomain.ChangeCandidate, 0, len(models))
		for i := range models {
			c, err := candidateToEntity(&models[i])
			if err != nil {
				return err
			}
			if fieldFilter == nil || intersects(c.ChangedFields, fieldFilter) {
				batch = append(batch, c)
			}
		}
		if len(batch) > 0 {
			if err := fn(batch); err != nil {
				return err
			}
		}
		lastSku = models[len(models)-1].SkuCode
	}
}

// CountForRun returns the candidate total of a run.
func (r *GormChangeCandidateRepository) CountForRun(ctx context.Context, runID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&SyncChangeCandidateModel{}).
		Where("run_id = ?", runID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count candidates: %w", err)
	}
	return n, nil
}

func intersects(fields []string, set map[string]bool) bool {
	for _, f := range fields {
		if set[f] {
			return true
		}
	}
	return false
}

func candidateToEntity(m *SyncChangeCandidateModel) (*syncdomain.ChangeCandidate, error) {
	var fields []string
	if err := json.Unmarshal([]byte(m.ChangedFieldsJSON), &fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal changed fields: %w", err)
	}
	var values map[string]interface{}
	if err := json.Unmarshal([]byte(m.NewValuesJSON), &values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal new values: %w", err)
	}
	return &syncdomain.ChangeCandidate{
		RunID:         m.RunID,
		SkuCode:       m.SkuCode,
		ChangedFields: fields,
		NewValues:     values,
	}, nil
}
