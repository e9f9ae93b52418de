package sync

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ozdirect/pricesync/internal/adapters/storefront"
	"github.com/ozdirect/pricesync/internal/adapters/supplier"
	"github.com/ozdirect/pricesync/internal/domain/catalog"
	syncdomain "github.com/ozdirect/pricesync/internal/domain/sync"
)

// processChunk runs one chunk end to end: supplier fetch, normalization,
// storefront merge, hashing, diffing, and a single transaction persisting
// the changed masters plus their change candidates.
func (s *Service) processChunk(ctx context.Context, runID string, chunkIdx int, payloads map[string]storefront.Variant) error {
	if err := s.chunks.MarkRunning(ctx, runID, chunkIdx); err != nil {
		return err
	}

	stats := syncdomain.ChunkStats{}
	err := s.processChunkInner(ctx, runID, chunkIdx, payloads, &stats)
	if err == nil && ctx.Err() != nil {
		// An expired task deadline surfaces as supplier health counters,
		// not an error; the chunk did not finish its work.
		err = fmt.Errorf("chunk processing interrupted: %w", ctx.Err())
	}
	if err != nil {
		msg := err.Error()
		if len(msg) > 500 {
			msg = msg[:500]
		}
		// The mark must commit even after the task context expired.
		markCtx := context.WithoutCancel(ctx)
		if markErr := s.chunks.MarkFailed(markCtx, runID, chunkIdx, stats, msg); markErr != nil {
			s.logger.Error("failed to mark chunk failed", zap.Error(markErr))
		}
		return err
	}
	return s.chunks.MarkSucceeded(ctx, runID, chunkIdx, stats)
}

func (s *Service) processChunkInner(ctx context.Context, runID string, chunkIdx int, payloads map[string]storefront.Variant, stats *syncdomain.ChunkStats) error {
	manifest, err := s.chunks.ForRun(ctx, runID)
	if err != nil {
		return err
	}
	var skus []string
	for _, c := range manifest {
		if c.ChunkIdx == chunkIdx {
			skus = c.SkuCodes
			break
		}
	}
	if len(skus) == 0 {
		return fmt.Errorf("chunk %s/%d has no sku codes", runID, chunkIdx)
	}

	// External calls happen before the transaction opens.
	records, fetchStats, err := s.supplier.FetchRecords(ctx, skus)
	if err != nil {
		return err
	}
	stats.Merge(fetchStats)

	existing, err := s.masters.LoadExistingBySkus(ctx, skus)
	if err != nil {
		return err
	}

	today := s.clock.Now()
	var (
		changedRows []*catalog.Master
		candidates  []*syncdomain.ChangeCandidate
	)
	for _, sku := range skus {
		rec, ok := records[sku]
		if !ok {
			continue
		}
		pre := existing[sku]
		next := s.buildMaster(sku, rec, pre, payloads)
		next.AttrsHashCurrent = catalog.AttrsHash(next, today, s.location)

		changed, values := catalog.Diff(pre, next)
		if len(changed) == 0 {
			continue
		}
		fields := make([]string, 0, len(changed))
		for f := range changed {
			fields = append(fields, f)
		}
		changedRows = append(changedRows, next)
		candidates = append(candidates, &syncdomain.ChangeCandidate{
			RunID:         runID,
			SkuCode:       sku,
			ChangedFields: fields,
			NewValues:     values,
		})
	}

	if len(changedRows) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.masters.BulkUpsertOnlyIfChanged(ctx, tx, changedRows); err != nil {
			return err
		}
		return s.candidates.Save(ctx, tx, candidates)
	})
}

// buildMaster assembles the next master snapshot from the supplier record,
// the storefront payload and the pre-image. Storefront data wins for the
// variant id and tags; the supplier wins for commercial attributes, with the
// payload price as a fallback for brand-new SKUs the supplier has no price
// for yet.
func (s *Service) buildMaster(sku string, rec *supplier.Record, pre *catalog.Master, payloads map[string]storefront.Variant) *catalog.Master {
	next := &catalog.Master{
		Sku:                 sku,
		Price:               rec.Price,
		SpecialPrice:        rec.SpecialPrice,
		SpecialPriceEndDate: rec.SpecialPriceEndDate,
		Weight:              rec.Weight,
		CBM:                 rec.CBM,
		Length:              rec.Length,
		Width:               rec.Width,
		Height:              rec.Height,
		RRP:                 rec.RRP,
		Brand:               rec.Brand,
		EAN:                 rec.EAN,
		StockQty:            rec.StockQty,
		Freight:             rec.Rates,
	}
	if pre != nil {
		next.ShopifyVariantID = pre.ShopifyVariantID
		next.Tags = pre.Tags
		if next.Brand == "" {
			next.Brand = pre.Brand
		}
		next.Supplier = pre.Supplier
	}
	if payloads != nil {
		if v, ok := payloads[sku]; ok {
			if v.VariantID != "" {
				next.ShopifyVariantID = v.VariantID
			}
			if v.Tags != nil {
				next.Tags = v.Tags
			}
			if next.Price == nil && v.Price != "" {
				if p, err := decimal.NewFromString(v.Price); err == nil {
					next.Price = &p
				}
			}
		}
	}
	// CBM derives from dimensions when the supplier does not report it
	if next.CBM == nil && next.Length != nil && next.Width != nil && next.Height != nil {
		cbm := next.Length.Mul(*next.Width).Mul(*next.Height).Div(decimal.NewFromInt(1000000)).Round(4)
		next.CBM = &cbm
	}
	return next
}
