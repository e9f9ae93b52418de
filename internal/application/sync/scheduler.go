package sync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ozdirect/pricesync/internal/adapters/storefront"
	syncdomain "github.com/ozdirect/pricesync/internal/domain/sync"
	"github.com/ozdirect/pricesync/internal/infrastructure/tasks"
)

// scheduleChunks streams the bulk export JSONL, slices it into chunks of
// chunk_size SKUs, records each in the manifest and dispatches the chunk
// tasks behind a convergence barrier that finalizes the run exactly once.
func (s *Service) scheduleChunks(ctx context.Context, run *syncdomain.Run) error {
	body, err := s.storefront.FetchResult(ctx, run.ShopifyBulkURL)
	if err != nil {
		s.failRun(ctx, run, fmt.Sprintf("bulk result fetch failed: %v", err))
		return err
	}
	defer body.Close()

	var (
		pending  []*syncdomain.Chunk
		current  []string
		payloads = map[string]storefront.Variant{}
		idx      = 0
		total    = 0
	)
	flush := func() error {
		if len(current) == 0 {
			return nil
		}
		chunk := &syncdomain.Chunk{RunID: run.ID, ChunkIdx: idx, SkuCodes: current}
		if err := s.chunks.UpsertPending(ctx, chunk); err != nil {
			return err
		}
		pending = append(pending, chunk)
		idx++
		current = nil
		return nil
	}

	err = storefront.StreamVariants(body, func(v storefront.Variant) error {
		if _, seen := payloads[v.Sku]; seen {
			return nil
		}
		payloads[v.Sku] = v
		current = append(current, v.Sku)
		total++
		if len(current) >= s.syncCfg.ChunkSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		s.failRun(ctx, run, fmt.Sprintf("bulk stream failed: %v", err))
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	if total > 0 && total != run.TotalShopifySkus {
		run.TotalShopifySkus = total
		if err := s.runs.Update(ctx, run); err != nil {
			return err
		}
	}

	if len(pending) == 0 {
		return s.finalize(ctx, run.ID)
	}

	s.dispatchChunks(run, pending, payloads)
	return nil
}

// dispatchChunks enqueues chunk tasks behind a fan-in barrier. Task ids are
// deterministic, so a resumed dispatch of the same chunks dedupes against
// work already in flight. A nil payload map means the streamed storefront
// data is gone (resume path); the worker then falls back to stored variant
// ids.
func (s *Service) dispatchChunks(run *syncdomain.Run, chunks []*syncdomain.Chunk, payloads map[string]storefront.Variant) {
	runID := run.ID
	barriers := tasks.Split(len(chunks), s.syncCfg.BarrierSplitThreshold, func(failures int) {
		s.queue.Enqueue("finalize", fmt.Sprintf("finalize:%s", runID), func(ctx context.Context) error {
			return s.finalize(ctx, runID)
		})
	})

	groupSize := s.syncCfg.BarrierSplitThreshold
	for i, chunk := range chunks {
		barrier := barriers[0]
		if groupSize > 0 && len(barriers) > 1 {
			barrier = barriers[i/groupSize]
		}
		c := chunk
		b := barrier
		taskID := fmt.Sprintf("ps:chunk:%s:%d", runID, c.ChunkIdx)
		scheduled := s.queue.Enqueue("process_chunk", taskID, func(ctx context.Context) error {
			err := s.processChunk(ctx, runID, c.ChunkIdx, payloads)
			b.Done(err != nil)
			return err
		})
		if !scheduled {
			// The in-flight task signals its own barrier when it finishes;
			// counting it here would let finalize run before the chunk is
			// terminal.
			s.logger.Debug("chunk task already in flight", zap.String("task_id", taskID))
		}
	}
}
