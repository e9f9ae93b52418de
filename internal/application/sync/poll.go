package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ozdirect/pricesync/internal/adapters/storefront"
)

// pollBulk watches a bulk operation until it reaches a terminal status. The
// interval starts at the configured poll interval and grows by 1.2x per
// attempt, capped at 60 seconds.
func (s *Service) pollBulk(ctx context.Context, runID string) error {
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		return err
	}
	if run.Terminal() {
		return nil
	}

	interval := s.sfCfg.PollInterval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	maxAttempts := s.sfCfg.PollMaxAttempts

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		op, err := s.storefront.PollBulkOperation(ctx, run.ShopifyBulkID)
		if err != nil {
			s.logger.Warn("bulk poll failed",
				zap.String("bulk_id", run.ShopifyBulkID),
				zap.Int("attempt", attempt),
				zap.Error(err))
		} else {
			switch op.Status {
			case storefront.BulkStatusFailed, storefront.BulkStatusCanceled:
				s.failRun(ctx, run, fmt.Sprintf("bulk operation %s", op.Status))
				return nil
			case storefront.BulkStatusCompleted:
				if op.URL == "" {
					// Zero-result exports complete without a URL
					run.TotalShopifySkus = 0
					if err := s.runs.Update(ctx, run); err != nil {
						return err
					}
					return s.finalize(ctx, run.ID)
				}
				run.ShopifyBulkURL = op.URL
				run.TotalShopifySkus = op.RootObjectCount
				if err := s.runs.Update(ctx, run); err != nil {
					return err
				}
				return s.scheduleChunks(ctx, run)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		interval = time.Duration(float64(interval) * 1.2)
		if interval > 60*time.Second {
			interval = 60 * time.Second
		}
	}

	s.failRun(ctx, run, "bulk poll attempts exhausted")
	return nil
}

// HandleBulkFinish processes a bulk_operations/finish webhook. The signature
// is verified against the shared secret, the topic checked, and the finish
// dispatched idempotently: a duplicate delivery finds the task id already in
// flight or the run already terminal.
func (s *Service) HandleBulkFinish(ctx context.Context, body []byte, signature, topic string, payload storefront.BulkFinishPayload) error {
	if !storefront.VerifyWebhookSignature(s.sfCfg.WebhookSecret, body, signature) {
		return fmt.Errorf("webhook signature verification failed")
	}
	if topic != storefront.TopicBulkFinish {
		return fmt.Errorf("unexpected webhook topic %q", topic)
	}

	run, err := s.runs.FindByBulkID(ctx, payload.AdminGraphqlAPIID)
	if err != nil {
		return err
	}
	if run.Terminal() {
		return nil
	}

	if run.WebhookReceivedAt == nil {
		now := s.clock.Now()
		run.WebhookReceivedAt = &now
		if err := s.runs.Update(ctx, run); err != nil {
			return err
		}
	}

	taskID := fmt.Sprintf("finish:%s", run.ShopifyBulkID)
	s.queue.Enqueue("bulk_finish", taskID, func(ctx context.Context) error {
		return s.handleFinish(ctx, run.ID)
	})
	return nil
}

// handleFinish confirms the terminal status by id and moves the run to
// chunk scheduling.
func (s *Service) handleFinish(ctx context.Context, runID string) error {
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		return err
	}
	if run.Terminal() {
		return nil
	}

	op, err := s.storefront.PollBulkOperation(ctx, run.ShopifyBulkID)
	if err != nil {
		return err
	}
	switch op.Status {
	case storefront.BulkStatusFailed, storefront.BulkStatusCanceled:
		s.failRun(ctx, run, fmt.Sprintf("bulk operation %s", op.Status))
		return nil
	case storefront.BulkStatusCompleted:
		if op.URL == "" {
			run.TotalShopifySkus = 0
			if err := s.runs.Update(ctx, run); err != nil {
				return err
			}
			return s.finalize(ctx, run.ID)
		}
		run.ShopifyBulkURL = op.URL
		run.TotalShopifySkus = op.RootObjectCount
		if err := s.runs.Update(ctx, run); err != nil {
			return err
		}
		return s.scheduleChunks(ctx, run)
	default:
		// Webhook raced the status flip; fall back to polling
		s.enqueuePoll(run)
		return nil
	}
}
