package service

import (
	"context"
	"time"

	"github.com/callmind/ms-go-billing/app/entity"
	"github.com/sirupsen/logrus"
)

func (s *WebhookService) RunWebhookRetryBatch(ctx context.Context) error {
	now := s.now()
	items, err := s.eventRepo.ListDueRetry(ctx, now, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, row := range items {
		if row == nil || row.Status != entity.WebhookEventUnresolved {
			continue
		}

		row.Attempts++
		_, settleErr := s.settle(ctx, row, now)
		if settleErr != nil {
			firstErr = keepFirstErr(firstErr, settleErr)
		}
		row.UpdatedAt = s.now()

		if err := s.eventRepo.Update(ctx, row); err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}

		s.logger.WithFields(logrus.Fields{
			"webhook_event_id": row.ID,
			"provider":         row.Provider,
			"attempts":         row.Attempts,
			"status":           WebhookStatusName(row.Status),
		}).Info("Webhook retry processed")
	}

	return firstErr
}

func (s *WebhookService) batchSize() int32 {
	if s.cfg.JobBatchSize > 0 {
		return s.cfg.JobBatchSize
	}
	return defaultBatchSize
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
