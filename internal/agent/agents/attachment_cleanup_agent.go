package agents

import (
	"context"
	"time"

	"greenhouse.org/growersplatform/pkg/logger"
)

type OrphanCleaner interface {
	CleanupOrphans(ctx context.Context, olderThan time.Duration) (int, error)
}

// AttachmentCleanupAgent removes uploads that were never linked to a post.
type AttachmentCleanupAgent struct {
	cleaner   OrphanCleaner
	schedule  string
	olderThan time.Duration
	log       *logger.Logger
}

func NewAttachmentCleanupAgent(cleaner OrphanCleaner, schedule string, olderThan time.Duration, log *logger.Logger) *AttachmentCleanupAgent {
	return &AttachmentCleanupAgent{cleaner: cleaner, schedule: schedule, olderThan: olderThan, log: log}
}

func (a *AttachmentCleanupAgent) GetName() string {
	return "attachment-cleanup"
}

func (a *AttachmentCleanupAgent) GetSchedule() string {
	return a.schedule
}

func (a *AttachmentCleanupAgent) Execute(ctx context.Context) error {
	n, err := a.cleaner.CleanupOrphans(ctx, a.olderThan)
	if err != nil {
		return err
	}
	if n > 0 {
		a.log.Info("removed orphaned attachments", "count", n)
	}
	return nil
}
