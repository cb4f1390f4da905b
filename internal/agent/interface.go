package agent

import "context"

// Agent is a background job run by the Scheduler.
type Agent interface {
	GetName() string

	// GetSchedule returns a five-field cron expression, or "" for on-demand agents.
	GetSchedule() string

	Execute(ctx context.Context) error
}
