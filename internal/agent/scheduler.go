package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"greenhouse.org/growersplatform/pkg/logger"
)

// Scheduler runs registered agents on their cron schedules. A run that is still in progress
// when its next tick fires is skipped.
type Scheduler struct {
	cron    *cron.Cron
	log     *logger.Logger
	timeout time.Duration

	mu     sync.Mutex
	agents []Agent
}

func NewScheduler(log *logger.Logger, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:     log,
		timeout: timeout,
	}
}

func (s *Scheduler) RegisterAgent(a Agent) error {
	s.mu.Lock()
	s.agents = append(s.agents, a)
	s.mu.Unlock()

	schedule := a.GetSchedule()
	if schedule == "" {
		s.log.Info("agent registered on demand", "agent", a.GetName())
		return nil
	}

	if _, err := s.cron.AddFunc(schedule, func() { s.run(context.Background(), a) }); err != nil {
		return fmt.Errorf("schedule agent %s: %w", a.GetName(), err)
	}
	s.log.Info("agent scheduled", "agent", a.GetName(), "schedule", schedule)
	return nil
}

func (s *Scheduler) run(ctx context.Context, a Agent) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := a.Execute(ctx)
	if err != nil {
		s.log.Error("agent run failed", "agent", a.GetName(), "error", err, "duration_ms", time.Since(start).Milliseconds())
		return err
	}
	s.log.Info("agent run completed", "agent", a.GetName(), "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("agent scheduler started", "agents", len(s.GetRegisteredAgents()))
}

// Stop halts scheduling and waits for running agents until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("agent scheduler stopped before running agents finished")
	}
}

// RunAgentByName executes one agent immediately, outside its schedule.
func (s *Scheduler) RunAgentByName(ctx context.Context, name string) error {
	s.mu.Lock()
	var found Agent
	for _, a := range s.agents {
		if a.GetName() == name {
			found = a
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		return fmt.Errorf("agent %q is not registered", name)
	}
	return s.run(ctx, found)
}

func (s *Scheduler) GetRegisteredAgents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.agents))
	for i, a := range s.agents {
		names[i] = a.GetName()
	}
	return names
}
