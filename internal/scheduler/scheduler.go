package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"snowball/internal/roller"
)

// Scheduler manages the cron tasks driving the roller.
type Scheduler struct {
	Cron   *cron.Cron
	Roller *roller.Roller
	Ctx    context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, r *roller.Roller) *Scheduler {
	return &Scheduler{
		Cron:   cron.New(cron.WithSeconds()),
		Roller: r,
		Ctx:    ctx,
	}
}

// RegisterAll registers the roll and backfill tasks.
func (s *Scheduler) RegisterAll(rollCron, backfillCron string) error {
	if _, err := s.Cron.AddFunc(rollCron, s.rollTask); err != nil {
		return fmt.Errorf("register roll task: %w", err)
	}
	if _, err := s.Cron.AddFunc(backfillCron, s.backfillTask); err != nil {
		return fmt.Errorf("register backfill task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunRollNow executes the roll task immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunRollNow() {
	s.rollTask()
}

// RunBackfillNow executes the backfill task immediately.
func (s *Scheduler) RunBackfillNow() {
	s.backfillTask()
}

func (s *Scheduler) rollTask() {
	if _, err := s.Roller.Roll(s.Ctx); err != nil {
		log.Printf("[ERROR] roll run aborted: %v", err)
	}
}

func (s *Scheduler) backfillTask() {
	if _, err := s.Roller.RollBackfill(s.Ctx); err != nil {
		log.Printf("[ERROR] backfill run aborted: %v", err)
	}
}
