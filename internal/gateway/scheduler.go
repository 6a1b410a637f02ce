package gateway

import (
	"context"
	"time"

	"crownbidder/internal/domain"
	"crownbidder/pkg/logger"

	"github.com/robfig/cron/v3"
)

// TransitionScheduler sweeps the schedule queue and applies transitions
// whose run time has passed. Only the elected leader sweeps, so a fleet of
// gateways fires each transition once.
type TransitionScheduler struct {
	cron       *cron.Cron
	queue      domain.ScheduleQueue
	statuses   *StatusService
	leader     domain.LeaderElection
	instanceID string
	log        logger.Logger
}

func NewTransitionScheduler(queue domain.ScheduleQueue, statuses *StatusService,
	leader domain.LeaderElection, instanceID string, log logger.Logger) *TransitionScheduler {
	return &TransitionScheduler{
		cron:       cron.New(cron.WithSeconds()),
		queue:      queue,
		statuses:   statuses,
		leader:     leader,
		instanceID: instanceID,
		log:        log,
	}
}

func (s *TransitionScheduler) Start(ctx context.Context) error {
	s.log.Info("Starting transition scheduler", "instance_id", s.instanceID)

	_, err := s.cron.AddFunc("@every 1s", func() {
		s.sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *TransitionScheduler) Stop() error {
	s.log.Info("Stopping transition scheduler")
	s.cron.Stop()
	return nil
}

func (s *TransitionScheduler) sweep(ctx context.Context) {
	if s.leader != nil {
		isLeader, err := s.leader.IsLeader(ctx, s.instanceID)
		if err != nil {
			s.log.Error("Leadership check failed", "error", err)
			return
		}
		if !isLeader {
			return
		}
	}

	jobs, err := s.queue.Due(ctx, time.Now())
	if err != nil {
		s.log.Error("Failed to fetch due transitions", "error", err)
		return
	}

	for _, job := range jobs {
		if err := s.statuses.Transition(ctx, job.AuctionID, job.To); err != nil {
			// an operator may already have moved the auction past this
			// transition; the job is consumed either way
			s.log.Warn("Scheduled transition not applied",
				"auction_id", job.AuctionID, "to", job.To, "error", err)
		}
	}
}
