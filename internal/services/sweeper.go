package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Sweeper drives scheduled lifecycle transitions: a cron tick picks up due
// jobs and pushes the referenced auctions through Reconcile. Only the leader
// instance sweeps, so replicas do not contend over the same jobs; lazy
// evaluation on reads covers any job the sweeper misses.
type Sweeper struct {
	cron       *cron.Cron
	jobs       domain.SchedulerRepository
	auctions   domain.AuctionRepository
	lifecycle  *LifecycleService
	leader     domain.LeaderElection
	instanceID string
	interval   time.Duration
	log        logger.Logger
	now        func() time.Time
}

func NewSweeper(
	jobs domain.SchedulerRepository,
	auctions domain.AuctionRepository,
	lifecycle *LifecycleService,
	leader domain.LeaderElection,
	instanceID string,
	interval time.Duration,
	log logger.Logger,
) *Sweeper {
	return &Sweeper{
		cron:       cron.New(cron.WithSeconds()),
		jobs:       jobs,
		auctions:   auctions,
		lifecycle:  lifecycle,
		leader:     leader,
		instanceID: instanceID,
		interval:   interval,
		log:        log,
		now:        time.Now,
	}
}

func (s *Sweeper) Start(ctx context.Context) error {
	s.log.Info("Starting lifecycle sweeper", "interval", s.interval.String())

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *Sweeper) Stop() error {
	s.log.Info("Stopping lifecycle sweeper")
	s.cron.Stop()
	return nil
}

func (s *Sweeper) sweep(ctx context.Context) {
	isLeader, err := s.leader.IsLeader(ctx, s.instanceID)
	if err != nil {
		s.log.Error("Leader check failed", "error", err)
		return
	}
	if !isLeader {
		return
	}

	jobs, err := s.jobs.GetPendingJobs(ctx, s.now())
	if err != nil {
		s.log.Error("Failed to get pending jobs", "error", err)
		return
	}

	for _, job := range jobs {
		s.log.Info("Processing job", "job_id", job.ID, "type", job.JobType,
			"auction_id", job.AuctionID)

		if err := s.processJob(ctx, job); err != nil {
			s.log.Error("Failed to execute job", "job_id", job.ID, "error", err)
			// Left pending; the next sweep retries it.
			continue
		}

		if err := s.jobs.UpdateJobStatus(ctx, job.ID, domain.JobExecuted); err != nil {
			s.log.Error("Failed to mark job executed", "job_id", job.ID, "error", err)
		}
	}
}

func (s *Sweeper) processJob(ctx context.Context, job *domain.ScheduledJob) error {
	auction, err := s.auctions.GetAuction(ctx, job.AuctionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Auction is gone; retrying is pointless.
			return s.jobs.UpdateJobStatus(ctx, job.ID, domain.JobCancelled)
		}
		return err
	}

	_, err = s.lifecycle.Reconcile(ctx, auction)
	return err
}
