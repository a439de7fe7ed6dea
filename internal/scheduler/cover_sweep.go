// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/kitaplik/internal/config"
	"github.com/mrlokans/kitaplik/internal/entities"
)

const sweepBatchSize = 100

// ExpiredCoverStore finds soft-deleted books whose covers are past retention.
type ExpiredCoverStore interface {
	ListExpiredCovers(ctx context.Context, cutoff time.Time, limit int) ([]entities.Book, error)
	ClearImageKey(ctx context.Context, id uint) error
}

// CoverDeleter queues removal of a stored cover object.
type CoverDeleter interface {
	EnqueueCoverDeletion(ctx context.Context, key string) error
}

// CoverSweepScheduler removes the covers of books that were deleted more
// than the retention period ago.
type CoverSweepScheduler struct {
	store     ExpiredCoverStore
	deleter   CoverDeleter
	schedule  string
	retention time.Duration
	now       func() time.Time

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSweeping bool
}

func NewCoverSweepScheduler(store ExpiredCoverStore, deleter CoverDeleter, cfg config.Scheduler) *CoverSweepScheduler {
	return &CoverSweepScheduler{
		store:     store,
		deleter:   deleter,
		schedule:  cfg.CoverSweepSchedule,
		retention: cfg.CoverRetention,
		now:       time.Now,
		cron:      cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start registers the sweep job and runs the cron loop until ctx is done.
func (s *CoverSweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			log.Printf("[SCHEDULER] Cover sweep failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cover sweep schedule '%s': %w", s.schedule, err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	log.Printf("[SCHEDULER] Cover sweep started with schedule '%s'. Next run: %v", s.schedule, s.cron.Entry(entryID).Next)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop waits for a running sweep to finish.
func (s *CoverSweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	log.Printf("[SCHEDULER] Cover sweep stopped")
}

func (s *CoverSweepScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Sweep queues deletion of every expired cover and returns how many were queued.
// A concurrent call returns immediately.
func (s *CoverSweepScheduler) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.isSweeping {
		s.mu.Unlock()
		log.Printf("[SCHEDULER] Cover sweep skipped (already running)")
		return 0, nil
	}
	s.isSweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSweeping = false
		s.mu.Unlock()
	}()

	cutoff := s.now().Add(-s.retention)
	queued := 0
	for {
		books, err := s.store.ListExpiredCovers(ctx, cutoff, sweepBatchSize)
		if err != nil {
			return queued, fmt.Errorf("failed to list expired covers: %w", err)
		}
		if len(books) == 0 {
			break
		}

		for _, book := range books {
			if err := s.deleter.EnqueueCoverDeletion(ctx, *book.ImageKey); err != nil {
				return queued, fmt.Errorf("failed to enqueue cover of book %d: %w", book.ID, err)
			}
			if err := s.store.ClearImageKey(ctx, book.ID); err != nil {
				return queued, fmt.Errorf("failed to clear cover of book %d: %w", book.ID, err)
			}
			queued++
		}

		if len(books) < sweepBatchSize {
			break
		}
	}

	if queued > 0 {
		log.Printf("[SCHEDULER] Cover sweep queued %d deletions", queued)
	}
	return queued, nil
}
