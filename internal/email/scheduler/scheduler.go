package scheduler

import (
	"context"
	"log"
	"time"

	catusecase "inboxhub-backend/internal/categorization/usecase"
	conndomain "inboxhub-backend/internal/connection/domain"
	connrepo "inboxhub-backend/internal/connection/repository"
	"inboxhub-backend/internal/email/usecase"
)

// SyncScheduler periodically re-syncs every connected account and sweeps the
// uncategorized backlog.
type SyncScheduler struct {
	connRepo     connrepo.ConnectionRepository
	emailUsecase usecase.EmailUsecase
	catUsecase   catusecase.CategorizationUsecase
	interval     time.Duration
	stopChan     chan struct{}
}

// NewSyncScheduler creates a new scheduler
func NewSyncScheduler(connRepo connrepo.ConnectionRepository, emailUsecase usecase.EmailUsecase, catUsecase catusecase.CategorizationUsecase, interval time.Duration) *SyncScheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SyncScheduler{
		connRepo:     connRepo,
		emailUsecase: emailUsecase,
		catUsecase:   catUsecase,
		interval:     interval,
		stopChan:     make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *SyncScheduler) Start() {
	log.Printf("[SyncScheduler] Starting periodic sync (interval: %s)", s.interval)

	go func() {
		// Run immediately on start
		s.runOnce()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runOnce()
			case <-s.stopChan:
				log.Println("[SyncScheduler] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *SyncScheduler) Stop() {
	close(s.stopChan)
}

// runOnce syncs every connected account, then categorizes what came in.
// TrySync skips connections that are already mid-sync, so overlapping runs
// never pile up.
func (s *SyncScheduler) runOnce() {
	ctx := context.Background()

	conns, err := s.connRepo.FindByStatus(conndomain.StatusConnected)
	if err != nil {
		log.Printf("[SyncScheduler] Error listing connected accounts: %v", err)
		return
	}
	if len(conns) == 0 {
		return
	}

	for _, conn := range conns {
		result, err := s.emailUsecase.TrySync(ctx, conn.UserID, conn.Provider)
		if err != nil {
			log.Printf("[SyncScheduler] Sync failed for %s/%s: %v", conn.UserID, conn.Provider, err)
			continue
		}
		if result != nil && result.SyncedCount > 0 {
			log.Printf("[SyncScheduler] Synced %d new messages for %s/%s", result.SyncedCount, conn.UserID, conn.Provider)
		}
	}

	if s.catUsecase != nil {
		if _, err := s.catUsecase.CategorizeBatch(ctx, "", 0); err != nil {
			log.Printf("[SyncScheduler] Categorization sweep failed: %v", err)
		}
	}
}
