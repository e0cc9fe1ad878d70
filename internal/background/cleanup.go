package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/mdavison/bastion/internal/repositories"
	"github.com/mdavison/bastion/internal/services"
)

// CleanupManager periodically purges failed-login records older than the
// retention horizon. Threat evaluation only ever looks back one window, so
// retention needs to cover the admin review surface, not the throttle.
type CleanupManager struct {
	ledgerRepo *repositories.FailedLoginRepository
	clock      services.Clock
	retention  time.Duration
	interval   time.Duration
	logger     *slog.Logger
	stopCh     chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	ledgerRepo *repositories.FailedLoginRepository,
	clock services.Clock,
	retention time.Duration,
	interval time.Duration,
	logger *slog.Logger,
) *CleanupManager {
	return &CleanupManager{
		ledgerRepo: ledgerRepo,
		clock:      clock,
		retention:  retention,
		interval:   interval,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// runCleanup removes failed-login records past retention
func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := cm.clock.Now().Add(-cm.retention)
	rowsDeleted, err := cm.ledgerRepo.DeleteOlderThan(cleanupCtx, cutoff)
	if err != nil {
		cm.logger.Error("failed to purge old failed-login records", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		cm.logger.Info("failed-login retention cleanup completed",
			slog.Int64("rows_deleted", rowsDeleted),
			slog.Time("cutoff", cutoff))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
