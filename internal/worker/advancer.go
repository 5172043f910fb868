package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pipecast/backend/internal/models"
)

// WebinarAdvancer is the repository surface the status advancer needs.
type WebinarAdvancer interface {
	AdvanceDueToWaitingRoom(ctx context.Context, lead time.Duration) ([]uuid.UUID, error)
}

// StatusNotifier fans a lifecycle change out to connected viewers.
type StatusNotifier interface {
	NotifyStatus(webinarID uuid.UUID, status models.WebinarStatus)
}

// StatusAdvancer moves scheduled webinars into the waiting room when their
// start time is near. The repository does the transition in one statement,
// so multiple instances polling at once never double-advance.
type StatusAdvancer struct {
	repo     WebinarAdvancer
	notifier StatusNotifier
	lead     time.Duration
	interval time.Duration
	logger   *zap.Logger
}

// NewStatusAdvancer creates the poller. notifier may be nil.
func NewStatusAdvancer(repo WebinarAdvancer, notifier StatusNotifier, lead, interval time.Duration, logger *zap.Logger) *StatusAdvancer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusAdvancer{repo: repo, notifier: notifier, lead: lead, interval: interval, logger: logger}
}

// Run polls until ctx is done.
func (a *StatusAdvancer) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("status advancer stopping")
			return
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

func (a *StatusAdvancer) tick(ctx context.Context) {
	ids, err := a.repo.AdvanceDueToWaitingRoom(ctx, a.lead)
	if err != nil {
		a.logger.Warn("waiting room advance failed", zap.Error(err))
		return
	}
	for _, id := range ids {
		a.logger.Info("webinar moved to waiting room", zap.String("webinar_id", id.String()))
		if a.notifier != nil {
			a.notifier.NotifyStatus(id, models.StatusWaitingRoom)
		}
	}
}
