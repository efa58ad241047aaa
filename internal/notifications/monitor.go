package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Backlog summarises unread notifications across all inboxes.
type Backlog struct {
	Unread int64 `db:"unread" json:"unread"`
	Stale  int64 `db:"stale" json:"stale"`
	Users  int64 `db:"users" json:"users"`
}

// Monitor periodically measures the unread backlog. It only reads; inboxes are
// never modified.
type Monitor struct {
	cron       *cron.Cron
	repo       Repository
	staleAfter time.Duration
	schedule   string
	logger     *zap.Logger
	now        func() time.Time
	onReport   func(Backlog)
	mu         sync.Mutex
	running    bool
}

func NewMonitor(repo Repository, staleAfterDays int, schedule string, logger *zap.Logger) *Monitor {
	return &Monitor{
		cron:       cron.New(),
		repo:       repo,
		staleAfter: time.Duration(staleAfterDays) * 24 * time.Hour,
		schedule:   schedule,
		logger:     logger,
		now:        time.Now,
	}
}

// OnReport registers fn to receive every successful measurement.
func (m *Monitor) OnReport(fn func(Backlog)) {
	m.onReport = fn
}

// RunOnce measures the backlog once. Unread notifications older than the stale
// window are counted as stale.
func (m *Monitor) RunOnce(ctx context.Context) (Backlog, error) {
	staleBefore := m.now().UTC().Add(-m.staleAfter)
	backlog, err := m.repo.UnreadBacklog(ctx, staleBefore)
	if err != nil {
		return Backlog{}, err
	}
	if m.onReport != nil {
		m.onReport(backlog)
	}
	m.logger.Info("Measured notification backlog",
		zap.Int64("unread", backlog.Unread),
		zap.Int64("stale", backlog.Stale),
		zap.Int64("users", backlog.Users),
		zap.Time("stale_before", staleBefore))
	return backlog, nil
}

// Start schedules RunOnce on the configured cron spec.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("monitor already running")
	}

	_, err := m.cron.AddFunc(m.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := m.RunOnce(ctx); err != nil {
			m.logger.Error("Notification backlog check failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	m.cron.Start()
	m.running = true
	m.logger.Info("Notification monitor started", zap.String("cron", m.schedule))
	return nil
}

// Stop waits for a running check to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	<-m.cron.Stop().Done()
	m.running = false
	m.logger.Info("Notification monitor stopped")
}
