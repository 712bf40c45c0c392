package refresh

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/bmbroch/payops/pkg/logging"
)

// Manager schedules periodic refresh runs
type Manager struct {
	engine    *cron.Cron
	refresher *Refresher
	schedule  string
	logger    *zap.Logger
}

// NewManager creates a cron manager for the refresher
func NewManager(refresher *Refresher, schedule string) *Manager {
	return &Manager{
		engine:    cron.New(),
		refresher: refresher,
		schedule:  schedule,
		logger:    logging.WithComponent("refresh-manager"),
	}
}

// RegisterJobs wires the refresher into the cron engine
func (m *Manager) RegisterJobs() error {
	if _, err := m.engine.AddJob(m.schedule, m.refresher); err != nil {
		return err
	}
	return nil
}

func (m *Manager) Start() {
	m.logger.Info("Refresh scheduler started", zap.String("schedule", m.schedule))
	m.engine.Start()
}

// Stop halts scheduling and waits for a running pass to finish
func (m *Manager) Stop() {
	m.logger.Info("Refresh scheduler stopping")
	ctx := m.engine.Stop()
	<-ctx.Done()
	m.logger.Info("Refresh scheduler stopped")
}
