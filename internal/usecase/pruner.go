package usecase

import (
	"log/slog"

	"github.com/robfig/cron/v3"

	"switchboard/internal/domain"
)

// Pruner periodically removes workers the monitor judges Dead, so routing
// stops considering them and their records do not accumulate forever.
type Pruner struct {
	catalog  *Catalog
	monitor  *Monitor
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewPruner creates a pruner with a standard five-field cron schedule.
func NewPruner(catalog *Catalog, monitor *Monitor, schedule string, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		catalog:  catalog,
		monitor:  monitor,
		schedule: schedule,
		logger:   logger,
	}
}

// Start begins the scheduled sweeps.
func (p *Pruner) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(p.schedule, func() { p.Sweep() }); err != nil {
		return domain.WrapOp("Pruner.Start", err)
	}
	c.Start()
	p.cron = c
	p.logger.Info("pruner started", "schedule", p.schedule)
	return nil
}

// Stop halts scheduled sweeps. Safe to call without Start.
func (p *Pruner) Stop() {
	if p.cron != nil {
		p.cron.Stop()
	}
}

// Sweep removes every Dead worker once and returns the removed ids.
func (p *Pruner) Sweep() []string {
	dead := p.monitor.Dead()
	for _, id := range dead {
		p.catalog.RemoveWorker(id)
		p.monitor.Forget(id)
		p.logger.Info("dead worker pruned", "worker_id", id)
	}
	return dead
}
