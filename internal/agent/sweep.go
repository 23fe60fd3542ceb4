package agent

import (
	"context"
	"fmt"

	config "github.com/mwantia/chemviz/internal/config/server"
	"github.com/mwantia/chemviz/pkg/log"
	"github.com/robfig/cron/v3"
)

// SweepTarget queues a retention pass for every owner.
type SweepTarget interface {
	Sweep(ctx context.Context) error
}

// Sweeper reapplies retention on retention.sweep_schedule, catching owners
// whose prune events were dropped.
type Sweeper struct {
	Config *config.BaseServerConfig `fabric:"inject"`
	Target SweepTarget              `fabric:"inject"`
	Log    log.LoggerService        `fabric:"logger:sweep"`

	cron     *cron.Cron
	schedule string
}

// Init accepts standard five field cron expressions and descriptors such as
// "@hourly".
func (s *Sweeper) Init(ctx context.Context) error {
	s.schedule = s.Config.Retention.SweepSchedule
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid retention.sweep_schedule '%s': %w", s.schedule, err)
	}
	s.cron = cron.New()
	return nil
}

func (s *Sweeper) Start(ctx context.Context) {
	s.cron.AddFunc(s.schedule, func() {
		if err := s.Target.Sweep(ctx); err != nil {
			s.Log.Error("Retention sweep failed: %v", err)
		}
	})
	s.cron.Start()
	s.Log.Info("Retention sweep scheduled: %s", s.schedule)
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) Cleanup(ctx context.Context) error {
	s.Stop()
	return nil
}
