package service

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// DefaultSweepInterval is used when NewSweeper receives a non-positive
// interval.
const DefaultSweepInterval = 30 * time.Second

// Sweeper periodically reclaims expired holds on every chart.  It is the
// only path by which HELD seats return to FREE without a client action.
// Runs never overlap: a run that is still busy when the next one is due
// causes that one to be skipped.
type Sweeper struct {
	sched    gocron.Scheduler
	charts   *Charts
	interval time.Duration
	log      *zap.Logger
	now      func() time.Time
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewSweeper schedules a sweep over charts every interval.  The scheduler
// does not run until Start is called.
func NewSweeper(charts *Charts, interval time.Duration, log *zap.Logger) (*Sweeper, error) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Sweeper{
		sched:    sched,
		charts:   charts,
		interval: interval,
		log:      log.With(zap.String("component", "sweeper")),
		now:      func() time.Time { return time.Now().UTC() },
		ctx:      ctx,
		cancel:   cancel,
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.run),
		gocron.WithName("hold-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		_ = sched.Shutdown()
		return nil, err
	}
	return s, nil
}

// Interval returns the sweep period.
func (s *Sweeper) Interval() time.Duration { return s.interval }

// Start begins the periodic sweep.
func (s *Sweeper) Start() {
	s.log.Info("hold sweep started", zap.Duration("interval", s.interval))
	s.sched.Start()
}

// Shutdown stops the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Shutdown() error {
	s.cancel()
	return s.sched.Shutdown()
}

// RunOnce sweeps every chart at the current time.  It is what the
// scheduler runs and may also be called directly, e.g. from an admin
// endpoint.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	reaped := s.charts.SweepAll(ctx, s.now())
	seats := 0
	for _, h := range reaped {
		seats += len(h.SeatIDs)
	}
	if seats > 0 {
		s.log.Debug("sweep finished", zap.Int("holds", len(reaped)), zap.Int("seats", seats))
	}
	return seats
}

func (s *Sweeper) run() {
	s.RunOnce(s.ctx)
}
