package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold-coordinator/internal/model"
	"github.com/iliyamo/seat-hold-coordinator/internal/repository"
)

// CatalogSource provides the fixed seat catalog of each chart.
type CatalogSource interface {
	ChartKeys(ctx context.Context) ([]string, error)
	Seats(ctx context.Context, chartKey string) ([]model.Seat, error)
}

// BookedSeatSource reports seats already booked in earlier runs.
type BookedSeatSource interface {
	BookedSeats(ctx context.Context, chartKey string) ([]string, error)
}

// GridCatalog serves the same generated rows x cols layout for a fixed
// list of chart keys.
type GridCatalog struct {
	Keys []string
	Rows int
	Cols int
}

func (g GridCatalog) ChartKeys(context.Context) ([]string, error) { return g.Keys, nil }

func (g GridCatalog) Seats(context.Context, string) ([]model.Seat, error) {
	return repository.GridCatalog(g.Rows, g.Cols), nil
}

// Charts owns one coordinator per chart key.  State is sharded by chart:
// operations on different charts never contend for the same lock.
type Charts struct {
	mu     sync.RWMutex
	charts map[string]*Coordinator
}

// NewCharts returns an empty set.
func NewCharts() *Charts {
	return &Charts{charts: make(map[string]*Coordinator)}
}

// Add registers c under its chart key, replacing any previous coordinator.
func (cs *Charts) Add(c *Coordinator) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.charts[c.ChartKey()] = c
}

// Get returns the coordinator for key or ErrNotFound.
func (cs *Charts) Get(key string) (*Coordinator, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	c, ok := cs.charts[key]
	if !ok {
		return nil, fmt.Errorf("chart %q: %w", key, repository.ErrNotFound)
	}
	return c, nil
}

// Keys returns all chart keys in sorted order.
func (cs *Charts) Keys() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	keys := make([]string, 0, len(cs.charts))
	for k := range cs.charts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SweepAll runs Sweep then Reconcile on every chart and returns the holds
// reaped across all charts.
func (cs *Charts) SweepAll(ctx context.Context, now time.Time) []model.ExpiredHold {
	var out []model.ExpiredHold
	for _, key := range cs.Keys() {
		c, err := cs.Get(key)
		if err != nil {
			continue
		}
		out = append(out, c.Sweep(ctx, now)...)
		c.Reconcile(ctx)
	}
	return out
}

// LoadCharts builds a coordinator for every chart the catalog knows.  When
// booked is non-nil, seats booked in earlier runs are restored as BOOKED.
// Charts without seats are skipped with a warning.
func LoadCharts(ctx context.Context, catalog CatalogSource, booked BookedSeatSource, opts Options) (*Charts, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	keys, err := catalog.ChartKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list charts: %w", err)
	}
	charts := NewCharts()
	for _, key := range keys {
		seats, err := catalog.Seats(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("load chart %s: %w", key, err)
		}
		if len(seats) == 0 {
			log.Warn("chart has no seats; skipping", zap.String("chart", key))
			continue
		}
		c := NewCoordinator(key, seats, opts)
		if booked != nil {
			ids, err := booked.BookedSeats(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("restore bookings of %s: %w", key, err)
			}
			c.RestoreBooked(ids)
		}
		charts.Add(c)
		log.Info("chart loaded", zap.String("chart", key), zap.Int("seats", len(seats)))
	}
	return charts, nil
}
