package trade

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/songswap/songswap/songswap/database/models"
)

// dispatchTimeout bounds the work done for a single fired event.
const dispatchTimeout = 30 * time.Second

// DispatchFunc receives an event whose due time has arrived. Delivery is
// at-least-once: handlers must check persisted state before acting.
type DispatchFunc func(ctx context.Context, ev models.Event)

// Scheduler arms an in-process timer per scheduled event, backed by the
// event store so pending events survive restarts. Restore rebuilds the
// timers at startup; events already past due fire immediately.
type Scheduler struct {
	events   EventStore
	dispatch DispatchFunc

	mu       sync.Mutex
	timers   map[string]map[models.EventKind]*time.Timer
	shutdown chan struct{}
	stopOnce sync.Once
}

func NewScheduler(events EventStore, dispatch DispatchFunc) *Scheduler {
	return &Scheduler{
		events:   events,
		dispatch: dispatch,
		timers:   make(map[string]map[models.EventKind]*time.Timer),
		shutdown: make(chan struct{}),
	}
}

// Schedule persists the events and arms a timer for each.
func (s *Scheduler) Schedule(ctx context.Context, events []models.Event) error {
	if err := s.events.CreateMany(ctx, events); err != nil {
		return fmt.Errorf("failed to persist events: %w", err)
	}
	for _, ev := range events {
		s.arm(ev)
	}
	return nil
}

// Restore re-arms a timer for every persisted event. Past-due events get a
// zero-duration timer, so missed transitions are delivered right away
// rather than dropped.
func (s *Scheduler) Restore(ctx context.Context) error {
	events, err := s.events.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load pending events: %w", err)
	}

	overdue := 0
	for _, ev := range events {
		if time.Now().After(ev.DueAt) {
			overdue++
		}
		s.arm(ev)
	}

	slog.Info("Event timers restored",
		slog.String("type", "sys"),
		slog.Int("pending", len(events)),
		slog.Int("overdue", overdue))
	return nil
}

// Cancel stops and deletes every pending event for the trade. The returned
// bool reports whether anything was still pending; a stop command uses it
// to tell a live trade from one that already finished.
func (s *Scheduler) Cancel(ctx context.Context, tradeName string) (bool, error) {
	s.mu.Lock()
	for _, timer := range s.timers[tradeName] {
		timer.Stop()
	}
	delete(s.timers, tradeName)
	s.mu.Unlock()

	deleted, err := s.events.DeleteByTrade(ctx, tradeName)
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}

// Postpone moves the trade's still-pending events to the given due times.
// Kinds that already fired are skipped; kinds missing from due are left
// untouched.
func (s *Scheduler) Postpone(ctx context.Context, tradeName string, due map[models.EventKind]time.Time) error {
	pending, err := s.events.ListByTrade(ctx, tradeName)
	if err != nil {
		return err
	}

	for _, ev := range pending {
		dueAt, ok := due[ev.Kind]
		if !ok {
			continue
		}
		if err := s.events.Reschedule(ctx, tradeName, ev.Kind, dueAt); err != nil {
			return err
		}
		ev.DueAt = dueAt
		s.arm(ev)
	}
	return nil
}

// Shutdown stops every pending timer without touching persisted events, so
// the next Restore picks them back up. Safe to call more than once.
func (s *Scheduler) Shutdown() {
	s.stopOnce.Do(func() { close(s.shutdown) })

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kinds := range s.timers {
		for _, timer := range kinds {
			timer.Stop()
		}
	}
	s.timers = make(map[string]map[models.EventKind]*time.Timer)
}

// arm starts (or replaces) the timer for one event.
func (s *Scheduler) arm(ev models.Event) {
	d := time.Until(ev.DueAt)
	if d < 0 {
		d = 0
	}
	timer := time.NewTimer(d)

	s.mu.Lock()
	kinds, ok := s.timers[ev.TradeName]
	if !ok {
		kinds = make(map[models.EventKind]*time.Timer)
		s.timers[ev.TradeName] = kinds
	}
	if old, ok := kinds[ev.Kind]; ok {
		old.Stop()
	}
	kinds[ev.Kind] = timer
	s.mu.Unlock()

	go func() {
		select {
		case <-timer.C:
			s.fire(ev, timer)
		case <-s.shutdown:
			timer.Stop()
		}
	}()
}

func (s *Scheduler) fire(ev models.Event, timer *time.Timer) {
	s.mu.Lock()
	// A postponed event replaces its timer; if ours is no longer current,
	// the firing is stale and must be dropped.
	if current, ok := s.timers[ev.TradeName][ev.Kind]; !ok || current != timer {
		s.mu.Unlock()
		return
	}
	delete(s.timers[ev.TradeName], ev.Kind)
	if len(s.timers[ev.TradeName]) == 0 {
		delete(s.timers, ev.TradeName)
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	if err := s.events.Delete(ctx, ev.TradeName, ev.Kind); err != nil {
		slog.Error("Failed to delete fired event",
			slog.String("trade", ev.TradeName),
			slog.String("kind", string(ev.Kind)),
			slog.Any("error", err))
	}
	s.dispatch(ctx, ev)
}
