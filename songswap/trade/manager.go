package trade

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/songswap/songswap/songswap/database/models"
)

const tradeCacheSize = 128

// Manager is the trade lifecycle engine's front door: command handlers call
// it to start, stop, and extend trades and to submit songs and responses,
// and its scheduler calls back into it when deadlines arrive. All state
// lives in the stores; the manager itself only caches reads.
type Manager struct {
	trades   TradeStore
	servers  ServerStore
	users    UserStore
	notifier Notifier
	paste    Paster // optional results fallback

	scheduler *Scheduler
	cache     *lru.Cache // trade name -> *models.Trade, read path only
}

func NewManager(trades TradeStore, servers ServerStore, users UserStore, events EventStore, notifier Notifier, paste Paster) *Manager {
	cache, _ := lru.New(tradeCacheSize)
	m := &Manager{
		trades:   trades,
		servers:  servers,
		users:    users,
		notifier: notifier,
		paste:    paste,
		cache:    cache,
	}
	m.scheduler = NewScheduler(events, m.dispatch)
	return m
}

// Restore rebuilds the timers for every event persisted before the last
// shutdown. Call once after the gateway is up, so notifications can be sent
// for anything that came due while the process was down.
func (m *Manager) Restore(ctx context.Context) error {
	return m.scheduler.Restore(ctx)
}

func (m *Manager) Shutdown() {
	m.scheduler.Shutdown()
}

// StartTrade builds, persists, announces, and schedules a new trade over the
// server's opted-in users. Returns ErrNotEnoughParticipants if fewer than
// two users are opted in.
func (m *Manager) StartTrade(ctx context.Context, serverID snowflake.ID, durationDays int) (*models.Trade, error) {
	server, err := m.servers.GetByUID(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, fmt.Errorf("server %s has not been set up", serverID)
	}

	trade, err := BuildTrade(ctx, m.trades, server, durationDays)
	if err != nil {
		return nil, err
	}
	if err := m.trades.Create(ctx, trade); err != nil {
		return nil, err
	}

	// Everything below is a side effect of an already-persisted trade:
	// individual failures are logged, not surfaced.
	for _, edge := range trade.Edges {
		toName := m.displayName(ctx, serverID, edge.To)
		profile, err := m.users.GetByUID(ctx, edge.To)
		if err != nil {
			slog.Warn("Failed to load recipient profile",
				slog.String("trade", trade.Name),
				slog.String("user", edge.To.String()),
				slog.Any("error", err))
		}
		if err := m.notifier.NotifyUser(ctx, edge.From, assignmentMessage(trade, toName, profile)); err != nil {
			slog.Warn("Failed to deliver assignment DM",
				slog.String("trade", trade.Name),
				slog.String("user", edge.From.String()),
				slog.Any("error", err))
		}
	}

	if server.AnnouncementsChannel != 0 {
		if err := m.notifier.NotifyChannel(ctx, server.AnnouncementsChannel, startAnnouncement(server, trade)); err != nil {
			slog.Warn("Failed to post trade start announcement",
				slog.String("trade", trade.Name),
				slog.Any("error", err))
		}
	}

	if err := m.scheduler.Schedule(ctx, eventSchedule(trade, server)); err != nil {
		return nil, fmt.Errorf("trade %s created but scheduling failed: %w", trade.Name, err)
	}

	slog.Info("Trade started",
		slog.String("trade", trade.Name),
		slog.String("server", serverID.String()),
		slog.Int("participants", len(trade.Users)))
	return trade, nil
}

// StopTrade force-terminates a trade: pending events are canceled, the
// phase jumps to done, and participants get a cancellation notice instead
// of results.
func (m *Manager) StopTrade(ctx context.Context, serverID snowflake.ID, name string) error {
	trade, err := m.trades.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if trade == nil || trade.Server != serverID {
		return ErrTradeNotFound
	}
	if trade.Phase == models.PhaseDone {
		return ErrTradeEnded
	}

	if _, err := m.scheduler.Cancel(ctx, name); err != nil {
		return err
	}
	if err := m.trades.SetPhase(ctx, name, models.PhaseDone); err != nil {
		return err
	}
	m.cache.Remove(name)

	for _, user := range trade.Users {
		if err := m.notifier.NotifyUser(ctx, user, cancellationMessage(name)); err != nil {
			slog.Warn("Failed to deliver cancellation DM",
				slog.String("trade", name),
				slog.String("user", user.String()),
				slog.Any("error", err))
		}
	}

	slog.Info("Trade stopped", slog.String("trade", name))
	return nil
}

// ExtendTrade pushes the phase 1 deadline back by extraDays whole days and
// reschedules every still-pending event from the new baseline: the reminder
// and phase 2 times are recomputed from the new deadline, not shifted by
// the same delta.
func (m *Manager) ExtendTrade(ctx context.Context, serverID snowflake.ID, name string, extraDays int) (*models.Trade, error) {
	trade, err := m.trades.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if trade == nil || trade.Server != serverID {
		return nil, ErrTradeNotFound
	}
	switch trade.Phase {
	case models.PhaseDone:
		return nil, ErrTradeEnded
	case models.Phase2:
		return nil, ErrWrongPhase
	}

	server, err := m.servers.GetByUID(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, fmt.Errorf("server %s has not been set up", serverID)
	}

	newEnd := trade.End.AddDate(0, 0, extraDays)
	if err := m.trades.SetEnd(ctx, name, newEnd); err != nil {
		return nil, err
	}
	m.cache.Remove(name)
	trade.End = newEnd

	due := make(map[models.EventKind]time.Time, 4)
	for _, ev := range eventSchedule(trade, server) {
		due[ev.Kind] = ev.DueAt
	}
	if err := m.scheduler.Postpone(ctx, name, due); err != nil {
		return nil, err
	}

	for _, edge := range trade.Edges {
		if err := m.notifier.NotifyUser(ctx, edge.From, extensionMessage(name, newEnd, edge.Song != nil)); err != nil {
			slog.Warn("Failed to deliver extension DM",
				slog.String("trade", name),
				slog.String("user", edge.From.String()),
				slog.Any("error", err))
		}
	}

	slog.Info("Trade extended",
		slog.String("trade", name),
		slog.Int("extra_days", extraDays))
	return trade, nil
}

// SubmitSong records a sender's recommendation. Only legal during phase 1.
func (m *Manager) SubmitSong(ctx context.Context, name string, from snowflake.ID, song models.Song) error {
	trade, err := m.trades.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if trade == nil {
		return ErrTradeNotFound
	}
	if trade.Phase != models.Phase1 {
		return ErrWrongPhase
	}
	if trade.EdgeFrom(from) == nil {
		return ErrTradeNotFound
	}
	if err := m.trades.SetSong(ctx, name, from, song); err != nil {
		return err
	}
	m.cache.Remove(name)
	return nil
}

// SubmitResponse records a recipient's rating. Only legal during phase 2.
func (m *Manager) SubmitResponse(ctx context.Context, name string, to snowflake.ID, response models.Response) error {
	trade, err := m.trades.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if trade == nil {
		return ErrTradeNotFound
	}
	if trade.Phase != models.Phase2 {
		return ErrWrongPhase
	}
	if trade.EdgeTo(to) == nil {
		return ErrTradeNotFound
	}
	if err := m.trades.SetResponse(ctx, name, to, response); err != nil {
		return err
	}
	m.cache.Remove(name)
	return nil
}

// ActiveTradeNames lists the server's not-yet-done trades for autocomplete.
func (m *Manager) ActiveTradeNames(ctx context.Context, serverID snowflake.ID) ([]string, error) {
	return m.trades.ActiveNames(ctx, serverID)
}

// GetTrade is the cached read path for command handlers. Mutating paths
// always bypass the cache and invalidate it afterwards.
func (m *Manager) GetTrade(ctx context.Context, name string) (*models.Trade, error) {
	if cached, ok := m.cache.Get(name); ok {
		return cached.(*models.Trade), nil
	}
	trade, err := m.trades.GetByName(ctx, name)
	if err != nil || trade == nil {
		return nil, err
	}
	m.cache.Add(name, trade)
	return trade, nil
}

// eventSchedule lays out the four scheduled events implied by a trade's
// phase 1 deadline and its server's periods.
func eventSchedule(trade *models.Trade, server *models.Server) []models.Event {
	reminder := time.Duration(server.ReminderPeriod) * time.Minute
	phase2End := phase2Deadline(trade.End, server)

	return []models.Event{
		{TradeName: trade.Name, Server: trade.Server, Kind: models.EventPhase1Reminder, DueAt: trade.End.Add(-reminder)},
		{TradeName: trade.Name, Server: trade.Server, Kind: models.EventPhase1End, DueAt: trade.End},
		{TradeName: trade.Name, Server: trade.Server, Kind: models.EventPhase2Reminder, DueAt: phase2End.Add(-reminder)},
		{TradeName: trade.Name, Server: trade.Server, Kind: models.EventPhase2End, DueAt: phase2End},
	}
}

// displayName resolves a participant's server nickname, falling back to
// their profile name, falling back to a bare mention.
func (m *Manager) displayName(ctx context.Context, serverUID, userUID snowflake.ID) string {
	if member, err := m.servers.GetUser(ctx, serverUID, userUID); err == nil && member != nil && member.Nickname != "" {
		return member.Nickname
	}
	if user, err := m.users.GetByUID(ctx, userUID); err == nil && user != nil && user.Name != "" {
		return user.Name
	}
	return fmt.Sprintf("<@%s>", userUID)
}

// participantNames resolves display names for everyone in the trade, keyed
// by UID string.
func (m *Manager) participantNames(ctx context.Context, trade *models.Trade) map[string]string {
	names := make(map[string]string, len(trade.Users))
	for _, uid := range trade.Users {
		names[uid.String()] = m.displayName(ctx, trade.Server, uid)
	}
	return names
}
