package trade

import (
	"context"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/songswap/songswap/songswap/database/models"
	"github.com/songswap/songswap/songswap/utils"
)

// Phase transitions. Every entry point re-reads the persisted trade and
// no-ops if the phase already advanced: the scheduler delivers at least
// once, so each handler must tolerate duplicates. A missing trade or server
// is a data anomaly, logged and abandoned without retry. A failed DM skips
// that participant and the transition carries on.

// dispatch routes a fired event to its transition. The kind set is closed;
// an unknown kind can only mean a corrupted event document.
func (m *Manager) dispatch(ctx context.Context, ev models.Event) {
	switch ev.Kind {
	case models.EventPhase1End:
		m.endPhase1(ctx, ev)
	case models.EventPhase1Reminder:
		m.remindPhase1(ctx, ev)
	case models.EventPhase2End:
		m.endPhase2(ctx, ev)
	case models.EventPhase2Reminder:
		m.remindPhase2(ctx, ev)
	default:
		slog.Error("Dropping event of unknown kind",
			slog.String("trade", ev.TradeName),
			slog.String("kind", string(ev.Kind)))
	}
}

// endPhase1 closes the song window: recipients learn what they got (or that
// their sender flaked) and the trade moves to phase 2.
func (m *Manager) endPhase1(ctx context.Context, ev models.Event) {
	trade, server, ok := m.loadForTransition(ctx, ev)
	if !ok || trade.Phase != models.Phase1 {
		return
	}

	if err := m.trades.SetPhase(ctx, trade.Name, models.Phase2); err != nil {
		slog.Error("Failed to advance trade to phase 2",
			slog.String("trade", trade.Name),
			slog.Any("error", err))
		return
	}
	m.cache.Remove(trade.Name)

	phase2End := phase2Deadline(trade.End, server)
	for _, edge := range trade.Edges {
		var msg discord.MessageCreate
		if edge.Song != nil {
			msg = songDeliveryMessage(trade, edge.Song, phase2End)
		} else {
			msg = missedSongMessage(phase2End)
		}
		if err := m.notifier.NotifyUser(ctx, edge.To, msg); err != nil {
			slog.Warn("Failed to deliver phase 2 DM",
				slog.String("trade", trade.Name),
				slog.String("user", edge.To.String()),
				slog.Any("error", err))
		}
	}

	slog.Info("Trade advanced to phase 2",
		slog.String("trade", trade.Name),
		slog.Int("participants", len(trade.Users)))
}

// remindPhase1 nudges senders who haven't submitted a song yet.
func (m *Manager) remindPhase1(ctx context.Context, ev models.Event) {
	trade, _, ok := m.loadForTransition(ctx, ev)
	if !ok || trade.Phase != models.Phase1 {
		return
	}

	for _, edge := range trade.Edges {
		if edge.Song != nil {
			continue
		}
		if err := m.notifier.NotifyUser(ctx, edge.From, phase1ReminderMessage(trade.End)); err != nil {
			slog.Warn("Failed to deliver phase 1 reminder",
				slog.String("trade", trade.Name),
				slog.String("user", edge.From.String()),
				slog.Any("error", err))
		}
	}
}

// endPhase2 completes the trade and publishes the results: to the server's
// announcements channel when one is configured, otherwise as a paste link
// (or plain DMs) to every participant.
func (m *Manager) endPhase2(ctx context.Context, ev models.Event) {
	trade, server, ok := m.loadForTransition(ctx, ev)
	if !ok || trade.Phase == models.PhaseDone {
		return
	}

	if err := m.trades.SetPhase(ctx, trade.Name, models.PhaseDone); err != nil {
		slog.Error("Failed to complete trade",
			slog.String("trade", trade.Name),
			slog.Any("error", err))
		return
	}
	m.cache.Remove(trade.Name)

	names := m.participantNames(ctx, trade)

	announced := false
	if server.AnnouncementsChannel != 0 {
		announced = m.announceResults(ctx, trade, server, names)
	}
	if !announced {
		m.distributeResults(ctx, trade, names)
	}

	slog.Info("Trade completed",
		slog.String("trade", trade.Name),
		slog.Bool("announced", announced))
}

// remindPhase2 nudges recipients who got a song but haven't rated it.
func (m *Manager) remindPhase2(ctx context.Context, ev models.Event) {
	trade, server, ok := m.loadForTransition(ctx, ev)
	if !ok || trade.Phase != models.Phase2 {
		return
	}

	deadline := phase2Deadline(trade.End, server)
	for _, edge := range trade.Edges {
		if edge.Song == nil || edge.Response != nil {
			continue
		}
		if err := m.notifier.NotifyUser(ctx, edge.To, phase2ReminderMessage(deadline)); err != nil {
			slog.Warn("Failed to deliver phase 2 reminder",
				slog.String("trade", trade.Name),
				slog.String("user", edge.To.String()),
				slog.Any("error", err))
		}
	}
}

// announceResults posts the compiled edges to the announcements channel,
// ten embeds per message. Returns false if even the first message could not
// be delivered, so the caller can fall back to individual delivery.
func (m *Manager) announceResults(ctx context.Context, trade *models.Trade, server *models.Server, names map[string]string) bool {
	embeds := make([]discord.Embed, 0, len(trade.Edges))
	for _, edge := range trade.Edges {
		embeds = append(embeds, utils.EdgeEmbed(edge, names[edge.From.String()], names[edge.To.String()]))
	}

	for i, chunk := range chunkEmbeds(embeds, 10) {
		msg := discord.MessageCreate{Embeds: chunk}
		if i == 0 {
			msg.Content = resultsHeader(server, trade.Name)
		}
		if err := m.notifier.NotifyChannel(ctx, server.AnnouncementsChannel, msg); err != nil {
			slog.Warn("Failed to post results to announcements channel",
				slog.String("trade", trade.Name),
				slog.String("channel", server.AnnouncementsChannel.String()),
				slog.Any("error", err))
			return i > 0
		}
	}
	return true
}

// distributeResults delivers the results to each participant directly: as a
// paste link when a paste service is wired, otherwise as DM embeds.
func (m *Manager) distributeResults(ctx context.Context, trade *models.Trade, names map[string]string) {
	var messages []discord.MessageCreate
	if m.paste != nil {
		url, err := m.paste.Put(ctx, trade.Name, resultsText(trade, names))
		if err == nil {
			messages = []discord.MessageCreate{resultsLinkMessage(trade.Name, url)}
		} else {
			slog.Warn("Failed to upload results paste",
				slog.String("trade", trade.Name),
				slog.Any("error", err))
		}
	}
	if messages == nil {
		embeds := make([]discord.Embed, 0, len(trade.Edges))
		for _, edge := range trade.Edges {
			embeds = append(embeds, utils.EdgeEmbed(edge, names[edge.From.String()], names[edge.To.String()]))
		}
		for i, chunk := range chunkEmbeds(embeds, 10) {
			msg := discord.MessageCreate{Embeds: chunk}
			if i == 0 {
				msg.Content = "**End of trade " + trade.Name + "**\nHere's everything that was traded:"
			}
			messages = append(messages, msg)
		}
	}

	for _, user := range trade.Users {
		for _, msg := range messages {
			if err := m.notifier.NotifyUser(ctx, user, msg); err != nil {
				slog.Warn("Failed to deliver results DM",
					slog.String("trade", trade.Name),
					slog.String("user", user.String()),
					slog.Any("error", err))
				break
			}
		}
	}
}

// loadForTransition fetches the trade and server a fired event refers to.
// Either one missing is a consistency anomaly: log and abandon this single
// transition, never retry.
func (m *Manager) loadForTransition(ctx context.Context, ev models.Event) (*models.Trade, *models.Server, bool) {
	trade, err := m.trades.GetByName(ctx, ev.TradeName)
	if err != nil || trade == nil {
		slog.Error("Trade missing for scheduled event",
			slog.String("trade", ev.TradeName),
			slog.String("kind", string(ev.Kind)),
			slog.Any("error", err))
		return nil, nil, false
	}
	server, err := m.servers.GetByUID(ctx, ev.Server)
	if err != nil || server == nil {
		slog.Error("Server missing for scheduled event",
			slog.String("trade", ev.TradeName),
			slog.String("server", ev.Server.String()),
			slog.Any("error", err))
		return nil, nil, false
	}
	return trade, server, true
}

// phase2Deadline is the response window's end: the phase 1 deadline plus the
// server's comment period.
func phase2Deadline(phase1End time.Time, server *models.Server) time.Time {
	return phase1End.Add(time.Duration(server.CommentPeriod) * time.Minute)
}

func chunkEmbeds(embeds []discord.Embed, size int) [][]discord.Embed {
	var chunks [][]discord.Embed
	for len(embeds) > size {
		chunks = append(chunks, embeds[:size])
		embeds = embeds[size:]
	}
	if len(embeds) > 0 {
		chunks = append(chunks, embeds)
	}
	return chunks
}
