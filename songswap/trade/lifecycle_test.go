package trade

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/songswap/songswap/songswap/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartTrade_PersistsAnnouncesAndSchedules(t *testing.T) {
	env := newTestEnv(4, true)
	defer env.manager.Shutdown()
	ctx := context.Background()

	trade, err := env.startTrade(ctx, 3)
	require.NoError(t, err)

	stored, err := env.trades.GetByName(ctx, trade.Name)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.Phase1, stored.Phase)

	// One assignment DM per sender, one channel announcement.
	assert.Equal(t, 4, env.notifier.dmCount())
	require.Len(t, env.notifier.channels, 1)
	assert.Equal(t, env.server.AnnouncementsChannel, env.notifier.channels[0].target)

	// All four deadline events, anchored on the trade end and the server's
	// periods.
	assert.Equal(t, 4, env.events.count())
	assert.Equal(t, trade.End, env.eventFor(trade.Name, models.EventPhase1End).DueAt)
	assert.Equal(t, trade.End.Add(-60*time.Minute), env.eventFor(trade.Name, models.EventPhase1Reminder).DueAt)
	assert.Equal(t, trade.End.Add(240*time.Minute), env.eventFor(trade.Name, models.EventPhase2End).DueAt)
	assert.Equal(t, trade.End.Add(180*time.Minute), env.eventFor(trade.Name, models.EventPhase2Reminder).DueAt)
}

func TestStartTrade_NotEnoughParticipants(t *testing.T) {
	env := newTestEnv(1, false)
	defer env.manager.Shutdown()

	_, err := env.startTrade(context.Background(), 3)
	assert.ErrorIs(t, err, ErrNotEnoughParticipants)
	assert.Equal(t, 0, env.events.count())
}

func TestEndPhase1_DeliversSongsAndAdvances(t *testing.T) {
	env := newTestEnv(3, false)
	defer env.manager.Shutdown()
	ctx := context.Background()

	trade, err := env.startTrade(ctx, 3)
	require.NoError(t, err)

	// Two senders deliver, one flakes.
	require.NoError(t, env.manager.SubmitSong(ctx, trade.Name, trade.Edges[0].From, models.Song{Song: "song a"}))
	require.NoError(t, env.manager.SubmitSong(ctx, trade.Name, trade.Edges[1].From, models.Song{Song: "song b"}))

	before := env.notifier.dmCount()
	env.manager.endPhase1(ctx, env.eventFor(trade.Name, models.EventPhase1End))

	stored, _ := env.trades.GetByName(ctx, trade.Name)
	assert.Equal(t, models.Phase2, stored.Phase)

	// Every recipient hears from the bot, song or not.
	assert.Equal(t, before+3, env.notifier.dmCount())

	missedRecipient := trade.Edges[2].To
	msgs := env.notifier.dmsTo(missedRecipient)
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1].message
	assert.Contains(t, last.Content, "didn't send in a song")
}

func TestEndPhase1_DuplicateEventIsNoOp(t *testing.T) {
	env := newTestEnv(2, false)
	defer env.manager.Shutdown()
	ctx := context.Background()

	trade, err := env.startTrade(ctx, 3)
	require.NoError(t, err)

	ev := env.eventFor(trade.Name, models.EventPhase1End)
	env.manager.endPhase1(ctx, ev)
	after := env.notifier.dmCount()

	env.manager.endPhase1(ctx, ev)
	assert.Equal(t, after, env.notifier.dmCount(), "duplicate delivery must not re-send DMs")

	stored, _ := env.trades.GetByName(ctx, trade.Name)
	assert.Equal(t, models.Phase2, stored.Phase)
}

func TestTransitions_ContinuePastFailedDMs(t *testing.T) {
	env := newTestEnv(3, false)
	defer env.manager.Shutdown()
	ctx := context.Background()

	trade, err := env.startTrade(ctx, 3)
	require.NoError(t, err)
	require.NoError(t, env.manager.SubmitSong(ctx, trade.Name, trade.Edges[0].From, models.Song{Song: "song a"}))

	// Every DM from here on is undeliverable; the transitions must still run
	// to completion and advance the persisted phase.
	env.notifier.failDMs = true

	env.manager.endPhase1(ctx, env.eventFor(trade.Name, models.EventPhase1End))
	stored, _ := env.trades.GetByName(ctx, trade.Name)
	assert.Equal(t, models.Phase2, stored.Phase)

	env.manager.endPhase2(ctx, env.eventFor(trade.Name, models.EventPhase2End))
	stored, _ = env.trades.GetByName(ctx, trade.Name)
	assert.Equal(t, models.PhaseDone, stored.Phase)

	// The results still made it to the paste service even though nobody could
	// be told about them.
	assert.Contains(t, env.paste.uploads, trade.Name)
}

func TestRemindPhase1_OnlyNudgesMissingSenders(t *testing.T) {
	env := newTestEnv(3, false)
	defer env.manager.Shutdown()
	ctx := context.Background()

	trade, err := env.startTrade(ctx, 3)
	require.NoError(t, err)
	require.NoError(t, env.manager.SubmitSong(ctx, trade.Name, trade.Edges[0].From, models.Song{Song: "done"}))

	before := env.notifier.dmCount()
	env.manager.remindPhase1(ctx, env.eventFor(trade.Name, models.EventPhase1Reminder))

	assert.Equal(t, before+2, env.notifier.dmCount())
	for _, edge := range trade.Edges[1:] {
		msgs := env.notifier.dmsTo(edge.From)
		require.NotEmpty(t, msgs)
		assert.Contains(t, msgs[len(msgs)-1].message.Content, "gentle reminder")
	}
}

func TestRemindPhase2_OnlyNudgesUnratedRecipients(t *testing.T) {
	env := newTestEnv(3, false)
	defer env.manager.Shutdown()
	ctx := context.Background()

	trade, err := env.startTrade(ctx, 3)
	require.NoError(t, err)
	for _, edge := range trade.Edges {
		require.NoError(t, env.manager.SubmitSong(ctx, trade.Name, edge.From, models.Song{Song: "x"}))
	}
	env.manager.endPhase1(ctx, env.eventFor(trade.Name, models.EventPhase1End))
	require.NoError(t, env.manager.SubmitResponse(ctx, trade.Name, trade.Edges[0].To, models.Response{Rating: "8"}))

	before := env.notifier.dmCount()
	env.manager.remindPhase2(ctx, env.eventFor(trade.Name, models.EventPhase2Reminder))
	assert.Equal(t, before+2, env.notifier.dmCount())
}

func TestEndPhase2_AnnouncesResultsToChannel(t *testing.T) {
	env := newTestEnv(3, true)
	defer env.manager.Shutdown()
	ctx := context.Background()

	trade, err := env.startTrade(ctx, 3)
	require.NoError(t, err)
	require.NoError(t, env.manager.SubmitSong(ctx, trade.Name, trade.Edges[0].From, models.Song{Song: "song a"}))
	env.manager.endPhase1(ctx, env.eventFor(trade.Name, models.EventPhase1End))
	require.NoError(t, env.manager.SubmitResponse(ctx, trade.Name, trade.Edges[0].To, models.Response{Rating: "9"}))

	channelBefore := len(env.notifier.channels)
	env.manager.endPhase2(ctx, env.eventFor(trade.Name, models.EventPhase2End))

	stored, _ := env.trades.GetByName(ctx, trade.Name)
	assert.Equal(t, models.PhaseDone, stored.Phase)

	// One results message carrying an embed per edge, missing submissions
	// included as placeholders.
	results := env.notifier.channels[channelBefore:]
	require.Len(t, results, 1)
	assert.Len(t, results[0].message.Embeds, 3)
	assert.Contains(t, results[0].message.Content, "End of trade "+trade.Name)
}

func TestEndPhase2_FallsBackToPasteWithoutChannel(t *testing.T) {
	env := newTestEnv(2, false)
	defer env.manager.Shutdown()
	ctx := context.Background()

	trade, err := env.startTrade(ctx, 3)
	require.NoError(t, err)
	env.manager.endPhase1(ctx, env.eventFor(trade.Name, models.EventPhase1End))

	before := env.notifier.dmCount()
	env.manager.endPhase2(ctx, env.eventFor(trade.Name, models.EventPhase2End))

	assert.Empty(t, env.notifier.channels)
	assert.Contains(t, env.paste.uploads, trade.Name)

	// Every participant gets the paste link.
	assert.Equal(t, before+2, env.notifier.dmCount())
	for _, uid := range trade.Users {
		msgs := env.notifier.dmsTo(uid)
		require.NotEmpty(t, msgs)
		assert.Contains(t, msgs[len(msgs)-1].message.Content, "https://paste.example/"+trade.Name)
	}
}

func TestEndPhase2_DuplicateEventIsNoOp(t *testing.T) {
	env := newTestEnv(2, true)
	defer env.manager.Shutdown()
	ctx := context.Background()

	trade, err := env.startTrade(ctx, 3)
	require.NoError(t, err)
	env.manager.endPhase1(ctx, env.eventFor(trade.Name, models.EventPhase1End))
	env.manager.endPhase2(ctx, env.eventFor(trade.Name, models.EventPhase2End))

	channels := len(env.notifier.channels)
	dms := env.notifier.dmCount()
	env.manager.endPhase2(ctx, env.eventFor(trade.Name, models.EventPhase2End))

	assert.Equal(t, channels, len(env.notifier.channels))
	assert.Equal(t, dms, env.notifier.dmCount())
}

func TestStopTrade_CancelsEventsAndNotifies(t *testing.T) {
	env := newTestEnv(3, false)
	defer env.manager.Shutdown()
	ctx := context.Background()

	trade, err := env.startTrade(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, 4, env.events.count())

	before := env.notifier.dmCount()
	require.NoError(t, env.manager.StopTrade(ctx, env.server.UID, trade.Name))

	stored, _ := env.trades.GetByName(ctx, trade.Name)
	assert.Equal(t, models.PhaseDone, stored.Phase)
	assert.Equal(t, 0, env.events.count())
	assert.Equal(t, before+3, env.notifier.dmCount())

	// Stopping again reports the trade as over.
	assert.ErrorIs(t, env.manager.StopTrade(ctx, env.server.UID, trade.Name), ErrTradeEnded)
}

func TestStopTrade_WrongServerIsNotFound(t *testing.T) {
	env := newTestEnv(2, false)
	defer env.manager.Shutdown()
	ctx := context.Background()

	trade, err := env.startTrade(ctx, 3)
	require.NoError(t, err)

	err = env.manager.StopTrade(ctx, snowflake.ID(9999), trade.Name)
	assert.ErrorIs(t, err, ErrTradeNotFound)
}

func TestExtendTrade_RecomputesScheduleFromNewDeadline(t *testing.T) {
	env := newTestEnv(2, false)
	defer env.manager.Shutdown()
	ctx := context.Background()

	trade, err := env.startTrade(ctx, 3)
	require.NoError(t, err)
	oldEnd := trade.End

	extended, err := env.manager.ExtendTrade(ctx, env.server.UID, trade.Name, 2)
	require.NoError(t, err)

	newEnd := oldEnd.AddDate(0, 0, 2)
	assert.Equal(t, newEnd, extended.End)

	stored, _ := env.trades.GetByName(ctx, trade.Name)
	assert.Equal(t, newEnd, stored.End)

	// All four events shift to the recomputed baseline, not by a fixed delta.
	assert.Equal(t, newEnd, env.eventFor(trade.Name, models.EventPhase1End).DueAt)
	assert.Equal(t, newEnd.Add(-60*time.Minute), env.eventFor(trade.Name, models.EventPhase1Reminder).DueAt)
	assert.Equal(t, newEnd.Add(240*time.Minute), env.eventFor(trade.Name, models.EventPhase2End).DueAt)
	assert.Equal(t, newEnd.Add(180*time.Minute), env.eventFor(trade.Name, models.EventPhase2Reminder).DueAt)
}

func TestExtendTrade_LeavesFiredRemindersGone(t *testing.T) {
	env := newTestEnv(2, false)
	defer env.manager.Shutdown()
	ctx := context.Background()

	trade, err := env.startTrade(ctx, 3)
	require.NoError(t, err)

	// The phase 1 reminder fires (and is consumed) before the extension.
	require.NoError(t, env.events.Delete(ctx, trade.Name, models.EventPhase1Reminder))
	env.manager.remindPhase1(ctx, env.eventFor(trade.Name, models.EventPhase1Reminder))

	extended, err := env.manager.ExtendTrade(ctx, env.server.UID, trade.Name, 2)
	require.NoError(t, err)

	// Only still-pending events move; the consumed reminder is not recreated.
	_, ok := env.events.get(trade.Name, models.EventPhase1Reminder)
	assert.False(t, ok)
	assert.Equal(t, 3, env.events.count())
	assert.Equal(t, extended.End, env.eventFor(trade.Name, models.EventPhase1End).DueAt)
}

func TestExtendTrade_TellsSendersWhoAlreadySubmitted(t *testing.T) {
	env := newTestEnv(2, false)
	defer env.manager.Shutdown()
	ctx := context.Background()

	trade, err := env.startTrade(ctx, 3)
	require.NoError(t, err)
	require.NoError(t, env.manager.SubmitSong(ctx, trade.Name, trade.Edges[0].From, models.Song{Song: "early bird"}))

	before := env.notifier.dmCount()
	_, err = env.manager.ExtendTrade(ctx, env.server.UID, trade.Name, 1)
	require.NoError(t, err)
	require.Equal(t, before+2, env.notifier.dmCount())

	submitted := env.notifier.dmsTo(trade.Edges[0].From)
	assert.True(t, strings.Contains(submitted[len(submitted)-1].message.Content, "Hang on tight"))

	waiting := env.notifier.dmsTo(trade.Edges[1].From)
	assert.True(t, strings.Contains(waiting[len(waiting)-1].message.Content, "Remember to submit"))
}

func TestExtendTrade_PhaseRules(t *testing.T) {
	env := newTestEnv(2, false)
	defer env.manager.Shutdown()
	ctx := context.Background()

	trade, err := env.startTrade(ctx, 3)
	require.NoError(t, err)

	_, err = env.manager.ExtendTrade(ctx, env.server.UID, "no-such-trade", 1)
	assert.ErrorIs(t, err, ErrTradeNotFound)

	env.manager.endPhase1(ctx, env.eventFor(trade.Name, models.EventPhase1End))
	_, err = env.manager.ExtendTrade(ctx, env.server.UID, trade.Name, 1)
	assert.ErrorIs(t, err, ErrWrongPhase)

	require.NoError(t, env.trades.SetPhase(ctx, trade.Name, models.PhaseDone))
	_, err = env.manager.ExtendTrade(ctx, env.server.UID, trade.Name, 1)
	assert.ErrorIs(t, err, ErrTradeEnded)
}

func TestSubmitSong_PhaseAndMembershipGates(t *testing.T) {
	env := newTestEnv(2, false)
	defer env.manager.Shutdown()
	ctx := context.Background()

	trade, err := env.startTrade(ctx, 3)
	require.NoError(t, err)

	assert.ErrorIs(t,
		env.manager.SubmitSong(ctx, "no-such-trade", trade.Edges[0].From, models.Song{Song: "x"}),
		ErrTradeNotFound)
	assert.ErrorIs(t,
		env.manager.SubmitSong(ctx, trade.Name, snowflake.ID(777), models.Song{Song: "x"}),
		ErrTradeNotFound)

	require.NoError(t, env.manager.SubmitSong(ctx, trade.Name, trade.Edges[0].From, models.Song{Song: "first"}))
	// Resubmitting overwrites.
	require.NoError(t, env.manager.SubmitSong(ctx, trade.Name, trade.Edges[0].From, models.Song{Song: "second"}))
	stored, _ := env.trades.GetByName(ctx, trade.Name)
	assert.Equal(t, "second", stored.EdgeFrom(trade.Edges[0].From).Song.Song)

	env.manager.endPhase1(ctx, env.eventFor(trade.Name, models.EventPhase1End))
	assert.ErrorIs(t,
		env.manager.SubmitSong(ctx, trade.Name, trade.Edges[0].From, models.Song{Song: "too late"}),
		ErrWrongPhase)
}

func TestSubmitResponse_PhaseAndMembershipGates(t *testing.T) {
	env := newTestEnv(2, false)
	defer env.manager.Shutdown()
	ctx := context.Background()

	trade, err := env.startTrade(ctx, 3)
	require.NoError(t, err)

	// Responses are not open during phase 1.
	assert.ErrorIs(t,
		env.manager.SubmitResponse(ctx, trade.Name, trade.Edges[0].To, models.Response{Rating: "7"}),
		ErrWrongPhase)

	env.manager.endPhase1(ctx, env.eventFor(trade.Name, models.EventPhase1End))

	assert.ErrorIs(t,
		env.manager.SubmitResponse(ctx, trade.Name, snowflake.ID(777), models.Response{Rating: "7"}),
		ErrTradeNotFound)
	require.NoError(t, env.manager.SubmitResponse(ctx, trade.Name, trade.Edges[0].To, models.Response{Rating: "7"}))

	stored, _ := env.trades.GetByName(ctx, trade.Name)
	assert.Equal(t, "7", stored.EdgeTo(trade.Edges[0].To).Response.Rating)
}

func TestGetTrade_CacheInvalidatedByMutations(t *testing.T) {
	env := newTestEnv(2, false)
	defer env.manager.Shutdown()
	ctx := context.Background()

	trade, err := env.startTrade(ctx, 3)
	require.NoError(t, err)

	cached, err := env.manager.GetTrade(ctx, trade.Name)
	require.NoError(t, err)
	assert.Equal(t, models.Phase1, cached.Phase)

	env.manager.endPhase1(ctx, env.eventFor(trade.Name, models.EventPhase1End))

	fresh, err := env.manager.GetTrade(ctx, trade.Name)
	require.NoError(t, err)
	assert.Equal(t, models.Phase2, fresh.Phase)
}

func TestDispatch_UnknownKindIsDropped(t *testing.T) {
	env := newTestEnv(2, false)
	defer env.manager.Shutdown()
	ctx := context.Background()

	trade, err := env.startTrade(ctx, 3)
	require.NoError(t, err)

	before := env.notifier.dmCount()
	env.manager.dispatch(ctx, models.Event{
		TradeName: trade.Name,
		Server:    env.server.UID,
		Kind:      models.EventKind("corrupted"),
	})
	assert.Equal(t, before, env.notifier.dmCount())

	stored, _ := env.trades.GetByName(ctx, trade.Name)
	assert.Equal(t, models.Phase1, stored.Phase)
}
