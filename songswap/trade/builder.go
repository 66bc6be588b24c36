package trade

import (
	"context"
	"time"

	"github.com/songswap/songswap/songswap/database/models"
)

// BuildTrade assembles a new trade for the server's opted-in users: a fresh
// derangement, a collision-checked name, and a phase 1 window of
// durationDays full days. The caller persists the result.
//
// Start is truncated to the beginning of the current day and the deadline
// lands on the final second of the last day, matching how participants think
// about "you have N days".
func BuildTrade(ctx context.Context, store TradeStore, server *models.Server, durationDays int) (*models.Trade, error) {
	participants := server.OptedIn()
	if len(participants) < 2 {
		return nil, ErrNotEnoughParticipants
	}

	name, err := uniqueName(ctx, store)
	if err != nil {
		return nil, err
	}

	start := StartOfDay(time.Now().UTC())
	end := EndOfDay(start.AddDate(0, 0, durationDays))

	return &models.Trade{
		Name:   name,
		Server: server.UID,
		Users:  participants,
		Edges:  Derange(participants),
		Start:  start,
		End:    end,
		Phase:  models.Phase1,
	}, nil
}

// StartOfDay truncates t to midnight in its location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the final second of t's day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Second)
}
