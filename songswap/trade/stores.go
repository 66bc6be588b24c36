package trade

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/songswap/songswap/songswap/database/models"
)

// The engine only ever touches persistence through these interfaces. The
// repositories package implements them over Mongo; tests implement them in
// memory.

// TradeStore persists trade documents. Get methods return nil (no error)
// when nothing matches.
type TradeStore interface {
	Create(ctx context.Context, trade *models.Trade) error
	GetByName(ctx context.Context, name string) (*models.Trade, error)
	NameExists(ctx context.Context, name string) (bool, error)
	ActiveNames(ctx context.Context, server snowflake.ID) ([]string, error)
	SetPhase(ctx context.Context, name string, phase models.Phase) error
	SetEnd(ctx context.Context, name string, end time.Time) error
	SetSong(ctx context.Context, name string, from snowflake.ID, song models.Song) error
	SetResponse(ctx context.Context, name string, to snowflake.ID, response models.Response) error
}

// ServerStore reads server documents and membership records.
type ServerStore interface {
	GetByUID(ctx context.Context, uid snowflake.ID) (*models.Server, error)
	GetUser(ctx context.Context, serverUID, userUID snowflake.ID) (*models.ServerUser, error)
}

// UserStore reads music profiles.
type UserStore interface {
	GetByUID(ctx context.Context, uid snowflake.ID) (*models.User, error)
}

// EventStore persists scheduled events so timers survive restarts.
type EventStore interface {
	CreateMany(ctx context.Context, events []models.Event) error
	ListAll(ctx context.Context) ([]models.Event, error)
	ListByTrade(ctx context.Context, tradeName string) ([]models.Event, error)
	Delete(ctx context.Context, tradeName string, kind models.EventKind) error
	DeleteByTrade(ctx context.Context, tradeName string) (int64, error)
	Reschedule(ctx context.Context, tradeName string, kind models.EventKind, dueAt time.Time) error
}

// Paster publishes a block of text somewhere shareable and returns its URL.
// Used as the results fallback when a server has no announcements channel.
type Paster interface {
	Put(ctx context.Context, name, content string) (string, error)
}
