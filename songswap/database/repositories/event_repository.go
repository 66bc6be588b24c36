package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/songswap/songswap/songswap/database"
	"github.com/songswap/songswap/songswap/database/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type EventRepository interface {
	CreateMany(ctx context.Context, events []models.Event) error
	ListAll(ctx context.Context) ([]models.Event, error)
	ListByTrade(ctx context.Context, tradeName string) ([]models.Event, error)
	Delete(ctx context.Context, tradeName string, kind models.EventKind) error
	DeleteByTrade(ctx context.Context, tradeName string) (int64, error)
	Reschedule(ctx context.Context, tradeName string, kind models.EventKind, dueAt time.Time) error
}

type eventRepository struct {
	coll *mongo.Collection
}

func NewEventRepository(db *database.DB) EventRepository {
	return &eventRepository{coll: db.Collection("events")}
}

func (r *eventRepository) CreateMany(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	docs := make([]any, len(events))
	for i, ev := range events {
		docs[i] = ev
	}
	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to create events: %w", err)
	}
	return nil
}

// ListAll returns every pending event. Called once at startup to rebuild
// in-process timers.
func (r *eventRepository) ListAll(ctx context.Context) ([]models.Event, error) {
	return r.list(ctx, bson.M{})
}

func (r *eventRepository) ListByTrade(ctx context.Context, tradeName string) ([]models.Event, error) {
	return r.list(ctx, bson.M{"trade_name": tradeName})
}

func (r *eventRepository) list(ctx context.Context, filter bson.M) ([]models.Event, error) {
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []models.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}

// Delete removes a single event once it has fired. Deleting an already
// removed event is not an error; delivery is at-least-once.
func (r *eventRepository) Delete(ctx context.Context, tradeName string, kind models.EventKind) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"trade_name": tradeName, "kind": kind})
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// DeleteByTrade removes every pending event for the trade and reports how
// many were removed, so a stop command can tell a live trade from a dead one.
func (r *eventRepository) DeleteByTrade(ctx context.Context, tradeName string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"trade_name": tradeName})
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}
	return res.DeletedCount, nil
}

// Reschedule moves a pending event to a new due time. An event that already
// fired (no matching row) is left alone.
func (r *eventRepository) Reschedule(ctx context.Context, tradeName string, kind models.EventKind, dueAt time.Time) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"trade_name": tradeName, "kind": kind},
		bson.M{"$set": bson.M{"due_at": dueAt}})
	if err != nil {
		return fmt.Errorf("failed to reschedule event: %w", err)
	}
	return nil
}
