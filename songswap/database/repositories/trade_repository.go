package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/songswap/songswap/songswap/database"
	"github.com/songswap/songswap/songswap/database/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TradeRepository interface {
	Create(ctx context.Context, trade *models.Trade) error
	GetByName(ctx context.Context, name string) (*models.Trade, error)
	NameExists(ctx context.Context, name string) (bool, error)
	ActiveNames(ctx context.Context, server snowflake.ID) ([]string, error)
	SetPhase(ctx context.Context, name string, phase models.Phase) error
	SetEnd(ctx context.Context, name string, end time.Time) error
	SetSong(ctx context.Context, name string, from snowflake.ID, song models.Song) error
	SetResponse(ctx context.Context, name string, to snowflake.ID, response models.Response) error
	FindEdges(ctx context.Context, server snowflake.ID, from, to *snowflake.ID) ([]models.Edge, error)
}

type tradeRepository struct {
	coll *mongo.Collection
}

func NewTradeRepository(db *database.DB) TradeRepository {
	return &tradeRepository{coll: db.Collection("trades")}
}

func (r *tradeRepository) Create(ctx context.Context, trade *models.Trade) error {
	if _, err := r.coll.InsertOne(ctx, trade); err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	return nil
}

// GetByName returns the trade, or nil if no trade has that name.
func (r *tradeRepository) GetByName(ctx context.Context, name string) (*models.Trade, error) {
	trade := new(models.Trade)
	err := r.coll.FindOne(ctx, bson.M{"name": name}).Decode(trade)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return trade, nil
}

func (r *tradeRepository) NameExists(ctx context.Context, name string) (bool, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{"name": name}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check trade name: %w", err)
	}
	return count > 0, nil
}

// ActiveNames returns the names of the server's trades that have not reached
// the done phase, most recent first. Used for admin autocomplete.
func (r *tradeRepository) ActiveNames(ctx context.Context, server snowflake.ID) ([]string, error) {
	cursor, err := r.coll.Find(ctx,
		bson.M{"server": server, "phase": bson.M{"$ne": models.PhaseDone}},
		options.Find().
			SetProjection(bson.M{"name": 1}).
			SetSort(bson.D{{Key: "start", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list active trades: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		Name string `bson:"name"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode trade names: %w", err)
	}

	names := make([]string, len(docs))
	for i, doc := range docs {
		names[i] = doc.Name
	}
	return names, nil
}

func (r *tradeRepository) SetPhase(ctx context.Context, name string, phase models.Phase) error {
	return r.updateOne(ctx, bson.M{"name": name}, bson.M{"$set": bson.M{"phase": phase}})
}

func (r *tradeRepository) SetEnd(ctx context.Context, name string, end time.Time) error {
	return r.updateOne(ctx, bson.M{"name": name}, bson.M{"$set": bson.M{"end": end}})
}

// SetSong records the song on the edge whose sender is from. Phase rules are
// enforced by the trade manager, not here.
func (r *tradeRepository) SetSong(ctx context.Context, name string, from snowflake.ID, song models.Song) error {
	return r.updateOne(ctx,
		bson.M{"name": name, "edges.from": from},
		bson.M{"$set": bson.M{"edges.$.song": song}})
}

func (r *tradeRepository) SetResponse(ctx context.Context, name string, to snowflake.ID, response models.Response) error {
	return r.updateOne(ctx,
		bson.M{"name": name, "edges.to": to},
		bson.M{"$set": bson.M{"edges.$.response": response}})
}

// FindEdges returns every edge across the server's finished and ongoing
// trades matching the optional sender and recipient filters, newest trade
// first. Edge filtering happens client side; the trades collection is small
// per server and the query stays on the server index.
func (r *tradeRepository) FindEdges(ctx context.Context, server snowflake.ID, from, to *snowflake.ID) ([]models.Edge, error) {
	filter := bson.M{"server": server}
	if from != nil {
		filter["edges.from"] = *from
	}
	if to != nil {
		filter["edges.to"] = *to
	}

	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find trades: %w", err)
	}
	defer cursor.Close(ctx)

	var trades []models.Trade
	if err := cursor.All(ctx, &trades); err != nil {
		return nil, fmt.Errorf("failed to decode trades: %w", err)
	}

	var edges []models.Edge
	for _, trade := range trades {
		for _, edge := range trade.Edges {
			if from != nil && edge.From != *from {
				continue
			}
			if to != nil && edge.To != *to {
				continue
			}
			edges = append(edges, edge)
		}
	}
	return edges, nil
}

func (r *tradeRepository) updateOne(ctx context.Context, filter, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("trade not found")
	}
	return nil
}
