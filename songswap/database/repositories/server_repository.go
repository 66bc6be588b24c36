package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/songswap/songswap/songswap/database"
	"github.com/songswap/songswap/songswap/database/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type ServerRepository interface {
	Create(ctx context.Context, server *models.Server) error
	GetByUID(ctx context.Context, uid snowflake.ID) (*models.Server, error)
	SetName(ctx context.Context, uid snowflake.ID, name string) error
	GetUser(ctx context.Context, serverUID, userUID snowflake.ID) (*models.ServerUser, error)
	AddUser(ctx context.Context, serverUID snowflake.ID, user models.ServerUser) error
	RemoveUser(ctx context.Context, serverUID, userUID snowflake.ID) error
	SetOpt(ctx context.Context, serverUID, userUID snowflake.ID, optedIn bool) error
	SetNickname(ctx context.Context, serverUID, userUID snowflake.ID, nickname string) error
	SetReminderPeriod(ctx context.Context, uid snowflake.ID, minutes int) error
	SetCommentPeriod(ctx context.Context, uid snowflake.ID, minutes int) error
	SetAnnouncementsChannel(ctx context.Context, uid, channel snowflake.ID) error
	SetPingableRole(ctx context.Context, uid, role snowflake.ID) error
	ClearPingableRole(ctx context.Context, uid snowflake.ID) error
}

type serverRepository struct {
	coll *mongo.Collection
}

func NewServerRepository(db *database.DB) ServerRepository {
	return &serverRepository{coll: db.Collection("servers")}
}

func (r *serverRepository) Create(ctx context.Context, server *models.Server) error {
	if server.Users == nil {
		server.Users = []models.ServerUser{}
	}
	if _, err := r.coll.InsertOne(ctx, server); err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return nil
}

// GetByUID returns the server document, or nil if none exists.
func (r *serverRepository) GetByUID(ctx context.Context, uid snowflake.ID) (*models.Server, error) {
	server := new(models.Server)
	err := r.coll.FindOne(ctx, bson.M{"uid": uid}).Decode(server)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get server: %w", err)
	}
	return server, nil
}

func (r *serverRepository) SetName(ctx context.Context, uid snowflake.ID, name string) error {
	return r.updateOne(ctx, bson.M{"uid": uid}, bson.M{"$set": bson.M{"name": name}})
}

// GetUser returns the membership record for userUID in serverUID, or nil if
// the user has never opted in or out there.
func (r *serverRepository) GetUser(ctx context.Context, serverUID, userUID snowflake.ID) (*models.ServerUser, error) {
	server, err := r.GetByUID(ctx, serverUID)
	if err != nil || server == nil {
		return nil, err
	}
	return server.User(userUID), nil
}

func (r *serverRepository) AddUser(ctx context.Context, serverUID snowflake.ID, user models.ServerUser) error {
	return r.updateOne(ctx,
		bson.M{"uid": serverUID, "users.uid": bson.M{"$ne": user.UID}},
		bson.M{"$push": bson.M{"users": user}})
}

func (r *serverRepository) RemoveUser(ctx context.Context, serverUID, userUID snowflake.ID) error {
	return r.updateOne(ctx,
		bson.M{"uid": serverUID},
		bson.M{"$pull": bson.M{"users": bson.M{"uid": userUID}}})
}

func (r *serverRepository) SetOpt(ctx context.Context, serverUID, userUID snowflake.ID, optedIn bool) error {
	return r.updateOne(ctx,
		bson.M{"uid": serverUID, "users.uid": userUID},
		bson.M{"$set": bson.M{"users.$.opted_in": optedIn}})
}

func (r *serverRepository) SetNickname(ctx context.Context, serverUID, userUID snowflake.ID, nickname string) error {
	update := bson.M{"$set": bson.M{"users.$.nickname": nickname}}
	if nickname == "" {
		update = bson.M{"$unset": bson.M{"users.$.nickname": ""}}
	}
	return r.updateOne(ctx, bson.M{"uid": serverUID, "users.uid": userUID}, update)
}

func (r *serverRepository) SetReminderPeriod(ctx context.Context, uid snowflake.ID, minutes int) error {
	return r.updateOne(ctx, bson.M{"uid": uid}, bson.M{"$set": bson.M{"reminder_period": minutes}})
}

func (r *serverRepository) SetCommentPeriod(ctx context.Context, uid snowflake.ID, minutes int) error {
	return r.updateOne(ctx, bson.M{"uid": uid}, bson.M{"$set": bson.M{"comment_period": minutes}})
}

func (r *serverRepository) SetAnnouncementsChannel(ctx context.Context, uid, channel snowflake.ID) error {
	return r.updateOne(ctx, bson.M{"uid": uid}, bson.M{"$set": bson.M{"announcements_channel": channel}})
}

func (r *serverRepository) SetPingableRole(ctx context.Context, uid, role snowflake.ID) error {
	return r.updateOne(ctx, bson.M{"uid": uid}, bson.M{"$set": bson.M{"pingable_role": role}})
}

func (r *serverRepository) ClearPingableRole(ctx context.Context, uid snowflake.ID) error {
	return r.updateOne(ctx, bson.M{"uid": uid}, bson.M{"$unset": bson.M{"pingable_role": ""}})
}

func (r *serverRepository) updateOne(ctx context.Context, filter, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update server: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("server not found")
	}
	return nil
}
