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
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	GetByUID(ctx context.Context, uid snowflake.ID) (*models.User, error)
	SetName(ctx context.Context, uid snowflake.ID, name string) error
	Delete(ctx context.Context, uid snowflake.ID) error
}

type userRepository struct {
	users   *mongo.Collection
	servers *mongo.Collection
}

func NewUserRepository(db *database.DB) UserRepository {
	return &userRepository{
		users:   db.Collection("users"),
		servers: db.Collection("servers"),
	}
}

func (r *userRepository) Upsert(ctx context.Context, user *models.User) error {
	_, err := r.users.UpdateOne(ctx,
		bson.M{"uid": user.UID},
		bson.M{"$set": user},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetByUID returns the user's profile, or nil if they never registered one.
func (r *userRepository) GetByUID(ctx context.Context, uid snowflake.ID) (*models.User, error) {
	user := new(models.User)
	err := r.users.FindOne(ctx, bson.M{"uid": uid}).Decode(user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *userRepository) SetName(ctx context.Context, uid snowflake.ID, name string) error {
	res, err := r.users.UpdateOne(ctx, bson.M{"uid": uid}, bson.M{"$set": bson.M{"name": name}})
	if err != nil {
		return fmt.Errorf("failed to set user name: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

// Delete removes the profile and the user's membership record from every
// server. Historical trade edges keep their UID references.
func (r *userRepository) Delete(ctx context.Context, uid snowflake.ID) error {
	res, err := r.users.DeleteOne(ctx, bson.M{"uid": uid})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("user not found")
	}

	_, err = r.servers.UpdateMany(ctx,
		bson.M{"users.uid": uid},
		bson.M{"$pull": bson.M{"users": bson.M{"uid": uid}}})
	if err != nil {
		return fmt.Errorf("failed to remove user from servers: %w", err)
	}
	return nil
}
