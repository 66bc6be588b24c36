package models

import (
	"github.com/disgoorg/snowflake/v2"
)

// User is one document in the users collection: a global music profile,
// shared across every server the user trades in.
type User struct {
	UID            snowflake.ID `bson:"uid"`
	Name           string       `bson:"name"`
	Bio            string       `bson:"bio,omitempty"`
	LikedGenres    string       `bson:"liked_genres,omitempty"`
	DislikedGenres string       `bson:"disliked_genres,omitempty"`
	Artists        string       `bson:"artists,omitempty"`
	FavoriteSongs  string       `bson:"favorite_songs,omitempty"`
	NewArtists     string       `bson:"new_artists,omitempty"`
	Instruments    string       `bson:"instruments,omitempty"`
}
