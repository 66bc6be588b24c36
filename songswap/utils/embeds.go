package utils

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/songswap/songswap/songswap/database/models"
)

// ProfileEmbed renders a user's music profile. The second return reports
// whether any profile field was populated; an empty profile renders nothing.
func ProfileEmbed(user *models.User, nickname string) (discord.Embed, bool) {
	builder := discord.NewEmbedBuilder().
		SetTitle(nickname + "'s Music Profile").
		SetColor(InfoColor)

	populated := false
	if user.Bio != "" {
		builder.SetDescription(user.Bio)
		populated = true
	}

	fields := []struct {
		name  string
		value string
	}{
		{"Liked Genres", user.LikedGenres},
		{"Disliked Genres", user.DislikedGenres},
		{"Artists Most Listened To", user.Artists},
		{"Favorite Songs", user.FavoriteSongs},
		{"Newly Discovered Artists", user.NewArtists},
		{"Instruments", user.Instruments},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		builder.AddField(f.name, f.value, false)
		populated = true
	}

	return builder.Build(), populated
}

// EdgeEmbed renders one finished pairing for results announcements and
// trade history. Missing songs and ratings get explicit placeholders so an
// edge is never silently dropped from the results.
func EdgeEmbed(edge models.Edge, fromName, toName string) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("%s ➡ %s", fromName, toName)).
		SetColor(TradeColor)

	if edge.Song != nil {
		builder.AddField(fromName+"'s song suggestion", edge.Song.Song, false)
		if edge.Song.Comments != "" {
			builder.AddField(fromName+"'s comments", edge.Song.Comments, false)
		}
	} else {
		builder.AddField(fromName+"'s song suggestion", "*No song was sent in time.*", false)
	}

	if edge.Response != nil {
		builder.AddField(toName+"'s rating", edge.Response.Rating+" / 10", false)
		if edge.Response.Comments != "" {
			builder.AddField(toName+"'s comments", edge.Response.Comments, false)
		}
	} else if edge.Song != nil {
		builder.AddField(toName+"'s rating", "*"+toName+" didn't leave a rating.*", false)
	}

	return builder.Build()
}
