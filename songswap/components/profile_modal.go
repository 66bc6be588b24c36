package components

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/songswap/songswap/songswap"
	"github.com/songswap/songswap/songswap/database/models"
	"github.com/songswap/songswap/songswap/utils"
)

const (
	ProfileModalID       = "/modal/profile/main"
	ProfileExtrasModalID = "/modal/profile/extras"
)

// ProfileModal builds the main profile edit form, prefilled with the user's
// current values. Discord caps a modal at five text inputs, so the remaining
// fields live in ProfileExtrasModal.
func ProfileModal(profile *models.User) discord.ModalCreate {
	if profile == nil {
		profile = &models.User{}
	}
	return discord.ModalCreate{
		CustomID: ProfileModalID,
		Title:    "Your Music Profile",
		Components: []discord.ContainerComponent{
			discord.NewActionRow(
				discord.NewTextInput("bio", discord.TextInputStyleParagraph, "About your music taste").
					WithRequired(false).
					WithMaxLength(1000).
					WithValue(profile.Bio),
			),
			discord.NewActionRow(
				discord.NewTextInput("liked_genres", discord.TextInputStyleShort, "Genres you like").
					WithRequired(false).
					WithMaxLength(500).
					WithValue(profile.LikedGenres),
			),
			discord.NewActionRow(
				discord.NewTextInput("disliked_genres", discord.TextInputStyleShort, "Genres you dislike").
					WithRequired(false).
					WithMaxLength(500).
					WithValue(profile.DislikedGenres),
			),
			discord.NewActionRow(
				discord.NewTextInput("artists", discord.TextInputStyleShort, "Artists you listen to the most").
					WithRequired(false).
					WithMaxLength(500).
					WithValue(profile.Artists),
			),
			discord.NewActionRow(
				discord.NewTextInput("favorite_songs", discord.TextInputStyleShort, "Your favorite songs").
					WithRequired(false).
					WithMaxLength(500).
					WithValue(profile.FavoriteSongs),
			),
		},
	}
}

// ProfileExtrasModal builds the overflow form for the remaining profile
// fields.
func ProfileExtrasModal(profile *models.User) discord.ModalCreate {
	if profile == nil {
		profile = &models.User{}
	}
	return discord.ModalCreate{
		CustomID: ProfileExtrasModalID,
		Title:    "Your Music Profile (Extras)",
		Components: []discord.ContainerComponent{
			discord.NewActionRow(
				discord.NewTextInput("new_artists", discord.TextInputStyleShort, "Artists you discovered recently").
					WithRequired(false).
					WithMaxLength(500).
					WithValue(profile.NewArtists),
			),
			discord.NewActionRow(
				discord.NewTextInput("instruments", discord.TextInputStyleShort, "Instruments you play").
					WithRequired(false).
					WithMaxLength(500).
					WithValue(profile.Instruments),
			),
		},
	}
}

func ProfileModalHandler(b *songswap.Bot) handler.ModalHandler {
	return func(e *handler.ModalEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		profile, err := b.UserRepository.GetByUID(ctx, e.User().ID)
		if err != nil {
			return utils.EH.CreateModalError(e, "Failed to load your profile: "+err.Error())
		}
		if profile == nil {
			profile = &models.User{UID: e.User().ID}
		}
		profile.Name = e.User().EffectiveName()
		profile.Bio = e.Data.Text("bio")
		profile.LikedGenres = e.Data.Text("liked_genres")
		profile.DislikedGenres = e.Data.Text("disliked_genres")
		profile.Artists = e.Data.Text("artists")
		profile.FavoriteSongs = e.Data.Text("favorite_songs")

		if err := b.UserRepository.Upsert(ctx, profile); err != nil {
			return utils.EH.CreateModalError(e, "Failed to save your profile: "+err.Error())
		}
		return utils.EH.CreateModalSuccess(e, "Your music profile has been saved.")
	}
}

func ProfileExtrasModalHandler(b *songswap.Bot) handler.ModalHandler {
	return func(e *handler.ModalEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		profile, err := b.UserRepository.GetByUID(ctx, e.User().ID)
		if err != nil {
			return utils.EH.CreateModalError(e, "Failed to load your profile: "+err.Error())
		}
		if profile == nil {
			profile = &models.User{UID: e.User().ID}
		}
		profile.Name = e.User().EffectiveName()
		profile.NewArtists = e.Data.Text("new_artists")
		profile.Instruments = e.Data.Text("instruments")

		if err := b.UserRepository.Upsert(ctx, profile); err != nil {
			return utils.EH.CreateModalError(e, "Failed to save your profile: "+err.Error())
		}
		return utils.EH.CreateModalSuccess(e, "Your music profile has been saved.")
	}
}
