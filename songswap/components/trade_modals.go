package components

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/songswap/songswap/songswap"
	"github.com/songswap/songswap/songswap/database/models"
	"github.com/songswap/songswap/songswap/trade"
	"github.com/songswap/songswap/songswap/utils"
)

// The submission buttons attached to trade DMs carry the trade name in their
// custom IDs; the button handlers open a modal whose custom ID carries it
// onward to the submit handler.

func songModalID(tradeName string) string {
	return "/modal/song/" + tradeName
}

func responseModalID(tradeName string) string {
	return "/modal/response/" + tradeName
}

// SongButtonHandler opens the song submission form. Routed on the custom ID
// built by the trade engine for its assignment DMs.
func SongButtonHandler(b *songswap.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		name := e.Vars["name"]
		return e.Modal(discord.ModalCreate{
			CustomID: songModalID(name),
			Title:    "Song for trade " + name,
			Components: []discord.ContainerComponent{
				discord.NewActionRow(
					discord.NewTextInput("song", discord.TextInputStyleShort, "Song title or link").
						WithRequired(true).
						WithMaxLength(500).
						WithPlaceholder("Artist - Title, or a streaming link"),
				),
				discord.NewActionRow(
					discord.NewTextInput("comments", discord.TextInputStyleParagraph, "Comments for the recipient").
						WithRequired(false).
						WithMaxLength(1000),
				),
			},
		})
	}
}

// ResponseButtonHandler opens the rating form for a received song.
func ResponseButtonHandler(b *songswap.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		name := e.Vars["name"]
		return e.Modal(discord.ModalCreate{
			CustomID: responseModalID(name),
			Title:    "Your response for trade " + name,
			Components: []discord.ContainerComponent{
				discord.NewActionRow(
					discord.NewTextInput("rating", discord.TextInputStyleShort, "Rating out of 10").
						WithRequired(true).
						WithMaxLength(2).
						WithPlaceholder("0-10"),
				),
				discord.NewActionRow(
					discord.NewTextInput("comments", discord.TextInputStyleParagraph, "Comments for the sender").
						WithRequired(false).
						WithMaxLength(1000),
				),
			},
		})
	}
}

func SongModalHandler(b *songswap.Bot) handler.ModalHandler {
	return func(e *handler.ModalEvent) error {
		name := e.Vars["name"]

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		song := models.Song{
			Song:     e.Data.Text("song"),
			Comments: e.Data.Text("comments"),
		}
		if err := b.TradeManager.SubmitSong(ctx, name, e.User().ID, song); err != nil {
			switch {
			case errors.Is(err, trade.ErrTradeNotFound):
				return utils.EH.CreateModalError(e, "This trade no longer exists, or you're not part of it.")
			case errors.Is(err, trade.ErrWrongPhase):
				return utils.EH.CreateModalError(e, "Song submissions for this trade are closed.")
			default:
				return utils.EH.CreateModalError(e, "Failed to save your song: "+err.Error())
			}
		}
		if t, err := b.TradeManager.GetTrade(ctx, name); err == nil && t != nil {
			return utils.EH.CreateModalSuccess(e, fmt.Sprintf(
				"Your song is in! You can resubmit to change it until %s.", utils.FullTimestamp(t.End)))
		}
		return utils.EH.CreateModalSuccess(e, "Your song is in! You can resubmit to change it until the deadline.")
	}
}

func ResponseModalHandler(b *songswap.Bot) handler.ModalHandler {
	return func(e *handler.ModalEvent) error {
		name := e.Vars["name"]

		rating := e.Data.Text("rating")
		if n, err := strconv.Atoi(rating); err != nil || n < 0 || n > 10 {
			return utils.EH.CreateModalError(e, "The rating has to be a number from 0 to 10.")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		response := models.Response{
			Rating:   rating,
			Comments: e.Data.Text("comments"),
		}
		if err := b.TradeManager.SubmitResponse(ctx, name, e.User().ID, response); err != nil {
			switch {
			case errors.Is(err, trade.ErrTradeNotFound):
				return utils.EH.CreateModalError(e, "This trade no longer exists, or you're not part of it.")
			case errors.Is(err, trade.ErrWrongPhase):
				return utils.EH.CreateModalError(e, "Responses for this trade aren't open right now.")
			default:
				return utils.EH.CreateModalError(e, "Failed to save your response: "+err.Error())
			}
		}
		return utils.EH.CreateModalSuccess(e, "Your response is in! You can resubmit to change it until the trade ends.")
	}
}
