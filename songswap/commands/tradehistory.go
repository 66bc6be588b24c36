package commands

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"
	"github.com/disgoorg/snowflake/v2"
	"github.com/songswap/songswap/songswap"
	"github.com/songswap/songswap/songswap/database/models"
	"github.com/songswap/songswap/songswap/utils"
)

const edgesPerPage = 5

var TradeHistory = discord.SlashCommandCreate{
	Name:        "tradehistory",
	Description: "Browse songs you've sent and received on this server",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "direction",
			Description: "Which side of your trades to show",
			Required:    true,
			Choices: []discord.ApplicationCommandOptionChoiceString{
				{Name: "Songs I sent", Value: "sent"},
				{Name: "Songs I received", Value: "received"},
			},
		},
	},
}

func TradeHistoryHandler(b *songswap.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID, ok := requireGuild(e)
		if !ok {
			return utils.EH.CreateErrorEmbed(e, "This command can only be used in a server.")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		userID := e.User().ID
		direction := e.SlashCommandInteractionData().String("direction")

		var from, to *snowflake.ID
		if direction == "sent" {
			from = &userID
		} else {
			to = &userID
		}

		edges, err := b.TradeRepository.FindEdges(ctx, guildID, from, to)
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to load your trade history: "+err.Error())
		}
		if len(edges) == 0 {
			return utils.EH.CreateInfoEmbed(e, "No trades to show yet. Opt in and wait for the next one!")
		}

		title := "Songs you sent"
		if direction == "received" {
			title = "Songs you received"
		}
		totalPages := int(math.Ceil(float64(len(edges)) / float64(edgesPerPage)))

		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: userID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				start := page * edgesPerPage
				end := min(start+edgesPerPage, len(edges))

				var description strings.Builder
				for _, edge := range edges[start:end] {
					description.WriteString(historyEntry(edge, direction))
					description.WriteString("\n")
				}

				embed.
					SetTitle(title).
					SetDescription(description.String()).
					SetColor(utils.TradeColor).
					SetFooter(fmt.Sprintf("Page %d/%d • %d trades", page+1, totalPages, len(edges)), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}

func historyEntry(edge models.Edge, direction string) string {
	var b strings.Builder
	if direction == "sent" {
		fmt.Fprintf(&b, "**To <@%s>**\n", edge.To)
	} else {
		fmt.Fprintf(&b, "**From <@%s>**\n", edge.From)
	}
	if edge.Song != nil {
		fmt.Fprintf(&b, "🎵 %s\n", edge.Song.Song)
		if edge.Song.Comments != "" {
			fmt.Fprintf(&b, "💬 %s\n", edge.Song.Comments)
		}
	} else {
		b.WriteString("🎵 *No song was sent in time.*\n")
	}
	if edge.Response != nil {
		fmt.Fprintf(&b, "⭐ %s / 10", edge.Response.Rating)
		if edge.Response.Comments != "" {
			fmt.Fprintf(&b, ": %s", edge.Response.Comments)
		}
		b.WriteString("\n")
	}
	return b.String()
}
