package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/sahilm/fuzzy"
	"github.com/songswap/songswap/songswap"
	"github.com/songswap/songswap/songswap/trade"
	"github.com/songswap/songswap/songswap/utils"
)

var Trade = discord.SlashCommandCreate{
	Name:        "trade",
	Description: "Manage song trades on this server",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "start",
			Description: "Start a new song trade with everyone who opted in",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "duration",
					Description: "How many days participants get to submit a song",
					Required:    true,
					MinValue:    intPtr(1),
					MaxValue:    intPtr(60),
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "stop",
			Description: "Stop an ongoing trade without announcing results",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:         "name",
					Description:  "The trade to stop",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "extend",
			Description: "Push back the song submission deadline of an ongoing trade",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:         "name",
					Description:  "The trade to extend",
					Required:     true,
					Autocomplete: true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "days",
					Description: "How many extra days to grant",
					Required:    true,
					MinValue:    intPtr(1),
					MaxValue:    intPtr(60),
				},
			},
		},
	},
}

func TradeHandler(b *songswap.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID, ok := requireGuild(e)
		if !ok {
			return utils.EH.CreateErrorEmbed(e, "This command can only be used in a server.")
		}
		if !requireAdmin(e) {
			return utils.EH.CreateErrorEmbed(e, "Only administrators can manage trades.")
		}

		data := e.SlashCommandInteractionData()
		subcommand := data.SubCommandName
		if subcommand == nil {
			return fmt.Errorf("no subcommand provided")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		switch *subcommand {
		case "start":
			if err := e.DeferCreateMessage(false); err != nil {
				return err
			}
			t, err := b.TradeManager.StartTrade(ctx, guildID, data.Int("duration"))
			if err != nil {
				if errors.Is(err, trade.ErrNotEnoughParticipants) {
					return updateError(e, "At least two users need to opt in before a trade can start.")
				}
				return updateError(e, "Failed to start the trade: "+err.Error())
			}
			_, err = e.UpdateInteractionResponse(discord.MessageUpdate{
				Embeds: &[]discord.Embed{{
					Description: fmt.Sprintf(
						"✅ Trade **%s** has started with %d participants!\nSongs are due by %s.",
						t.Name, len(t.Users), utils.FullTimestamp(t.End)),
					Color: utils.SuccessColor,
				}},
			})
			return err

		case "stop":
			name := data.String("name")
			if err := b.TradeManager.StopTrade(ctx, guildID, name); err != nil {
				switch {
				case errors.Is(err, trade.ErrTradeNotFound):
					return utils.EH.CreateErrorEmbed(e, fmt.Sprintf("No trade named **%s** exists on this server.", name))
				case errors.Is(err, trade.ErrTradeEnded):
					return utils.EH.CreateErrorEmbed(e, fmt.Sprintf("Trade **%s** has already ended.", name))
				default:
					return utils.EH.CreateErrorEmbed(e, "Failed to stop the trade: "+err.Error())
				}
			}
			return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Trade **%s** has been stopped. Participants have been notified.", name))

		case "extend":
			name := data.String("name")
			t, err := b.TradeManager.ExtendTrade(ctx, guildID, name, data.Int("days"))
			if err != nil {
				switch {
				case errors.Is(err, trade.ErrTradeNotFound):
					return utils.EH.CreateErrorEmbed(e, fmt.Sprintf("No trade named **%s** exists on this server.", name))
				case errors.Is(err, trade.ErrTradeEnded):
					return utils.EH.CreateErrorEmbed(e, fmt.Sprintf("Trade **%s** has already ended.", name))
				case errors.Is(err, trade.ErrWrongPhase):
					return utils.EH.CreateErrorEmbed(e, "Only the song submission deadline can be extended, and this trade is already past it.")
				default:
					return utils.EH.CreateErrorEmbed(e, "Failed to extend the trade: "+err.Error())
				}
			}
			return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Trade **%s** now runs until %s.", name, utils.FullTimestamp(t.End)))

		default:
			return utils.EH.CreateErrorEmbed(e, "Invalid subcommand")
		}
	}
}

// TradeAutocompleteHandler suggests active trade names, fuzzy-matched against
// whatever the admin has typed so far.
func TradeAutocompleteHandler(b *songswap.Bot) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		guildID := e.GuildID()
		if guildID == nil {
			return e.AutocompleteResult(nil)
		}

		focused := e.Data.Focused()
		if focused.Name != "name" {
			return nil
		}
		var input string
		if focused.Value != nil {
			if err := json.Unmarshal(focused.Value, &input); err != nil {
				return e.AutocompleteResult(nil)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		names, err := b.TradeManager.ActiveTradeNames(ctx, *guildID)
		if err != nil {
			return e.AutocompleteResult(nil)
		}

		if input != "" {
			matches := fuzzy.Find(input, names)
			matched := make([]string, 0, len(matches))
			for _, match := range matches {
				matched = append(matched, match.Str)
			}
			names = matched
		}
		if len(names) > 25 {
			names = names[:25]
		}

		choices := make([]discord.AutocompleteChoice, 0, len(names))
		for _, name := range names {
			choices = append(choices, discord.AutocompleteChoiceString{Name: name, Value: name})
		}
		return e.AutocompleteResult(choices)
	}
}

func updateError(e *handler.CommandEvent, message string) error {
	_, err := e.UpdateInteractionResponse(discord.MessageUpdate{
		Embeds: &[]discord.Embed{{
			Description: "❌ " + message,
			Color:       utils.ErrorColor,
		}},
	})
	return err
}
