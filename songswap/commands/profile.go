package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/songswap/songswap/songswap"
	"github.com/songswap/songswap/songswap/components"
	"github.com/songswap/songswap/songswap/utils"
)

var Profile = discord.SlashCommandCreate{
	Name:        "profile",
	Description: "View and manage your music profile",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "view",
			Description: "View a music profile",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "Whose profile to view (defaults to your own)",
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "edit",
			Description: "Edit your music profile",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "extras",
			Description: "Edit the extra fields of your music profile",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "delete",
			Description: "Delete your music profile everywhere",
		},
	},
}

func ProfileHandler(b *songswap.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		subcommand := data.SubCommandName
		if subcommand == nil {
			return fmt.Errorf("no subcommand provided")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		switch *subcommand {
		case "view":
			target := e.User()
			if user, ok := data.OptUser("user"); ok {
				target = user
			}
			profile, err := b.UserRepository.GetByUID(ctx, target.ID)
			if err != nil {
				return utils.EH.CreateErrorEmbed(e, "Failed to load the profile: "+err.Error())
			}
			if profile == nil {
				return utils.EH.CreateInfoEmbed(e, fmt.Sprintf("%s hasn't filled out a music profile yet.", target.Mention()))
			}
			embed, populated := utils.ProfileEmbed(profile, target.EffectiveName())
			if !populated {
				return utils.EH.CreateInfoEmbed(e, fmt.Sprintf("%s hasn't filled out a music profile yet.", target.Mention()))
			}
			return e.CreateMessage(discord.MessageCreate{Embeds: []discord.Embed{embed}})

		case "edit":
			profile, err := b.UserRepository.GetByUID(ctx, e.User().ID)
			if err != nil {
				return utils.EH.CreateErrorEmbed(e, "Failed to load your profile: "+err.Error())
			}
			return e.Modal(components.ProfileModal(profile))

		case "extras":
			profile, err := b.UserRepository.GetByUID(ctx, e.User().ID)
			if err != nil {
				return utils.EH.CreateErrorEmbed(e, "Failed to load your profile: "+err.Error())
			}
			return e.Modal(components.ProfileExtrasModal(profile))

		case "delete":
			if err := b.UserRepository.Delete(ctx, e.User().ID); err != nil {
				return utils.EH.CreateErrorEmbed(e, "Failed to delete your profile: "+err.Error())
			}
			return utils.EH.CreateSuccessEmbed(e, "Your music profile has been deleted, and you've been removed from all servers' trades.")

		default:
			return utils.EH.CreateErrorEmbed(e, "Invalid subcommand")
		}
	}
}
