package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"
	"github.com/songswap/songswap/songswap"
	"github.com/songswap/songswap/songswap/database/models"
	"github.com/songswap/songswap/songswap/utils"
)

var Opt = discord.SlashCommandCreate{
	Name:        "opt",
	Description: "Join or leave this server's song trades",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "in",
			Description: "Participate in upcoming song trades",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "out",
			Description: "Sit out upcoming song trades",
		},
	},
}

var Exclude = discord.SlashCommandCreate{
	Name:        "exclude",
	Description: "Remove a user from this server's song trades",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "The user to exclude",
			Required:    true,
		},
	},
}

func OptHandler(b *songswap.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID, ok := requireGuild(e)
		if !ok {
			return utils.EH.CreateErrorEmbed(e, "This command can only be used in a server.")
		}

		data := e.SlashCommandInteractionData()
		subcommand := data.SubCommandName
		if subcommand == nil {
			return fmt.Errorf("no subcommand provided")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		optedIn := *subcommand == "in"
		if err := setOpt(ctx, b, guildID, e.User().ID, optedIn); err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to update your participation: "+err.Error())
		}

		if optedIn {
			return utils.EH.CreateSuccessEmbed(e, "You're in! You'll be part of the next song trade on this server.")
		}
		return utils.EH.CreateSuccessEmbed(e, "You've opted out. Ongoing trades still include you, but future ones won't.")
	}
}

func ExcludeHandler(b *songswap.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID, ok := requireGuild(e)
		if !ok {
			return utils.EH.CreateErrorEmbed(e, "This command can only be used in a server.")
		}
		if !requireAdmin(e) {
			return utils.EH.CreateErrorEmbed(e, "Only administrators can exclude users.")
		}

		target := e.SlashCommandInteractionData().User("user")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		server, err := b.ServerRepository.GetByUID(ctx, guildID)
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to load server settings: "+err.Error())
		}
		if server == nil || server.User(target.ID) == nil {
			return utils.EH.CreateErrorEmbed(e, fmt.Sprintf("%s is not registered for trades on this server.", target.Mention()))
		}
		if err := b.ServerRepository.RemoveUser(ctx, guildID, target.ID); err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to exclude the user: "+err.Error())
		}

		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("%s has been removed from this server's song trades.", target.Mention()))
	}
}

// OptInButtonID routes the join button on the premade opt-in message posted
// with /server optmessage.
const OptInButtonID = "/opt/join"

// OptInMessage is the standing invitation an admin can post to a channel so
// members can join with one click instead of a slash command.
func OptInMessage() discord.MessageCreate {
	return discord.MessageCreate{
		Content: "**Song trades happen on this server!**\n" +
			"Every round, everyone who joins is secretly assigned another participant to pick " +
			"a song for, and gets a recommendation from somebody else in return. " +
			"Press the button below (or use `/opt in`) to be part of the next trade.",
		Components: []discord.ContainerComponent{
			discord.NewActionRow(
				discord.NewPrimaryButton("Join the song trades", OptInButtonID),
			),
		},
	}
}

func OptInButtonHandler(b *songswap.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		guildID := e.GuildID()
		if guildID == nil {
			return utils.EH.CreateEphemeralError(e, "This button only works in a server.")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := setOpt(ctx, b, *guildID, e.User().ID, true); err != nil {
			return utils.EH.CreateEphemeralError(e, "Failed to update your participation: "+err.Error())
		}
		return utils.EH.CreateEphemeralSuccess(e, "You're in! You'll be part of the next song trade on this server.")
	}
}

// setOpt registers the user on the server (creating the server document on
// first contact) and flips their participation flag.
func setOpt(ctx context.Context, b *songswap.Bot, guildID, userID snowflake.ID, optedIn bool) error {
	server, err := ensureServer(ctx, b, guildID)
	if err != nil {
		return err
	}
	if server.User(userID) == nil {
		return b.ServerRepository.AddUser(ctx, guildID, models.ServerUser{UID: userID, OptedIn: optedIn})
	}
	return b.ServerRepository.SetOpt(ctx, guildID, userID, optedIn)
}

// ensureServer loads the server document, creating it with default periods
// on first contact.
func ensureServer(ctx context.Context, b *songswap.Bot, guildID snowflake.ID) (*models.Server, error) {
	server, err := b.ServerRepository.GetByUID(ctx, guildID)
	if err != nil || server != nil {
		return server, err
	}

	name := ""
	if guild, err := b.Client.Rest().GetGuild(guildID, false); err == nil {
		name = guild.Name
	}
	server = &models.Server{
		UID:            guildID,
		Name:           name,
		ReminderPeriod: models.DefaultReminderPeriod,
		CommentPeriod:  models.DefaultCommentPeriod,
	}
	if err := b.ServerRepository.Create(ctx, server); err != nil {
		return nil, err
	}
	return server, nil
}
