package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/songswap/songswap/songswap"
	"github.com/songswap/songswap/songswap/utils"
)

var Server = discord.SlashCommandCreate{
	Name:        "server",
	Description: "Configure song trades for this server",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "setchannel",
			Description: "Set the channel where trade announcements and results are posted",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionChannel{
					Name:        "channel",
					Description: "The announcements channel",
					Required:    true,
					ChannelTypes: []discord.ChannelType{
						discord.ChannelTypeGuildText,
					},
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "setperiod",
			Description: "Set how long before deadlines reminders go out, and how long responses stay open",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "reminder",
					Description: "Minutes before each deadline to send reminders",
					Required:    true,
					MinValue:    intPtr(1),
				},
				discord.ApplicationCommandOptionInt{
					Name:        "comment",
					Description: "Minutes the response window stays open after songs are delivered",
					Required:    true,
					MinValue:    intPtr(1),
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "setpingrole",
			Description: "Set the role pinged in trade announcements (omit to clear)",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionRole{
					Name:        "role",
					Description: "The role to ping",
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "setnickname",
			Description: "Set the name shown for you in this server's trade results",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "nickname",
					Description: "Your display name (omit to clear)",
					MaxLength:   intPtr(64),
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "optmessage",
			Description: "Post an opt-in message with a join button to this channel",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "about",
			Description: "Show this server's trade settings and participants",
		},
	},
}

func ServerHandler(b *songswap.Bot) handler.CommandHandler {
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

		switch *subcommand {
		case "setchannel":
			if !requireAdmin(e) {
				return utils.EH.CreateErrorEmbed(e, "Only administrators can change server settings.")
			}
			if _, err := ensureServer(ctx, b, guildID); err != nil {
				return utils.EH.CreateErrorEmbed(e, "Failed to load server settings: "+err.Error())
			}
			channel := data.Channel("channel")
			if err := b.ServerRepository.SetAnnouncementsChannel(ctx, guildID, channel.ID); err != nil {
				return utils.EH.CreateErrorEmbed(e, "Failed to set the channel: "+err.Error())
			}
			return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Trade announcements will be posted in <#%s>.", channel.ID))

		case "setperiod":
			if !requireAdmin(e) {
				return utils.EH.CreateErrorEmbed(e, "Only administrators can change server settings.")
			}
			reminder, comment := data.Int("reminder"), data.Int("comment")
			if reminder > comment {
				return utils.EH.CreateErrorEmbed(e,
					"The reminder period can't be longer than the comment period, or phase 2 reminders would be due before phase 2 even starts.")
			}
			if _, err := ensureServer(ctx, b, guildID); err != nil {
				return utils.EH.CreateErrorEmbed(e, "Failed to load server settings: "+err.Error())
			}
			if err := b.ServerRepository.SetReminderPeriod(ctx, guildID, reminder); err != nil {
				return utils.EH.CreateErrorEmbed(e, "Failed to set the reminder period: "+err.Error())
			}
			if err := b.ServerRepository.SetCommentPeriod(ctx, guildID, comment); err != nil {
				return utils.EH.CreateErrorEmbed(e, "Failed to set the comment period: "+err.Error())
			}
			return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf(
				"Reminders will go out %d minutes before each deadline, and responses stay open for %d minutes. Trades already running keep their old schedule.",
				reminder, comment))

		case "setpingrole":
			if !requireAdmin(e) {
				return utils.EH.CreateErrorEmbed(e, "Only administrators can change server settings.")
			}
			if _, err := ensureServer(ctx, b, guildID); err != nil {
				return utils.EH.CreateErrorEmbed(e, "Failed to load server settings: "+err.Error())
			}
			role, ok := data.OptRole("role")
			if !ok {
				if err := b.ServerRepository.ClearPingableRole(ctx, guildID); err != nil {
					return utils.EH.CreateErrorEmbed(e, "Failed to clear the ping role: "+err.Error())
				}
				return utils.EH.CreateSuccessEmbed(e, "Trade announcements will no longer ping a role.")
			}
			if err := b.ServerRepository.SetPingableRole(ctx, guildID, role.ID); err != nil {
				return utils.EH.CreateErrorEmbed(e, "Failed to set the ping role: "+err.Error())
			}
			return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Trade announcements will ping %s.", role.Mention()))

		case "setnickname":
			server, err := ensureServer(ctx, b, guildID)
			if err != nil {
				return utils.EH.CreateErrorEmbed(e, "Failed to load server settings: "+err.Error())
			}
			if server.User(e.User().ID) == nil {
				return utils.EH.CreateErrorEmbed(e, "Opt in with `/opt in` before setting a nickname.")
			}
			nickname, _ := data.OptString("nickname")
			if err := b.ServerRepository.SetNickname(ctx, guildID, e.User().ID, nickname); err != nil {
				return utils.EH.CreateErrorEmbed(e, "Failed to set your nickname: "+err.Error())
			}
			if nickname == "" {
				return utils.EH.CreateSuccessEmbed(e, "Your trade nickname has been cleared.")
			}
			return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("You'll show up as **%s** in this server's trades.", nickname))

		case "optmessage":
			if !requireAdmin(e) {
				return utils.EH.CreateErrorEmbed(e, "Only administrators can post the opt-in message.")
			}
			if _, err := ensureServer(ctx, b, guildID); err != nil {
				return utils.EH.CreateErrorEmbed(e, "Failed to load server settings: "+err.Error())
			}
			return e.CreateMessage(OptInMessage())

		case "about":
			server, err := b.ServerRepository.GetByUID(ctx, guildID)
			if err != nil {
				return utils.EH.CreateErrorEmbed(e, "Failed to load server settings: "+err.Error())
			}
			if server == nil {
				return utils.EH.CreateInfoEmbed(e, "No one has used song trades on this server yet. Get started with `/opt in`!")
			}

			channel := "not set"
			if server.AnnouncementsChannel != 0 {
				channel = fmt.Sprintf("<#%s>", server.AnnouncementsChannel)
			}
			role := "not set"
			if server.PingableRole != 0 {
				role = fmt.Sprintf("<@&%s>", server.PingableRole)
			}

			embed := discord.NewEmbedBuilder().
				SetTitle("Song trades on " + server.Name).
				SetColor(utils.InfoColor).
				AddField("Opted in", fmt.Sprintf("%d of %d registered users", len(server.OptedIn()), len(server.Users)), true).
				AddField("Announcements channel", channel, true).
				AddField("Ping role", role, true).
				AddField("Reminder period", fmt.Sprintf("%d minutes", server.ReminderPeriod), true).
				AddField("Comment period", fmt.Sprintf("%d minutes", server.CommentPeriod), true).
				Build()
			return e.CreateMessage(discord.MessageCreate{Embeds: []discord.Embed{embed}})

		default:
			return utils.EH.CreateErrorEmbed(e, "Invalid subcommand")
		}
	}
}
