package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/songswap/songswap/songswap/database/models"
	"github.com/songswap/songswap/songswap/utils"
)

// Custom IDs for the submission buttons the engine attaches to its DMs. The
// components package registers handlers on matching routes.

// SongButtonID is the custom ID of the "send song" button for a trade.
func SongButtonID(tradeName string) string {
	return "/trade/song/" + tradeName
}

// ResponseButtonID is the custom ID of the "send response" button for a trade.
func ResponseButtonID(tradeName string) string {
	return "/trade/response/" + tradeName
}

func songButtonRow(tradeName string) discord.ContainerComponent {
	return discord.NewActionRow(
		discord.NewPrimaryButton("Send Song", SongButtonID(tradeName)),
	)
}

func responseButtonRow(tradeName string) discord.ContainerComponent {
	return discord.NewActionRow(
		discord.NewPrimaryButton("Send Response", ResponseButtonID(tradeName)),
	)
}

// assignmentMessage is the phase 1 kickoff DM: who you got, their profile if
// they have one, and the submission deadline.
func assignmentMessage(trade *models.Trade, toName string, toProfile *models.User) discord.MessageCreate {
	deadline := utils.DeadlineTimestamps(trade.End)

	var embeds []discord.Embed
	content := fmt.Sprintf(
		"**Hello there!** For the new song trade (%s), you have been given %s.\n"+
			"You have until %s to send your song suggestion through the button below.\n\n",
		trade.Name, toName, deadline)

	if toProfile != nil {
		if embed, populated := utils.ProfileEmbed(toProfile, toName); populated {
			content += "Here is their music profile:"
			embeds = append(embeds, embed)
		}
	}
	if len(embeds) == 0 {
		content += fmt.Sprintf(
			"Unfortunately, it seems that %s hasn't filled out their music profile, "+
				"so try your best to pick out what you think they would like. Good luck, and happy trading!",
			toName)
	}

	return discord.MessageCreate{
		Content:    content,
		Embeds:     embeds,
		Components: []discord.ContainerComponent{songButtonRow(trade.Name)},
	}
}

// startAnnouncement is posted to the server's announcements channel when a
// trade begins.
func startAnnouncement(server *models.Server, trade *models.Trade) discord.MessageCreate {
	return discord.MessageCreate{
		Content: fmt.Sprintf(
			"_Trade %s_\n\n"+
				"Hey, %s! A new song trade is starting!\n"+
				"Those of you who have opted in should have received a DM that tells you "+
				"who you have and what kind of music they're looking for.\n"+
				"Make sure you send over the songs by %s!\n\n**Happy trading!**",
			trade.Name, mention(server), utils.FullTimestamp(trade.End)),
	}
}

// songDeliveryMessage opens phase 2 for a recipient whose sender came through.
func songDeliveryMessage(trade *models.Trade, song *models.Song, phase2End time.Time) discord.MessageCreate {
	embed := discord.NewEmbedBuilder().
		SetTitle("Your song recommendation").
		SetDescription(song.Song).
		SetColor(utils.TradeColor).
		SetFooter("Happy listening!", "")
	if song.Comments != "" {
		embed.AddField("Comments", song.Comments, false)
	}

	return discord.MessageCreate{
		Content: fmt.Sprintf(
			"**Welcome to part 2 of the song trade!**\n"+
				"This is where you get the opportunity to listen and respond to the song that "+
				"your recommender sent. Sending in a response is optional, but greatly appreciated!\n"+
				"Submissions close at %s. Have fun!",
			utils.DeadlineTimestamps(phase2End)),
		Embeds:     []discord.Embed{embed.Build()},
		Components: []discord.ContainerComponent{responseButtonRow(trade.Name)},
	}
}

// missedSongMessage opens phase 2 for a recipient whose sender never sent a song.
func missedSongMessage(phase2End time.Time) discord.MessageCreate {
	return discord.MessageCreate{
		Content: fmt.Sprintf(
			"**Welcome to part 2 of the song trade!**\n"+
				"Unfortunately, your song recommender didn't send in a song in time. "+
				"Sit tight until %s to see everybody's results!\n"+
				"If this is a recurring issue, please let your server owner know to exclude "+
				"the offender from the next song trades.",
			utils.DeadlineTimestamps(phase2End)),
	}
}

func phase1ReminderMessage(end time.Time) discord.MessageCreate {
	return discord.MessageCreate{
		Content: fmt.Sprintf(
			"This is a gentle reminder to send in your song recommendation before the deadline! "+
				"Submissions close %s, so make sure you get it in before then, "+
				"or else the trade will continue without you!",
			utils.RelativeTimestamp(end)),
	}
}

func phase2ReminderMessage(end time.Time) discord.MessageCreate {
	return discord.MessageCreate{
		Content: fmt.Sprintf(
			"This is a gentle reminder to send in your song rating before the deadline! "+
				"Submissions close %s. This is _optional_, but highly recommended "+
				"so the song recommenders can get feedback.",
			utils.RelativeTimestamp(end)),
	}
}

// resultsHeader introduces the batch of edge embeds posted at the end of a
// trade.
func resultsHeader(server *models.Server, tradeName string) string {
	return fmt.Sprintf(
		"**End of trade %s**\n"+
			"Hello, %s! Thank you for participating in another round of song trades. "+
			"We'll be looking forward to doing this again, soon!\n"+
			"Below are all the song trades that happened this time around:",
		tradeName, mention(server))
}

// resultsText is the plain-text rendition uploaded as a paste when a server
// has no announcements channel.
func resultsText(trade *models.Trade, names map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Results of song trade %q\n", trade.Name)
	fmt.Fprintf(&b, "%d participants, %s to %s\n\n",
		len(trade.Users),
		trade.Start.Format("2006-01-02"),
		trade.End.Format("2006-01-02"))

	for _, edge := range trade.Edges {
		fromName, toName := names[edge.From.String()], names[edge.To.String()]
		fmt.Fprintf(&b, "%s -> %s\n", fromName, toName)
		if edge.Song != nil {
			fmt.Fprintf(&b, "  song: %s\n", edge.Song.Song)
			if edge.Song.Comments != "" {
				fmt.Fprintf(&b, "  comments: %s\n", edge.Song.Comments)
			}
		} else {
			b.WriteString("  no song was sent in time\n")
		}
		if edge.Response != nil {
			fmt.Fprintf(&b, "  rating: %s / 10\n", edge.Response.Rating)
			if edge.Response.Comments != "" {
				fmt.Fprintf(&b, "  response: %s\n", edge.Response.Comments)
			}
		} else if edge.Song != nil {
			fmt.Fprintf(&b, "  %s didn't leave a rating\n", toName)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func resultsLinkMessage(tradeName, url string) discord.MessageCreate {
	return discord.MessageCreate{
		Content: fmt.Sprintf(
			"**End of trade %s**\n"+
				"Thank you for participating! This server has no announcements channel set up, "+
				"so the full results live here instead: %s",
			tradeName, url),
	}
}

func cancellationMessage(tradeName string) discord.MessageCreate {
	return discord.MessageCreate{
		Content: fmt.Sprintf(
			"Song trade %s has been stopped by a server admin. "+
				"Any songs already submitted are kept for the history books, but no results "+
				"will be announced. See you next trade!",
			tradeName),
	}
}

// extensionMessage tells a sender about a pushed-back deadline. The wording
// differs depending on whether they already submitted.
func extensionMessage(tradeName string, newEnd time.Time, submitted bool) discord.MessageCreate {
	deadline := utils.DeadlineTimestamps(newEnd)
	var content string
	if submitted {
		content = fmt.Sprintf(
			"One of the trades you are participating in (%s) has extended its deadline for "+
				"submitting songs.\nThe new deadline is %s. Hang on tight while others are "+
				"submitting their songs!",
			tradeName, deadline)
	} else {
		content = fmt.Sprintf(
			"One of the trades you are participating in (%s) has extended its deadline for "+
				"submitting songs.\nYou now have until %s to submit your song. "+
				"Remember to submit it on time!",
			tradeName, deadline)
	}
	return discord.MessageCreate{Content: content}
}

// mention renders the server's pingable role, or a plain fallback when none
// is configured.
func mention(server *models.Server) string {
	if server.PingableRole != 0 {
		return fmt.Sprintf("<@&%s>", server.PingableRole)
	}
	return "everyone"
}
