package commands

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"
)

var Commands = []discord.ApplicationCommandCreate{
	Trade,
	Opt,
	Exclude,
	Profile,
	Server,
	TradeHistory,
	Version,
}

func intPtr(v int) *int {
	return &v
}

// requireGuild extracts the guild ID, answering with an error embed when the
// command was invoked from a DM.
func requireGuild(e *handler.CommandEvent) (snowflake.ID, bool) {
	if guildID := e.GuildID(); guildID != nil {
		return *guildID, true
	}
	return 0, false
}

// requireAdmin reports whether the invoking member has the administrator
// permission. Admin-only commands are gated at runtime so the check also
// holds when command permissions are misconfigured.
func requireAdmin(e *handler.CommandEvent) bool {
	member := e.Member()
	return member != nil && member.Permissions.Has(discord.PermissionAdministrator)
}
