package commands

import (
	"modbot/commands/defs"

	"github.com/bwmarrin/discordgo"
)

// GenerateCommands returns every slash command the bot registers.
func GenerateCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		defs.Mute,
		defs.Unmute,
		defs.Ban,
		defs.Unban,
		defs.Kick,
		defs.Warn,
		defs.Actions,
		defs.Setting,
		defs.Status,
	}
}
