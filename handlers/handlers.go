package handlers

import (
	"context"
	"modbot/bot"
	"modbot/commands/defs"
	"modbot/handlers/punish"
	"modbot/platform"
	"modbot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

func Register(b *bot.Bot) {
	b.CommandHandlers = commandHandlers(b)
	addHandlers(b)
}

func commandHandlers(b *bot.Bot) map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	with := func(h func(*discordgo.Session, *discordgo.InteractionCreate, *bot.Bot)) func(*discordgo.Session, *discordgo.InteractionCreate) {
		return func(s *discordgo.Session, i *discordgo.InteractionCreate) { h(s, i, b) }
	}
	return map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"rmute":    with(punish.HandleMuteCommand),
		"runmute":  with(punish.HandleUnmuteCommand),
		"rban":     with(punish.HandleBanCommand),
		"runban":   with(punish.HandleUnbanCommand),
		"rkick":    with(punish.HandleKickCommand),
		"rwarn":    with(punish.HandleWarnCommand),
		"ractions": with(punish.HandleActionsCommand),
		"rsetting": with(punish.HandleSettingCommand),
		"rstatus":  with(SystemInfoHandler),
	}
}

func addHandlers(b *bot.Bot) {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("logged in")
	})
	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.GuildID == "" {
			return
		}
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			name := i.ApplicationCommandData().Name
			h, ok := b.CommandHandlers[name]
			if !ok {
				return
			}
			if !utils.HasPermission(i.Member, defs.RequiredPermissions[name]) {
				utils.SendErrorResponse(s, i, "You do not have permission to use this command.")
				return
			}
			h(s, i)
		case discordgo.InteractionMessageComponent:
			if punish.IsActionsButton(i.MessageComponentData().CustomID) {
				if !utils.HasPermission(i.Member, defs.RequiredPermissions["ractions"]) {
					utils.SendErrorResponse(s, i, "You do not have permission to use this command.")
					return
				}
				punish.HandleActionsButton(s, i, b)
			}
		}
	})
	b.Session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		if m.Member == nil || m.User == nil {
			return
		}
		member := platform.MemberFrom(m.GuildID, m.Member)
		if err := b.Mutes.HandleRejoin(context.Background(), member); err != nil {
			log.Error().Err(err).Str("user", member.ID).Str("guild", member.GuildID).Msg("failed to re-apply mute on rejoin")
		}
	})
}
