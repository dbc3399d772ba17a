package punish

import (
	"context"
	"modbot/bot"
	"modbot/utils"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const commandTimeout = 45 * time.Second

// run defers the interaction, executes op and edits the reply with its message.
func run(s *discordgo.Session, i *discordgo.InteractionCreate, command string, op func(ctx context.Context) (string, error)) {
	if err := utils.DeferResponse(s, i, false); err != nil {
		log.Error().Err(err).Str("command", command).Msg("failed to defer interaction")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	msg, err := op(ctx)
	if err != nil {
		log.Warn().Err(err).Str("command", command).Str("guild", i.GuildID).Msg(msg)
	}
	utils.SendFollowUp(s, i.Interaction, msg)
}

func HandleMuteCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	opts := optionMap(i.ApplicationCommandData().Options)
	target, ok := targetMember(i, opts)
	if !ok {
		utils.SendErrorResponse(s, i, "Please choose a user to mute.")
		return
	}
	reason := stringOption(opts, "reason")
	expiration := stringOption(opts, "expiration")
	run(s, i, "rmute", func(ctx context.Context) (string, error) {
		return b.Mutes.Mute(ctx, target, issuerMember(i), reason, expiration)
	})
}

func HandleUnmuteCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	opts := optionMap(i.ApplicationCommandData().Options)
	target, ok := targetMember(i, opts)
	if !ok {
		utils.SendErrorResponse(s, i, "Please choose a user to unmute.")
		return
	}
	run(s, i, "runmute", func(ctx context.Context) (string, error) {
		return b.Mutes.Unmute(ctx, target.ID, i.GuildID)
	})
}

func HandleBanCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	opts := optionMap(i.ApplicationCommandData().Options)
	target, ok := targetMember(i, opts)
	if !ok {
		utils.SendErrorResponse(s, i, "Please choose a user to ban.")
		return
	}
	reason := stringOption(opts, "reason")
	expiration := stringOption(opts, "expiration")
	run(s, i, "rban", func(ctx context.Context) (string, error) {
		return b.Bans.Ban(ctx, target, issuerMember(i), reason, expiration)
	})
}

func HandleUnbanCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	opts := optionMap(i.ApplicationCommandData().Options)
	target, ok := targetMember(i, opts)
	if !ok {
		utils.SendErrorResponse(s, i, "Please choose a user to unban.")
		return
	}
	run(s, i, "runban", func(ctx context.Context) (string, error) {
		return b.Bans.Unban(ctx, target.ID, i.GuildID)
	})
}

func HandleKickCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	opts := optionMap(i.ApplicationCommandData().Options)
	target, ok := targetMember(i, opts)
	if !ok {
		utils.SendErrorResponse(s, i, "Please choose a user to kick.")
		return
	}
	reason := stringOption(opts, "reason")
	run(s, i, "rkick", func(ctx context.Context) (string, error) {
		return b.Kicks.Kick(ctx, target, issuerMember(i), reason)
	})
}

func HandleWarnCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	opts := optionMap(i.ApplicationCommandData().Options)
	target, ok := targetMember(i, opts)
	if !ok {
		utils.SendErrorResponse(s, i, "Please choose a user to warn.")
		return
	}
	reason := stringOption(opts, "reason")
	run(s, i, "rwarn", func(ctx context.Context) (string, error) {
		return b.Warns.Warn(ctx, target, issuerMember(i), reason)
	})
}
