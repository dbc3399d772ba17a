package punish

import (
	"context"
	"fmt"
	"modbot/bot"
	"modbot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

func HandleSettingCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		utils.SendErrorResponse(s, i, "Unknown setting action.")
		return
	}
	sub := options[0]
	opts := optionMap(sub.Options)
	key := stringOption(opts, "key")
	ctx := context.Background()

	switch sub.Name {
	case "get":
		value, ok, err := b.Settings.GetSetting(ctx, i.GuildID, key)
		if err != nil {
			log.Error().Err(err).Str("key", key).Msg("failed to read setting")
			utils.SendErrorResponse(s, i, "Unable to read setting.")
			return
		}
		if !ok {
			utils.SendEphemeralResponse(s, i, fmt.Sprintf("`%s` is not set.", key))
			return
		}
		utils.SendEphemeralResponse(s, i, fmt.Sprintf("`%s` is `%s`.", key, value))
	case "set":
		value, ok := snowflake(stringOption(opts, "value"))
		if !ok {
			utils.SendErrorResponse(s, i, "Value must be a role or channel ID or mention.")
			return
		}
		created, err := b.Settings.SetSetting(ctx, i.GuildID, key, value)
		if err != nil {
			log.Error().Err(err).Str("key", key).Msg("failed to save setting")
			utils.SendErrorResponse(s, i, "Unable to save setting.")
			return
		}
		verb := "updated"
		if created {
			verb = "created"
		}
		msg := fmt.Sprintf("Setting `%s` %s with value `%s`", key, verb, value)
		b.Audit.Log(ctx, i.GuildID, msg)
		utils.SendEphemeralResponse(s, i, msg)
	default:
		utils.SendErrorResponse(s, i, "Unknown setting action.")
	}
}
