package punish

import (
	"context"
	"modbot/bot"
	"modbot/model"
	"modbot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

func loadActionsPage(ctx context.Context, b *bot.Bot, guildID, userID string, kind model.Kind, page int) (*discordgo.MessageEmbed, []discordgo.MessageComponent, error) {
	rows, err := b.Punishments.ListByUser(ctx, guildID, userID, kind, page*actionsPageSize, actionsPageSize+1)
	if err != nil {
		return nil, nil, err
	}
	hasNext := len(rows) > actionsPageSize
	if hasNext {
		rows = rows[:actionsPageSize]
	}
	return buildActionsEmbed(userID, kind, page, rows, b.Parser.Location()), actionsButtons(userID, kind, page, hasNext), nil
}

func HandleActionsCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	opts := optionMap(i.ApplicationCommandData().Options)
	target, ok := targetMember(i, opts)
	kind := model.Kind(stringOption(opts, "kind"))
	if !ok || !kind.Valid() {
		utils.SendErrorResponse(s, i, "Please choose a user and a punishment kind.")
		return
	}

	embed, components, err := loadActionsPage(context.Background(), b, i.GuildID, target.ID, kind, 0)
	if err != nil {
		log.Error().Err(err).Str("user", target.ID).Msg("failed to list punishments")
		utils.SendErrorResponse(s, i, "Unable to load punishments.")
		return
	}
	utils.SendEmbedResponse(s, i, []*discordgo.MessageEmbed{embed}, components, true)
}

// HandleActionsButton turns the page of an actions listing.
func HandleActionsButton(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	userID, page, kind, ok := parseActionsCustomID(i.MessageComponentData().CustomID)
	if !ok {
		utils.SendErrorResponse(s, i, "This button is no longer valid.")
		return
	}

	embed, components, err := loadActionsPage(context.Background(), b, i.GuildID, userID, kind, page)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to list punishments")
		utils.SendErrorResponse(s, i, "Unable to load punishments.")
		return
	}
	utils.UpdateEmbedResponse(s, i, []*discordgo.MessageEmbed{embed}, components)
}
