package punish

import (
	"fmt"
	"modbot/model"
	"modbot/utils"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	actionsPageSize = 5
	actionsPrefix   = "actions"
)

func actionsCustomID(userID string, page int, kind model.Kind) string {
	return strings.Join([]string{actionsPrefix, userID, strconv.Itoa(page), string(kind)}, "|")
}

// parseActionsCustomID reverses actionsCustomID.
func parseActionsCustomID(id string) (userID string, page int, kind model.Kind, ok bool) {
	parts := strings.Split(id, "|")
	if len(parts) != 4 || parts[0] != actionsPrefix || parts[1] == "" {
		return "", 0, "", false
	}
	page, err := strconv.Atoi(parts[2])
	if err != nil || page < 0 {
		return "", 0, "", false
	}
	kind = model.Kind(parts[3])
	if !kind.Valid() {
		return "", 0, "", false
	}
	return parts[1], page, kind, true
}

// IsActionsButton reports whether a component custom ID belongs to the actions pager.
func IsActionsButton(customID string) bool {
	return strings.HasPrefix(customID, actionsPrefix+"|")
}

func buildActionsEmbed(userID string, kind model.Kind, page int, rows []model.PunishmentRow, loc *time.Location) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s history", strings.ToUpper(string(kind)[:1])+string(kind)[1:]),
		Description: fmt.Sprintf("<@%s>", userID),
		Color:       0x5865F2,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Page %d", page+1)},
	}
	if len(rows) == 0 {
		embed.Description += "\nNo records found."
		return embed
	}

	for _, row := range rows {
		reason := row.ReasonText()
		if reason == "" {
			reason = "No reason given"
		}
		value := fmt.Sprintf("Reason: %s\nBy: <@%s>\nIssued: %s",
			reason, row.PunisherID, utils.FormatExpiration(time.UnixMilli(row.CreatedAt), loc))
		if clearAt, ok := row.ClearAt(); ok {
			state := "ended"
			if row.Active {
				state = "active"
			}
			value += fmt.Sprintf("\nExpires: %s (%s)", utils.FormatExpiration(clearAt, loc), state)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("#%d", row.ID),
			Value: value,
		})
	}
	return embed
}

func actionsButtons(userID string, kind model.Kind, page int, hasNext bool) []discordgo.MessageComponent {
	return utils.CreatePaginationComponents(page, hasNext, func(p int) string {
		return actionsCustomID(userID, p, kind)
	})
}
