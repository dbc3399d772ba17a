package utils

import (
	"github.com/bwmarrin/discordgo"
)

// CreatePaginationComponents creates Prev/Next buttons for a zero-based page.
// customID builds the button ID for a target page. Nothing is returned when
// there is only one page.
func CreatePaginationComponents(page int, hasNext bool, customID func(page int) string) []discordgo.MessageComponent {
	if page == 0 && !hasNext {
		return nil
	}
	prev := page - 1
	if prev < 0 {
		prev = 0
	}

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Prev",
					Style:    discordgo.SecondaryButton,
					Disabled: page == 0,
					CustomID: customID(prev),
				},
				discordgo.Button{
					Label:    "Next",
					Style:    discordgo.SecondaryButton,
					Disabled: !hasNext,
					CustomID: customID(page + 1),
				},
			},
		},
	}
}
