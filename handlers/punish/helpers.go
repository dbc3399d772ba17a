package punish

import (
	"modbot/model"
	"modbot/platform"
	"regexp"

	"github.com/bwmarrin/discordgo"
)

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

func stringOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := opts[name]; ok {
		return opt.StringValue()
	}
	return ""
}

// targetMember resolves the "user" option from the interaction payload.
// Users outside the guild come back with only their ID and name set.
func targetMember(i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) (model.Member, bool) {
	opt, ok := opts["user"]
	if !ok {
		return model.Member{}, false
	}
	userID, _ := opt.Value.(string)
	if userID == "" {
		return model.Member{}, false
	}

	data := i.ApplicationCommandData()
	var user *discordgo.User
	if data.Resolved != nil {
		user = data.Resolved.Users[userID]
		if m, ok := data.Resolved.Members[userID]; ok && user != nil {
			resolved := *m
			resolved.User = user
			return platform.MemberFrom(i.GuildID, &resolved), true
		}
	}
	if user == nil {
		user = &discordgo.User{ID: userID}
	}
	return platform.UserAsMember(i.GuildID, user), true
}

// issuerMember returns the moderator who invoked the interaction.
func issuerMember(i *discordgo.InteractionCreate) model.Member {
	if i.Member != nil && i.Member.User != nil {
		return platform.MemberFrom(i.GuildID, i.Member)
	}
	if i.User != nil {
		return platform.UserAsMember(i.GuildID, i.User)
	}
	return model.Member{GuildID: i.GuildID}
}

var snowflakePattern = regexp.MustCompile(`\d{15,21}`)

// snowflake extracts an ID from a raw ID or a role/channel mention.
func snowflake(value string) (string, bool) {
	id := snowflakePattern.FindString(value)
	return id, id != ""
}
