package defs

import (
	"modbot/model"

	"github.com/bwmarrin/discordgo"
)

// Default permissions shown in the Discord client. Handlers check them again
// because guild admins can override command permissions.
var (
	banMembers    int64 = discordgo.PermissionBanMembers
	kickMembers   int64 = discordgo.PermissionKickMembers
	manageGuild   int64 = discordgo.PermissionManageGuild
	administrator int64 = discordgo.PermissionAdministrator
	noDM                = false
)

// RequiredPermissions maps each command to the permission its invoker needs.
var RequiredPermissions = map[string]int64{
	"rmute":    kickMembers,
	"runmute":  kickMembers,
	"rban":     banMembers,
	"runban":   banMembers,
	"rkick":    kickMembers,
	"rwarn":    kickMembers,
	"ractions": kickMembers,
	"rsetting": administrator,
	"rstatus":  manageGuild,
}

func userOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: description,
		Required:    true,
	}
}

func reasonOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: "Reason for the punishment",
		Required:    true,
	}
}

func expirationOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "expiration",
		Description: "When it ends, e.g. 2h, 3 days, tomorrow at 5pm",
		Required:    true,
	}
}

var Mute = &discordgo.ApplicationCommand{
	Name:        "rmute",
	Description: "Mute a user until the given time",
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "禁言用户直到指定时间",
	},
	DefaultMemberPermissions: &kickMembers,
	DMPermission:             &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("User to mute"),
		reasonOption(),
		expirationOption(),
	},
}

var Unmute = &discordgo.ApplicationCommand{
	Name:                     "runmute",
	Description:              "Lift a user's mute",
	DefaultMemberPermissions: &kickMembers,
	DMPermission:             &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("User to unmute"),
	},
}

var Ban = &discordgo.ApplicationCommand{
	Name:        "rban",
	Description: "Ban a user until the given time",
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "封禁用户直到指定时间",
	},
	DefaultMemberPermissions: &banMembers,
	DMPermission:             &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("User to ban"),
		reasonOption(),
		expirationOption(),
	},
}

var Unban = &discordgo.ApplicationCommand{
	Name:                     "runban",
	Description:              "Lift a user's ban",
	DefaultMemberPermissions: &banMembers,
	DMPermission:             &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("User to unban, an ID works for users outside the server"),
	},
}

var Kick = &discordgo.ApplicationCommand{
	Name:                     "rkick",
	Description:              "Kick a user from the server",
	DefaultMemberPermissions: &kickMembers,
	DMPermission:             &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("User to kick"),
		reasonOption(),
	},
}

var Warn = &discordgo.ApplicationCommand{
	Name:                     "rwarn",
	Description:              "Warn a user",
	DefaultMemberPermissions: &kickMembers,
	DMPermission:             &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("User to warn"),
		reasonOption(),
	},
}

func kindChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(model.Kinds))
	for _, k := range model.Kinds {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: string(k), Value: string(k)})
	}
	return choices
}

var Actions = &discordgo.ApplicationCommand{
	Name:                     "ractions",
	Description:              "List a user's punishments",
	DefaultMemberPermissions: &kickMembers,
	DMPermission:             &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("User to look up"),
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "kind",
			Description: "Punishment kind",
			Required:    true,
			Choices:     kindChoices(),
		},
	},
}

var settingKeyChoices = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "Muted role", Value: model.SettingMutedRole},
	{Name: "Log channel", Value: model.SettingLogChannel},
	{Name: "Report channel", Value: model.SettingReportChannel},
}

var Setting = &discordgo.ApplicationCommand{
	Name:                     "rsetting",
	Description:              "Read or change moderation settings",
	DefaultMemberPermissions: &administrator,
	DMPermission:             &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "set",
			Description: "Change a setting",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "key",
					Description: "Setting to change",
					Required:    true,
					Choices:     settingKeyChoices,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "value",
					Description: "Role or channel ID, a mention also works",
					Required:    true,
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "get",
			Description: "Show a setting",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "key",
					Description: "Setting to show",
					Required:    true,
					Choices:     settingKeyChoices,
				},
			},
		},
	},
}

var Status = &discordgo.ApplicationCommand{
	Name:                     "rstatus",
	Description:              "Show moderation engine and host status",
	DefaultMemberPermissions: &manageGuild,
	DMPermission:             &noDM,
}
