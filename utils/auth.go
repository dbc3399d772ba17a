package utils

import "github.com/bwmarrin/discordgo"

// HasPermission reports whether the interaction member holds required.
// Administrators hold every permission.
func HasPermission(member *discordgo.Member, required int64) bool {
	if member == nil {
		return false
	}
	if member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return member.Permissions&required == required
}
