package platform

import (
	"context"
	"modbot/model"
	"modbot/punish"
	"modbot/utils"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

// Discord performs punishment side effects through a discordgo session.
type Discord struct {
	session *discordgo.Session
}

// NewDiscord adapts an open discordgo session.
func NewDiscord(s *discordgo.Session) *Discord {
	return &Discord{session: s}
}

// Guild resolves a guild from the state cache, falling back to the API.
func (d *Discord) Guild(ctx context.Context, guildID string) (model.Guild, error) {
	if d.session.State != nil {
		if g, err := d.session.State.Guild(guildID); err == nil {
			return model.Guild{ID: g.ID, Name: g.Name}, nil
		}
	}
	g, err := d.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return model.Guild{}, classify(err, "get guild %s", guildID)
	}
	return model.Guild{ID: g.ID, Name: g.Name}, nil
}

// Member fetches a guild member from the API so roles are current.
func (d *Discord) Member(ctx context.Context, guildID, userID string) (model.Member, error) {
	m, err := d.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return model.Member{}, classify(err, "get member %s in guild %s", userID, guildID)
	}
	return MemberFrom(guildID, m), nil
}

// AddRole gives the member a role.
func (d *Discord) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	err := d.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
	return classify(err, "add role %s to %s", roleID, userID)
}

// RemoveRole takes a role away from the member.
func (d *Discord) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	err := d.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx))
	return classify(err, "remove role %s from %s", roleID, userID)
}

// Ban bans the user without deleting any of their messages.
func (d *Discord) Ban(ctx context.Context, guildID, userID, reason string) error {
	err := d.session.GuildBanCreateWithReason(guildID, userID, reason, 0, discordgo.WithContext(ctx))
	return classify(err, "ban %s", userID)
}

// Unban lifts the user's ban. A missing ban maps to punish.ErrNotFound.
func (d *Discord) Unban(ctx context.Context, guildID, userID string) error {
	err := d.session.GuildBanDelete(guildID, userID, discordgo.WithContext(ctx))
	return classify(err, "unban %s", userID)
}

// Kick removes the member from the guild with reason in the audit log.
func (d *Discord) Kick(ctx context.Context, guildID, userID, reason string) error {
	err := d.session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx))
	return classify(err, "kick %s", userID)
}

// SendDirectMessage sends notice as an embed in the user's DM channel.
func (d *Discord) SendDirectMessage(ctx context.Context, userID string, notice punish.Notice) error {
	embed := &discordgo.MessageEmbed{
		Title:       notice.Title,
		Description: notice.Description,
		Color:       0xE74C3C,
	}
	return utils.SendPrivateEmbedMessage(ctx, d.session, userID, embed)
}

// MemberFrom converts a discordgo member. guildID is used when the payload omits it.
func MemberFrom(guildID string, m *discordgo.Member) model.Member {
	out := model.Member{GuildID: guildID, Nickname: m.Nick, Roles: m.Roles}
	if m.GuildID != "" {
		out.GuildID = m.GuildID
	}
	if m.User != nil {
		out.ID = m.User.ID
		out.Username = m.User.Username
		if m.User.GlobalName != "" && out.Nickname == "" {
			out.Nickname = m.User.GlobalName
		}
	}
	return out
}

// UserAsMember builds a member value for a user that may not be in the guild.
func UserAsMember(guildID string, u *discordgo.User) model.Member {
	return model.Member{ID: u.ID, GuildID: guildID, Username: u.Username, Nickname: u.GlobalName}
}

var notFoundCodes = map[int]bool{
	discordgo.ErrCodeUnknownGuild:  true,
	discordgo.ErrCodeUnknownMember: true,
	discordgo.ErrCodeUnknownUser:   true,
	discordgo.ErrCodeUnknownBan:    true,
}

// classify wraps err with context and marks unknown guild, member, user or
// ban responses as punish.ErrNotFound.
func classify(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil && notFoundCodes[restErr.Message.Code] {
			return errors.WithMessagef(punish.ErrNotFound, format+": %v", append(args, err)...)
		}
		if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return errors.WithMessagef(punish.ErrNotFound, format+": %v", append(args, err)...)
		}
	}
	return errors.Wrapf(err, format, args...)
}
