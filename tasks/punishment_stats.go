package tasks

import (
	"context"
	"fmt"
	"modbot/model"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// StatsStore reads punishment counts for reports.
type StatsStore interface {
	CountByKindSince(ctx context.Context, serverID string, since time.Time) (map[model.Kind]int, error)
	PunisherStatsSince(ctx context.Context, serverID string, since time.Time) (map[string]int, error)
}

// ReportTargets lists the guilds that configured a report channel.
type ReportTargets interface {
	ListByKey(ctx context.Context, key string) ([]model.Setting, error)
}

const maxIssuers = 10

func GeneratePunishmentStatsEmbed(ctx context.Context, store StatsStore, guildID string, duration time.Duration, now time.Time) (*discordgo.MessageEmbed, error) {
	since := now.Add(-duration)
	counts, err := store.CountByKindSince(ctx, guildID, since)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to count punishments for guild %s", guildID)
	}
	stats, err := store.PunisherStatsSince(ctx, guildID, since)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get punisher stats for guild %s", guildID)
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	var sortedIssuers []string
	for id := range stats {
		sortedIssuers = append(sortedIssuers, id)
	}
	sort.Slice(sortedIssuers, func(i, j int) bool {
		if stats[sortedIssuers[i]] == stats[sortedIssuers[j]] {
			return sortedIssuers[i] < sortedIssuers[j]
		}
		return stats[sortedIssuers[i]] > stats[sortedIssuers[j]]
	})
	if len(sortedIssuers) > maxIssuers {
		sortedIssuers = sortedIssuers[:maxIssuers]
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("### Punishments in the last %s\n", duration.String()))
	builder.WriteString(fmt.Sprintf("**Total: %d**\n", total))
	for _, kind := range model.Kinds {
		builder.WriteString(fmt.Sprintf("%s: %d\n", kind, counts[kind]))
	}
	if len(sortedIssuers) > 0 {
		builder.WriteString("\n**Top moderators:**\n")
		for i, id := range sortedIssuers {
			builder.WriteString(fmt.Sprintf("%d. <@%s>: %d\n", i+1, id, stats[id]))
		}
	}

	return &discordgo.MessageEmbed{
		Title:       "Punishment report",
		Description: builder.String(),
		Timestamp:   now.Format(time.RFC3339),
		Color:       0x00ff00,
	}, nil
}

// PostPunishmentReports sends a report to every guild's reportChannel.
// It returns the number of reports sent.
func PostPunishmentReports(ctx context.Context, s *discordgo.Session, store StatsStore, targets ReportTargets, duration time.Duration) int {
	settings, err := targets.ListByKey(ctx, model.SettingReportChannel)
	if err != nil {
		log.Error().Err(err).Msg("failed to list report channels")
		return 0
	}

	sent := 0
	for _, setting := range settings {
		embed, err := GeneratePunishmentStatsEmbed(ctx, store, setting.ServerID, duration, time.Now())
		if err != nil {
			log.Error().Err(err).Str("guild", setting.ServerID).Msg("failed to generate punishment report")
			continue
		}
		if _, err := s.ChannelMessageSendEmbed(setting.Value, embed, discordgo.WithContext(ctx)); err != nil {
			log.Error().Err(err).Str("guild", setting.ServerID).Str("channel", setting.Value).Msg("failed to send punishment report")
			continue
		}
		sent++
	}
	log.Info().Int("sent", sent).Msg("punishment reports posted")
	return sent
}
