package handlers

import (
	"fmt"
	"modbot/bot"
	"modbot/punish"
	"os"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// engineFields describes the state of the moderation engine.
func engineFields(ready bool, mutes, bans *punish.ExpirationQueue, undo *punish.UndoQueue, dropped int64) []*discordgo.MessageEmbedField {
	state := "starting"
	if ready {
		state = "ready"
	}
	return []*discordgo.MessageEmbedField{
		{Name: "⚙️ Engine", Value: state, Inline: true},
		{Name: "🔇 Pending unmutes", Value: fmt.Sprintf("%d", mutes.Len()), Inline: true},
		{Name: "🔨 Pending unbans", Value: fmt.Sprintf("%d", bans.Len()), Inline: true},
		{Name: "↩️ Undo queue", Value: fmt.Sprintf("%d", undo.Len()), Inline: true},
		{Name: "☠️ Abandoned reversals", Value: fmt.Sprintf("%d", dropped), Inline: true},
	}
}

func SystemInfoHandler(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	cpuCount, _ := cpu.Counts(true)
	cpuPercent, _ := cpu.Percent(0, false)
	vm, _ := mem.VirtualMemory()
	hostInfo, _ := host.Info()

	var rssMB uint64
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			rssMB = mi.RSS / 1024 / 1024
		}
	}

	fields := engineFields(b.Gate.Ready(), b.Mutes.Queue(), b.Bans.Queue(), b.Undo, b.Scheduler.Dropped())
	if hostInfo != nil {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "💻 OS", Value: fmt.Sprintf("%s %s", hostInfo.Platform, hostInfo.PlatformVersion), Inline: true})
	}
	fields = append(fields,
		&discordgo.MessageEmbedField{Name: "🐹 Go", Value: runtime.Version(), Inline: true},
		&discordgo.MessageEmbedField{Name: "🔼 CPUs", Value: fmt.Sprintf("%d", cpuCount), Inline: true},
	)
	if len(cpuPercent) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "🔥 CPU", Value: fmt.Sprintf("%.1f%%", cpuPercent[0]), Inline: true})
	}
	if vm != nil {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "🧠 Memory", Value: fmt.Sprintf("%.1f%% (%d MB / %d MB)", vm.UsedPercent, vm.Used/1024/1024, vm.Total/1024/1024), Inline: true})
	}
	fields = append(fields,
		&discordgo.MessageEmbedField{Name: "📦 Bot RSS", Value: fmt.Sprintf("%d MB", rssMB), Inline: true},
		&discordgo.MessageEmbedField{Name: "⏱️ WebSocket latency", Value: s.HeartbeatLatency().String(), Inline: true},
		&discordgo.MessageEmbedField{Name: "🚀 Goroutines", Value: fmt.Sprintf("%d", runtime.NumGoroutine()), Inline: true},
		&discordgo.MessageEmbedField{Name: "🕒 Uptime", Value: time.Since(b.StartedAt()).Round(time.Second).String(), Inline: true},
	)

	embed := &discordgo.MessageEmbed{
		Title:  "System status",
		Color:  0x5865F2, // Discord Blurple
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Moderation status・%s", time.Now().Format("15:04")),
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("error sending status response")
	}
}
