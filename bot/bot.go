package bot

import (
	"modbot/model"
	"modbot/platform"
	"modbot/punish"
	"modbot/utils"
	"modbot/utils/database"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	"google.golang.org/grpc/health"
)

type Bot struct {
	Session            *discordgo.Session
	Config             *model.Config
	DB                 *sqlx.DB
	RegisteredCommands []*discordgo.ApplicationCommand
	CommandHandlers    map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)

	Punishments *database.PunishmentStore
	Settings    *database.SettingStore
	Parser      *utils.ExpirationParser
	Audit       *utils.GuildLogger

	Gate       *punish.Gate
	Undo       *punish.UndoQueue
	Mutes      *punish.MuteService
	Bans       *punish.BanService
	Kicks      *punish.KickService
	Warns      *punish.WarnService
	Scheduler  *punish.Scheduler
	Reconciler *punish.Reconciler

	health    *health.Server
	startedAt time.Time
}

// New wires the moderation services. Nothing touches Discord until Run.
func New(cfg *model.Config, db *sqlx.DB) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

	b := &Bot{
		Session:     dg,
		Config:      cfg,
		DB:          db,
		Punishments: database.NewPunishmentStore(db),
		Settings:    database.NewSettingStore(db),
		Parser:      utils.NewExpirationParser(cfg.Expiration.OffsetHours),
		Gate:        punish.NewGate(),
		Undo:        punish.NewUndoQueue(),
		health:      health.NewServer(),
		startedAt:   time.Now(),
	}
	b.Audit = utils.NewGuildLogger(dg, b.Settings)

	deps := punish.Deps{
		Store:        b.Punishments,
		Platform:     platform.NewDiscord(dg),
		Settings:     b.Settings,
		Audit:        b.Audit,
		Parser:       b.Parser,
		Gate:         b.Gate,
		Clock:        time.Now,
		ReadyTimeout: cfg.ReadyTimeout,
	}
	b.Mutes = punish.NewMuteService(deps)
	b.Bans = punish.NewBanService(deps)
	b.Kicks = punish.NewKickService(deps)
	b.Warns = punish.NewWarnService(deps)
	b.Scheduler = punish.NewScheduler(cfg.Scheduler, b.Gate, b.Undo, b.Audit, time.Now, b.Mutes, b.Bans)
	b.Reconciler = punish.NewReconciler(b.Gate, b.Mutes, b.Bans)
	return b, nil
}

// StartedAt returns when the bot was constructed.
func (b *Bot) StartedAt() time.Time {
	return b.startedAt
}
