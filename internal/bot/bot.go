package bot

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

type Module interface {
	Name() string
	Register(s *discordgo.Session) error
	Start(ctx context.Context, s *discordgo.Session) error
}

type Runner struct {
	Session *discordgo.Session
	Modules []Module

	guildID     string
	log         zerolog.Logger
	cleanupOnce sync.Once
}

func NewRunner(cfg Config, log zerolog.Logger, modules []Module) (*Runner, error) {
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}

	// Members for joins/autoroles, voice states for music, message content
	// for leveling and AI chat.
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent

	// Cache recent messages so delete/edit logs can show prior content.
	s.State.MaxMessageCount = 1000

	return &Runner{
		Session: s,
		Modules: modules,
		guildID: cfg.GuildID,
		log:     log,
	}, nil
}

func (r *Runner) Run() error {
	// In single-guild mode old GLOBAL slash commands hang around and show
	// as duplicates alongside GUILD commands. Wipe globals once on Ready
	// when a guild id is configured.
	r.Session.AddHandler(r.onReadyGlobalCommandCleanup)

	for _, m := range r.Modules {
		if err := m.Register(r.Session); err != nil {
			return err
		}
		r.log.Info().Str("module", m.Name()).Msg("registered module")
	}

	if err := r.Session.Open(); err != nil {
		return err
	}
	defer r.Session.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, m := range r.Modules {
		if err := m.Start(ctx, r.Session); err != nil {
			return err
		}
		r.log.Info().Str("module", m.Name()).Msg("started module")
	}

	r.log.Info().Msg("Nova is running. Press Ctrl+C to stop.")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	cancel()
	// Give background loops a moment to observe cancellation before the
	// session and store close under them.
	time.Sleep(300 * time.Millisecond)
	return nil
}

func (r *Runner) onReadyGlobalCommandCleanup(s *discordgo.Session, _ *discordgo.Ready) {
	r.cleanupOnce.Do(func() {
		if r.guildID == "" {
			return
		}

		appID := ""
		if s.State != nil && s.State.User != nil {
			appID = s.State.User.ID
		}
		if appID == "" {
			r.log.Warn().Msg("global command cleanup skipped: missing application ID")
			return
		}

		if _, err := s.ApplicationCommandBulkOverwrite(appID, "", []*discordgo.ApplicationCommand{}); err != nil {
			r.log.Error().Err(err).Msg("global command cleanup failed")
			return
		}

		r.log.Info().Str("guild", r.guildID).Msg("cleared all global slash commands (single-guild mode)")
	})
}
