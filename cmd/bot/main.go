package main

import (
	"os"
	"path/filepath"

	"github.com/novabot/nova/internal/bot"
	"github.com/novabot/nova/internal/confirm"
	"github.com/novabot/nova/internal/logger"
	"github.com/novabot/nova/internal/store"
	"github.com/novabot/nova/modules/aichat"
	"github.com/novabot/nova/modules/autoroles"
	"github.com/novabot/nova/modules/economy"
	"github.com/novabot/nova/modules/fun"
	"github.com/novabot/nova/modules/giveaways"
	"github.com/novabot/nova/modules/levelling"
	"github.com/novabot/nova/modules/logging"
	"github.com/novabot/nova/modules/moderation"
	"github.com/novabot/nova/modules/music"
	"github.com/novabot/nova/modules/presence"
	"github.com/novabot/nova/modules/tags"
	"github.com/novabot/nova/modules/tickets"
	"github.com/novabot/nova/modules/utility"
)

func main() {
	cfg, err := bot.LoadConfig()
	if err != nil {
		fallback := logger.New("info")
		fallback.Fatal().Err(err).Msg("config load failed")
	}

	log := logger.New(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("could not create data directory")
		}
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("could not open database")
	}
	defer st.Close()

	if err := st.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	cm := confirm.NewManager()

	modules := []bot.Module{
		giveaways.New(st, log.With().Str("module", "giveaways").Logger(), cfg.GuildID, cfg.GiveawaySweepInterval),
		music.New(log.With().Str("module", "music").Logger(), cfg.GuildID),
		levelling.New(st, log.With().Str("module", "levelling").Logger(), cfg.GuildID, cm),
		economy.New(st, log.With().Str("module", "economy").Logger(), cfg.GuildID),
		moderation.New(st, log.With().Str("module", "moderation").Logger(), cfg.GuildID),
		tickets.New(st, log.With().Str("module", "tickets").Logger(), cfg.GuildID),
		tags.New(st, log.With().Str("module", "tags").Logger(), cfg.GuildID),
		autoroles.New(st, log.With().Str("module", "autoroles").Logger(), cfg.GuildID, cm),
		logging.New(st, log.With().Str("module", "logging").Logger(), cfg.GuildID),
		aichat.New(st, log.With().Str("module", "aichat").Logger(), cfg.GuildID, cfg.OpenAIKey),
		fun.New(log.With().Str("module", "fun").Logger(), cfg.GuildID),
		utility.New(log.With().Str("module", "utility").Logger(), cfg.GuildID),
		presence.New(log.With().Str("module", "presence").Logger()),
	}

	r, err := bot.NewRunner(cfg, log, modules)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create bot")
	}

	// Confirmation buttons are shared infrastructure, not a module.
	cm.Register(r.Session)

	if err := r.Run(); err != nil {
		log.Fatal().Err(err).Msg("bot exited with error")
	}
}
