// Package presence rotates the bot's activity through a fixed list
// every 30 seconds, formatting live guild and member counts into the
// text.
package presence

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	humanize "github.com/dustin/go-humanize"
)

const rotateInterval = 30 * time.Second

type status struct {
	activityType discordgo.ActivityType
	name         string
}

var statuses = []status{
	{discordgo.ActivityTypeWatching, "over {guild_count} cute servers 💕"},
	{discordgo.ActivityTypeGame, "/help for all my commands ✨"},
	{discordgo.ActivityTypeListening, "to music with {user_count} friends 🎵"},
	{discordgo.ActivityTypeCompeting, "to be your #1 multipurpose bot 🌸"},
	{discordgo.ActivityTypeWatching, "tickets being opened 📬"},
	{discordgo.ActivityTypeGame, "with new ideas from users 🌟"},
	{discordgo.ActivityTypeListening, "to your questions with AI 🤍"},
	{discordgo.ActivityTypeWatching, "over amazing communities 🌺"},
	{discordgo.ActivityTypeGame, "music for everyone 🎶"},
	{discordgo.ActivityTypeListening, "to feedback and suggestions 💖"},
}

type Module struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Module {
	return &Module{log: log}
}

func (m *Module) Name() string { return "presence" }

func (m *Module) Register(s *discordgo.Session) error { return nil }

func (m *Module) Start(ctx context.Context, s *discordgo.Session) error {
	go m.rotate(ctx, s)
	return nil
}

func (m *Module) rotate(ctx context.Context, s *discordgo.Session) {
	ticker := time.NewTicker(rotateInterval)
	defer ticker.Stop()

	index := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		st := statuses[index]
		index = (index + 1) % len(statuses)

		err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
			Status: "online",
			Activities: []*discordgo.Activity{
				{Type: st.activityType, Name: format(st.name, s)},
			},
		})
		if err != nil {
			m.log.Debug().Err(err).Msg("presence update failed")
		}
	}
}

func format(name string, s *discordgo.Session) string {
	guilds, users := counts(s)
	name = strings.ReplaceAll(name, "{guild_count}", humanize.Comma(int64(guilds)))
	name = strings.ReplaceAll(name, "{user_count}", humanize.Comma(int64(users)))
	return name
}

func counts(s *discordgo.Session) (guilds, users int) {
	if s.State == nil {
		return 0, 0
	}
	for _, g := range s.State.Guilds {
		guilds++
		users += g.MemberCount
	}
	return guilds, users
}
