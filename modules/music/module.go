package music

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/novabot/nova/internal/apperr"
	"github.com/novabot/nova/internal/bot"
	"github.com/novabot/nova/internal/embeds"
	"github.com/novabot/nova/internal/perms"
	"github.com/novabot/nova/internal/reply"
)

const autoLeaveDelay = 60 * time.Second

// guildState binds a session to its voice connection and playback
// goroutine. textChannelID is where the last /play happened; track
// announcements go there.
type guildState struct {
	session       *Session
	vc            *discordgo.VoiceConnection
	player        *guildPlayer
	textChannelID string
	leaveTimer    *time.Timer
}

type Module struct {
	log      zerolog.Logger
	guildID  string
	resolver *Resolver

	mu     sync.Mutex
	guilds map[string]*guildState
	runCtx context.Context
}

func New(log zerolog.Logger, guildID string) *Module {
	return &Module{
		log:      log,
		guildID:  guildID,
		resolver: NewResolver(log),
		guilds:   map[string]*guildState{},
	}
}

func (m *Module) Name() string { return "music" }

func (m *Module) Register(s *discordgo.Session) error {
	s.AddHandler(m.onReady)
	s.AddHandler(m.onInteractionCreate)
	s.AddHandler(m.onVoiceStateUpdate)
	return nil
}

func (m *Module) Start(ctx context.Context, s *discordgo.Session) error {
	m.mu.Lock()
	m.runCtx = ctx
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		for guildID, gs := range m.guilds {
			if gs.player != nil {
				gs.player.Shutdown()
			}
			if gs.vc != nil {
				_ = gs.vc.Disconnect()
			}
			delete(m.guilds, guildID)
		}
	}()
	return nil
}

func (m *Module) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	bot.RegisterCommands(s, m.log, m.guildID, []*discordgo.ApplicationCommand{
		{
			Name:        "play",
			Description: "🎵 Play a song from YouTube",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "query", Description: "Song name or YouTube URL", Required: true},
			},
		},
		{Name: "pause", Description: "⏸️ Pause the current song"},
		{Name: "resume", Description: "▶️ Resume playback"},
		{Name: "skip", Description: "⏭️ Vote to skip the current song"},
		{Name: "stop", Description: "⏹️ Stop playback and leave the voice channel"},
		{Name: "queue", Description: "📋 Show the song queue"},
		{Name: "nowplaying", Description: "🎧 Show the current song"},
		{
			Name:        "loop",
			Description: "🔁 Set the loop mode",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionString, Name: "mode", Description: "Loop mode", Required: true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Off", Value: "off"},
						{Name: "Song", Value: "song"},
						{Name: "Queue", Value: "queue"},
					},
				},
			},
		},
		{
			Name:        "volume",
			Description: "🔊 Set the playback volume",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "level", Description: "Volume from 0 to 100", Required: true},
			},
		},
	})
}

func (m *Module) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	switch i.ApplicationCommandData().Name {
	case "play":
		m.handlePlay(s, i)
	case "pause":
		m.handlePause(s, i)
	case "resume":
		m.handleResume(s, i)
	case "skip":
		m.handleSkip(s, i)
	case "stop":
		m.handleStop(s, i)
	case "queue":
		m.handleQueue(s, i)
	case "nowplaying":
		m.handleNowPlaying(s, i)
	case "loop":
		m.handleLoop(s, i)
	case "volume":
		m.handleVolume(s, i)
	}
}

func (m *Module) handlePlay(s *discordgo.Session, i *discordgo.InteractionCreate) {
	voiceChannelID := userVoiceChannel(s, i.GuildID, reply.UserID(i))
	if voiceChannelID == "" {
		reply.Err(s, i, m.log, apperr.Voice("You need to be in a voice channel to play music!"))
		return
	}

	// Resolution hits the network; acknowledge before the 3s window
	// closes.
	if err := reply.Defer(s, i); err != nil {
		m.log.Debug().Err(err).Msg("play defer failed")
		return
	}

	query := bot.CommandOptions(i)["query"].StringValue()
	track, err := m.resolver.Resolve(context.Background(), query, reply.UserID(i))
	if err != nil {
		reply.FollowupErr(s, i, m.log, err)
		return
	}

	m.mu.Lock()
	gs, ok := m.guilds[i.GuildID]
	if !ok {
		vc, jerr := s.ChannelVoiceJoin(i.GuildID, voiceChannelID, false, true)
		if jerr != nil {
			m.mu.Unlock()
			reply.FollowupErr(s, i, m.log, apperr.Voice("I couldn't join your voice channel!"))
			return
		}
		gs = &guildState{
			session: NewSession(i.GuildID, voiceChannelID),
			vc:      vc,
		}
		m.guilds[i.GuildID] = gs
	}
	gs.textChannelID = i.ChannelID

	position := gs.session.Enqueue(track)
	if position == 0 {
		m.startPlayer(s, i.GuildID, gs)
	}
	m.mu.Unlock()

	if position == 0 {
		_ = reply.Followup(s, i, nowPlayingEmbed(track, gs.session))
		return
	}
	e := embeds.Music("Added to Queue", fmt.Sprintf("**%s**", track.Title))
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Position", Value: fmt.Sprintf("#%d", position), Inline: true},
		{Name: "Duration", Value: formatDuration(track.Duration), Inline: true},
		{Name: "Requested by", Value: fmt.Sprintf("<@%s>", track.RequesterID), Inline: true},
	}
	_ = reply.Followup(s, i, e)
}

// startPlayer launches the playback goroutine for gs. Caller holds m.mu.
func (m *Module) startPlayer(s *discordgo.Session, guildID string, gs *guildState) {
	ctx := m.runCtx
	if ctx == nil {
		ctx = context.Background()
	}

	channelID := gs.textChannelID
	announce := func(t *Track) {
		m.mu.Lock()
		target := channelID
		if cur, ok := m.guilds[guildID]; ok && cur.textChannelID != "" {
			target = cur.textChannelID
		}
		m.mu.Unlock()
		if _, err := s.ChannelMessageSendEmbed(target, nowPlayingEmbed(t, gs.session)); err != nil {
			m.log.Debug().Err(err).Str("guild", guildID).Msg("track announcement failed")
		}
	}

	gs.player = newGuildPlayer(ctx, gs.session, gs.vc, m.log, announce)
	go gs.player.run()
}

func (m *Module) handlePause(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gs, err := m.activeState(i.GuildID)
	if err != nil {
		reply.Err(s, i, m.log, err)
		return
	}
	if err := gs.session.Pause(); err != nil {
		reply.Err(s, i, m.log, err)
		return
	}
	_ = reply.Embed(s, i, embeds.Music("Paused", "⏸️ Playback paused. Use `/resume` to continue."))
}

func (m *Module) handleResume(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gs, err := m.activeState(i.GuildID)
	if err != nil {
		reply.Err(s, i, m.log, err)
		return
	}
	if err := gs.session.Resume(); err != nil {
		reply.Err(s, i, m.log, err)
		return
	}
	_ = reply.Embed(s, i, embeds.Music("Resumed", "▶️ Playback resumed!"))
}

func (m *Module) handleSkip(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gs, err := m.activeState(i.GuildID)
	if err != nil {
		reply.Err(s, i, m.log, err)
		return
	}
	current := gs.session.Current()
	if current == nil {
		reply.Err(s, i, m.log, apperr.State("Nothing is playing right now!"))
		return
	}

	humans := countHumans(s, i.GuildID, gs.session.ChannelID())
	privileged := perms.Has(i, discordgo.PermissionManageChannels)
	skipped, votes, needed := gs.session.VoteSkip(reply.UserID(i), humans, privileged)
	if !skipped {
		_ = reply.Embed(s, i, embeds.Music("Skip Vote",
			fmt.Sprintf("🗳️ Vote registered! **%d/%d** votes to skip **%s**.", votes, needed, current.Title)))
		return
	}

	gs.player.Skip()
	_ = reply.Embed(s, i, embeds.Music("Skipped", fmt.Sprintf("⏭️ Skipped **%s**!", current.Title)))
}

func (m *Module) handleStop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	m.mu.Lock()
	gs, ok := m.guilds[i.GuildID]
	if ok {
		m.teardownLocked(i.GuildID, gs)
	}
	m.mu.Unlock()

	if !ok {
		reply.Err(s, i, m.log, apperr.State("I'm not playing anything right now!"))
		return
	}
	_ = reply.Embed(s, i, embeds.Music("Stopped", "⏹️ Playback stopped. See you next time! 👋"))
}

// teardownLocked stops playback, disconnects and forgets the guild.
// Caller holds m.mu.
func (m *Module) teardownLocked(guildID string, gs *guildState) {
	if gs.leaveTimer != nil {
		gs.leaveTimer.Stop()
	}
	// Cancel before disconnecting: after Disconnect nothing drains
	// OpusSend, and a player blocked on that send would never observe a
	// channel signal.
	if gs.player != nil {
		gs.player.Shutdown()
	}
	gs.session.Clear()
	if gs.vc != nil {
		_ = gs.vc.Disconnect()
	}
	delete(m.guilds, guildID)
}

func (m *Module) handleQueue(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gs, err := m.activeState(i.GuildID)
	if err != nil {
		reply.Err(s, i, m.log, err)
		return
	}

	current := gs.session.Current()
	queue := gs.session.Queue()
	if current == nil && len(queue) == 0 {
		reply.Err(s, i, m.log, apperr.State("The queue is empty!"))
		return
	}

	description := ""
	if current != nil {
		description = fmt.Sprintf("**Now Playing:** %s `[%s]`\n", current.Title, formatDuration(current.Duration))
	}
	if len(queue) > 0 {
		description += "\n**Up Next:**\n"
		for n, t := range queue {
			if n >= 10 {
				description += fmt.Sprintf("...and %d more", len(queue)-10)
				break
			}
			description += fmt.Sprintf("`%d.` %s `[%s]` — <@%s>\n", n+1, t.Title, formatDuration(t.Duration), t.RequesterID)
		}
	}

	e := embeds.Music("Queue", description)
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Loop", Value: gs.session.Loop().String(), Inline: true},
		{Name: "Volume", Value: fmt.Sprintf("%d%%", gs.session.VolumePercent()), Inline: true},
	}
	_ = reply.Embed(s, i, e)
}

func (m *Module) handleNowPlaying(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gs, err := m.activeState(i.GuildID)
	if err != nil {
		reply.Err(s, i, m.log, err)
		return
	}
	current := gs.session.Current()
	if current == nil {
		reply.Err(s, i, m.log, apperr.State("Nothing is playing right now!"))
		return
	}
	_ = reply.Embed(s, i, nowPlayingEmbed(current, gs.session))
}

func (m *Module) handleLoop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gs, err := m.activeState(i.GuildID)
	if err != nil {
		reply.Err(s, i, m.log, err)
		return
	}
	mode, err := ParseLoopMode(bot.CommandOptions(i)["mode"].StringValue())
	if err != nil {
		reply.Err(s, i, m.log, err)
		return
	}
	gs.session.SetLoop(mode)
	_ = reply.Embed(s, i, embeds.Music("Loop Mode", fmt.Sprintf("🔁 Loop mode set to **%s**!", mode)))
}

func (m *Module) handleVolume(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gs, err := m.activeState(i.GuildID)
	if err != nil {
		reply.Err(s, i, m.log, err)
		return
	}
	level := int(bot.CommandOptions(i)["level"].IntValue())
	if err := gs.session.SetVolume(level); err != nil {
		reply.Err(s, i, m.log, err)
		return
	}
	if gs.session.State() == StatePlaying && gs.player != nil {
		gs.player.ApplyVolume()
	}
	_ = reply.Embed(s, i, embeds.Music("Volume", fmt.Sprintf("🔊 Volume set to **%d%%**!", level)))
}

// onVoiceStateUpdate arms the auto-leave timer whenever the bot's voice
// channel holds zero humans. The timer callback re-samples membership
// before acting, so a human joining inside the window simply defuses it.
func (m *Module) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	gs, ok := m.guilds[v.GuildID]
	if !ok {
		return
	}
	channelID := gs.session.ChannelID()
	if countHumans(s, v.GuildID, channelID) > 0 {
		return
	}

	if gs.leaveTimer != nil {
		gs.leaveTimer.Stop()
	}
	guildID := v.GuildID
	gs.leaveTimer = time.AfterFunc(autoLeaveDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		cur, ok := m.guilds[guildID]
		if !ok {
			return
		}
		if countHumans(s, guildID, cur.session.ChannelID()) > 0 {
			return
		}
		m.log.Info().Str("guild", guildID).Msg("voice channel empty, leaving")
		m.teardownLocked(guildID, cur)
	})
}

func (m *Module) activeState(guildID string) (*guildState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gs, ok := m.guilds[guildID]
	if !ok {
		return nil, apperr.State("I'm not playing anything right now!")
	}
	return gs, nil
}

func nowPlayingEmbed(t *Track, session *Session) *discordgo.MessageEmbed {
	e := embeds.Music("Now Playing", fmt.Sprintf("**%s**", t.Title))
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Duration", Value: formatDuration(t.Duration), Inline: true},
		{Name: "Requested by", Value: fmt.Sprintf("<@%s>", t.RequesterID), Inline: true},
		{Name: "Volume", Value: fmt.Sprintf("%d%%", session.VolumePercent()), Inline: true},
	}
	return e
}

// userVoiceChannel finds the voice channel userID currently occupies.
func userVoiceChannel(s *discordgo.Session, guildID, userID string) string {
	g, err := s.State.Guild(guildID)
	if err != nil {
		return ""
	}
	for _, vs := range g.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID
		}
	}
	return ""
}

// countHumans counts non-bot members in the voice channel. Members the
// state cache cannot resolve count as human, erring on the side of not
// leaving.
func countHumans(s *discordgo.Session, guildID, channelID string) int {
	g, err := s.State.Guild(guildID)
	if err != nil {
		return 0
	}
	n := 0
	for _, vs := range g.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		if s.State.User != nil && vs.UserID == s.State.User.ID {
			continue
		}
		member, merr := s.State.Member(guildID, vs.UserID)
		if merr == nil && member.User != nil && member.User.Bot {
			continue
		}
		n++
	}
	return n
}
