// Package giveaways implements timed prize drawings: a public entry
// button, a periodic expiry sweep, uniform winner selection and reroll.
package giveaways

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/novabot/nova/internal/apperr"
	"github.com/novabot/nova/internal/bot"
	"github.com/novabot/nova/internal/embeds"
	"github.com/novabot/nova/internal/perms"
	"github.com/novabot/nova/internal/reply"
	"github.com/novabot/nova/internal/store"
)

type Module struct {
	engine        *Engine
	store         *store.Store
	log           zerolog.Logger
	guildID       string
	sweepInterval time.Duration
}

func New(st *store.Store, log zerolog.Logger, guildID string, sweepInterval time.Duration) *Module {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &Module{
		store:         st,
		log:           log,
		guildID:       guildID,
		sweepInterval: sweepInterval,
	}
}

func (m *Module) Name() string { return "giveaways" }

func (m *Module) Register(s *discordgo.Session) error {
	m.engine = NewEngine(m.store, NewSessionNotifier(s), m.log)
	s.AddHandler(m.onReady)
	s.AddHandler(m.onInteractionCreate)
	return nil
}

func (m *Module) Start(ctx context.Context, s *discordgo.Session) error {
	go m.sweepLoop(ctx)
	return nil
}

func (m *Module) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.engine.Sweep(ctx)
		}
	}
}

func (m *Module) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	bot.RegisterCommands(s, m.log, m.guildID, []*discordgo.ApplicationCommand{
		{
			Name:        "gstart",
			Description: "🎉 Start a giveaway",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "prize", Description: "What you're giving away", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "duration", Description: "How long the giveaway runs (e.g. 30s, 5m, 2h, 3d, 1w)", Required: true},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "winners", Description: "Number of winners (default: 1)", Required: false},
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Channel to post the giveaway in (optional)", Required: false},
			},
		},
		{
			Name:        "gend",
			Description: "🏁 End a giveaway early",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "message_id", Description: "Message ID of the giveaway to end", Required: true},
			},
		},
		{
			Name:        "greroll",
			Description: "🔄 Reroll giveaway winners",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "message_id", Description: "Message ID of the giveaway to reroll", Required: true},
			},
		},
	})
}

func (m *Module) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		switch i.ApplicationCommandData().Name {
		case "gstart":
			m.handleStart(s, i)
		case "gend":
			m.handleEnd(s, i)
		case "greroll":
			m.handleReroll(s, i)
		}
	case discordgo.InteractionMessageComponent:
		if i.MessageComponentData().CustomID == enterButtonID {
			m.handleEnter(s, i)
		}
	}
}

func (m *Module) handleStart(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !perms.Has(i, discordgo.PermissionManageMessages) {
		reply.Err(s, i, m.log, apperr.Permission("You need Manage Messages permission to start giveaways!"))
		return
	}

	opts := bot.CommandOptions(i)
	prize := opts["prize"].StringValue()
	durationStr := opts["duration"].StringValue()
	winners := 1
	if opt, ok := opts["winners"]; ok {
		winners = int(opt.IntValue())
	}
	channelID := i.ChannelID
	if opt, ok := opts["channel"]; ok {
		channelID = opt.ChannelValue(s).ID
	}

	if !perms.BotCanSend(s, channelID) {
		reply.Err(s, i, m.log, apperr.Permission("I don't have permission to send messages in that channel!"))
		return
	}

	g, err := m.engine.Start(context.Background(), StartParams{
		GuildID:   i.GuildID,
		ChannelID: channelID,
		HostID:    reply.UserID(i),
		Prize:     prize,
		Duration:  durationStr,
		Winners:   winners,
	})
	if err != nil {
		reply.Err(s, i, m.log, err)
		return
	}

	e := embeds.Success(fmt.Sprintf("Giveaway started in <#%s>!", channelID))
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Prize", Value: g.Prize, Inline: true},
		{Name: "Duration", Value: durationStr, Inline: true},
		{Name: "Winners", Value: fmt.Sprintf("%d", g.WinnerCount), Inline: true},
	}
	_ = reply.Ephemeral(s, i, e)
}

func (m *Module) handleEnd(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !perms.Has(i, discordgo.PermissionManageMessages) {
		reply.Err(s, i, m.log, apperr.Permission("You need Manage Messages permission to end giveaways!"))
		return
	}

	messageID := bot.CommandOptions(i)["message_id"].StringValue()
	if err := m.engine.EndEarly(context.Background(), i.GuildID, messageID); err != nil {
		reply.Err(s, i, m.log, err)
		return
	}
	_ = reply.Ephemeral(s, i, embeds.Success("Giveaway ended successfully!"))
}

func (m *Module) handleReroll(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !perms.Has(i, discordgo.PermissionManageMessages) {
		reply.Err(s, i, m.log, apperr.Permission("You need Manage Messages permission to reroll giveaways!"))
		return
	}

	messageID := bot.CommandOptions(i)["message_id"].StringValue()
	g, winners, err := m.engine.Reroll(context.Background(), i.GuildID, messageID)
	if err != nil {
		reply.Err(s, i, m.log, err)
		return
	}
	_ = reply.Embed(s, i, rerollEmbed(g, winners))
}

func (m *Module) handleEnter(s *discordgo.Session, i *discordgo.InteractionCreate) {
	entered, _, err := m.engine.Enter(context.Background(), i.GuildID, i.Message.ID, reply.UserID(i))
	if err != nil {
		reply.Err(s, i, m.log, err)
		return
	}
	if !entered {
		_ = reply.Ephemeral(s, i, embeds.Warning("You're already entered in this giveaway!"))
		return
	}
	_ = reply.Ephemeral(s, i, embeds.Success("🎉 You've entered the giveaway! Good luck!"))
}
