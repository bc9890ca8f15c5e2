package levelling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/novabot/nova/internal/apperr"
	"github.com/novabot/nova/internal/bot"
	"github.com/novabot/nova/internal/confirm"
	"github.com/novabot/nova/internal/cooldown"
	"github.com/novabot/nova/internal/embeds"
	"github.com/novabot/nova/internal/perms"
	"github.com/novabot/nova/internal/reply"
	"github.com/novabot/nova/internal/store"
)

const xpCooldown = time.Minute

type record struct {
	GuildID  string `json:"guildId"`
	UserID   string `json:"userId"`
	XP       int    `json:"xp"`
	Level    int    `json:"level"`
	Messages int    `json:"messages"`
}

type Module struct {
	store     *store.Store
	log       zerolog.Logger
	guildID   string
	confirm   *confirm.Manager
	cooldowns *cooldown.Map
}

func New(st *store.Store, log zerolog.Logger, guildID string, cm *confirm.Manager) *Module {
	return &Module{
		store:     st,
		log:       log,
		guildID:   guildID,
		confirm:   cm,
		cooldowns: cooldown.New(xpCooldown),
	}
}

func (m *Module) Name() string { return "levelling" }

func (m *Module) Register(s *discordgo.Session) error {
	s.AddHandler(m.onReady)
	s.AddHandler(m.onMessageCreate)
	s.AddHandler(m.onInteractionCreate)
	return nil
}

func (m *Module) Start(ctx context.Context, s *discordgo.Session) error { return nil }

func (m *Module) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	bot.RegisterCommands(s, m.log, m.guildID, []*discordgo.ApplicationCommand{
		{
			Name:        "rank",
			Description: "📊 Check your or someone's rank",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to check (default: you)", Required: false},
			},
		},
		{Name: "leaderboard", Description: "🏆 View the server XP leaderboard"},
		{Name: "level-toggle", Description: "⚙️ Toggle the XP system for this server"},
		{Name: "reset-levels", Description: "🗑️ Reset all XP data for this server"},
	})
}

func (m *Module) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	switch i.ApplicationCommandData().Name {
	case "rank":
		m.handleRank(s, i)
	case "leaderboard":
		m.handleLeaderboard(s, i)
	case "level-toggle":
		m.handleToggle(s, i)
	case "reset-levels":
		m.handleReset(s, i)
	}
}

// onMessageCreate awards XP at most once per user per minute. A level-up
// is announced in the channel the message landed in.
func (m *Module) onMessageCreate(s *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot || msg.GuildID == "" {
		return
	}
	if !m.cooldowns.Allow(msg.GuildID + ":" + msg.Author.ID) {
		return
	}

	ctx := context.Background()
	if !m.xpEnabled(ctx, msg.GuildID) {
		return
	}

	doc, err := m.store.FindOneAndUpdate(ctx, store.ColLeveling,
		store.Doc{"guildId": msg.GuildID, "userId": msg.Author.ID},
		store.Doc{"$inc": store.Doc{"xp": xpForMessage(), "messages": 1}},
		true,
	)
	if err != nil {
		m.log.Error().Err(err).Msg("xp award failed")
		return
	}

	var rec record
	if err := store.Decode(doc, &rec); err != nil {
		m.log.Error().Err(err).Msg("xp record decode failed")
		return
	}

	newLevel := LevelForXP(rec.XP)
	if newLevel <= rec.Level {
		return
	}
	_, err = m.store.UpdateOne(ctx, store.ColLeveling,
		store.Doc{"guildId": msg.GuildID, "userId": msg.Author.ID},
		store.Doc{"$set": store.Doc{"level": newLevel}},
		false,
	)
	if err != nil {
		m.log.Error().Err(err).Msg("level update failed")
		return
	}

	e := embeds.New("🎉 Level Up!",
		fmt.Sprintf("Congratulations <@%s>, you reached **Level %d**!", msg.Author.ID, newLevel),
		embeds.ColorPrimary,
	)
	if _, err := s.ChannelMessageSendEmbed(msg.ChannelID, e); err != nil {
		m.log.Debug().Err(err).Msg("level-up announcement failed")
	}
}

func (m *Module) xpEnabled(ctx context.Context, guildID string) bool {
	doc, err := m.store.FindOne(ctx, store.ColServerSettings, store.Doc{"guildId": guildID})
	if errors.Is(err, store.ErrNoDocument) {
		return true
	}
	if err != nil {
		m.log.Error().Err(err).Msg("settings lookup failed")
		return true
	}
	enabled, ok := doc["xpEnabled"].(bool)
	return !ok || enabled
}

func (m *Module) handleRank(s *discordgo.Session, i *discordgo.InteractionCreate) {
	targetID := reply.UserID(i)
	targetName := reply.Username(i)
	if opt, ok := bot.CommandOptions(i)["user"]; ok {
		u := opt.UserValue(s)
		targetID, targetName = u.ID, u.Username
	}

	ctx := context.Background()
	doc, err := m.store.FindOne(ctx, store.ColLeveling, store.Doc{"guildId": i.GuildID, "userId": targetID})
	if errors.Is(err, store.ErrNoDocument) {
		reply.Err(s, i, m.log, apperr.NotFoundf("**%s** hasn't earned any XP yet!", targetName))
		return
	}
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not load the rank"))
		return
	}

	var rec record
	if err := store.Decode(doc, &rec); err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not load the rank"))
		return
	}

	ahead, err := m.store.CountDocuments(ctx, store.ColLeveling, store.Doc{
		"guildId": i.GuildID,
		"xp":      store.Doc{"$gt": rec.XP},
	})
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not load the rank"))
		return
	}

	into, span := Progress(rec.XP)
	e := embeds.New(fmt.Sprintf("📊 %s's Rank", targetName), "", embeds.ColorPrimary)
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Level", Value: fmt.Sprintf("%d", LevelForXP(rec.XP)), Inline: true},
		{Name: "XP", Value: humanize.Comma(int64(rec.XP)), Inline: true},
		{Name: "Rank", Value: fmt.Sprintf("#%d", ahead+1), Inline: true},
		{Name: "Progress", Value: fmt.Sprintf("%d/%d XP", into, span), Inline: true},
		{Name: "Messages Sent", Value: humanize.Comma(int64(rec.Messages)), Inline: true},
	}
	_ = reply.Embed(s, i, e)
}

func (m *Module) handleLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate) {
	docs, err := m.store.FindMany(context.Background(), store.ColLeveling,
		store.Doc{"guildId": i.GuildID},
		&store.FindOptions{SortField: "xp", SortDesc: true, Limit: 10},
	)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not load the leaderboard"))
		return
	}
	if len(docs) == 0 {
		reply.Err(s, i, m.log, apperr.NotFound("Nobody has earned XP yet. Start chatting!"))
		return
	}

	medals := []string{"🥇", "🥈", "🥉"}
	lines := make([]string, 0, len(docs))
	for n, doc := range docs {
		var rec record
		if err := store.Decode(doc, &rec); err != nil {
			continue
		}
		marker := fmt.Sprintf("`#%d`", n+1)
		if n < len(medals) {
			marker = medals[n]
		}
		lines = append(lines, fmt.Sprintf("%s <@%s> — Level %d (%s XP)",
			marker, rec.UserID, LevelForXP(rec.XP), humanize.Comma(int64(rec.XP))))
	}
	_ = reply.Embed(s, i, embeds.Page("🏆 XP Leaderboard", lines, 0, embeds.ColorPrimary))
}

func (m *Module) handleToggle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !perms.IsAdmin(i) {
		reply.Err(s, i, m.log, apperr.Permission("You need Manage Server permission to toggle the XP system!"))
		return
	}

	ctx := context.Background()
	enabled := m.xpEnabled(ctx, i.GuildID)
	_, err := m.store.UpdateOne(ctx, store.ColServerSettings,
		store.Doc{"guildId": i.GuildID},
		store.Doc{"$set": store.Doc{"xpEnabled": !enabled}},
		true,
	)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not update the setting"))
		return
	}

	if enabled {
		_ = reply.Embed(s, i, embeds.Warning("XP system **disabled** for this server."))
		return
	}
	_ = reply.Embed(s, i, embeds.Success("XP system **enabled** for this server!"))
}

func (m *Module) handleReset(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !perms.IsAdmin(i) {
		reply.Err(s, i, m.log, apperr.Permission("You need Manage Server permission to reset levels!"))
		return
	}

	result, err := m.confirm.Ask(s, i,
		embeds.Warning("This will delete **all** XP data for this server. Are you sure?"),
		confirm.DefaultTimeout,
	)
	if err != nil {
		m.log.Error().Err(err).Msg("reset-levels prompt failed")
		return
	}
	switch result {
	case confirm.Cancelled:
		_ = reply.Followup(s, i, embeds.Info("Cancelled", "Level reset cancelled."))
		return
	case confirm.TimedOut:
		_ = reply.Followup(s, i, embeds.Warning("Confirmation timed out, nothing was deleted."))
		return
	}

	deleted, err := m.store.DeleteMany(context.Background(), store.ColLeveling, store.Doc{"guildId": i.GuildID})
	if err != nil {
		reply.FollowupErr(s, i, m.log, apperr.External(err, "could not reset the levels"))
		return
	}
	_ = reply.Followup(s, i, embeds.Success(fmt.Sprintf("Reset XP data for **%d** members.", deleted)))
}
