// Package moderation implements the staff toolkit: ban, kick, timeout
// mutes, persisted warnings and bulk message clearing.
package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/novabot/nova/internal/apperr"
	"github.com/novabot/nova/internal/bot"
	"github.com/novabot/nova/internal/duration"
	"github.com/novabot/nova/internal/embeds"
	"github.com/novabot/nova/internal/perms"
	"github.com/novabot/nova/internal/reply"
	"github.com/novabot/nova/internal/store"
)

const maxTimeout = 28 * 24 * time.Hour

type warning struct {
	GuildID     string `json:"guildId"`
	UserID      string `json:"userId"`
	ModeratorID string `json:"moderatorId"`
	Reason      string `json:"reason"`
	Time        int64  `json:"time"`
}

type Module struct {
	store   *store.Store
	log     zerolog.Logger
	guildID string
}

func New(st *store.Store, log zerolog.Logger, guildID string) *Module {
	return &Module{store: st, log: log, guildID: guildID}
}

func (m *Module) Name() string { return "moderation" }

func (m *Module) Register(s *discordgo.Session) error {
	s.AddHandler(m.onReady)
	s.AddHandler(m.onInteractionCreate)
	return nil
}

func (m *Module) Start(ctx context.Context, s *discordgo.Session) error { return nil }

func (m *Module) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	userOpt := func(desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: desc, Required: true,
		}
	}
	reasonOpt := &discordgo.ApplicationCommandOption{
		Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason", Required: false,
	}

	bot.RegisterCommands(s, m.log, m.guildID, []*discordgo.ApplicationCommand{
		{
			Name:        "ban",
			Description: "🔨 Ban a member from the server",
			Options: []*discordgo.ApplicationCommandOption{
				userOpt("Member to ban"),
				reasonOpt,
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "delete_days", Description: "Days of messages to delete (0-7)", Required: false},
			},
		},
		{
			Name:        "kick",
			Description: "👢 Kick a member from the server",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("Member to kick"), reasonOpt},
		},
		{
			Name:        "mute",
			Description: "🔇 Timeout a member",
			Options: []*discordgo.ApplicationCommandOption{
				userOpt("Member to mute"),
				{Type: discordgo.ApplicationCommandOptionString, Name: "duration", Description: "How long (e.g. 30s, 5m, 2h, 3d, 1w)", Required: true},
				reasonOpt,
			},
		},
		{
			Name:        "unmute",
			Description: "🔊 Remove a member's timeout",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("Member to unmute")},
		},
		{
			Name:        "warn",
			Description: "⚠️ Warn a member",
			Options: []*discordgo.ApplicationCommandOption{
				userOpt("Member to warn"),
				{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason", Required: true},
			},
		},
		{
			Name:        "warnings",
			Description: "📋 View a member's warnings",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("Member to look up")},
		},
		{
			Name:        "clear",
			Description: "🧹 Bulk delete messages",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "amount", Description: "How many messages (2-100)", Required: true},
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Only delete this user's messages", Required: false},
			},
		},
	})
}

func (m *Module) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	switch i.ApplicationCommandData().Name {
	case "ban":
		m.handleBan(s, i)
	case "kick":
		m.handleKick(s, i)
	case "mute":
		m.handleMute(s, i)
	case "unmute":
		m.handleUnmute(s, i)
	case "warn":
		m.handleWarn(s, i)
	case "warnings":
		m.handleWarnings(s, i)
	case "clear":
		m.handleClear(s, i)
	}
}

// checkTarget runs the common validations before acting on a member:
// not the invoker, not the bot, caller and bot both above the target.
func (m *Module) checkTarget(s *discordgo.Session, i *discordgo.InteractionCreate, target *discordgo.User) (*discordgo.Member, error) {
	if target.ID == reply.UserID(i) {
		return nil, apperr.Validation("You can't do that to yourself!")
	}
	if s.State.User != nil && target.ID == s.State.User.ID {
		return nil, apperr.Validation("I'm not going to do that to myself!")
	}

	member, err := s.State.Member(i.GuildID, target.ID)
	if err != nil {
		member, err = s.GuildMember(i.GuildID, target.ID)
	}
	if err != nil {
		return nil, apperr.NotFound("That user isn't in this server!")
	}
	if !perms.CallerOutranks(s, i, member) {
		return nil, apperr.Permission("You can't moderate someone with an equal or higher role!")
	}
	if !perms.BotOutranks(s, i.GuildID, member) {
		return nil, apperr.Permission("My role isn't high enough to moderate that member!")
	}
	return member, nil
}

// notifyTarget DMs the member about the action. Failures (closed DMs)
// are swallowed.
func (m *Module) notifyTarget(s *discordgo.Session, i *discordgo.InteractionCreate, userID, action, reason string) {
	ch, err := s.UserChannelCreate(userID)
	if err != nil {
		return
	}
	guildName := i.GuildID
	if g, gerr := s.State.Guild(i.GuildID); gerr == nil {
		guildName = g.Name
	}
	e := embeds.Warning(fmt.Sprintf("You have been **%s** from **%s**.\n**Reason:** %s", action, guildName, reason))
	if _, err := s.ChannelMessageSendEmbed(ch.ID, e); err != nil {
		m.log.Debug().Err(err).Str("user", userID).Msg("moderation DM failed")
	}
}

func optionalReason(opts map[string]*discordgo.ApplicationCommandInteractionDataOption) string {
	if opt, ok := opts["reason"]; ok {
		return opt.StringValue()
	}
	return "No reason provided"
}

func (m *Module) handleBan(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !perms.Has(i, discordgo.PermissionBanMembers) {
		reply.Err(s, i, m.log, apperr.Permission("You need Ban Members permission to do that!"))
		return
	}

	opts := bot.CommandOptions(i)
	target := opts["user"].UserValue(s)
	reason := optionalReason(opts)
	deleteDays := 0
	if opt, ok := opts["delete_days"]; ok {
		deleteDays = int(opt.IntValue())
	}
	if deleteDays < 0 || deleteDays > 7 {
		reply.Err(s, i, m.log, apperr.Validation("delete_days must be between 0 and 7!"))
		return
	}

	if _, err := m.checkTarget(s, i, target); err != nil {
		reply.Err(s, i, m.log, err)
		return
	}

	// DM first; after the ban there is no shared server left to DM through.
	m.notifyTarget(s, i, target.ID, "banned", reason)
	if err := s.GuildBanCreateWithReason(i.GuildID, target.ID, reason, deleteDays); err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not ban that member"))
		return
	}
	_ = reply.Embed(s, i, embeds.Success(fmt.Sprintf("🔨 Banned **%s**.\n**Reason:** %s", target.Username, reason)))
}

func (m *Module) handleKick(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !perms.Has(i, discordgo.PermissionKickMembers) {
		reply.Err(s, i, m.log, apperr.Permission("You need Kick Members permission to do that!"))
		return
	}

	opts := bot.CommandOptions(i)
	target := opts["user"].UserValue(s)
	reason := optionalReason(opts)

	if _, err := m.checkTarget(s, i, target); err != nil {
		reply.Err(s, i, m.log, err)
		return
	}

	m.notifyTarget(s, i, target.ID, "kicked", reason)
	if err := s.GuildMemberDeleteWithReason(i.GuildID, target.ID, reason); err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not kick that member"))
		return
	}
	_ = reply.Embed(s, i, embeds.Success(fmt.Sprintf("👢 Kicked **%s**.\n**Reason:** %s", target.Username, reason)))
}

func (m *Module) handleMute(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !perms.Has(i, discordgo.PermissionModerateMembers) {
		reply.Err(s, i, m.log, apperr.Permission("You need Timeout Members permission to do that!"))
		return
	}

	opts := bot.CommandOptions(i)
	target := opts["user"].UserValue(s)
	d, err := duration.Parse(opts["duration"].StringValue())
	if err != nil {
		reply.Err(s, i, m.log, apperr.Validation("Invalid duration format! Use: 30s, 5m, 2h, 3d, 1w"))
		return
	}
	if d > maxTimeout {
		reply.Err(s, i, m.log, apperr.Validation("Timeouts cannot exceed 28 days!"))
		return
	}
	reason := optionalReason(opts)

	if _, err := m.checkTarget(s, i, target); err != nil {
		reply.Err(s, i, m.log, err)
		return
	}

	until := time.Now().Add(d)
	if err := s.GuildMemberTimeout(i.GuildID, target.ID, &until); err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not mute that member"))
		return
	}
	_ = reply.Embed(s, i, embeds.Success(fmt.Sprintf("🔇 Muted **%s** until <t:%d:f>.\n**Reason:** %s",
		target.Username, until.Unix(), reason)))
}

func (m *Module) handleUnmute(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !perms.Has(i, discordgo.PermissionModerateMembers) {
		reply.Err(s, i, m.log, apperr.Permission("You need Timeout Members permission to do that!"))
		return
	}

	target := bot.CommandOptions(i)["user"].UserValue(s)
	if err := s.GuildMemberTimeout(i.GuildID, target.ID, nil); err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not unmute that member"))
		return
	}
	_ = reply.Embed(s, i, embeds.Success(fmt.Sprintf("🔊 Unmuted **%s**!", target.Username)))
}

func (m *Module) handleWarn(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !perms.IsMod(i) {
		reply.Err(s, i, m.log, apperr.Permission("You need a moderation permission to warn members!"))
		return
	}

	opts := bot.CommandOptions(i)
	target := opts["user"].UserValue(s)
	reason := opts["reason"].StringValue()

	if _, err := m.checkTarget(s, i, target); err != nil {
		reply.Err(s, i, m.log, err)
		return
	}

	ctx := context.Background()
	doc, err := store.Encode(warning{
		GuildID:     i.GuildID,
		UserID:      target.ID,
		ModeratorID: reply.UserID(i),
		Reason:      reason,
		Time:        time.Now().Unix(),
	})
	if err == nil {
		err = m.store.InsertOne(ctx, store.ColWarnings, doc)
	}
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not save the warning"))
		return
	}

	count, err := m.store.CountDocuments(ctx, store.ColWarnings, store.Doc{"guildId": i.GuildID, "userId": target.ID})
	if err != nil {
		count = 1
	}

	m.notifyTarget(s, i, target.ID, "warned", reason)
	e := embeds.Warning(fmt.Sprintf("⚠️ Warned **%s**.\n**Reason:** %s", target.Username, reason))
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Total Warnings", Value: fmt.Sprintf("%d", count), Inline: true},
	}
	_ = reply.Embed(s, i, e)
}

func (m *Module) handleWarnings(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !perms.IsMod(i) {
		reply.Err(s, i, m.log, apperr.Permission("You need a moderation permission to view warnings!"))
		return
	}

	target := bot.CommandOptions(i)["user"].UserValue(s)
	docs, err := m.store.FindMany(context.Background(), store.ColWarnings,
		store.Doc{"guildId": i.GuildID, "userId": target.ID},
		&store.FindOptions{SortField: "time", SortDesc: true},
	)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not load the warnings"))
		return
	}
	if len(docs) == 0 {
		_ = reply.Embed(s, i, embeds.Success(fmt.Sprintf("**%s** has no warnings. 🎉", target.Username)))
		return
	}

	lines := make([]string, 0, len(docs))
	for n, doc := range docs {
		var w warning
		if err := store.Decode(doc, &w); err != nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("`%d.` %s — by <@%s> <t:%d:R>", n+1, w.Reason, w.ModeratorID, w.Time))
	}
	_ = reply.Embed(s, i, embeds.Page(fmt.Sprintf("⚠️ Warnings for %s", target.Username), lines, 0, embeds.ColorWarning))
}

func (m *Module) handleClear(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !perms.Has(i, discordgo.PermissionManageMessages) {
		reply.Err(s, i, m.log, apperr.Permission("You need Manage Messages permission to clear messages!"))
		return
	}

	opts := bot.CommandOptions(i)
	amount := int(opts["amount"].IntValue())
	if amount < 2 || amount > 100 {
		reply.Err(s, i, m.log, apperr.Validation("Amount must be between 2 and 100!"))
		return
	}
	var filterID string
	if opt, ok := opts["user"]; ok {
		filterID = opt.UserValue(s).ID
	}

	// Deleting takes a moment; the reply must come after the count is known.
	if err := reply.DeferEphemeral(s, i); err != nil {
		m.log.Debug().Err(err).Msg("clear defer failed")
		return
	}

	msgs, err := s.ChannelMessages(i.ChannelID, amount, "", "", "")
	if err != nil {
		reply.FollowupErr(s, i, m.log, apperr.External(err, "could not fetch the messages"))
		return
	}

	ids := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if filterID != "" && (msg.Author == nil || msg.Author.ID != filterID) {
			continue
		}
		ids = append(ids, msg.ID)
	}
	if len(ids) == 0 {
		reply.FollowupErr(s, i, m.log, apperr.NotFound("No matching messages found!"))
		return
	}

	if err := s.ChannelMessagesBulkDelete(i.ChannelID, ids); err != nil {
		reply.FollowupErr(s, i, m.log, apperr.External(err, "could not delete the messages"))
		return
	}
	_ = reply.Followup(s, i, embeds.Success(fmt.Sprintf("🧹 Deleted **%d** messages!", len(ids))))
}
