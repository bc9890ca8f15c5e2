// Package logging posts guild audit events to a configured channel:
// message deletes and edits (with cached content), member joins and
// leaves, role and nickname changes, channel lifecycle.
package logging

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/novabot/nova/internal/apperr"
	"github.com/novabot/nova/internal/bot"
	"github.com/novabot/nova/internal/embeds"
	"github.com/novabot/nova/internal/perms"
	"github.com/novabot/nova/internal/reply"
	"github.com/novabot/nova/internal/store"
)

type Module struct {
	store   *store.Store
	log     zerolog.Logger
	guildID string
}

func New(st *store.Store, log zerolog.Logger, guildID string) *Module {
	return &Module{store: st, log: log, guildID: guildID}
}

func (m *Module) Name() string { return "logging" }

func (m *Module) Register(s *discordgo.Session) error {
	s.AddHandler(m.onReady)
	s.AddHandler(m.onInteractionCreate)
	s.AddHandler(m.onMessageDelete)
	s.AddHandler(m.onMessageUpdate)
	s.AddHandler(m.onMemberAdd)
	s.AddHandler(m.onMemberRemove)
	s.AddHandler(m.onMemberUpdate)
	s.AddHandler(m.onChannelCreate)
	s.AddHandler(m.onChannelDelete)
	return nil
}

func (m *Module) Start(ctx context.Context, s *discordgo.Session) error { return nil }

func (m *Module) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	bot.RegisterCommands(s, m.log, m.guildID, []*discordgo.ApplicationCommand{
		{
			Name:        "log-channel",
			Description: "📜 Set the server log channel",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Channel to log to", Required: true},
			},
		},
		{Name: "log-disable", Description: "🚫 Disable server logging"},
	})
}

func (m *Module) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	switch i.ApplicationCommandData().Name {
	case "log-channel":
		m.handleSetChannel(s, i)
	case "log-disable":
		m.handleDisable(s, i)
	}
}

func (m *Module) handleSetChannel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !perms.IsAdmin(i) {
		reply.Err(s, i, m.log, apperr.Permission("You need Manage Server permission to configure logging!"))
		return
	}

	channel := bot.CommandOptions(i)["channel"].ChannelValue(s)
	if !perms.BotCanSend(s, channel.ID) {
		reply.Err(s, i, m.log, apperr.Permission("I can't send messages in that channel!"))
		return
	}

	_, err := m.store.UpdateOne(context.Background(), store.ColServerSettings,
		store.Doc{"guildId": i.GuildID},
		store.Doc{"$set": store.Doc{"logChannel": channel.ID}},
		true,
	)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not save the setting"))
		return
	}
	_ = reply.Embed(s, i, embeds.Success(fmt.Sprintf("Server events will be logged to <#%s>!", channel.ID)))
}

func (m *Module) handleDisable(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !perms.IsAdmin(i) {
		reply.Err(s, i, m.log, apperr.Permission("You need Manage Server permission to configure logging!"))
		return
	}

	_, err := m.store.UpdateOne(context.Background(), store.ColServerSettings,
		store.Doc{"guildId": i.GuildID},
		store.Doc{"$set": store.Doc{"logChannel": ""}},
		true,
	)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not save the setting"))
		return
	}
	_ = reply.Embed(s, i, embeds.Success("Server logging disabled."))
}

// channelFor returns the configured log channel, empty when logging is
// off.
func (m *Module) channelFor(guildID string) string {
	doc, err := m.store.FindOne(context.Background(), store.ColServerSettings, store.Doc{"guildId": guildID})
	if errors.Is(err, store.ErrNoDocument) {
		return ""
	}
	if err != nil {
		m.log.Error().Err(err).Msg("log settings lookup failed")
		return ""
	}
	id, _ := doc["logChannel"].(string)
	return id
}

// post sends the embed to the guild's log channel, best effort.
func (m *Module) post(s *discordgo.Session, guildID string, e *discordgo.MessageEmbed) {
	channelID := m.channelFor(guildID)
	if channelID == "" {
		return
	}
	if _, err := s.ChannelMessageSendEmbed(channelID, e); err != nil {
		m.log.Debug().Err(err).Str("guild", guildID).Msg("log post failed")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func (m *Module) onMessageDelete(s *discordgo.Session, e *discordgo.MessageDelete) {
	if e.GuildID == "" {
		return
	}

	content := "*content unavailable (message not cached)*"
	author := "unknown"
	if e.BeforeDelete != nil {
		if e.BeforeDelete.Author != nil {
			if e.BeforeDelete.Author.Bot {
				return
			}
			author = fmt.Sprintf("<@%s>", e.BeforeDelete.Author.ID)
		}
		if e.BeforeDelete.Content != "" {
			content = truncate(e.BeforeDelete.Content, 1000)
		}
	}

	embed := embeds.New("🗑️ Message Deleted",
		fmt.Sprintf("**Author:** %s\n**Channel:** <#%s>\n**Content:** %s", author, e.ChannelID, content),
		embeds.ColorError,
	)
	m.post(s, e.GuildID, embed)
}

func (m *Module) onMessageUpdate(s *discordgo.Session, e *discordgo.MessageUpdate) {
	if e.GuildID == "" || e.Author == nil || e.Author.Bot {
		return
	}

	before := "*not cached*"
	if e.BeforeUpdate != nil && e.BeforeUpdate.Content != "" {
		before = truncate(e.BeforeUpdate.Content, 800)
	}
	after := truncate(e.Content, 800)
	if before == after {
		// embed-only updates fire this event too
		return
	}

	embed := embeds.New("✏️ Message Edited",
		fmt.Sprintf("**Author:** <@%s>\n**Channel:** <#%s>", e.Author.ID, e.ChannelID),
		embeds.ColorWarning,
	)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Before", Value: before, Inline: false},
		{Name: "After", Value: after, Inline: false},
	}
	m.post(s, e.GuildID, embed)
}

func (m *Module) onMemberAdd(s *discordgo.Session, e *discordgo.GuildMemberAdd) {
	if e.User == nil {
		return
	}
	created, err := discordgo.SnowflakeTimestamp(e.User.ID)
	age := "unknown"
	if err == nil {
		age = humanize.Time(created)
	}

	embed := embeds.New("📥 Member Joined",
		fmt.Sprintf("<@%s> (%s)\n**Account created:** %s", e.User.ID, e.User.Username, age),
		embeds.ColorSuccess,
	)
	m.post(s, e.GuildID, embed)
}

func (m *Module) onMemberRemove(s *discordgo.Session, e *discordgo.GuildMemberRemove) {
	if e.User == nil {
		return
	}
	embed := embeds.New("📤 Member Left",
		fmt.Sprintf("<@%s> (%s)", e.User.ID, e.User.Username),
		embeds.ColorError,
	)
	m.post(s, e.GuildID, embed)
}

func (m *Module) onMemberUpdate(s *discordgo.Session, e *discordgo.GuildMemberUpdate) {
	if e.User == nil || e.BeforeUpdate == nil {
		return
	}

	if e.Nick != e.BeforeUpdate.Nick {
		embed := embeds.New("📛 Nickname Changed",
			fmt.Sprintf("<@%s>\n**Before:** %s\n**After:** %s",
				e.User.ID, displayNick(e.BeforeUpdate.Nick), displayNick(e.Nick)),
			embeds.ColorInfo,
		)
		m.post(s, e.GuildID, embed)
	}

	added, removed := diffRoles(e.BeforeUpdate.Roles, e.Roles)
	if len(added) == 0 && len(removed) == 0 {
		return
	}
	description := fmt.Sprintf("<@%s>", e.User.ID)
	if len(added) > 0 {
		description += "\n**Added:** " + mentionRoles(added)
	}
	if len(removed) > 0 {
		description += "\n**Removed:** " + mentionRoles(removed)
	}
	m.post(s, e.GuildID, embeds.New("🎭 Roles Updated", description, embeds.ColorInfo))
}

func (m *Module) onChannelCreate(s *discordgo.Session, e *discordgo.ChannelCreate) {
	if e.GuildID == "" {
		return
	}
	m.post(s, e.GuildID, embeds.New("📁 Channel Created",
		fmt.Sprintf("<#%s> (`%s`)", e.ID, e.Name), embeds.ColorSuccess))
}

func (m *Module) onChannelDelete(s *discordgo.Session, e *discordgo.ChannelDelete) {
	if e.GuildID == "" {
		return
	}
	m.post(s, e.GuildID, embeds.New("🗂️ Channel Deleted",
		fmt.Sprintf("`#%s`", e.Name), embeds.ColorError))
}

func displayNick(nick string) string {
	if nick == "" {
		return "*none*"
	}
	return nick
}

func diffRoles(before, after []string) (added, removed []string) {
	was := map[string]bool{}
	for _, id := range before {
		was[id] = true
	}
	is := map[string]bool{}
	for _, id := range after {
		is[id] = true
		if !was[id] {
			added = append(added, id)
		}
	}
	for _, id := range before {
		if !is[id] {
			removed = append(removed, id)
		}
	}
	return added, removed
}

func mentionRoles(ids []string) string {
	mentions := make([]string, len(ids))
	for i, id := range ids {
		mentions[i] = "<@&" + id + ">"
	}
	return strings.Join(mentions, ", ")
}
