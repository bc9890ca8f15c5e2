// Package utility bundles the informational commands: server and user
// lookups, latency, invite links and the help overview.
package utility

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/novabot/nova/internal/apperr"
	"github.com/novabot/nova/internal/bot"
	"github.com/novabot/nova/internal/embeds"
	"github.com/novabot/nova/internal/reply"
)

const supportURL = "https://discord.gg/novabot"

type Module struct {
	log     zerolog.Logger
	guildID string
	started time.Time
}

func New(log zerolog.Logger, guildID string) *Module {
	return &Module{log: log, guildID: guildID, started: time.Now()}
}

func (m *Module) Name() string { return "utility" }

func (m *Module) Register(s *discordgo.Session) error {
	s.AddHandler(m.onReady)
	s.AddHandler(m.onInteractionCreate)
	return nil
}

func (m *Module) Start(ctx context.Context, s *discordgo.Session) error { return nil }

func (m *Module) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	userOpt := &discordgo.ApplicationCommandOption{
		Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to look up (default: you)", Required: false,
	}
	bot.RegisterCommands(s, m.log, m.guildID, []*discordgo.ApplicationCommand{
		{Name: "serverinfo", Description: "🏠 Show information about this server"},
		{Name: "userinfo", Description: "👤 Show information about a user", Options: []*discordgo.ApplicationCommandOption{userOpt}},
		{Name: "avatar", Description: "🖼️ Show a user's avatar", Options: []*discordgo.ApplicationCommandOption{userOpt}},
		{Name: "ping", Description: "🏓 Check my latency"},
		{Name: "invite", Description: "💌 Get my invite link"},
		{Name: "support", Description: "🛟 Get the support server link"},
		{Name: "stats", Description: "📈 Show bot statistics"},
		{Name: "help", Description: "❓ List all my commands"},
	})
}

func (m *Module) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	switch i.ApplicationCommandData().Name {
	case "serverinfo":
		m.handleServerInfo(s, i)
	case "userinfo":
		m.handleUserInfo(s, i)
	case "avatar":
		m.handleAvatar(s, i)
	case "ping":
		m.handlePing(s, i)
	case "invite":
		m.handleInvite(s, i)
	case "support":
		m.handleSupport(s, i)
	case "stats":
		m.handleStats(s, i)
	case "help":
		m.handleHelp(s, i)
	}
}

func (m *Module) handleServerInfo(s *discordgo.Session, i *discordgo.InteractionCreate) {
	g, err := s.State.Guild(i.GuildID)
	if err != nil {
		g, err = s.Guild(i.GuildID)
	}
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not load the server"))
		return
	}

	created, _ := discordgo.SnowflakeTimestamp(g.ID)
	e := embeds.Info("Server Info", "**"+g.Name+"**")
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Owner", Value: fmt.Sprintf("<@%s>", g.OwnerID), Inline: true},
		{Name: "Members", Value: humanize.Comma(int64(g.MemberCount)), Inline: true},
		{Name: "Channels", Value: fmt.Sprintf("%d", len(g.Channels)), Inline: true},
		{Name: "Roles", Value: fmt.Sprintf("%d", len(g.Roles)), Inline: true},
		{Name: "Boosts", Value: fmt.Sprintf("%d", g.PremiumSubscriptionCount), Inline: true},
		{Name: "Created", Value: fmt.Sprintf("<t:%d:R>", created.Unix()), Inline: true},
	}
	if g.Icon != "" {
		e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: g.IconURL("256")}
	}
	_ = reply.Embed(s, i, e)
}

func (m *Module) resolveTarget(s *discordgo.Session, i *discordgo.InteractionCreate) *discordgo.User {
	if opt, ok := bot.CommandOptions(i)["user"]; ok {
		return opt.UserValue(s)
	}
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

func (m *Module) handleUserInfo(s *discordgo.Session, i *discordgo.InteractionCreate) {
	target := m.resolveTarget(s, i)
	created, _ := discordgo.SnowflakeTimestamp(target.ID)

	e := embeds.Info("User Info", target.Mention())
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Username", Value: target.Username, Inline: true},
		{Name: "ID", Value: target.ID, Inline: true},
		{Name: "Account Created", Value: fmt.Sprintf("<t:%d:R>", created.Unix()), Inline: true},
	}
	if member, err := s.State.Member(i.GuildID, target.ID); err == nil {
		if member.JoinedAt.Unix() > 0 {
			e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
				Name: "Joined Server", Value: fmt.Sprintf("<t:%d:R>", member.JoinedAt.Unix()), Inline: true,
			})
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name: "Roles", Value: fmt.Sprintf("%d", len(member.Roles)), Inline: true,
		})
	}
	e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: target.AvatarURL("256")}
	_ = reply.Embed(s, i, e)
}

func (m *Module) handleAvatar(s *discordgo.Session, i *discordgo.InteractionCreate) {
	target := m.resolveTarget(s, i)
	e := embeds.New("🖼️ "+target.Username+"'s Avatar", "", embeds.ColorInfo)
	e.Image = &discordgo.MessageEmbedImage{URL: target.AvatarURL("1024")}
	_ = reply.Embed(s, i, e)
}

func (m *Module) handlePing(s *discordgo.Session, i *discordgo.InteractionCreate) {
	latency := s.HeartbeatLatency().Round(time.Millisecond)
	_ = reply.Embed(s, i, embeds.Info("Pong! 🏓", fmt.Sprintf("Gateway latency: **%s**", latency)))
}

func (m *Module) handleInvite(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if s.State.User == nil {
		reply.Err(s, i, m.log, apperr.State("I'm still starting up, try again in a moment!"))
		return
	}
	url := fmt.Sprintf("https://discord.com/oauth2/authorize?client_id=%s&scope=bot%%20applications.commands&permissions=8", s.State.User.ID)
	_ = reply.Embed(s, i, embeds.Info("Invite Me!", fmt.Sprintf("💌 [Click here to add me to your server!](%s)", url)))
}

func (m *Module) handleSupport(s *discordgo.Session, i *discordgo.InteractionCreate) {
	_ = reply.Embed(s, i, embeds.Info("Support",
		fmt.Sprintf("🛟 Need help? Join the support server: %s", supportURL)))
}

func (m *Module) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guilds, users := 0, 0
	for _, g := range s.State.Guilds {
		guilds++
		users += g.MemberCount
	}

	e := embeds.Info("Bot Statistics", "")
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Servers", Value: humanize.Comma(int64(guilds)), Inline: true},
		{Name: "Users", Value: humanize.Comma(int64(users)), Inline: true},
		{Name: "Uptime", Value: humanize.Time(m.started), Inline: true},
		{Name: "Go Version", Value: runtime.Version(), Inline: true},
		{Name: "Goroutines", Value: fmt.Sprintf("%d", runtime.NumGoroutine()), Inline: true},
		{Name: "Latency", Value: s.HeartbeatLatency().Round(time.Millisecond).String(), Inline: true},
	}
	_ = reply.Embed(s, i, e)
}

func (m *Module) handleHelp(s *discordgo.Session, i *discordgo.InteractionCreate) {
	e := embeds.Info("Nova Commands", "Here's everything I can do! 🌸")
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "🎉 Giveaways", Value: "`/gstart` `/gend` `/greroll`", Inline: false},
		{Name: "🎵 Music", Value: "`/play` `/pause` `/resume` `/skip` `/stop` `/queue` `/nowplaying` `/loop` `/volume`", Inline: false},
		{Name: "🛡️ Moderation", Value: "`/ban` `/kick` `/mute` `/unmute` `/warn` `/warnings` `/clear`", Inline: false},
		{Name: "💰 Economy", Value: "`/balance` `/daily` `/work` `/gamble` `/give` `/rich` `/shop`", Inline: false},
		{Name: "📊 Levelling", Value: "`/rank` `/leaderboard` `/level-toggle` `/reset-levels`", Inline: false},
		{Name: "🎫 Tickets", Value: "`/ticket-setup` `/ticket-close`", Inline: false},
		{Name: "🏷️ Tags", Value: "`/tag` `/tag-create` `/tag-edit` `/tag-delete` `/tag-info` `/tag-list` `/tag-search` `/tag-stats`", Inline: false},
		{Name: "🎭 Autoroles", Value: "`/autorole-add` `/autorole-remove` `/autorole-list` `/autorole-clear`", Inline: false},
		{Name: "📜 Logging", Value: "`/log-channel` `/log-disable`", Inline: false},
		{Name: "🤖 AI", Value: "`/ask` `/chat` `/ai-info`", Inline: false},
		{Name: "🎲 Fun", Value: "`/8ball` `/roll` `/flip` `/choose` `/joke` `/compliment` `/rate`", Inline: false},
		{Name: "🔧 Utility", Value: "`/serverinfo` `/userinfo` `/avatar` `/ping` `/invite` `/support` `/stats`", Inline: false},
	}
	_ = reply.Embed(s, i, e)
}
