// Package autoroles grants a configured set of roles to every member
// who joins. Deleted roles are pruned from the configuration the next
// time it is read.
package autoroles

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/novabot/nova/internal/apperr"
	"github.com/novabot/nova/internal/bot"
	"github.com/novabot/nova/internal/confirm"
	"github.com/novabot/nova/internal/embeds"
	"github.com/novabot/nova/internal/perms"
	"github.com/novabot/nova/internal/reply"
	"github.com/novabot/nova/internal/store"
)

type config struct {
	GuildID string   `json:"guildId"`
	RoleIDs []string `json:"roleIds"`
}

type Module struct {
	store   *store.Store
	log     zerolog.Logger
	guildID string
	confirm *confirm.Manager
}

func New(st *store.Store, log zerolog.Logger, guildID string, cm *confirm.Manager) *Module {
	return &Module{store: st, log: log, guildID: guildID, confirm: cm}
}

func (m *Module) Name() string { return "autoroles" }

func (m *Module) Register(s *discordgo.Session) error {
	s.AddHandler(m.onReady)
	s.AddHandler(m.onInteractionCreate)
	s.AddHandler(m.onMemberAdd)
	return nil
}

func (m *Module) Start(ctx context.Context, s *discordgo.Session) error { return nil }

func (m *Module) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	roleOpt := &discordgo.ApplicationCommandOption{
		Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Role", Required: true,
	}
	bot.RegisterCommands(s, m.log, m.guildID, []*discordgo.ApplicationCommand{
		{Name: "autorole-add", Description: "➕ Grant a role to new members automatically", Options: []*discordgo.ApplicationCommandOption{roleOpt}},
		{Name: "autorole-remove", Description: "➖ Stop granting a role automatically", Options: []*discordgo.ApplicationCommandOption{roleOpt}},
		{Name: "autorole-list", Description: "📋 List the automatic roles"},
		{Name: "autorole-clear", Description: "🗑️ Remove all automatic roles"},
	})
}

func (m *Module) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	switch i.ApplicationCommandData().Name {
	case "autorole-add":
		m.handleAdd(s, i)
	case "autorole-remove":
		m.handleRemove(s, i)
	case "autorole-list":
		m.handleList(s, i)
	case "autorole-clear":
		m.handleClear(s, i)
	}
}

func (m *Module) load(ctx context.Context, guildID string) (*config, error) {
	doc, err := m.store.FindOne(ctx, store.ColAutoroles, store.Doc{"guildId": guildID})
	if errors.Is(err, store.ErrNoDocument) {
		return &config{GuildID: guildID}, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := store.Decode(doc, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// prune drops role ids that no longer exist in the guild, persisting
// the trimmed list when anything changed.
func (m *Module) prune(ctx context.Context, s *discordgo.Session, cfg *config) {
	guild, err := s.State.Guild(cfg.GuildID)
	if err != nil {
		return
	}
	live := map[string]bool{}
	for _, r := range guild.Roles {
		live[r.ID] = true
	}

	kept := cfg.RoleIDs[:0]
	for _, id := range cfg.RoleIDs {
		if live[id] {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(cfg.RoleIDs) {
		return
	}
	cfg.RoleIDs = kept

	_, err = m.store.UpdateOne(ctx, store.ColAutoroles,
		store.Doc{"guildId": cfg.GuildID},
		store.Doc{"$set": store.Doc{"roleIds": kept}},
		false,
	)
	if err != nil {
		m.log.Warn().Err(err).Str("guild", cfg.GuildID).Msg("autorole prune failed")
	}
}

func (m *Module) handleAdd(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !perms.Has(i, discordgo.PermissionManageRoles) {
		reply.Err(s, i, m.log, apperr.Permission("You need Manage Roles permission to do that!"))
		return
	}

	role := bot.CommandOptions(i)["role"].RoleValue(s, i.GuildID)
	if role.Managed {
		reply.Err(s, i, m.log, apperr.Validation("That role is managed by an integration and can't be assigned!"))
		return
	}
	if !perms.BotOutranksRole(s, i.GuildID, role) {
		reply.Err(s, i, m.log, apperr.Permission("That role is at or above my top role, so I can't assign it!"))
		return
	}

	ctx := context.Background()
	cfg, err := m.load(ctx, i.GuildID)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not load the configuration"))
		return
	}
	for _, id := range cfg.RoleIDs {
		if id == role.ID {
			reply.Err(s, i, m.log, apperr.Validationf("**%s** is already an automatic role!", role.Name))
			return
		}
	}

	_, err = m.store.UpdateOne(ctx, store.ColAutoroles,
		store.Doc{"guildId": i.GuildID},
		store.Doc{"$addToSet": store.Doc{"roleIds": role.ID}},
		true,
	)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not save the configuration"))
		return
	}
	_ = reply.Embed(s, i, embeds.Success(fmt.Sprintf("New members will now receive **%s**!", role.Name)))
}

func (m *Module) handleRemove(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !perms.Has(i, discordgo.PermissionManageRoles) {
		reply.Err(s, i, m.log, apperr.Permission("You need Manage Roles permission to do that!"))
		return
	}

	role := bot.CommandOptions(i)["role"].RoleValue(s, i.GuildID)
	modified, err := m.store.UpdateOne(context.Background(), store.ColAutoroles,
		store.Doc{"guildId": i.GuildID},
		store.Doc{"$pull": store.Doc{"roleIds": role.ID}},
		false,
	)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not update the configuration"))
		return
	}
	if modified == 0 {
		reply.Err(s, i, m.log, apperr.NotFoundf("**%s** isn't an automatic role!", role.Name))
		return
	}
	_ = reply.Embed(s, i, embeds.Success(fmt.Sprintf("**%s** will no longer be granted automatically.", role.Name)))
}

func (m *Module) handleList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	cfg, err := m.load(ctx, i.GuildID)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not load the configuration"))
		return
	}
	m.prune(ctx, s, cfg)

	if len(cfg.RoleIDs) == 0 {
		reply.Err(s, i, m.log, apperr.NotFound("No automatic roles are configured. Add one with `/autorole-add`!"))
		return
	}

	lines := make([]string, 0, len(cfg.RoleIDs))
	for _, id := range cfg.RoleIDs {
		lines = append(lines, fmt.Sprintf("• <@&%s>", id))
	}
	_ = reply.Embed(s, i, embeds.Page("📋 Automatic Roles", lines, 0, embeds.ColorInfo))
}

func (m *Module) handleClear(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !perms.Has(i, discordgo.PermissionManageRoles) {
		reply.Err(s, i, m.log, apperr.Permission("You need Manage Roles permission to do that!"))
		return
	}

	result, err := m.confirm.Ask(s, i,
		embeds.Warning("This will remove **all** automatic roles. Are you sure?"),
		confirm.DefaultTimeout,
	)
	if err != nil {
		m.log.Error().Err(err).Msg("autorole-clear prompt failed")
		return
	}
	switch result {
	case confirm.Cancelled:
		_ = reply.Followup(s, i, embeds.Info("Cancelled", "No roles were removed."))
		return
	case confirm.TimedOut:
		_ = reply.Followup(s, i, embeds.Warning("Confirmation timed out, nothing was changed."))
		return
	}

	if _, err := m.store.DeleteMany(context.Background(), store.ColAutoroles, store.Doc{"guildId": i.GuildID}); err != nil {
		reply.FollowupErr(s, i, m.log, apperr.External(err, "could not clear the configuration"))
		return
	}
	_ = reply.Followup(s, i, embeds.Success("All automatic roles removed."))
}

// onMemberAdd applies every configured role to the newcomer.
func (m *Module) onMemberAdd(s *discordgo.Session, e *discordgo.GuildMemberAdd) {
	if e.User == nil || e.User.Bot {
		return
	}

	ctx := context.Background()
	cfg, err := m.load(ctx, e.GuildID)
	if err != nil {
		m.log.Error().Err(err).Str("guild", e.GuildID).Msg("autorole config load failed")
		return
	}
	m.prune(ctx, s, cfg)

	for _, roleID := range cfg.RoleIDs {
		if err := s.GuildMemberRoleAdd(e.GuildID, e.User.ID, roleID); err != nil {
			m.log.Warn().Err(err).Str("guild", e.GuildID).Str("role", roleID).Msg("autorole grant failed")
		}
	}
}
