package tags

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
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

type tag struct {
	GuildID   string `json:"guildId"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	OwnerID   string `json:"ownerId"`
	Uses      int    `json:"uses"`
	CreatedAt int64  `json:"createdAt"`
}

type Module struct {
	store   *store.Store
	log     zerolog.Logger
	guildID string
}

func New(st *store.Store, log zerolog.Logger, guildID string) *Module {
	return &Module{store: st, log: log, guildID: guildID}
}

func (m *Module) Name() string { return "tags" }

func (m *Module) Register(s *discordgo.Session) error {
	s.AddHandler(m.onReady)
	s.AddHandler(m.onInteractionCreate)
	return nil
}

func (m *Module) Start(ctx context.Context, s *discordgo.Session) error { return nil }

func (m *Module) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	nameOpt := func(autocomplete bool) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Tag name",
			Required: true, Autocomplete: autocomplete,
		}
	}
	contentOpt := &discordgo.ApplicationCommandOption{
		Type: discordgo.ApplicationCommandOptionString, Name: "content", Description: "Tag content", Required: true,
	}

	bot.RegisterCommands(s, m.log, m.guildID, []*discordgo.ApplicationCommand{
		{Name: "tag-create", Description: "🏷️ Create a tag", Options: []*discordgo.ApplicationCommandOption{nameOpt(false), contentOpt}},
		{Name: "tag", Description: "🏷️ Show a tag", Options: []*discordgo.ApplicationCommandOption{nameOpt(true)}},
		{Name: "tag-edit", Description: "✏️ Edit a tag you own", Options: []*discordgo.ApplicationCommandOption{nameOpt(true), contentOpt}},
		{Name: "tag-delete", Description: "🗑️ Delete a tag you own", Options: []*discordgo.ApplicationCommandOption{nameOpt(true)}},
		{Name: "tag-info", Description: "ℹ️ Show a tag's details", Options: []*discordgo.ApplicationCommandOption{nameOpt(true)}},
		{Name: "tag-list", Description: "📋 List this server's tags"},
		{
			Name: "tag-search", Description: "🔍 Search tags by name",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "term", Description: "Search term", Required: true},
			},
		},
		{Name: "tag-stats", Description: "📈 Tag usage statistics"},
	})
}

func (m *Module) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		switch i.ApplicationCommandData().Name {
		case "tag-create":
			m.handleCreate(s, i)
		case "tag":
			m.handleShow(s, i)
		case "tag-edit":
			m.handleEdit(s, i)
		case "tag-delete":
			m.handleDelete(s, i)
		case "tag-info":
			m.handleInfo(s, i)
		case "tag-list":
			m.handleList(s, i)
		case "tag-search":
			m.handleSearch(s, i)
		case "tag-stats":
			m.handleStats(s, i)
		}
	case discordgo.InteractionApplicationCommandAutocomplete:
		switch i.ApplicationCommandData().Name {
		case "tag", "tag-edit", "tag-delete", "tag-info":
			m.handleAutocomplete(s, i)
		}
	}
}

func (m *Module) find(ctx context.Context, guildID, name string) (*tag, error) {
	doc, err := m.store.FindOne(ctx, store.ColTags, store.Doc{"guildId": guildID, "name": name})
	if errors.Is(err, store.ErrNoDocument) {
		return nil, apperr.NotFoundf("No tag named **%s** exists!", name)
	}
	if err != nil {
		return nil, apperr.External(err, "could not look up the tag")
	}
	var t tag
	if err := store.Decode(doc, &t); err != nil {
		return nil, apperr.External(err, "could not look up the tag")
	}
	return &t, nil
}

// canManage allows the owner and anyone with Manage Messages.
func canManage(i *discordgo.InteractionCreate, t *tag) bool {
	return reply.UserID(i) == t.OwnerID || perms.Has(i, discordgo.PermissionManageMessages)
}

func (m *Module) handleCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := bot.CommandOptions(i)
	name, err := normalizeName(opts["name"].StringValue())
	if err != nil {
		reply.Err(s, i, m.log, err)
		return
	}
	content := opts["content"].StringValue()
	if err := validateContent(content); err != nil {
		reply.Err(s, i, m.log, err)
		return
	}

	ctx := context.Background()
	if _, err := m.find(ctx, i.GuildID, name); err == nil {
		reply.Err(s, i, m.log, apperr.Validationf("A tag named **%s** already exists!", name))
		return
	}
	count, err := m.store.CountDocuments(ctx, store.ColTags, store.Doc{"guildId": i.GuildID})
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not count the tags"))
		return
	}
	if count >= maxPerGuild {
		reply.Err(s, i, m.log, apperr.Validationf("This server already has the maximum of %d tags!", maxPerGuild))
		return
	}

	doc, err := store.Encode(tag{
		GuildID:   i.GuildID,
		Name:      name,
		Content:   content,
		OwnerID:   reply.UserID(i),
		CreatedAt: time.Now().Unix(),
	})
	if err == nil {
		err = m.store.InsertOne(ctx, store.ColTags, doc)
	}
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not save the tag"))
		return
	}
	_ = reply.Embed(s, i, embeds.Success(fmt.Sprintf("Tag **%s** created! Use it with `/tag %s`.", name, name)))
}

func (m *Module) handleShow(s *discordgo.Session, i *discordgo.InteractionCreate) {
	name, err := normalizeName(bot.CommandOptions(i)["name"].StringValue())
	if err != nil {
		reply.Err(s, i, m.log, err)
		return
	}

	ctx := context.Background()
	t, err := m.find(ctx, i.GuildID, name)
	if err != nil {
		reply.Err(s, i, m.log, err)
		return
	}

	_, err = m.store.UpdateOne(ctx, store.ColTags,
		store.Doc{"guildId": i.GuildID, "name": name},
		store.Doc{"$inc": store.Doc{"uses": 1}},
		false,
	)
	if err != nil {
		m.log.Debug().Err(err).Str("tag", name).Msg("use counter update failed")
	}
	_ = reply.Embed(s, i, embeds.New("🏷️ "+t.Name, t.Content, embeds.ColorPrimary))
}

func (m *Module) handleEdit(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := bot.CommandOptions(i)
	name, err := normalizeName(opts["name"].StringValue())
	if err != nil {
		reply.Err(s, i, m.log, err)
		return
	}
	content := opts["content"].StringValue()
	if err := validateContent(content); err != nil {
		reply.Err(s, i, m.log, err)
		return
	}

	ctx := context.Background()
	t, err := m.find(ctx, i.GuildID, name)
	if err != nil {
		reply.Err(s, i, m.log, err)
		return
	}
	if !canManage(i, t) {
		reply.Err(s, i, m.log, apperr.Permission("Only the tag owner or a moderator can edit this tag!"))
		return
	}

	_, err = m.store.UpdateOne(ctx, store.ColTags,
		store.Doc{"guildId": i.GuildID, "name": name},
		store.Doc{"$set": store.Doc{"content": content}},
		false,
	)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not update the tag"))
		return
	}
	_ = reply.Embed(s, i, embeds.Success(fmt.Sprintf("Tag **%s** updated!", name)))
}

func (m *Module) handleDelete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	name, err := normalizeName(bot.CommandOptions(i)["name"].StringValue())
	if err != nil {
		reply.Err(s, i, m.log, err)
		return
	}

	ctx := context.Background()
	t, err := m.find(ctx, i.GuildID, name)
	if err != nil {
		reply.Err(s, i, m.log, err)
		return
	}
	if !canManage(i, t) {
		reply.Err(s, i, m.log, apperr.Permission("Only the tag owner or a moderator can delete this tag!"))
		return
	}

	if _, err := m.store.DeleteOne(ctx, store.ColTags, store.Doc{"guildId": i.GuildID, "name": name}); err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not delete the tag"))
		return
	}
	_ = reply.Embed(s, i, embeds.Success(fmt.Sprintf("Tag **%s** deleted!", name)))
}

func (m *Module) handleInfo(s *discordgo.Session, i *discordgo.InteractionCreate) {
	name, err := normalizeName(bot.CommandOptions(i)["name"].StringValue())
	if err != nil {
		reply.Err(s, i, m.log, err)
		return
	}
	t, err := m.find(context.Background(), i.GuildID, name)
	if err != nil {
		reply.Err(s, i, m.log, err)
		return
	}

	e := embeds.Info("Tag: "+t.Name, "")
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Owner", Value: fmt.Sprintf("<@%s>", t.OwnerID), Inline: true},
		{Name: "Uses", Value: fmt.Sprintf("%d", t.Uses), Inline: true},
		{Name: "Created", Value: fmt.Sprintf("<t:%d:R>", t.CreatedAt), Inline: true},
	}
	_ = reply.Embed(s, i, e)
}

func (m *Module) guildTags(ctx context.Context, guildID string) ([]tag, error) {
	docs, err := m.store.FindMany(ctx, store.ColTags, store.Doc{"guildId": guildID},
		&store.FindOptions{SortField: "name"})
	if err != nil {
		return nil, err
	}
	out := make([]tag, 0, len(docs))
	for _, doc := range docs {
		var t tag
		if err := store.Decode(doc, &t); err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *Module) handleList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	all, err := m.guildTags(context.Background(), i.GuildID)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not load the tags"))
		return
	}
	if len(all) == 0 {
		reply.Err(s, i, m.log, apperr.NotFound("This server has no tags yet. Create one with `/tag-create`!"))
		return
	}

	lines := make([]string, 0, len(all))
	for _, t := range all {
		lines = append(lines, fmt.Sprintf("🏷️ **%s** — %d uses", t.Name, t.Uses))
	}
	_ = reply.Embed(s, i, embeds.Page("📋 Server Tags", lines, 0, embeds.ColorPrimary))
}

func (m *Module) handleSearch(s *discordgo.Session, i *discordgo.InteractionCreate) {
	term := strings.ToLower(strings.TrimSpace(bot.CommandOptions(i)["term"].StringValue()))
	all, err := m.guildTags(context.Background(), i.GuildID)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not search the tags"))
		return
	}

	lines := []string{}
	for _, t := range all {
		if strings.Contains(t.Name, term) {
			lines = append(lines, fmt.Sprintf("🏷️ **%s** — %d uses", t.Name, t.Uses))
		}
	}
	if len(lines) == 0 {
		reply.Err(s, i, m.log, apperr.NotFoundf("No tags match **%s**!", term))
		return
	}
	_ = reply.Embed(s, i, embeds.Page(fmt.Sprintf("🔍 Tags matching %q", term), lines, 0, embeds.ColorPrimary))
}

func (m *Module) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) {
	all, err := m.guildTags(context.Background(), i.GuildID)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not load the tags"))
		return
	}
	if len(all) == 0 {
		reply.Err(s, i, m.log, apperr.NotFound("This server has no tags yet!"))
		return
	}

	totalUses := 0
	for _, t := range all {
		totalUses += t.Uses
	}
	sort.Slice(all, func(a, b int) bool { return all[a].Uses > all[b].Uses })

	top := ""
	for n, t := range all {
		if n >= 5 {
			break
		}
		top += fmt.Sprintf("`%d.` **%s** — %d uses\n", n+1, t.Name, t.Uses)
	}

	e := embeds.Info("Tag Statistics", "")
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Total Tags", Value: fmt.Sprintf("%d/%d", len(all), maxPerGuild), Inline: true},
		{Name: "Total Uses", Value: fmt.Sprintf("%d", totalUses), Inline: true},
		{Name: "Most Used", Value: top, Inline: false},
	}
	_ = reply.Embed(s, i, e)
}

// handleAutocomplete suggests up to 25 tag names sharing the typed
// prefix.
func (m *Module) handleAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	prefix := ""
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "name" && opt.Focused {
			prefix = strings.ToLower(opt.StringValue())
		}
	}

	all, err := m.guildTags(context.Background(), i.GuildID)
	if err != nil {
		m.log.Debug().Err(err).Msg("autocomplete lookup failed")
		return
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, 25)
	for _, t := range all {
		if !strings.HasPrefix(t.Name, prefix) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: t.Name, Value: t.Name})
		if len(choices) == 25 {
			break
		}
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		m.log.Debug().Err(err).Msg("autocomplete respond failed")
	}
}
