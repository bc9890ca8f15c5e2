// Package tickets implements the support-ticket flow: a persistent
// panel button opens a private channel per user, staff can claim it,
// and closing tears the channel down after a short grace period.
package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/novabot/nova/internal/apperr"
	"github.com/novabot/nova/internal/bot"
	"github.com/novabot/nova/internal/embeds"
	"github.com/novabot/nova/internal/perms"
	"github.com/novabot/nova/internal/reply"
	"github.com/novabot/nova/internal/store"
)

const (
	openButtonID  = "ticket_open"
	claimButtonID = "ticket_claim"
	closeButtonID = "ticket_close"

	statusOpen   = "open"
	statusClosed = "closed"

	deleteDelay = 10 * time.Second
)

type ticket struct {
	GuildID   string `json:"guildId"`
	TicketID  string `json:"ticketId"`
	ChannelID string `json:"channelId"`
	OpenerID  string `json:"openerId"`
	Status    string `json:"status"`
	ClaimedBy string `json:"claimedBy,omitempty"`
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

func (m *Module) Name() string { return "tickets" }

func (m *Module) Register(s *discordgo.Session) error {
	s.AddHandler(m.onReady)
	s.AddHandler(m.onInteractionCreate)
	return nil
}

func (m *Module) Start(ctx context.Context, s *discordgo.Session) error { return nil }

func (m *Module) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	bot.RegisterCommands(s, m.log, m.guildID, []*discordgo.ApplicationCommand{
		{
			Name:        "ticket-setup",
			Description: "🎫 Post the ticket panel",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Channel for the panel (default: here)", Required: false},
			},
		},
		{Name: "ticket-close", Description: "🔒 Close this ticket"},
	})
}

func (m *Module) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		switch i.ApplicationCommandData().Name {
		case "ticket-setup":
			m.handleSetup(s, i)
		case "ticket-close":
			m.handleClose(s, i)
		}
	case discordgo.InteractionMessageComponent:
		switch i.MessageComponentData().CustomID {
		case openButtonID:
			m.handleOpen(s, i)
		case claimButtonID:
			m.handleClaim(s, i)
		case closeButtonID:
			m.handleClose(s, i)
		}
	}
}

func (m *Module) handleSetup(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !perms.IsAdmin(i) {
		reply.Err(s, i, m.log, apperr.Permission("You need Manage Server permission to set up tickets!"))
		return
	}

	channelID := i.ChannelID
	if opt, ok := bot.CommandOptions(i)["channel"]; ok {
		channelID = opt.ChannelValue(s).ID
	}

	panel := embeds.Info("Support Tickets",
		"Need help? Click the button below to open a private ticket with the staff team!")
	msg, err := s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{panel},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "🎫 Open Ticket", Style: discordgo.PrimaryButton, CustomID: openButtonID},
			}},
		},
	})
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not post the panel"))
		return
	}

	_, err = m.store.UpdateOne(context.Background(), store.ColServerSettings,
		store.Doc{"guildId": i.GuildID},
		store.Doc{"$set": store.Doc{"ticketPanelChannel": channelID, "ticketPanelMessage": msg.ID}},
		true,
	)
	if err != nil {
		m.log.Error().Err(err).Msg("panel reference save failed")
	}
	_ = reply.Ephemeral(s, i, embeds.Success(fmt.Sprintf("Ticket panel posted in <#%s>!", channelID)))
}

func (m *Module) handleOpen(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	openerID := reply.UserID(i)

	_, err := m.store.FindOne(ctx, store.ColTickets, store.Doc{
		"guildId":  i.GuildID,
		"openerId": openerID,
		"status":   statusOpen,
	})
	if err == nil {
		reply.Err(s, i, m.log, apperr.State("You already have an open ticket!"))
		return
	}
	if !errors.Is(err, store.ErrNoDocument) {
		reply.Err(s, i, m.log, apperr.External(err, "could not check your tickets"))
		return
	}

	ticketID := strings.SplitN(uuid.NewString(), "-", 2)[0]
	overwrites := []*discordgo.PermissionOverwrite{
		{ID: i.GuildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: openerID, Type: discordgo.PermissionOverwriteTypeMember, Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages},
	}
	if s.State.User != nil {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID: s.State.User.ID, Type: discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		})
	}

	ch, err := s.GuildChannelCreateComplex(i.GuildID, discordgo.GuildChannelCreateData{
		Name:                 "ticket-" + ticketID,
		Type:                 discordgo.ChannelTypeGuildText,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not create the ticket channel"))
		return
	}

	doc, err := store.Encode(ticket{
		GuildID:   i.GuildID,
		TicketID:  ticketID,
		ChannelID: ch.ID,
		OpenerID:  openerID,
		Status:    statusOpen,
		CreatedAt: time.Now().Unix(),
	})
	if err == nil {
		err = m.store.InsertOne(ctx, store.ColTickets, doc)
	}
	if err != nil {
		_, _ = s.ChannelDelete(ch.ID)
		reply.Err(s, i, m.log, apperr.External(err, "could not save the ticket"))
		return
	}

	greeting := embeds.Info("Ticket Opened",
		fmt.Sprintf("Hi <@%s>! 🌸 Describe your issue and the staff team will be with you shortly.", openerID))
	_, err = s.ChannelMessageSendComplex(ch.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{greeting},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "🙋 Claim", Style: discordgo.SecondaryButton, CustomID: claimButtonID},
				discordgo.Button{Label: "🔒 Close", Style: discordgo.DangerButton, CustomID: closeButtonID},
			}},
		},
	})
	if err != nil {
		m.log.Debug().Err(err).Str("channel", ch.ID).Msg("ticket greeting failed")
	}

	_ = reply.Ephemeral(s, i, embeds.Success(fmt.Sprintf("Your ticket is ready: <#%s>", ch.ID)))
}

func (m *Module) handleClaim(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !perms.IsMod(i) {
		reply.Err(s, i, m.log, apperr.Permission("Only staff can claim tickets!"))
		return
	}

	ctx := context.Background()
	doc, err := m.store.FindOne(ctx, store.ColTickets, store.Doc{
		"guildId":   i.GuildID,
		"channelId": i.ChannelID,
		"status":    statusOpen,
	})
	if errors.Is(err, store.ErrNoDocument) {
		reply.Err(s, i, m.log, apperr.NotFound("This channel isn't an open ticket!"))
		return
	}
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not look up the ticket"))
		return
	}

	var t ticket
	if derr := store.Decode(doc, &t); derr == nil && t.ClaimedBy != "" {
		reply.Err(s, i, m.log, apperr.Statef("This ticket is already claimed by <@%s>!", t.ClaimedBy))
		return
	}

	claimerID := reply.UserID(i)
	_, err = m.store.UpdateOne(ctx, store.ColTickets,
		store.Doc{"guildId": i.GuildID, "channelId": i.ChannelID},
		store.Doc{"$set": store.Doc{"claimedBy": claimerID}},
		false,
	)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not claim the ticket"))
		return
	}
	_ = reply.Embed(s, i, embeds.Success(fmt.Sprintf("🙋 <@%s> will handle this ticket!", claimerID)))
}

func (m *Module) handleClose(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	doc, err := m.store.FindOne(ctx, store.ColTickets, store.Doc{
		"guildId":   i.GuildID,
		"channelId": i.ChannelID,
		"status":    statusOpen,
	})
	if errors.Is(err, store.ErrNoDocument) {
		reply.Err(s, i, m.log, apperr.NotFound("This channel isn't an open ticket!"))
		return
	}
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not look up the ticket"))
		return
	}

	var t ticket
	if derr := store.Decode(doc, &t); derr != nil {
		reply.Err(s, i, m.log, apperr.External(derr, "could not look up the ticket"))
		return
	}
	// The opener may close their own ticket; everyone else needs staff
	// permissions.
	if reply.UserID(i) != t.OpenerID && !perms.IsMod(i) {
		reply.Err(s, i, m.log, apperr.Permission("Only the ticket opener or staff can close this ticket!"))
		return
	}

	_, err = m.store.UpdateOne(ctx, store.ColTickets,
		store.Doc{"guildId": i.GuildID, "channelId": i.ChannelID},
		store.Doc{"$set": store.Doc{"status": statusClosed}},
		false,
	)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not close the ticket"))
		return
	}

	_ = reply.Embed(s, i, embeds.Warning("🔒 Ticket closed. This channel will be deleted in 10 seconds."))

	channelID := i.ChannelID
	time.AfterFunc(deleteDelay, func() {
		if _, err := s.ChannelDelete(channelID); err != nil {
			m.log.Warn().Err(err).Str("channel", channelID).Msg("ticket channel delete failed")
		}
	})
}
