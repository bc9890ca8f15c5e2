// Package confirm implements the shared confirm/cancel prompt used before
// destructive commands. One request shows two buttons, waits for the
// invoker's choice, and resolves to a tri-state result.
package confirm

import (
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/novabot/nova/internal/embeds"
	"github.com/novabot/nova/internal/reply"
)

type Result int

const (
	TimedOut Result = iota
	Confirmed
	Cancelled
)

const customIDPrefix = "confirm:"

// DefaultTimeout matches the prompt lifetime users are used to.
const DefaultTimeout = 30 * time.Second

type pending struct {
	userID string
	ch     chan Result
}

// Manager routes confirm button clicks back to the waiting command
// handler. Prompts do not survive restarts; an orphaned click reports the
// prompt as expired.
type Manager struct {
	mu      sync.Mutex
	pending map[string]*pending
}

func NewManager() *Manager {
	return &Manager{pending: make(map[string]*pending)}
}

// Register adds the component-click handler to the session.
func (m *Manager) Register(s *discordgo.Session) {
	s.AddHandler(m.onInteractionCreate)
}

// Ask responds to the interaction with prompt plus confirm/cancel buttons
// and blocks until the invoker chooses or timeout elapses. The buttons are
// removed once resolved; the caller follows up with the outcome.
func (m *Manager) Ask(s *discordgo.Session, i *discordgo.InteractionCreate, prompt *discordgo.MessageEmbed, timeout time.Duration) (Result, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	token := uuid.NewString()
	p := &pending{userID: reply.UserID(i), ch: make(chan Result, 1)}

	m.mu.Lock()
	m.pending[token] = p
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.pending, token)
		m.mu.Unlock()
	}()

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{prompt},
			Components: buttons(token),
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		return TimedOut, err
	}

	result := TimedOut
	select {
	case r := <-p.ch:
		result = r
	case <-time.After(timeout):
	}

	empty := []discordgo.MessageComponent{}
	_, _ = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Components: &empty})

	return result, nil
}

func buttons(token string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Confirm",
					Style:    discordgo.DangerButton,
					CustomID: customIDPrefix + "yes:" + token,
				},
				discordgo.Button{
					Label:    "Cancel",
					Style:    discordgo.SecondaryButton,
					CustomID: customIDPrefix + "no:" + token,
				},
			},
		},
	}
}

type deliverStatus int

const (
	delivered deliverStatus = iota
	expiredPrompt
	wrongUser
)

// deliver resolves the pending prompt for token, if any, enforcing that
// only the invoker's click counts.
func (m *Manager) deliver(token, userID, verb string) deliverStatus {
	m.mu.Lock()
	p := m.pending[token]
	m.mu.Unlock()

	if p == nil {
		return expiredPrompt
	}
	if userID != p.userID {
		return wrongUser
	}

	result := Cancelled
	if verb == "yes" {
		result = Confirmed
	}
	select {
	case p.ch <- result:
	default:
	}
	return delivered
}

func (m *Manager) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	id := i.MessageComponentData().CustomID
	if !strings.HasPrefix(id, customIDPrefix) {
		return
	}
	parts := strings.SplitN(id, ":", 3)
	if len(parts) != 3 {
		return
	}
	verb, token := parts[1], parts[2]

	switch m.deliver(token, reply.UserID(i), verb) {
	case expiredPrompt:
		_ = reply.Ephemeral(s, i, embeds.Warning("This prompt has expired."))
	case wrongUser:
		_ = reply.Ephemeral(s, i, embeds.Warning("This prompt belongs to someone else."))
	case delivered:
		_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredMessageUpdate,
		})
	}
}
