// Package aichat answers questions through the OpenAI chat API: an
// explicit /ask command plus optional passive replies when the bot is
// mentioned or addressed by name.
package aichat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/novabot/nova/internal/apperr"
	"github.com/novabot/nova/internal/bot"
	"github.com/novabot/nova/internal/embeds"
	"github.com/novabot/nova/internal/perms"
	"github.com/novabot/nova/internal/reply"
	"github.com/novabot/nova/internal/store"
)

const (
	maxTokens      = 300
	requestTimeout = 30 * time.Second

	systemPrompt = "You are Nova, a friendly and cheerful Discord bot assistant. " +
		"Keep answers short, warm and helpful. Use the occasional emoji but stay concise."
)

type Module struct {
	store   *store.Store
	log     zerolog.Logger
	guildID string

	client   *openai.Client
	limiters *limiterPool
}

// New builds the module. An empty apiKey leaves the client nil; every
// surface then answers with a polite notice instead.
func New(st *store.Store, log zerolog.Logger, guildID, apiKey string) *Module {
	m := &Module{
		store:    st,
		log:      log,
		guildID:  guildID,
		limiters: newLimiterPool(rate.Every(5*time.Second), 2, 10*time.Minute),
	}
	if apiKey != "" {
		m.client = openai.NewClient(apiKey)
	}
	return m
}

func (m *Module) Name() string { return "aichat" }

func (m *Module) Register(s *discordgo.Session) error {
	s.AddHandler(m.onReady)
	s.AddHandler(m.onInteractionCreate)
	s.AddHandler(m.onMessageCreate)
	return nil
}

func (m *Module) Start(ctx context.Context, s *discordgo.Session) error { return nil }

func (m *Module) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	bot.RegisterCommands(s, m.log, m.guildID, []*discordgo.ApplicationCommand{
		{
			Name:        "ask",
			Description: "🤖 Ask Nova a question",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "question", Description: "What do you want to know?", Required: true},
			},
		},
		{Name: "chat", Description: "💬 Toggle passive AI replies for this server"},
		{Name: "ai-info", Description: "ℹ️ About Nova's AI features"},
	})
}

func (m *Module) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	switch i.ApplicationCommandData().Name {
	case "ask":
		m.handleAsk(s, i)
	case "chat":
		m.handleToggle(s, i)
	case "ai-info":
		m.handleInfo(s, i)
	}
}

// complete runs one chat completion with the fixed persona.
func (m *Module) complete(ctx context.Context, question string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     openai.GPT3Dot5Turbo,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (m *Module) handleAsk(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if m.client == nil {
		_ = reply.Ephemeral(s, i, embeds.Warning("AI features are not configured on this bot. Ask the owner to set an API key!"))
		return
	}
	if !m.limiters.Allow(i.ChannelID) {
		reply.Err(s, i, m.log, apperr.State("I'm thinking too hard right now! Try again in a few seconds."))
		return
	}

	if err := reply.Defer(s, i); err != nil {
		m.log.Debug().Err(err).Msg("ask defer failed")
		return
	}

	question := bot.CommandOptions(i)["question"].StringValue()
	answer, err := m.complete(context.Background(), question)
	if err != nil {
		reply.FollowupErr(s, i, m.log, apperr.External(err, "the AI service did not answer"))
		return
	}

	e := embeds.New("🤖 Nova says", answer, embeds.ColorPrimary)
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Question", Value: truncateQuestion(question), Inline: false},
	}
	_ = reply.Followup(s, i, e)
}

func (m *Module) handleToggle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !perms.IsAdmin(i) {
		reply.Err(s, i, m.log, apperr.Permission("You need Manage Server permission to toggle AI chat!"))
		return
	}
	if m.client == nil {
		_ = reply.Ephemeral(s, i, embeds.Warning("AI features are not configured on this bot. Ask the owner to set an API key!"))
		return
	}

	ctx := context.Background()
	enabled := m.passiveEnabled(ctx, i.GuildID)
	_, err := m.store.UpdateOne(ctx, store.ColServerSettings,
		store.Doc{"guildId": i.GuildID},
		store.Doc{"$set": store.Doc{"aiChatEnabled": !enabled}},
		true,
	)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not update the setting"))
		return
	}

	if enabled {
		_ = reply.Embed(s, i, embeds.Warning("Passive AI replies **disabled**."))
		return
	}
	_ = reply.Embed(s, i, embeds.Success("Passive AI replies **enabled**! Mention me or start a message with \"nova\"."))
}

func (m *Module) handleInfo(s *discordgo.Session, i *discordgo.InteractionCreate) {
	status := "❌ Not configured"
	if m.client != nil {
		status = "✅ Ready"
	}
	passive := "❌ Disabled"
	if m.passiveEnabled(context.Background(), i.GuildID) {
		passive = "✅ Enabled"
	}

	e := embeds.Info("Nova AI", "I can answer questions with a little help from OpenAI!")
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Status", Value: status, Inline: true},
		{Name: "Passive Replies", Value: passive, Inline: true},
		{Name: "Usage", Value: "`/ask question` — one-shot answer\n`/chat` — toggle passive replies\nMention me or say \"nova ...\" when passive replies are on!", Inline: false},
	}
	_ = reply.Embed(s, i, e)
}

func (m *Module) passiveEnabled(ctx context.Context, guildID string) bool {
	doc, err := m.store.FindOne(ctx, store.ColServerSettings, store.Doc{"guildId": guildID})
	if errors.Is(err, store.ErrNoDocument) {
		return false
	}
	if err != nil {
		m.log.Error().Err(err).Msg("ai settings lookup failed")
		return false
	}
	enabled, _ := doc["aiChatEnabled"].(bool)
	return enabled
}

// onMessageCreate serves passive replies: bot mention or a message
// starting with "nova", in guilds that opted in.
func (m *Module) onMessageCreate(s *discordgo.Session, msg *discordgo.MessageCreate) {
	if m.client == nil || msg.Author == nil || msg.Author.Bot || msg.GuildID == "" {
		return
	}
	if !addressesBot(s, msg.Message) {
		return
	}
	if !m.passiveEnabled(context.Background(), msg.GuildID) {
		return
	}
	if !m.limiters.Allow(msg.ChannelID) {
		return
	}

	if err := s.ChannelTyping(msg.ChannelID); err != nil {
		m.log.Debug().Err(err).Msg("typing indicator failed")
	}

	question := stripAddress(s, msg.Message)
	if question == "" {
		return
	}
	answer, err := m.complete(context.Background(), question)
	if err != nil {
		m.log.Error().Err(err).Msg("passive completion failed")
		return
	}

	_, err = s.ChannelMessageSendReply(msg.ChannelID, answer, msg.Reference())
	if err != nil {
		m.log.Debug().Err(err).Msg("passive reply failed")
	}
}

func addressesBot(s *discordgo.Session, msg *discordgo.Message) bool {
	if s.State.User != nil {
		for _, u := range msg.Mentions {
			if u.ID == s.State.User.ID {
				return true
			}
		}
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(msg.Content)), "nova")
}

// stripAddress removes the leading mention or "nova" prefix so the
// model sees only the question.
func stripAddress(s *discordgo.Session, msg *discordgo.Message) string {
	content := strings.TrimSpace(msg.Content)
	if s.State.User != nil {
		content = strings.ReplaceAll(content, "<@"+s.State.User.ID+">", "")
		content = strings.ReplaceAll(content, "<@!"+s.State.User.ID+">", "")
	}
	content = strings.TrimSpace(content)
	lower := strings.ToLower(content)
	if strings.HasPrefix(lower, "nova") {
		content = strings.TrimSpace(content[4:])
		content = strings.TrimLeft(content, ",:;! ")
	}
	return strings.TrimSpace(content)
}

func truncateQuestion(q string) string {
	if len(q) <= 200 {
		return q
	}
	return q[:199] + "…"
}
