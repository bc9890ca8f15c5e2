package fun

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/novabot/nova/internal/apperr"
	"github.com/novabot/nova/internal/bot"
	"github.com/novabot/nova/internal/embeds"
	"github.com/novabot/nova/internal/reply"
)

type Module struct {
	log     zerolog.Logger
	guildID string
}

func New(log zerolog.Logger, guildID string) *Module {
	return &Module{log: log, guildID: guildID}
}

func (m *Module) Name() string { return "fun" }

func (m *Module) Register(s *discordgo.Session) error {
	s.AddHandler(m.onReady)
	s.AddHandler(m.onInteractionCreate)
	return nil
}

func (m *Module) Start(ctx context.Context, s *discordgo.Session) error { return nil }

func (m *Module) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	bot.RegisterCommands(s, m.log, m.guildID, []*discordgo.ApplicationCommand{
		{
			Name:        "8ball",
			Description: "🎱 Ask the magic 8-ball a question",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "question", Description: "Your question", Required: true},
			},
		},
		{
			Name:        "roll",
			Description: "🎲 Roll dice",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "sides", Description: "Sides per die (2-100, default: 6)", Required: false},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "count", Description: "Number of dice (1-10, default: 1)", Required: false},
			},
		},
		{Name: "flip", Description: "🪙 Flip a coin"},
		{
			Name:        "choose",
			Description: "🤔 Let Nova choose between options",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "options", Description: "Options separated by commas (e.g. pizza, burger, tacos)", Required: true},
			},
		},
		{Name: "joke", Description: "😂 Get a random joke"},
		{
			Name:        "compliment",
			Description: "💖 Get a wholesome compliment",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to compliment (default: you)", Required: false},
			},
		},
		{
			Name:        "rate",
			Description: "⭐ Rate something on a scale of 1-10",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "thing", Description: "What should I rate?", Required: true},
			},
		},
	})
}

func (m *Module) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	switch i.ApplicationCommandData().Name {
	case "8ball":
		m.handle8Ball(s, i)
	case "roll":
		m.handleRoll(s, i)
	case "flip":
		m.handleFlip(s, i)
	case "choose":
		m.handleChoose(s, i)
	case "joke":
		m.handleJoke(s, i)
	case "compliment":
		m.handleCompliment(s, i)
	case "rate":
		m.handleRate(s, i)
	}
}

func (m *Module) handle8Ball(s *discordgo.Session, i *discordgo.InteractionCreate) {
	question := bot.CommandOptions(i)["question"].StringValue()
	answer := eightBallAnswers[rand.IntN(len(eightBallAnswers))]

	e := embeds.New("🎱 Magic 8-Ball", "", embeds.ColorPrimary)
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Question", Value: question, Inline: false},
		{Name: "Answer", Value: answer, Inline: false},
	}
	_ = reply.Embed(s, i, e)
}

func (m *Module) handleRoll(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := bot.CommandOptions(i)
	sides, count := 6, 1
	if opt, ok := opts["sides"]; ok {
		sides = int(opt.IntValue())
	}
	if opt, ok := opts["count"]; ok {
		count = int(opt.IntValue())
	}

	if sides < 2 || sides > 100 {
		reply.Err(s, i, m.log, apperr.Validation("Number of sides must be between 2 and 100!"))
		return
	}
	if count < 1 || count > 10 {
		reply.Err(s, i, m.log, apperr.Validation("Number of dice must be between 1 and 10!"))
		return
	}

	rolls := make([]string, count)
	total := 0
	for n := range count {
		r := 1 + rand.IntN(sides)
		rolls[n] = fmt.Sprintf("%d", r)
		total += r
	}

	e := embeds.New("🎲 Dice Roll", "", embeds.ColorPrimary)
	if count == 1 {
		e.Fields = []*discordgo.MessageEmbedField{
			{Name: "Result", Value: fmt.Sprintf("**%s** (1d%d)", rolls[0], sides), Inline: false},
		}
	} else {
		e.Fields = []*discordgo.MessageEmbedField{
			{Name: "Rolls", Value: strings.Join(rolls, " + "), Inline: false},
			{Name: "Total", Value: fmt.Sprintf("**%d** (%dd%d)", total, count, sides), Inline: false},
		}
	}
	_ = reply.Embed(s, i, e)
}

func (m *Module) handleFlip(s *discordgo.Session, i *discordgo.InteractionCreate) {
	result, emoji := "Heads", "🟡"
	if rand.IntN(2) == 1 {
		result, emoji = "Tails", "🟢"
	}
	_ = reply.Embed(s, i, embeds.New("🪙 Coin Flip", fmt.Sprintf("%s **%s**!", emoji, result), embeds.ColorPrimary))
}

func (m *Module) handleChoose(s *discordgo.Session, i *discordgo.InteractionCreate) {
	raw := bot.CommandOptions(i)["options"].StringValue()
	choices := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			choices = append(choices, part)
		}
	}

	if len(choices) < 2 {
		reply.Err(s, i, m.log, apperr.Validation("Please provide at least 2 options separated by commas!"))
		return
	}
	if len(choices) > 10 {
		reply.Err(s, i, m.log, apperr.Validation("Please provide no more than 10 options!"))
		return
	}

	choice := choices[rand.IntN(len(choices))]
	e := embeds.New("🤔 Nova's Choice", fmt.Sprintf("I choose... **%s**! 🌸", choice), embeds.ColorPrimary)
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Options", Value: strings.Join(choices, ", "), Inline: false},
	}
	_ = reply.Embed(s, i, e)
}

func (m *Module) handleJoke(s *discordgo.Session, i *discordgo.InteractionCreate) {
	j := jokes[rand.IntN(len(jokes))]
	e := embeds.New("😂 Here's a joke for you!", "", embeds.ColorPrimary)
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Setup", Value: j.setup, Inline: false},
		{Name: "Punchline", Value: j.punchline, Inline: false},
	}
	_ = reply.Embed(s, i, e)
}

func (m *Module) handleCompliment(s *discordgo.Session, i *discordgo.InteractionCreate) {
	targetID := reply.UserID(i)
	if opt, ok := bot.CommandOptions(i)["user"]; ok {
		targetID = opt.UserValue(s).ID
	}
	line := compliments[rand.IntN(len(compliments))]
	_ = reply.Embed(s, i, embeds.New("💖 Compliment Time!",
		fmt.Sprintf("<@%s>, %s", targetID, line), embeds.ColorPrimary))
}

func (m *Module) handleRate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	thing := bot.CommandOptions(i)["thing"].StringValue()
	rating := rateThing(thing)

	stars := strings.Repeat("⭐", rating) + strings.Repeat("☆", 10-rating)
	e := embeds.New("⭐ Rating Time!", "", embeds.ColorPrimary)
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Item", Value: thing, Inline: false},
		{Name: "Rating", Value: fmt.Sprintf("%d/10\n%s", rating, stars), Inline: false},
		{Name: "Verdict", Value: verdictFor(rating), Inline: false},
	}
	_ = reply.Embed(s, i, e)
}

// rateThing is mostly random, with a thumb on the scale for the
// important things in life.
func rateThing(thing string) int {
	lower := strings.ToLower(thing)
	if strings.Contains(lower, "nova") {
		return 10
	}
	for _, favorite := range []string{"pizza", "cat", "dog", "music"} {
		if strings.Contains(lower, favorite) {
			return 8 + rand.IntN(3)
		}
	}
	return 1 + rand.IntN(10)
}

func verdictFor(rating int) string {
	switch {
	case rating >= 9:
		return "Absolutely amazing! 🤩"
	case rating >= 7:
		return "Pretty great! 😊"
	case rating >= 5:
		return "Not bad! 👍"
	case rating >= 3:
		return "Could be better... 🤔"
	default:
		return "Oof, that's rough! 😅"
	}
}
