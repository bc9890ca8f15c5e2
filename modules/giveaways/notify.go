package giveaways

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/novabot/nova/internal/embeds"
)

// Notifier is the narrow message surface the engine needs, kept as an
// interface so tests can fake the channel.
type Notifier interface {
	Send(channelID string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) (messageID string, err error)
	Edit(channelID, messageID string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error
	Delete(channelID, messageID string) error
	SendDirect(userID string, embed *discordgo.MessageEmbed) error
}

type sessionNotifier struct {
	s *discordgo.Session
}

// NewSessionNotifier wraps a discordgo session as the engine's Notifier.
func NewSessionNotifier(s *discordgo.Session) Notifier {
	return &sessionNotifier{s: s}
}

func (n *sessionNotifier) Send(channelID string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) (string, error) {
	msg, err := n.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	})
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (n *sessionNotifier) Edit(channelID, messageID string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	_, err := n.s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    channelID,
		ID:         messageID,
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &components,
	})
	return err
}

func (n *sessionNotifier) Delete(channelID, messageID string) error {
	return n.s.ChannelMessageDelete(channelID, messageID)
}

func (n *sessionNotifier) SendDirect(userID string, embed *discordgo.MessageEmbed) error {
	ch, err := n.s.UserChannelCreate(userID)
	if err != nil {
		return err
	}
	_, err = n.s.ChannelMessageSendEmbed(ch.ID, embed)
	return err
}

const enterButtonID = "giveaway_enter"

func enterButton() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "🎉 Enter Giveaway",
					Style:    discordgo.SuccessButton,
					CustomID: enterButtonID,
				},
			},
		},
	}
}

func activeEmbed(g *Giveaway, entryCount int) *discordgo.MessageEmbed {
	e := embeds.New(
		"🎉 Giveaway!",
		fmt.Sprintf("**Prize:** %s\n**Hosted by:** <@%s>", g.Prize, g.HostID),
		embeds.ColorGiveaway,
	)
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Ends", Value: fmt.Sprintf("<t:%d:R>", g.EndTime), Inline: true},
		{Name: "Winners", Value: fmt.Sprintf("%d", g.WinnerCount), Inline: true},
		{Name: "Entries", Value: fmt.Sprintf("%d", entryCount), Inline: true},
	}
	e.Footer = &discordgo.MessageEmbedFooter{Text: "Click the button below to enter!"}
	return e
}

func endedEmbed(g *Giveaway, winners []string) *discordgo.MessageEmbed {
	if len(winners) == 0 {
		e := embeds.New(
			"🎉 Giveaway Ended",
			fmt.Sprintf("**Prize:** %s\n\n❌ No valid entries! No winners this time.", g.Prize),
			embeds.ColorError,
		)
		e.Fields = []*discordgo.MessageEmbedField{
			{Name: "Hosted by", Value: fmt.Sprintf("<@%s>", g.HostID), Inline: true},
		}
		return e
	}

	e := embeds.New(
		"🎉 Giveaway Ended",
		fmt.Sprintf("**Prize:** %s\n\n🏆 **%s:** %s", g.Prize, pluralWinner(len(winners)), mentionList(winners)),
		embeds.ColorGiveaway,
	)
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Hosted by", Value: fmt.Sprintf("<@%s>", g.HostID), Inline: true},
		{Name: "Total Entries", Value: fmt.Sprintf("%d", len(g.Entries)), Inline: true},
	}
	return e
}

func congratsEmbed(g *Giveaway) *discordgo.MessageEmbed {
	return embeds.New(
		"🎊 Congratulations!",
		fmt.Sprintf("You won the giveaway for **%s**!\n\nPlease contact <@%s> to claim your prize!", g.Prize, g.HostID),
		embeds.ColorGiveaway,
	)
}

func rerollEmbed(g *Giveaway, winners []string) *discordgo.MessageEmbed {
	return embeds.New(
		"🔄 Giveaway Rerolled!",
		fmt.Sprintf("**Prize:** %s\n\n🏆 **New %s:** %s", g.Prize, pluralWinner(len(winners)), mentionList(winners)),
		embeds.ColorGiveaway,
	)
}

func pluralWinner(n int) string {
	if n > 1 {
		return "Winners"
	}
	return "Winner"
}

func mentionList(ids []string) string {
	mentions := make([]string, len(ids))
	for i, id := range ids {
		mentions[i] = "<@" + id + ">"
	}
	return strings.Join(mentions, ", ")
}
