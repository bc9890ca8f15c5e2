// Package reply holds the small helpers modules share for answering
// interactions: embed responses, ephemeral errors, and the mapping from
// typed errors to user-facing messages.
package reply

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/novabot/nova/internal/apperr"
	"github.com/novabot/nova/internal/embeds"
)

// UserID returns the invoking user's id for both guild and DM
// interactions.
func UserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// Username returns the invoking user's display name.
func Username(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.Username
	}
	if i.User != nil {
		return i.User.Username
	}
	return ""
}

// Embed responds to the interaction with a public embed.
func Embed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

// Ephemeral responds with an embed only the invoker can see.
func Ephemeral(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

// Err renders err to the invoker. Typed errors show their message; anything
// else is logged and reported generically so no raw fault reaches the user.
func Err(s *discordgo.Session, i *discordgo.InteractionCreate, log zerolog.Logger, err error) {
	message := "Something went wrong. Please try again later."
	if e, ok := apperr.As(err); ok {
		message = e.UserMessage()
		if e.Code == apperr.CodeExternal {
			message = "Something went wrong talking to an external service. Please try again later."
			log.Error().Err(err).Msg("external failure")
		}
	} else {
		log.Error().Err(err).Msg("unhandled error")
	}
	if rerr := Ephemeral(s, i, embeds.Error(message)); rerr != nil {
		log.Debug().Err(rerr).Msg("error reply failed")
	}
}
