package reply

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/novabot/nova/internal/apperr"
	"github.com/novabot/nova/internal/embeds"
)

// Defer acknowledges the interaction so a slow handler (resolver calls,
// leaderboard scans) can follow up later.
func Defer(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

// DeferEphemeral is Defer with the eventual follow-up visible only to the
// invoker.
func DeferEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

// Followup sends an embed after a Defer.
func Followup(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
	return err
}

// FollowupErr renders err after a Defer, mirroring Err.
func FollowupErr(s *discordgo.Session, i *discordgo.InteractionCreate, log zerolog.Logger, err error) {
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
	_, ferr := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embeds.Error(message)},
		Flags:  discordgo.MessageFlagsEphemeral,
	})
	if ferr != nil {
		log.Debug().Err(ferr).Msg("error followup failed")
	}
}
