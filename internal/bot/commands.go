package bot

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// RegisterCommands creates a module's slash commands, scoped to guildID
// when set (instant availability) or globally otherwise. Modules call this
// from their Ready handler; Discord upserts by name so re-registration on
// reconnect is harmless.
func RegisterCommands(s *discordgo.Session, log zerolog.Logger, guildID string, cmds []*discordgo.ApplicationCommand) {
	appID := ""
	if s.State != nil && s.State.User != nil {
		appID = s.State.User.ID
	}
	if appID == "" {
		log.Warn().Msg("cannot register commands: missing application ID")
		return
	}

	for _, cmd := range cmds {
		if _, err := s.ApplicationCommandCreate(appID, guildID, cmd); err != nil {
			log.Error().Err(err).Str("command", cmd.Name).Msg("command registration failed")
			continue
		}
		log.Debug().Str("command", cmd.Name).Msg("registered command")
	}
}

// CommandOptions flattens an interaction's options by name.
func CommandOptions(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := map[string]*discordgo.ApplicationCommandInteractionDataOption{}
	for _, opt := range i.ApplicationCommandData().Options {
		out[opt.Name] = opt
	}
	return out
}
