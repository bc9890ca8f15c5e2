package giveaways

import (
	"context"

	"github.com/novabot/nova/internal/store"
)

const (
	StatusActive = "active"
	StatusEnded  = "ended"
)

// Giveaway is the persisted record of one drawing. MessageID is the
// primary key within a guild; the record is kept after conclusion for
// reroll and audit.
type Giveaway struct {
	GuildID     string   `json:"guildId"`
	ChannelID   string   `json:"channelId"`
	MessageID   string   `json:"messageId"`
	HostID      string   `json:"hostId"`
	Prize       string   `json:"prize"`
	WinnerCount int      `json:"winnerCount"`
	StartTime   int64    `json:"startTime"`
	EndTime     int64    `json:"endTime"`
	Entries     []string `json:"entries"`
	Status      string   `json:"status"`
	Winners     []string `json:"winners,omitempty"`
	Rerolled    bool     `json:"rerolled,omitempty"`
	EndedAt     int64    `json:"endedAt,omitempty"`
}

func findGiveaway(ctx context.Context, st *store.Store, guildID, messageID string) (*Giveaway, error) {
	doc, err := st.FindOne(ctx, store.ColGiveaways, store.Doc{
		"guildId":   guildID,
		"messageId": messageID,
	})
	if err != nil {
		return nil, err
	}
	var g Giveaway
	if err := store.Decode(doc, &g); err != nil {
		return nil, err
	}
	return &g, nil
}
