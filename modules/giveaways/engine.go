package giveaways

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/novabot/nova/internal/apperr"
	"github.com/novabot/nova/internal/duration"
	"github.com/novabot/nova/internal/store"
)

const (
	minWinners = 1
	maxWinners = 20

	minDuration = time.Minute
	maxDuration = 28 * 24 * time.Hour
)

// Engine runs the giveaway lifecycle: creation, entry bookkeeping, the
// periodic expiry sweep, winner selection and reroll. The store is the
// source of truth; the engine keeps no giveaway state in memory, so a
// sweep racing a manual end resolves through conclude's re-read.
type Engine struct {
	store  *store.Store
	notify Notifier
	log    zerolog.Logger

	now func() time.Time
}

func NewEngine(st *store.Store, notify Notifier, log zerolog.Logger) *Engine {
	return &Engine{
		store:  st,
		notify: notify,
		log:    log,
		now:    time.Now,
	}
}

// StartParams carries the validated-at-the-edge inputs of a new giveaway.
// Permission checks happen in the command handler; value validation
// happens here.
type StartParams struct {
	GuildID   string
	ChannelID string
	HostID    string
	Prize     string
	Duration  string
	Winners   int
}

// Start posts the public entry message and persists the backing record.
// The message goes out first because its id keys the record; if the
// insert then fails the message is best-effort deleted so no orphaned
// message survives without a record.
func (e *Engine) Start(ctx context.Context, p StartParams) (*Giveaway, error) {
	if p.Winners < minWinners || p.Winners > maxWinners {
		return nil, apperr.Validationf("Winner count must be between %d and %d!", minWinners, maxWinners)
	}
	d, err := duration.Parse(p.Duration)
	if err != nil {
		return nil, apperr.Validation("Invalid duration format! Use: 30s, 5m, 2h, 3d, 1w")
	}
	if d < minDuration {
		return nil, apperr.Validation("Giveaway duration must be at least 1 minute!")
	}
	if d > maxDuration {
		return nil, apperr.Validation("Giveaway duration cannot exceed 28 days!")
	}

	now := e.now()
	g := &Giveaway{
		GuildID:     p.GuildID,
		ChannelID:   p.ChannelID,
		HostID:      p.HostID,
		Prize:       p.Prize,
		WinnerCount: p.Winners,
		StartTime:   now.Unix(),
		EndTime:     now.Add(d).Unix(),
		Entries:     []string{},
		Status:      StatusActive,
	}

	messageID, err := e.notify.Send(p.ChannelID, activeEmbed(g, 0), enterButton())
	if err != nil {
		return nil, apperr.External(err, "could not post the giveaway message")
	}
	g.MessageID = messageID

	doc, err := store.Encode(g)
	if err == nil {
		err = e.store.InsertOne(ctx, store.ColGiveaways, doc)
	}
	if err != nil {
		if derr := e.notify.Delete(p.ChannelID, messageID); derr != nil {
			e.log.Warn().Err(derr).Str("message", messageID).Msg("orphaned giveaway message cleanup failed")
		}
		return nil, apperr.External(err, "could not save the giveaway")
	}
	return g, nil
}

// Enter adds participantID to the giveaway's entries. The wall-clock
// check against EndTime is authoritative and runs regardless of status,
// closing the window between expiry and the next sweep. Returns false
// when the participant was already entered.
func (e *Engine) Enter(ctx context.Context, guildID, messageID, participantID string) (bool, int, error) {
	g, err := findGiveaway(ctx, e.store, guildID, messageID)
	if errors.Is(err, store.ErrNoDocument) {
		return false, 0, apperr.State("This giveaway is no longer active!")
	}
	if err != nil {
		return false, 0, apperr.External(err, "could not look up the giveaway")
	}

	if e.now().Unix() >= g.EndTime {
		return false, 0, apperr.State("This giveaway has already ended!")
	}
	if g.Status != StatusActive {
		return false, 0, apperr.State("This giveaway is no longer active!")
	}

	for _, id := range g.Entries {
		if id == participantID {
			return false, len(g.Entries), nil
		}
	}

	_, err = e.store.UpdateOne(ctx, store.ColGiveaways,
		store.Doc{"guildId": guildID, "messageId": messageID},
		store.Doc{"$addToSet": store.Doc{"entries": participantID}},
		false,
	)
	if err != nil {
		return false, 0, apperr.External(err, "could not record your entry")
	}

	count := len(g.Entries) + 1
	g.Entries = append(g.Entries, participantID)
	if err := e.notify.Edit(g.ChannelID, g.MessageID, activeEmbed(g, count), enterButton()); err != nil {
		e.log.Debug().Err(err).Str("message", messageID).Msg("entry counter refresh failed")
	}
	return true, count, nil
}

// Sweep concludes every active giveaway whose end time has passed. Run on
// a fixed period from the module's background loop.
func (e *Engine) Sweep(ctx context.Context) {
	docs, err := e.store.FindMany(ctx, store.ColGiveaways, store.Doc{
		"status":  StatusActive,
		"endTime": store.Doc{"$lte": e.now().Unix()},
	}, nil)
	if err != nil {
		e.log.Error().Err(err).Msg("giveaway sweep query failed")
		return
	}

	for _, doc := range docs {
		var g Giveaway
		if err := store.Decode(doc, &g); err != nil {
			e.log.Error().Err(err).Msg("giveaway sweep decode failed")
			continue
		}
		if err := e.conclude(ctx, g.GuildID, g.MessageID); err != nil {
			e.log.Error().Err(err).Str("message", g.MessageID).Msg("giveaway conclusion failed")
		}
	}
}

// EndEarly concludes the giveaway now, regardless of its end time. The
// caller's permission check happens in the command handler.
func (e *Engine) EndEarly(ctx context.Context, guildID, messageID string) error {
	g, err := findGiveaway(ctx, e.store, guildID, messageID)
	if errors.Is(err, store.ErrNoDocument) {
		return apperr.NotFound("No active giveaway found with that message ID!")
	}
	if err != nil {
		return apperr.External(err, "could not look up the giveaway")
	}
	if g.Status != StatusActive {
		return apperr.State("That giveaway has already ended!")
	}
	return e.conclude(ctx, guildID, messageID)
}

// conclude transitions a giveaway to ended exactly once: it re-reads the
// record and aborts silently when another path got there first, so the
// sweep and a manual end racing each other never draw winners twice.
func (e *Engine) conclude(ctx context.Context, guildID, messageID string) error {
	g, err := findGiveaway(ctx, e.store, guildID, messageID)
	if errors.Is(err, store.ErrNoDocument) {
		return nil
	}
	if err != nil {
		return apperr.External(err, "could not look up the giveaway")
	}
	if g.Status != StatusActive {
		return nil
	}

	winners := drawWinners(g.Entries, g.WinnerCount)

	update := store.Doc{
		"status":  StatusEnded,
		"endedAt": e.now().Unix(),
	}
	if len(winners) > 0 {
		update["winners"] = winners
	}
	// Compare-and-set on status: with the sweep and a manual end racing,
	// only the write that flips active→ended announces and DMs.
	modified, err := e.store.UpdateOne(ctx, store.ColGiveaways,
		store.Doc{"guildId": guildID, "messageId": messageID, "status": StatusActive},
		store.Doc{"$set": update},
		false,
	)
	if err != nil {
		return apperr.External(err, "could not mark the giveaway as ended")
	}
	if modified == 0 {
		return nil
	}
	g.Status = StatusEnded
	g.Winners = winners

	// The public message may have been deleted; the giveaway is ended
	// either way.
	if err := e.notify.Edit(g.ChannelID, g.MessageID, endedEmbed(g, winners), []discordgo.MessageComponent{}); err != nil {
		e.log.Warn().Err(err).Str("message", messageID).Msg("giveaway message edit failed")
	}

	for _, winnerID := range winners {
		if err := e.notify.SendDirect(winnerID, congratsEmbed(g)); err != nil {
			e.log.Debug().Err(err).Str("user", winnerID).Msg("winner DM failed")
		}
	}
	return nil
}

// Reroll replaces the stored winners of an ended giveaway with a fresh
// uniform sample. Announcement is public only; no DMs go out.
func (e *Engine) Reroll(ctx context.Context, guildID, messageID string) (*Giveaway, []string, error) {
	g, err := findGiveaway(ctx, e.store, guildID, messageID)
	if errors.Is(err, store.ErrNoDocument) {
		return nil, nil, apperr.NotFound("No ended giveaway found with that message ID!")
	}
	if err != nil {
		return nil, nil, apperr.External(err, "could not look up the giveaway")
	}
	if g.Status != StatusEnded {
		return nil, nil, apperr.State("That giveaway has not ended yet!")
	}
	if len(g.Entries) == 0 {
		return nil, nil, apperr.State("Cannot reroll - no entries in this giveaway!")
	}

	winners := drawWinners(g.Entries, g.WinnerCount)
	_, err = e.store.UpdateOne(ctx, store.ColGiveaways,
		store.Doc{"guildId": guildID, "messageId": messageID},
		store.Doc{"$set": store.Doc{"winners": winners, "rerolled": true}},
		false,
	)
	if err != nil {
		return nil, nil, apperr.External(err, "could not save the new winners")
	}
	return g, winners, nil
}

// drawWinners samples min(count, len(entries)) distinct entries uniformly
// without replacement.
func drawWinners(entries []string, count int) []string {
	if len(entries) == 0 {
		return nil
	}
	if count > len(entries) {
		count = len(entries)
	}
	winners := make([]string, 0, count)
	for _, idx := range rand.Perm(len(entries))[:count] {
		winners = append(winners, entries[idx])
	}
	return winners
}
