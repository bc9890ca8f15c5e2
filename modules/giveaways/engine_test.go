package giveaways

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novabot/nova/internal/apperr"
	"github.com/novabot/nova/internal/store"
)

type sentMessage struct {
	channelID  string
	messageID  string
	embed      *discordgo.MessageEmbed
	components []discordgo.MessageComponent
}

type fakeNotifier struct {
	mu       sync.Mutex
	nextID   int
	sends    []sentMessage
	edits    []sentMessage
	deletes  []string
	dms      map[string]int
	failSend bool
	failDM   bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{dms: map[string]int{}}
}

func (f *fakeNotifier) Send(channelID string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend {
		return "", errors.New("send refused")
	}
	f.nextID++
	id := fmt.Sprintf("msg-%d", f.nextID)
	f.sends = append(f.sends, sentMessage{channelID: channelID, messageID: id, embed: embed, components: components})
	return id, nil
}

func (f *fakeNotifier) Edit(channelID, messageID string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, sentMessage{channelID: channelID, messageID: messageID, embed: embed, components: components})
	return nil
}

func (f *fakeNotifier) Delete(channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, messageID)
	return nil
}

func (f *fakeNotifier) SendDirect(userID string, embed *discordgo.MessageEmbed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDM {
		return errors.New("dm refused")
	}
	f.dms[userID]++
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *fakeNotifier, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate())
	t.Cleanup(func() { _ = st.Close() })

	notify := newFakeNotifier()
	return NewEngine(st, notify, zerolog.Nop()), notify, st
}

func startGiveaway(t *testing.T, e *Engine, winners int, entries ...string) *Giveaway {
	t.Helper()
	g, err := e.Start(context.Background(), StartParams{
		GuildID:   "g1",
		ChannelID: "c1",
		HostID:    "host",
		Prize:     "Nitro",
		Duration:  "1m",
		Winners:   winners,
	})
	require.NoError(t, err)
	for _, id := range entries {
		entered, _, err := e.Enter(context.Background(), "g1", g.MessageID, id)
		require.NoError(t, err)
		require.True(t, entered)
	}
	return g
}

func TestStartValidation(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	cases := []StartParams{
		{GuildID: "g1", ChannelID: "c1", Prize: "x", Duration: "1h", Winners: 0},
		{GuildID: "g1", ChannelID: "c1", Prize: "x", Duration: "1h", Winners: 21},
		{GuildID: "g1", ChannelID: "c1", Prize: "x", Duration: "1h30m", Winners: 1},
		{GuildID: "g1", ChannelID: "c1", Prize: "x", Duration: "banana", Winners: 1},
		{GuildID: "g1", ChannelID: "c1", Prize: "x", Duration: "30s", Winners: 1},
		{GuildID: "g1", ChannelID: "c1", Prize: "x", Duration: "5w", Winners: 1},
	}
	for _, p := range cases {
		_, err := e.Start(ctx, p)
		assert.True(t, apperr.IsValidation(err), "params %+v: got %v", p, err)
	}
}

func TestStartFailedSendLeavesNoRecord(t *testing.T) {
	e, notify, st := newTestEngine(t)
	notify.failSend = true

	_, err := e.Start(context.Background(), StartParams{
		GuildID: "g1", ChannelID: "c1", Prize: "x", Duration: "1h", Winners: 1,
	})
	require.True(t, apperr.IsExternal(err))

	n, err := st.CountDocuments(context.Background(), store.ColGiveaways, store.Doc{"guildId": "g1"})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEnterIsIdempotent(t *testing.T) {
	e, _, _ := newTestEngine(t)
	g := startGiveaway(t, e, 1)
	ctx := context.Background()

	entered, count, err := e.Enter(ctx, "g1", g.MessageID, "alice")
	require.NoError(t, err)
	assert.True(t, entered)
	assert.Equal(t, 1, count)

	entered, count, err = e.Enter(ctx, "g1", g.MessageID, "alice")
	require.NoError(t, err)
	assert.False(t, entered)
	assert.Equal(t, 1, count)

	stored, err := findGiveaway(ctx, e.store, "g1", g.MessageID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, stored.Entries)
}

func TestEnterAfterEndTimeFailsBeforeSweep(t *testing.T) {
	e, _, _ := newTestEngine(t)
	g := startGiveaway(t, e, 1)

	// Past the deadline but the sweep has not run: status is still
	// active, the time check alone must reject the entry.
	e.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, _, err := e.Enter(context.Background(), "g1", g.MessageID, "bob")
	assert.True(t, apperr.IsState(err))

	stored, ferr := findGiveaway(context.Background(), e.store, "g1", g.MessageID)
	require.NoError(t, ferr)
	assert.Equal(t, StatusActive, stored.Status)
	assert.Empty(t, stored.Entries)
}

func TestEnterUnknownGiveaway(t *testing.T) {
	e, _, _ := newTestEngine(t)
	_, _, err := e.Enter(context.Background(), "g1", "nope", "alice")
	assert.True(t, apperr.IsState(err))
}

func TestConcludeDrawsDistinctWinnersFromEntries(t *testing.T) {
	e, notify, _ := newTestEngine(t)
	g := startGiveaway(t, e, 3, "a", "b", "c", "d", "e")

	require.NoError(t, e.conclude(context.Background(), "g1", g.MessageID))

	stored, err := findGiveaway(context.Background(), e.store, "g1", g.MessageID)
	require.NoError(t, err)
	assert.Equal(t, StatusEnded, stored.Status)
	assert.Len(t, stored.Winners, 3)

	seen := map[string]bool{}
	entries := map[string]bool{"a": true, "b": true, "c": true, "d": true, "e": true}
	for _, w := range stored.Winners {
		assert.False(t, seen[w], "duplicate winner %s", w)
		assert.True(t, entries[w], "winner %s not an entrant", w)
		seen[w] = true
	}

	// One DM per winner, best effort.
	assert.Len(t, notify.dms, 3)
}

func TestConcludeCapsWinnersAtEntryCount(t *testing.T) {
	e, _, _ := newTestEngine(t)
	g := startGiveaway(t, e, 10, "a", "b")

	require.NoError(t, e.conclude(context.Background(), "g1", g.MessageID))

	stored, err := findGiveaway(context.Background(), e.store, "g1", g.MessageID)
	require.NoError(t, err)
	assert.Len(t, stored.Winners, 2)
}

func TestConcludeIsIdempotent(t *testing.T) {
	e, notify, _ := newTestEngine(t)
	g := startGiveaway(t, e, 1, "a", "b")
	ctx := context.Background()

	require.NoError(t, e.conclude(ctx, "g1", g.MessageID))

	stored, err := findGiveaway(ctx, e.store, "g1", g.MessageID)
	require.NoError(t, err)
	firstWinners := stored.Winners
	editsAfterFirst := len(notify.edits)

	// Sweep racing a manual end lands here: the second conclude must
	// observe the ended status and do nothing.
	require.NoError(t, e.conclude(ctx, "g1", g.MessageID))

	stored, err = findGiveaway(ctx, e.store, "g1", g.MessageID)
	require.NoError(t, err)
	assert.Equal(t, firstWinners, stored.Winners)
	assert.Equal(t, editsAfterFirst, len(notify.edits))
}

func TestConcludeParallelAnnouncesOnce(t *testing.T) {
	e, notify, _ := newTestEngine(t)
	g := startGiveaway(t, e, 2, "a", "b", "c", "d")
	ctx := context.Background()

	// Sweep goroutine and /gend handler concluding at the same time:
	// the status compare-and-set lets exactly one of them win, so one
	// ended edit goes out and the stored winners match the DMed set.
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, e.conclude(ctx, "g1", g.MessageID))
		}()
	}
	wg.Wait()

	assert.Len(t, notify.edits, 1)

	stored, err := findGiveaway(ctx, e.store, "g1", g.MessageID)
	require.NoError(t, err)
	assert.Len(t, stored.Winners, 2)
	assert.Len(t, notify.dms, 2)
	for _, w := range stored.Winners {
		assert.Equal(t, 1, notify.dms[w], "winner %s", w)
	}
}

func TestSweepConcludesExpiredWithNoEntries(t *testing.T) {
	e, notify, _ := newTestEngine(t)
	g := startGiveaway(t, e, 1)

	e.now = func() time.Time { return time.Now().Add(61 * time.Second) }
	e.Sweep(context.Background())

	stored, err := findGiveaway(context.Background(), e.store, "g1", g.MessageID)
	require.NoError(t, err)
	assert.Equal(t, StatusEnded, stored.Status)
	assert.Empty(t, stored.Winners)
	assert.NotZero(t, stored.EndedAt)

	require.NotEmpty(t, notify.edits)
	last := notify.edits[len(notify.edits)-1]
	assert.Contains(t, last.embed.Description, "No valid entries")
	assert.Empty(t, last.components)
	assert.Empty(t, notify.dms)
}

func TestRerollReplacesWinners(t *testing.T) {
	e, notify, _ := newTestEngine(t)
	g := startGiveaway(t, e, 2, "a", "b", "c")
	ctx := context.Background()

	require.NoError(t, e.conclude(ctx, "g1", g.MessageID))
	dmsAfterConclude := len(notify.dms)

	_, winners, err := e.Reroll(ctx, "g1", g.MessageID)
	require.NoError(t, err)
	assert.Len(t, winners, 2)

	stored, err := findGiveaway(ctx, e.store, "g1", g.MessageID)
	require.NoError(t, err)
	assert.ElementsMatch(t, winners, stored.Winners)
	assert.True(t, stored.Rerolled)
	assert.Equal(t, StatusEnded, stored.Status)

	// Reroll announces publicly only.
	assert.Equal(t, dmsAfterConclude, len(notify.dms))
}

func TestRerollRequiresEndedWithEntries(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	active := startGiveaway(t, e, 1, "a")
	_, _, err := e.Reroll(ctx, "g1", active.MessageID)
	assert.True(t, apperr.IsState(err))

	empty := startGiveaway(t, e, 1)
	require.NoError(t, e.conclude(ctx, "g1", empty.MessageID))
	_, _, err = e.Reroll(ctx, "g1", empty.MessageID)
	assert.True(t, apperr.IsState(err))

	_, _, err = e.Reroll(ctx, "g1", "missing")
	assert.True(t, apperr.IsNotFound(err))
}

func TestEndEarlyUnknownGiveaway(t *testing.T) {
	e, _, _ := newTestEngine(t)
	err := e.EndEarly(context.Background(), "g1", "missing")
	assert.True(t, apperr.IsNotFound(err))
}
