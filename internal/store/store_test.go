package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFindOneMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.FindOne(context.Background(), ColTags, Doc{"guildId": "g1"})
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestUpsertCreatesFromFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.UpdateOne(ctx, ColEconomy,
		Doc{"guildId": "g1", "userId": "u1"},
		Doc{"$inc": Doc{"balance": 500}},
		true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	doc, err := s.FindOne(ctx, ColEconomy, Doc{"guildId": "g1", "userId": "u1"})
	require.NoError(t, err)
	assert.Equal(t, "g1", doc["guildId"])
	assert.EqualValues(t, 500, doc["balance"])
}

func TestFindOneAndUpdateIncrementAndFetch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	filter := Doc{"guildId": "g1", "userId": "u1"}

	doc, err := s.FindOneAndUpdate(ctx, ColEconomy, filter, Doc{"$inc": Doc{"balance": 100}}, true)
	require.NoError(t, err)
	assert.EqualValues(t, 100, doc["balance"])

	doc, err = s.FindOneAndUpdate(ctx, ColEconomy, filter, Doc{"$inc": Doc{"balance": -30}}, true)
	require.NoError(t, err)
	assert.EqualValues(t, 70, doc["balance"])
}

func TestFindOneAndUpdateMissingWithoutUpsert(t *testing.T) {
	s := newTestStore(t)

	_, err := s.FindOneAndUpdate(context.Background(), ColEconomy,
		Doc{"userId": "nobody"}, Doc{"$inc": Doc{"balance": 1}}, false)
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestAddToSetDeduplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertOne(ctx, ColGiveaways, Doc{"messageId": "m1", "entries": []any{}}))

	for i := 0; i < 3; i++ {
		_, err := s.UpdateOne(ctx, ColGiveaways,
			Doc{"messageId": "m1"},
			Doc{"$addToSet": Doc{"entries": "u1"}},
			false)
		require.NoError(t, err)
	}
	_, err := s.UpdateOne(ctx, ColGiveaways,
		Doc{"messageId": "m1"},
		Doc{"$addToSet": Doc{"entries": "u2"}},
		false)
	require.NoError(t, err)

	doc, err := s.FindOne(ctx, ColGiveaways, Doc{"messageId": "m1"})
	require.NoError(t, err)
	assert.Equal(t, []any{"u1", "u2"}, doc["entries"])
}

func TestComparisonFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertOne(ctx, ColGiveaways, Doc{"messageId": "m1", "status": "active", "endTime": 100}))
	require.NoError(t, s.InsertOne(ctx, ColGiveaways, Doc{"messageId": "m2", "status": "active", "endTime": 200}))
	require.NoError(t, s.InsertOne(ctx, ColGiveaways, Doc{"messageId": "m3", "status": "ended", "endTime": 50}))

	due, err := s.FindMany(ctx, ColGiveaways,
		Doc{"status": "active", "endTime": Doc{"$lte": 150}}, nil)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "m1", due[0]["messageId"])
}

func TestConditionalUpdateMissesChangedStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertOne(ctx, ColGiveaways, Doc{"messageId": "m1", "status": "ended"}))

	n, err := s.UpdateOne(ctx, ColGiveaways,
		Doc{"messageId": "m1", "status": "active"},
		Doc{"$set": Doc{"status": "ended"}},
		false)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFindManySortAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, bal := range []int{50, 300, 100, 200} {
		require.NoError(t, s.InsertOne(ctx, ColEconomy, Doc{"userId": string(rune('a' + i)), "balance": bal}))
	}

	top, err := s.FindMany(ctx, ColEconomy, Doc{}, &FindOptions{SortField: "balance", SortDesc: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.EqualValues(t, 300, top[0]["balance"])
	assert.EqualValues(t, 200, top[1]["balance"])
}

func TestPullRemovesValue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertOne(ctx, ColAutoroles, Doc{"guildId": "g1", "roleIds": []any{"r1", "r2", "r1"}}))

	_, err := s.UpdateOne(ctx, ColAutoroles,
		Doc{"guildId": "g1"},
		Doc{"$pull": Doc{"roleIds": "r1"}},
		false)
	require.NoError(t, err)

	doc, err := s.FindOne(ctx, ColAutoroles, Doc{"guildId": "g1"})
	require.NoError(t, err)
	assert.Equal(t, []any{"r2"}, doc["roleIds"])
}

func TestDeleteManyCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertOne(ctx, ColLeveling, Doc{"guildId": "g1", "userId": "u1", "xp": 10}))
	require.NoError(t, s.InsertOne(ctx, ColLeveling, Doc{"guildId": "g1", "userId": "u2", "xp": 20}))
	require.NoError(t, s.InsertOne(ctx, ColLeveling, Doc{"guildId": "g2", "userId": "u3", "xp": 30}))

	n, err := s.DeleteMany(ctx, ColLeveling, Doc{"guildId": "g1"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := s.CountDocuments(ctx, ColLeveling, Doc{})
	require.NoError(t, err)
	assert.Equal(t, 1, left)
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	type record struct {
		GuildID string `json:"guildId"`
		XP      int64  `json:"xp"`
	}

	doc, err := Encode(record{GuildID: "g1", XP: 250})
	require.NoError(t, err)
	assert.EqualValues(t, 250, doc["xp"])

	var out record
	require.NoError(t, Decode(doc, &out))
	assert.Equal(t, record{GuildID: "g1", XP: 250}, out)
}
