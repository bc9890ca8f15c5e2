package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesMixedNumericTypes(t *testing.T) {
	// Decoded documents hold float64; filters are written with Go ints.
	doc := Doc{"endTime": float64(300), "winnerCount": float64(3)}

	assert.True(t, matches(doc, Doc{"endTime": 300}))
	assert.True(t, matches(doc, Doc{"endTime": Doc{"$lte": int64(300)}}))
	assert.False(t, matches(doc, Doc{"endTime": Doc{"$lt": 300}}))
	assert.True(t, matches(doc, Doc{"winnerCount": Doc{"$gte": 1, "$lte": 20}}))
}

func TestMatchesMissingField(t *testing.T) {
	doc := Doc{"status": "active"}

	assert.False(t, matches(doc, Doc{"winners": "u1"}))
	assert.False(t, matches(doc, Doc{"endTime": Doc{"$lte": 10}}))
	assert.True(t, matches(doc, Doc{"status": Doc{"$ne": "ended"}}))
}

func TestApplyUpdateUnknownOperator(t *testing.T) {
	doc := Doc{}
	err := applyUpdate(doc, Doc{"$rename": Doc{"a": "b"}})
	require.Error(t, err)
}

func TestSeedFromFilterSkipsOperators(t *testing.T) {
	seed := seedFromFilter(Doc{
		"guildId": "g1",
		"endTime": Doc{"$lte": 100},
	})
	assert.Equal(t, Doc{"guildId": "g1"}, seed)
}
