package fun

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateThingSpecialCases(t *testing.T) {
	for range 50 {
		assert.Equal(t, 10, rateThing("Nova"))
		assert.Equal(t, 10, rateThing("I love nova so much"))

		for _, favorite := range []string{"pizza", "my cat", "a good dog", "loud music"} {
			r := rateThing(favorite)
			assert.GreaterOrEqual(t, r, 8, "thing %q", favorite)
			assert.LessOrEqual(t, r, 10, "thing %q", favorite)
		}

		r := rateThing("mondays")
		assert.GreaterOrEqual(t, r, 1)
		assert.LessOrEqual(t, r, 10)
	}
}

func TestVerdictBuckets(t *testing.T) {
	assert.Equal(t, "Absolutely amazing! 🤩", verdictFor(10))
	assert.Equal(t, "Pretty great! 😊", verdictFor(7))
	assert.Equal(t, "Not bad! 👍", verdictFor(5))
	assert.Equal(t, "Could be better... 🤔", verdictFor(3))
	assert.Equal(t, "Oof, that's rough! 😅", verdictFor(1))
}

func TestCannedDataSizes(t *testing.T) {
	assert.Len(t, eightBallAnswers, 19)
	assert.Len(t, jokes, 10)
	assert.Len(t, compliments, 15)
}
