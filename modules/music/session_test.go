package music

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novabot/nova/internal/apperr"
)

func track(title string) *Track {
	return &Track{Title: title, RequesterID: "u1"}
}

func TestEnqueuePositions(t *testing.T) {
	s := NewSession("g1", "vc1")

	assert.Equal(t, 0, s.Enqueue(track("A")))
	assert.Equal(t, StatePlaying, s.State())
	assert.Equal(t, "A", s.Current().Title)

	assert.Equal(t, 1, s.Enqueue(track("B")))
	assert.Equal(t, 2, s.Enqueue(track("C")))
	assert.Len(t, s.Queue(), 2)
}

func TestAdvanceLoopOff(t *testing.T) {
	s := NewSession("g1", "vc1")
	s.Enqueue(track("A"))
	s.Enqueue(track("B"))

	next := s.Advance()
	require.NotNil(t, next)
	assert.Equal(t, "B", next.Title)
	assert.Empty(t, s.Queue())

	assert.Nil(t, s.Advance())
	assert.Nil(t, s.Current())
	assert.Equal(t, StateIdle, s.State())
}

func TestAdvanceLoopSongReplaysCurrent(t *testing.T) {
	s := NewSession("g1", "vc1")
	s.Enqueue(track("A"))
	s.Enqueue(track("B"))
	s.SetLoop(LoopSong)

	for range 3 {
		next := s.Advance()
		require.NotNil(t, next)
		assert.Equal(t, "A", next.Title)
	}
	// queue untouched while looping one song
	require.Len(t, s.Queue(), 1)
	assert.Equal(t, "B", s.Queue()[0].Title)
}

func TestDropIgnoresLoopMode(t *testing.T) {
	s := NewSession("g1", "vc1")
	s.Enqueue(track("A"))
	s.Enqueue(track("B"))
	s.SetLoop(LoopSong)

	next := s.Drop()
	require.NotNil(t, next)
	assert.Equal(t, "B", next.Title)
	assert.Empty(t, s.Queue())

	assert.Nil(t, s.Drop())
	assert.Equal(t, StateIdle, s.State())
	assert.Nil(t, s.Current())
}

func TestAdvanceLoopQueueRotates(t *testing.T) {
	s := NewSession("g1", "vc1")
	s.Enqueue(track("T"))
	s.Enqueue(track("A"))
	s.Enqueue(track("B"))
	s.SetLoop(LoopQueue)

	next := s.Advance()
	require.NotNil(t, next)
	assert.Equal(t, "A", next.Title)
	require.Len(t, s.Queue(), 2)
	assert.Equal(t, "B", s.Queue()[0].Title)
	assert.Equal(t, "T", s.Queue()[1].Title)

	next = s.Advance()
	require.NotNil(t, next)
	assert.Equal(t, "B", next.Title)
	require.Len(t, s.Queue(), 2)
	assert.Equal(t, "T", s.Queue()[0].Title)
	assert.Equal(t, "A", s.Queue()[1].Title)
}

func TestVoteSkipThreshold(t *testing.T) {
	assert.Equal(t, 1, SkipThreshold(1))
	assert.Equal(t, 2, SkipThreshold(2))
	assert.Equal(t, 3, SkipThreshold(4))
	assert.Equal(t, 3, SkipThreshold(5))

	s := NewSession("g1", "vc1")
	s.Enqueue(track("A"))

	// 5 humans need 3 votes
	skipped, votes, needed := s.VoteSkip("u1", 5, false)
	assert.False(t, skipped)
	assert.Equal(t, 1, votes)
	assert.Equal(t, 3, needed)

	skipped, _, _ = s.VoteSkip("u2", 5, false)
	assert.False(t, skipped)

	// double-voting does not count twice
	skipped, votes, _ = s.VoteSkip("u2", 5, false)
	assert.False(t, skipped)
	assert.Equal(t, 2, votes)

	skipped, votes, _ = s.VoteSkip("u3", 5, false)
	assert.True(t, skipped)
	assert.Equal(t, 3, votes)
}

func TestVoteSkipSoleListenerAndPrivileged(t *testing.T) {
	s := NewSession("g1", "vc1")
	s.Enqueue(track("A"))

	skipped, _, _ := s.VoteSkip("u1", 1, false)
	assert.True(t, skipped)

	skipped, _, _ = s.VoteSkip("mod", 10, true)
	assert.True(t, skipped)
}

func TestAdvanceClearsSkipVotes(t *testing.T) {
	s := NewSession("g1", "vc1")
	s.Enqueue(track("A"))
	s.Enqueue(track("B"))

	s.VoteSkip("u1", 5, false)
	s.VoteSkip("u2", 5, false)
	s.Advance()

	// votes from the previous track must not carry over
	skipped, votes, _ := s.VoteSkip("u3", 5, false)
	assert.False(t, skipped)
	assert.Equal(t, 1, votes)
}

func TestPauseResumeStateGuards(t *testing.T) {
	s := NewSession("g1", "vc1")

	err := s.Pause()
	assert.True(t, apperr.IsState(err))
	err = s.Resume()
	assert.True(t, apperr.IsState(err))

	s.Enqueue(track("A"))
	require.NoError(t, s.Pause())
	assert.Equal(t, StatePaused, s.State())

	err = s.Pause()
	assert.True(t, apperr.IsState(err))

	require.NoError(t, s.Resume())
	assert.Equal(t, StatePlaying, s.State())
}

func TestSetVolume(t *testing.T) {
	s := NewSession("g1", "vc1")
	assert.InDelta(t, 0.5, s.Volume(), 1e-9)

	require.NoError(t, s.SetVolume(75))
	assert.InDelta(t, 0.75, s.Volume(), 1e-9)
	assert.Equal(t, 75, s.VolumePercent())

	assert.True(t, apperr.IsValidation(s.SetVolume(150)))
	assert.True(t, apperr.IsValidation(s.SetVolume(-1)))
	assert.InDelta(t, 0.75, s.Volume(), 1e-9)
}

func TestParseLoopMode(t *testing.T) {
	for in, want := range map[string]LoopMode{"off": LoopOff, "song": LoopSong, "queue": LoopQueue} {
		got, err := ParseLoopMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseLoopMode("forever")
	assert.True(t, apperr.IsValidation(err))
}

func TestClearResetsEverything(t *testing.T) {
	s := NewSession("g1", "vc1")
	s.Enqueue(track("A"))
	s.Enqueue(track("B"))
	s.VoteSkip("u1", 5, false)

	s.Clear()
	assert.Nil(t, s.Current())
	assert.Empty(t, s.Queue())
	assert.Equal(t, StateIdle, s.State())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "3:05", formatDuration(185e9))
	assert.Equal(t, "0:42", formatDuration(42e9))
	assert.Equal(t, "1:01:01", formatDuration(3661e9))
}
