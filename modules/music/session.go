// Package music implements per-guild playback sessions: a FIFO queue
// with three loop modes, vote skipping, live volume and an auto-leave
// timer for empty voice channels.
package music

import (
	"fmt"
	"sync"
	"time"

	"github.com/novabot/nova/internal/apperr"
)

// LoopMode controls what advance does when the current track ends.
type LoopMode int

const (
	LoopOff LoopMode = iota
	LoopSong
	LoopQueue
)

func (m LoopMode) String() string {
	switch m {
	case LoopSong:
		return "song"
	case LoopQueue:
		return "queue"
	default:
		return "off"
	}
}

func ParseLoopMode(s string) (LoopMode, error) {
	switch s {
	case "off":
		return LoopOff, nil
	case "song":
		return LoopSong, nil
	case "queue":
		return LoopQueue, nil
	}
	return LoopOff, apperr.Validation("Loop mode must be one of: off, song, queue")
}

// PlayState is the session's playback state. Disconnected sessions do
// not exist: the manager drops a session when its connection tears down.
type PlayState int

const (
	StateIdle PlayState = iota
	StatePlaying
	StatePaused
)

// Track is one queued request, fully resolved: StreamURL is the direct
// media locator the pipeline feeds to ffmpeg.
type Track struct {
	Title       string
	SourceURL   string
	StreamURL   string
	Duration    time.Duration
	RequesterID string
}

// Session is the per-guild queue state machine. Every method holds the
// mutex across its read-modify-write; gateway events for different
// guilds never share a session.
type Session struct {
	mu sync.Mutex

	guildID   string
	channelID string

	queue     []*Track
	current   *Track
	state     PlayState
	loop      LoopMode
	volume    float64
	skipVotes map[string]struct{}
}

const defaultVolume = 0.5

func NewSession(guildID, channelID string) *Session {
	return &Session{
		guildID:   guildID,
		channelID: channelID,
		volume:    defaultVolume,
		skipVotes: map[string]struct{}{},
	}
}

func (s *Session) GuildID() string { return s.guildID }

func (s *Session) ChannelID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channelID
}

// Enqueue adds a track. When nothing is current the track becomes
// current immediately and 0 is returned; otherwise the 1-based queue
// position.
func (s *Session) Enqueue(t *Track) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		s.current = t
		s.state = StatePlaying
		s.skipVotes = map[string]struct{}{}
		return 0
	}
	s.queue = append(s.queue, t)
	return len(s.queue)
}

// Advance picks the next current track when the previous one finished
// or was skipped:
//
//	loop song  — replay the current track, queue untouched
//	loop queue — rotate the current track to the back, pop the front
//	loop off   — pop the front
//
// Returns nil when the queue ran out; the session is then Idle with no
// current track. Selecting a new current clears the skip votes.
func (s *Session) Advance() *Track {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.loop == LoopSong && s.current != nil:
		// same track again, votes reset with the new playthrough
	case s.loop == LoopQueue && s.current != nil:
		s.queue = append(s.queue, s.current)
		s.current = s.queue[0]
		s.queue = s.queue[1:]
	default:
		if len(s.queue) == 0 {
			s.current = nil
			s.state = StateIdle
			return nil
		}
		s.current = s.queue[0]
		s.queue = s.queue[1:]
	}

	s.state = StatePlaying
	s.skipVotes = map[string]struct{}{}
	return s.current
}

// Drop discards the current track regardless of loop mode and pops the
// queue front as the new current. Used when a stream repeatedly fails
// and replaying it would fail again.
func (s *Session) Drop() *Track {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		s.current = nil
		s.state = StateIdle
		return nil
	}
	s.current = s.queue[0]
	s.queue = s.queue[1:]
	s.state = StatePlaying
	s.skipVotes = map[string]struct{}{}
	return s.current
}

// VoteSkip registers callerID's vote against the current track. humans
// is the non-bot member count of the voice channel; privileged forces
// the skip regardless of tally. A sole listener always skips.
func (s *Session) VoteSkip(callerID string, humans int, privileged bool) (skipped bool, votes, needed int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	needed = SkipThreshold(humans)
	if privileged || humans <= 1 {
		s.skipVotes = map[string]struct{}{}
		return true, needed, needed
	}

	s.skipVotes[callerID] = struct{}{}
	votes = len(s.skipVotes)
	if votes >= needed {
		s.skipVotes = map[string]struct{}{}
		return true, votes, needed
	}
	return false, votes, needed
}

// SkipThreshold is the strict majority of the channel's human listeners.
func SkipThreshold(humans int) int {
	if humans < 1 {
		humans = 1
	}
	return humans/2 + 1
}

func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying {
		return apperr.State("Nothing is playing right now!")
	}
	s.state = StatePaused
	return nil
}

func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return apperr.State("Playback is not paused!")
	}
	s.state = StatePlaying
	return nil
}

func (s *Session) SetLoop(mode LoopMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loop = mode
}

func (s *Session) Loop() LoopMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop
}

// SetVolume maps the user-facing 0-100 scale to the pipeline's [0,1]
// gain fraction.
func (s *Session) SetVolume(level int) error {
	if level < 0 || level > 100 {
		return apperr.Validation("Volume must be between 0 and 100!")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = float64(level) / 100
	return nil
}

func (s *Session) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *Session) VolumePercent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.volume*100 + 0.5)
}

func (s *Session) State() PlayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Current() *Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Queue returns a copy of the pending tracks, current excluded.
func (s *Session) Queue() []*Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Track, len(s.queue))
	copy(out, s.queue)
	return out
}

// Clear drops the queue and current track. The caller tears the voice
// connection down separately.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = nil
	s.current = nil
	s.state = StateIdle
	s.skipVotes = map[string]struct{}{}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	sec := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
