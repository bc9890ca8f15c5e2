package music

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource yields a fixed number of packets; negative means unlimited.
type fakeSource struct {
	packets int
}

func (f *fakeSource) NextPacket() ([]byte, error) {
	if f.packets == 0 {
		return nil, io.EOF
	}
	if f.packets > 0 {
		f.packets--
	}
	return []byte{0xF8, 0xFF, 0xFE}, nil
}

func (f *fakeSource) Close() error { return nil }

func waitDone(t *testing.T, p *guildPlayer) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("player goroutine did not exit")
	}
}

func TestShutdownUnblocksUndrainedSend(t *testing.T) {
	session := NewSession("g1", "vc1")
	session.Enqueue(&Track{Title: "a", StreamURL: "u"})

	// Nobody reads OpusSend, like a disconnected voice connection: the
	// player ends up blocked on the send and must still exit on
	// shutdown.
	vc := &discordgo.VoiceConnection{OpusSend: make(chan []byte)}
	p := newGuildPlayer(context.Background(), session, vc, zerolog.Nop(), nil)
	p.openStream = func(context.Context, string, float64, time.Duration) (packetSource, error) {
		return &fakeSource{packets: -1}, nil
	}
	go p.run()

	time.Sleep(20 * time.Millisecond)
	p.Shutdown()
	waitDone(t, p)
}

func TestRunPlaysQueueToCompletion(t *testing.T) {
	session := NewSession("g1", "vc1")
	session.Enqueue(&Track{Title: "a", StreamURL: "u"})
	session.Enqueue(&Track{Title: "b", StreamURL: "u"})

	opus := make(chan []byte)
	drained := make(chan int)
	go func() {
		n := 0
		for range opus {
			n++
		}
		drained <- n
	}()

	announced := make(chan string, 4)
	vc := &discordgo.VoiceConnection{OpusSend: opus}
	p := newGuildPlayer(context.Background(), session, vc, zerolog.Nop(), func(t *Track) { announced <- t.Title })
	p.openStream = func(context.Context, string, float64, time.Duration) (packetSource, error) {
		return &fakeSource{packets: 3}, nil
	}
	go p.run()

	waitDone(t, p)
	close(opus)

	assert.Equal(t, 6, <-drained)
	assert.Equal(t, "b", <-announced)
	assert.Nil(t, session.Current())
	assert.Equal(t, StateIdle, session.State())
}

func TestDeadStreamUnderLoopSongDropsTrack(t *testing.T) {
	session := NewSession("g1", "vc1")
	session.Enqueue(&Track{Title: "a", StreamURL: "u"})
	session.SetLoop(LoopSong)

	vc := &discordgo.VoiceConnection{OpusSend: make(chan []byte, 16)}
	p := newGuildPlayer(context.Background(), session, vc, zerolog.Nop(), nil)
	attempts := 0
	p.openStream = func(context.Context, string, float64, time.Duration) (packetSource, error) {
		attempts++
		return nil, errors.New("stream gone")
	}
	go p.run()

	// Loop song replays the same track forever; the failure cap must
	// drop it instead of respawning the pipeline indefinitely.
	waitDone(t, p)
	assert.LessOrEqual(t, attempts, maxStreamFailures)
	assert.Nil(t, session.Current())
	assert.Equal(t, StateIdle, session.State())
}

func TestDeadStreamFallsThroughToNextTrack(t *testing.T) {
	session := NewSession("g1", "vc1")
	session.Enqueue(&Track{Title: "broken", StreamURL: "bad"})
	session.Enqueue(&Track{Title: "fine", StreamURL: "good"})
	session.SetLoop(LoopSong)

	opus := make(chan []byte)
	go func() {
		for range opus {
		}
	}()

	urls := make(chan string, 16)
	vc := &discordgo.VoiceConnection{OpusSend: opus}
	p := newGuildPlayer(context.Background(), session, vc, zerolog.Nop(), nil)
	p.openStream = func(_ context.Context, url string, _ float64, _ time.Duration) (packetSource, error) {
		select {
		case urls <- url:
		default:
		}
		if url == "bad" {
			return nil, errors.New("stream gone")
		}
		return &fakeSource{packets: 2}, nil
	}
	go p.run()

	// Dropping the broken track must reach the queued one, not replay
	// the failure under loop song.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case url := <-urls:
			if url != "good" {
				continue
			}
			p.Shutdown()
			waitDone(t, p)
			cur := session.Current()
			require.NotNil(t, cur)
			assert.Equal(t, "fine", cur.Title)
			return
		case <-deadline:
			t.Fatal("player never reached the queued track")
		}
	}
}
