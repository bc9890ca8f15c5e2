package music

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

type playerSignal int

const (
	sigSkip playerSignal = iota
	sigVolume
)

// maxStreamFailures bounds consecutive attempts that deliver no audio
// before the track is dropped. Without it a dead stream under loop mode
// song would respawn ffmpeg in a tight loop forever.
const maxStreamFailures = 2

// packetSource yields encoded Opus packets for one stream attempt.
type packetSource interface {
	NextPacket() ([]byte, error)
	Close() error
}

// guildPlayer drives one session's playback: a goroutine pulls packets
// from the pipeline and feeds the voice connection, reacting to
// skip/volume signals between frames. discordgo paces the Opus frames;
// the loop just keeps the send channel fed. Stopping goes through the
// player's own context: once the voice connection disconnects nothing
// drains OpusSend, so cancellation is the only exit that cannot be
// missed — it also kills the ffmpeg child started under this context.
type guildPlayer struct {
	session  *Session
	vc       *discordgo.VoiceConnection
	log      zerolog.Logger
	announce func(t *Track)

	// openStream defaults to the ffmpeg pipeline; tests substitute it.
	openStream func(ctx context.Context, streamURL string, volume float64, offset time.Duration) (packetSource, error)

	ctx    context.Context
	cancel context.CancelFunc
	ctrl   chan playerSignal
	done   chan struct{}
}

func newGuildPlayer(ctx context.Context, session *Session, vc *discordgo.VoiceConnection, log zerolog.Logger, announce func(t *Track)) *guildPlayer {
	ctx, cancel := context.WithCancel(ctx)
	return &guildPlayer{
		session:  session,
		vc:       vc,
		log:      log,
		announce: announce,
		openStream: func(ctx context.Context, streamURL string, volume float64, offset time.Duration) (packetSource, error) {
			return newPipeline(ctx, streamURL, volume, offset)
		},
		ctx:    ctx,
		cancel: cancel,
		ctrl:   make(chan playerSignal, 4),
		done:   make(chan struct{}),
	}
}

func (p *guildPlayer) signal(sig playerSignal) {
	select {
	case p.ctrl <- sig:
	default:
	}
}

func (p *guildPlayer) Skip()        { p.signal(sigSkip) }
func (p *guildPlayer) ApplyVolume() { p.signal(sigVolume) }

// Shutdown cancels the playback context and with it any in-flight
// pipeline. Safe to call more than once; callers that need the
// goroutine gone wait on Done.
func (p *guildPlayer) Shutdown()             { p.cancel() }
func (p *guildPlayer) Done() <-chan struct{} { return p.done }

// run plays the current track, advances, and exits when the queue runs
// dry or the player shuts down. The caller owns the voice connection
// teardown on stop; on natural exhaustion the session is left Idle and
// connected.
func (p *guildPlayer) run() {
	defer close(p.done)
	defer p.cancel()

	first := true
	failures := 0
	for {
		t := p.session.Current()
		if t == nil {
			return
		}
		if !first && p.announce != nil {
			p.announce(t)
		}
		first = false

		stopped, delivered := p.playTrack(t)
		if stopped {
			return
		}
		if delivered {
			failures = 0
		} else {
			failures++
		}

		var next *Track
		if failures >= maxStreamFailures {
			p.log.Warn().Str("track", t.Title).Msg("stream keeps failing, dropping track")
			next = p.session.Drop()
			failures = 0
		} else {
			next = p.session.Advance()
		}
		if next == nil {
			return
		}
	}
}

// playTrack streams one track to completion, restarting the pipeline at
// the elapsed position whenever the volume changes. Returns whether
// playback should stop entirely and whether any audio reached the voice
// connection.
func (p *guildPlayer) playTrack(t *Track) (stopped, delivered bool) {
	offset := time.Duration(0)
	for {
		restart, stop, sent := p.stream(t, &offset)
		delivered = delivered || sent
		if stop {
			return true, delivered
		}
		if !restart {
			return false, delivered
		}
	}
}

func (p *guildPlayer) stream(t *Track, offset *time.Duration) (restart, stop, delivered bool) {
	src, err := p.openStream(p.ctx, t.StreamURL, p.session.Volume(), *offset)
	if err != nil {
		p.log.Error().Err(err).Str("track", t.Title).Msg("pipeline start failed")
		return false, false, false
	}
	defer func() { _ = src.Close() }()

	if err := p.vc.Speaking(true); err != nil {
		p.log.Debug().Err(err).Msg("speaking toggle failed")
	}
	defer func() { _ = p.vc.Speaking(false) }()

	frames := int64(*offset / frameDuration)
	start := frames
	for {
		select {
		case <-p.ctx.Done():
			return false, true, frames > start
		case sig := <-p.ctrl:
			switch sig {
			case sigSkip:
				return false, false, frames > start
			case sigVolume:
				*offset = time.Duration(frames) * frameDuration
				return true, false, frames > start
			}
		default:
		}

		if p.session.State() == StatePaused {
			time.Sleep(50 * time.Millisecond)
			continue
		}

		pkt, err := src.NextPacket()
		if err != nil {
			return false, false, frames > start
		}

		select {
		case p.vc.OpusSend <- pkt:
			frames++
		case <-p.ctx.Done():
			return false, true, frames > start
		}
	}
}
