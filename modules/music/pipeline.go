package music

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os/exec"
	"time"
)

const (
	sampleRate    = 48000
	audioChannels = 2
	frameDuration = 20 * time.Millisecond
)

// pipeline transcodes one stream URL into Opus packets ready for the
// voice connection. ffmpeg handles the network fetch and encode and
// writes an Ogg/Opus container to stdout; the parser below walks the
// Ogg pages and hands out the raw packets discordgo expects.
type pipeline struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	r      *bufio.Reader

	pending [][]byte
	partial []byte
	skipped int
}

// newPipeline starts ffmpeg against streamURL with the given gain,
// seeking to offset first so a volume change can resume mid-track.
func newPipeline(ctx context.Context, streamURL string, volume float64, offset time.Duration) (*pipeline, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
	}
	if offset > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", offset.Seconds()))
	}
	args = append(args,
		"-i", streamURL,
		"-vn",
		"-af", fmt.Sprintf("volume=%.2f", volume),
		"-c:a", "libopus",
		"-b:a", "128k",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", fmt.Sprintf("%d", audioChannels),
		"-f", "ogg",
		"pipe:1",
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &pipeline{
		cmd:    cmd,
		stdout: stdout,
		r:      bufio.NewReaderSize(stdout, 64<<10),
	}, nil
}

// NextPacket returns the next Opus packet, io.EOF when the stream ends.
// The OpusHead and OpusTags header packets are consumed internally.
func (p *pipeline) NextPacket() ([]byte, error) {
	for {
		for len(p.pending) > 0 {
			pkt := p.pending[0]
			p.pending = p.pending[1:]
			if p.skipped < 2 && (bytes.HasPrefix(pkt, []byte("OpusHead")) || bytes.HasPrefix(pkt, []byte("OpusTags"))) {
				p.skipped++
				continue
			}
			return pkt, nil
		}
		if err := p.readPage(); err != nil {
			return nil, err
		}
	}
}

// readPage consumes one Ogg page and appends its completed packets to
// pending. A 255-byte segment continues the packet into the next
// segment (possibly on the next page).
func (p *pipeline) readPage() error {
	var header [27]byte
	if _, err := io.ReadFull(p.r, header[:]); err != nil {
		return err
	}
	if !bytes.Equal(header[:4], []byte("OggS")) {
		return fmt.Errorf("ogg: bad capture pattern %q", header[:4])
	}
	_ = binary.LittleEndian.Uint64(header[6:14]) // granule position, unused

	nsegs := int(header[26])
	segments := make([]byte, nsegs)
	if _, err := io.ReadFull(p.r, segments); err != nil {
		return err
	}

	for _, size := range segments {
		buf := make([]byte, int(size))
		if _, err := io.ReadFull(p.r, buf); err != nil {
			return err
		}
		p.partial = append(p.partial, buf...)
		if size < 255 {
			p.pending = append(p.pending, p.partial)
			p.partial = nil
		}
	}
	return nil
}

func (p *pipeline) Close() error {
	_ = p.stdout.Close()
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	return p.cmd.Wait()
}
