package music

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
	"github.com/rs/zerolog"

	"github.com/novabot/nova/internal/apperr"
)

const resolveTimeout = 30 * time.Second

// Resolver turns a user query into a playable Track. Plain text goes
// through the metadata search first (music catalog), then the generic
// video search; direct URLs skip straight to stream location. The
// stages are function fields so tests can stub the network out.
type Resolver struct {
	log zerolog.Logger

	searchMusic func(ctx context.Context, query string) (url string, err error)
	searchVideo func(ctx context.Context, query string) (url string, err error)
	locate      func(ctx context.Context, url string) (stream, title string, dur time.Duration, err error)
}

func NewResolver(log zerolog.Logger) *Resolver {
	return &Resolver{
		log:         log,
		searchMusic: searchMusicCatalog,
		searchVideo: searchVideos,
		locate:      locateStream,
	}
}

// Resolve finds the watch URL for the query, then asks yt-dlp for the
// direct audio stream behind it.
func (r *Resolver) Resolve(ctx context.Context, query, requesterID string) (*Track, error) {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	sourceURL := strings.TrimSpace(query)
	if !isURL(sourceURL) {
		url, err := r.searchMusic(ctx, query)
		if err != nil || url == "" {
			if err != nil {
				r.log.Debug().Err(err).Str("query", query).Msg("music catalog search failed")
			}
			url, err = r.searchVideo(ctx, query)
			if err != nil {
				r.log.Debug().Err(err).Str("query", query).Msg("video search failed")
			}
		}
		if url == "" {
			return nil, apperr.NotFoundf("No results found for **%s**!", query)
		}
		sourceURL = url
	}

	stream, title, dur, err := r.locate(ctx, sourceURL)
	if err != nil {
		return nil, apperr.External(err, "could not load the audio stream")
	}
	if stream == "" {
		return nil, apperr.NotFoundf("No playable audio found for **%s**!", query)
	}
	if title == "" {
		title = sourceURL
	}
	return &Track{
		Title:       title,
		SourceURL:   sourceURL,
		StreamURL:   stream,
		Duration:    dur,
		RequesterID: requesterID,
	}, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func searchMusicCatalog(_ context.Context, query string) (string, error) {
	result, err := ytmusic.TrackSearch(query).Next()
	if err != nil {
		return "", err
	}
	for _, t := range result.Tracks {
		if t.VideoID == "" {
			continue
		}
		return "https://music.youtube.com/watch?v=" + t.VideoID, nil
	}
	return "", nil
}

func searchVideos(ctx context.Context, query string) (string, error) {
	result, err := ytsearch.NewClient(nil).Search(ctx, query)
	if err != nil {
		return "", err
	}
	for _, v := range result.Results {
		if v.VideoID == "" {
			continue
		}
		return "https://www.youtube.com/watch?v=" + v.VideoID, nil
	}
	return "", nil
}

// locateStream asks yt-dlp for the direct audio URL plus display
// metadata in one invocation.
func locateStream(ctx context.Context, url string) (string, string, time.Duration, error) {
	res, err := ytdlp.New().
		Quiet().
		NoWarnings().
		NoPlaylist().
		Format("bestaudio[ext=webm]/bestaudio[ext=m4a]/bestaudio/best").
		Print("%(url)s\t%(title)s\t%(duration)s").
		Run(ctx, url)
	if err != nil {
		return "", "", 0, err
	}

	line := strings.TrimSpace(res.Stdout)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	parts := strings.Split(line, "\t")
	if len(parts) < 1 || parts[0] == "" {
		return "", "", 0, nil
	}

	stream := parts[0]
	title := ""
	if len(parts) > 1 && parts[1] != "NA" {
		title = parts[1]
	}
	var dur time.Duration
	if len(parts) > 2 {
		if secs, perr := strconv.ParseFloat(parts[2], 64); perr == nil {
			dur = time.Duration(secs * float64(time.Second))
		}
	}
	return stream, title, dur, nil
}
