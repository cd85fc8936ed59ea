package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	ytdl "github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"
)

// Downloader resolves a job's input reference into a local video file.
// YouTube URLs go through the youtube client, other http(s) URLs are
// fetched directly, and local paths are used as-is.
type Downloader struct {
	logger  zerolog.Logger
	client  ytdl.Client
	httpcli *http.Client
	dir     string
}

// New creates a Downloader writing into dir.
func New(logger zerolog.Logger, dir string) *Downloader {
	return &Downloader{
		logger:  logger.With().Str("component", "downloader").Logger(),
		client:  ytdl.Client{},
		httpcli: &http.Client{Timeout: 10 * time.Minute},
		dir:     dir,
	}
}

// Fetch returns a local path for ref. The caller owns the returned file
// unless ref was already a local path.
func (d *Downloader) Fetch(ctx context.Context, ref string) (string, error) {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	switch {
	case isYouTube(ref):
		return d.fetchYouTube(ctx, ref)
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		return d.fetchHTTP(ctx, ref)
	default:
		if _, err := os.Stat(ref); err != nil {
			return "", fmt.Errorf("source file not found: %s", ref)
		}
		return ref, nil
	}
}

func isYouTube(ref string) bool {
	low := strings.ToLower(ref)
	return strings.Contains(low, "youtube.com/") || strings.Contains(low, "youtu.be/")
}

// fetchYouTube downloads the best progressive MP4 format. Muxed formats
// avoid a separate merge step, which matters for shorts-length sources.
func (d *Downloader) fetchYouTube(ctx context.Context, ref string) (string, error) {
	video, err := d.client.GetVideoContext(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("youtube metadata failed: %w", err)
	}

	formats := video.Formats.WithAudioChannels()
	var candidates []ytdl.Format
	for _, f := range formats {
		if strings.HasPrefix(f.MimeType, "video/mp4") {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		candidates = formats
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no downloadable formats for %s", video.ID)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Height > candidates[j].Height
	})
	format := candidates[0]

	stream, _, err := d.client.GetStreamContext(ctx, video, &format)
	if err != nil {
		return "", fmt.Errorf("youtube stream failed: %w", err)
	}
	defer stream.Close()

	outPath := filepath.Join(d.dir, uuid.New().String()+".mp4")
	d.logger.Info().Str("video_id", video.ID).Int("height", format.Height).
		Str("path", outPath).Msg("downloading youtube source")

	if err := writeStream(outPath, stream); err != nil {
		return "", err
	}
	return outPath, nil
}

func (d *Downloader) fetchHTTP(ctx context.Context, ref string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", err
	}
	resp, err := d.httpcli.Do(req)
	if err != nil {
		return "", fmt.Errorf("source fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("source fetch failed: status %d", resp.StatusCode)
	}

	ext := filepath.Ext(ref)
	if ext == "" || len(ext) > 5 {
		ext = ".mp4"
	}
	outPath := filepath.Join(d.dir, uuid.New().String()+ext)
	d.logger.Info().Str("url", ref).Str("path", outPath).Msg("downloading http source")

	if err := writeStream(outPath, resp.Body); err != nil {
		return "", err
	}
	return outPath, nil
}

func writeStream(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return fmt.Errorf("download interrupted: %w", err)
	}
	return nil
}
