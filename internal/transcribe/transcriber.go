package transcribe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"viralforge/internal/models"
)

// Transcriber extracts timed text segments from a video's audio track with
// the whisper CLI. Any failure degrades to the fixed placeholder transcript
// so strategy generation and caption burn-in always have input.
type Transcriber struct {
	logger zerolog.Logger
	model  string
}

// New creates a Transcriber using the given whisper model name.
func New(logger zerolog.Logger, model string) *Transcriber {
	if model == "" {
		model = "base"
	}
	return &Transcriber{
		logger: logger.With().Str("component", "transcriber").Logger(),
		model:  model,
	}
}

// Transcribe returns ordered segments for videoPath. Never returns an
// error: transcription unavailability is a recoverable condition and
// resolves to PlaceholderTranscript.
func (t *Transcriber) Transcribe(ctx context.Context, videoPath string) []models.TranscriptSegment {
	segments, err := t.run(ctx, videoPath)
	if err != nil {
		t.logger.Warn().Err(err).Str("path", videoPath).
			Msg("transcription unavailable, using placeholder transcript")
		return PlaceholderTranscript()
	}
	if len(segments) == 0 {
		t.logger.Info().Str("path", videoPath).Msg("no speech detected, using placeholder transcript")
		return PlaceholderTranscript()
	}
	return segments
}

func (t *Transcriber) run(ctx context.Context, videoPath string) ([]models.TranscriptSegment, error) {
	if _, err := exec.LookPath("whisper"); err != nil {
		return nil, fmt.Errorf("whisper not found: %w", err)
	}

	outDir, err := os.MkdirTemp("", "transcribe-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(outDir)

	cmd := exec.CommandContext(ctx,
		"whisper",
		videoPath,
		"--model", t.model,
		"--output_format", "srt",
		"--output_dir", outDir,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("whisper failed: %w (%s)", err, truncate(string(out), 200))
	}

	// Whisper names the output after the input file.
	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	srtPath := filepath.Join(outDir, base+".srt")
	data, err := os.ReadFile(srtPath)
	if err != nil {
		return nil, fmt.Errorf("whisper output missing: %w", err)
	}
	return ParseSRT(string(data))
}

// PlaceholderTranscript is the fixed fallback used when audio cannot be
// transcribed; the captions keep the render visually complete.
func PlaceholderTranscript() []models.TranscriptSegment {
	return []models.TranscriptSegment{
		{Text: "Stay focused.", Start: 1.0, End: 3.0},
		{Text: "Build your empire.", Start: 4.0, End: 6.0},
		{Text: "One step at a time.", Start: 7.0, End: 9.0},
	}
}

// ParseSRT converts SubRip text into ordered transcript segments.
func ParseSRT(data string) ([]models.TranscriptSegment, error) {
	var segments []models.TranscriptSegment

	blocks := strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n\n")
	for _, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			continue
		}
		// lines[0] is the numeric counter, lines[1] the time range.
		timeLine := lines[1]
		if !strings.Contains(timeLine, "-->") {
			// Some writers omit counters.
			timeLine = lines[0]
			lines = append([]string{""}, lines...)
		}
		parts := strings.SplitN(timeLine, "-->", 2)
		if len(parts) != 2 {
			continue
		}
		start, err1 := parseSRTTime(strings.TrimSpace(parts[0]))
		end, err2 := parseSRTTime(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil || start >= end {
			continue
		}
		text := strings.TrimSpace(strings.Join(lines[2:], " "))
		if text == "" {
			continue
		}
		segments = append(segments, models.TranscriptSegment{
			Text:  text,
			Start: start,
			End:   end,
		})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("no segments parsed")
	}
	return segments, nil
}

// parseSRTTime parses "HH:MM:SS,mmm" into seconds.
func parseSRTTime(s string) (float64, error) {
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("bad timestamp %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, err
	}
	return float64(h)*3600 + float64(m)*60 + sec, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
