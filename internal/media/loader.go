package media

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

// ErrMediaUnreadable means both decode paths were exhausted. Fatal to the job.
var ErrMediaUnreadable = errors.New("media unreadable by all decode paths")

// LoadMode discriminates how a loaded source may be consumed.
type LoadMode int

const (
	// ModeFull means the source verified cleanly and the full composable
	// filter path is available.
	ModeFull LoadMode = iota
	// ModeDegraded means only probe metadata is trusted; frame access goes
	// through the sequential raw frame reader and the compositor must use
	// its reduced frame-by-frame path.
	ModeDegraded
)

func (m LoadMode) String() string {
	if m == ModeDegraded {
		return "degraded"
	}
	return "full"
}

// Handle is an open, frame-readable video source with known geometry.
type Handle struct {
	Path string
	Info Info
	Mode LoadMode
}

// Loader opens video files with bounded waits and a degraded fallback.
// Some decoder/codec combinations open successfully and then hang on the
// first read, so opening and verification are separately bounded.
type Loader struct {
	logger        zerolog.Logger
	openTimeout   time.Duration
	verifyTimeout time.Duration
	retryTimeout  time.Duration
	verifyFrames  int
}

// NewLoader creates a Loader with the default 30s/30s/60s bounds.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger:        logger.With().Str("component", "loader").Logger(),
		openTimeout:   30 * time.Second,
		verifyTimeout: 30 * time.Second,
		retryTimeout:  60 * time.Second,
		verifyFrames:  8,
	}
}

// Load opens path and returns a Handle, degrading rather than failing while
// the lightweight probe still works. Only ErrMediaUnreadable is fatal.
func (l *Loader) Load(ctx context.Context, path string) (*Handle, error) {
	info, err := l.openAndVerify(ctx, path, l.openTimeout)
	if err == nil {
		l.logger.Info().Str("path", path).
			Int("width", info.Width).Int("height", info.Height).
			Float64("fps", info.FPS).Msg("media loaded")
		return &Handle{Path: path, Info: *info, Mode: ModeFull}, nil
	}
	l.logger.Warn().Err(err).Str("path", path).Msg("primary open failed, probing")

	probed, probeErr := l.lightProbe(ctx, path)
	if probeErr != nil {
		l.logger.Error().Err(probeErr).Str("path", path).Msg("secondary probe failed")
		return nil, fmt.Errorf("%w: %s", ErrMediaUnreadable, path)
	}

	// One more primary attempt with the extended bound before settling for
	// the reduced frame interface.
	info, err = l.openAndVerify(ctx, path, l.retryTimeout)
	if err == nil {
		l.logger.Info().Str("path", path).Msg("media loaded on extended retry")
		return &Handle{Path: path, Info: *info, Mode: ModeFull}, nil
	}

	l.logger.Warn().Str("path", path).Msg("entering degraded mode: frame-by-frame access only")
	return &Handle{Path: path, Info: *probed, Mode: ModeDegraded}, nil
}

// openAndVerify probes the file and then decodes the first few frames under
// its own bound to catch decoders that open fine but hang on iteration.
func (l *Loader) openAndVerify(ctx context.Context, path string, openBound time.Duration) (*Info, error) {
	openCtx, cancel := context.WithTimeout(ctx, openBound)
	defer cancel()

	info, err := Probe(openCtx, path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	verifyCtx, cancelVerify := context.WithTimeout(ctx, l.verifyTimeout)
	defer cancelVerify()

	cmd := exec.CommandContext(verifyCtx, "ffmpeg",
		"-v", "error",
		"-i", path,
		"-frames:v", fmt.Sprintf("%d", l.verifyFrames),
		"-f", "null", "-")
	if out, err := cmd.CombinedOutput(); err != nil {
		if verifyCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("verification read timed out after %s", l.verifyTimeout)
		}
		return nil, fmt.Errorf("verification read failed: %w (%s)", err, firstLine(out))
	}
	return info, nil
}

// lightProbe asks ffprobe for stream geometry only, skipping container-level
// scanning that can stall on damaged files.
func (l *Loader) lightProbe(ctx context.Context, path string) (*Info, error) {
	probeCtx, cancel := context.WithTimeout(ctx, l.openTimeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_type,codec_name,width,height,r_frame_rate,nb_frames,duration",
		"-of", "json",
		path)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("light probe failed: %w", err)
	}
	return parseProbeOutput(path, output)
}

func firstLine(b []byte) string {
	for i, c := range b {
		if c == '\n' {
			return string(b[:i])
		}
	}
	return string(b)
}
