package captions

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
)

// Zone is a vertical screen region for caption placement.
type Zone string

const (
	ZoneTop    Zone = "top"
	ZoneBottom Zone = "bottom"
	ZoneCenter Zone = "center"
)

// Detection is one on-screen text region found in a sampled frame.
type Detection struct {
	Text        string
	Confidence  float64
	YMin, YMax  int
	FrameHeight int
}

// NormalizedY is the vertical center of the region in [0, 1).
func (d Detection) NormalizedY() float64 {
	if d.FrameHeight == 0 {
		return 0
	}
	return float64(d.YMin+d.YMax) / (2 * float64(d.FrameHeight))
}

// TextDetector finds burned-in text in a single frame image. Implemented by
// the OCR collaborator; a nil detector means no detections.
type TextDetector interface {
	DetectText(ctx context.Context, imagePath string) ([]Detection, error)
}

// Analyzer chooses the screen zone least likely to collide with pre-existing
// on-screen text (subtitles, watermarks, UI chrome) common in re-purposed
// source video.
type Analyzer struct {
	logger        zerolog.Logger
	detector      TextDetector
	sampleStride  int
	minConfidence float64
}

// NewAnalyzer creates an Analyzer sampling every 30th frame with a 0.3
// confidence gate.
func NewAnalyzer(logger zerolog.Logger, detector TextDetector) *Analyzer {
	return &Analyzer{
		logger:        logger.With().Str("component", "captions").Logger(),
		detector:      detector,
		sampleStride:  30,
		minConfidence: 0.3,
	}
}

// ChooseZone analyzes videoPath and returns the placement zone. Analysis
// failures fall back to bottom, the preferred mobile placement.
func (a *Analyzer) ChooseZone(ctx context.Context, videoPath string) Zone {
	if a.detector == nil {
		return ZoneBottom
	}

	detections, err := a.collect(ctx, videoPath)
	if err != nil {
		a.logger.Warn().Err(err).Msg("text detection failed, defaulting to bottom")
		return ZoneBottom
	}
	zone := DecideZone(detections, a.minConfidence)
	a.logger.Info().Str("zone", string(zone)).Int("detections", len(detections)).
		Msg("caption placement chosen")
	return zone
}

// DecideZone buckets detections into 5 equal-height zones and applies the
// placement policy: bottom when the bottom two zones are empty, then top
// when the top two are empty, then center, then whichever of top/bottom is
// least occupied.
func DecideZone(detections []Detection, minConfidence float64) Zone {
	var zones [5]int
	for _, d := range detections {
		if d.Confidence <= minConfidence {
			continue
		}
		idx := int(d.NormalizedY() * 5)
		if idx > 4 {
			idx = 4
		}
		if idx < 0 {
			idx = 0
		}
		zones[idx]++
	}

	if zones[4] == 0 && zones[3] == 0 {
		return ZoneBottom
	}
	if zones[0] == 0 && zones[1] == 0 {
		return ZoneTop
	}
	if zones[2] == 0 {
		return ZoneCenter
	}
	if zones[0] < zones[4] {
		return ZoneTop
	}
	return ZoneBottom
}

// collect samples frames at the configured stride and runs the detector on
// each sampled frame.
func (a *Analyzer) collect(ctx context.Context, videoPath string) ([]Detection, error) {
	frameDir, err := os.MkdirTemp("", "caption-frames-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(frameDir)

	pattern := filepath.Join(frameDir, "frame_%04d.jpg")
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-i", videoPath,
		"-vf", fmt.Sprintf("select=not(mod(n\\,%d))", a.sampleStride),
		"-vsync", "vfr",
		"-frames:v", "20",
		pattern)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("frame sampling failed: %w (%s)", err, string(out))
	}

	frames, err := filepath.Glob(filepath.Join(frameDir, "frame_*.jpg"))
	if err != nil {
		return nil, err
	}
	sort.Strings(frames)

	var all []Detection
	for _, frame := range frames {
		detections, err := a.detector.DetectText(ctx, frame)
		if err != nil {
			// One bad frame does not invalidate the sample set.
			a.logger.Debug().Err(err).Str("frame", frame).Msg("detector error on frame")
			continue
		}
		all = append(all, detections...)
	}
	return all, nil
}
