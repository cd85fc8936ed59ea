package compositor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"

	"viralforge/internal/captions"
	"viralforge/internal/config"
	"viralforge/internal/media"
	"viralforge/internal/models"
	"viralforge/internal/stock"
)

// ErrEncodeFailed means both the hardware and software encoders failed.
var ErrEncodeFailed = errors.New("encoding failed on all encoders")

// BRollSource fetches one stock clip for a keyword. Best-effort collaborator.
type BRollSource interface {
	Search(ctx context.Context, query string, perPage int) ([]stock.Video, error)
	Download(ctx context.Context, video stock.Video, dir string) (string, error)
}

// Compositor applies a resolved EffectPlan to a loaded source and produces
// the final encoded file. It has two execution paths with equivalent
// semantics for the operations both support: the composable filtergraph
// path, and the reduced frame-by-frame path for degraded sources.
type Compositor struct {
	logger zerolog.Logger
	render config.RenderConfig
	broll  BRollSource
}

// New creates a Compositor. broll may be nil; b-roll injection is then a
// no-op.
func New(logger zerolog.Logger, render config.RenderConfig, broll BRollSource) *Compositor {
	return &Compositor{
		logger: logger.With().Str("component", "compositor").Logger(),
		render: render,
		broll:  broll,
	}
}

// Render produces outPath from the handle according to plan. rng drives the
// randomized effect parameters (overlay timing, b-roll placement).
func (c *Compositor) Render(ctx context.Context, h *media.Handle, plan EffectPlan, outPath string, rng *rand.Rand) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return err
	}

	if h.Mode == media.ModeDegraded {
		c.logger.Info().Str("path", h.Path).
			Msg("degraded source: rendering frame-by-frame with reduced effect set")
		return c.renderFrames(ctx, h, plan, outPath)
	}
	return c.renderGraph(ctx, h, plan, outPath, rng)
}

// renderGraph builds the full filter_complex chain and renders once at the
// end, attempting the hardware encoder first.
func (c *Compositor) renderGraph(ctx context.Context, h *media.Handle, plan EffectPlan, outPath string, rng *rand.Rand) error {
	inputs := []string{"-i", h.Path}
	hasAudio := h.Info.HasAudio
	duration := h.Info.Duration.Seconds()

	var g graph
	v := "[0:v]"
	a := "[0:a]"

	// Hook trim first: restrict the render to the high-retention windows,
	// each padded so cuts land after the beat.
	if len(plan.HookPoints) > 0 {
		v, a = c.trimHooks(&g, plan.HookPoints, duration, hasAudio)
		duration = plan.TrimmedDuration(duration)
	}

	v = g.chain(v, mirrorFilter(), "v")

	if plan.Speed != 1.0 {
		v = g.chain(v, speedFilter(plan.Speed), "v")
		if hasAudio {
			a = g.chain(a, fmt.Sprintf("atempo=%.6f", plan.Speed), "a")
		}
		duration /= plan.Speed
	}

	if plan.Has(models.FilterJitter) {
		v = g.chain(v, jitterFilter(plan.JitterIntensity), "v")
	}

	if plan.Has(models.FilterCinematicOverlay) {
		startAt := 0.0
		if duration > 1.0 {
			startAt = rng.Float64() * (duration - 1.0)
		}
		leak := g.label("leak")
		g.raw(leakSource(h.Info.Width, h.Info.Height, startAt, leak))
		out := g.label("v")
		g.raw(v + leak + "overlay=eof_action=pass" + out)
		v = out
		v = g.chain(v, flashFilter(), "v")
	}

	if plan.Has(models.FilterGlow) {
		v = glowParts(&g, v)
	}
	if plan.Has(models.FilterGrain) {
		v = g.chain(v, grainFilter(), "v")
	}
	if plan.Has(models.FilterGrayscale) {
		v = g.chain(v, grayscaleFilter(), "v")
	}
	if plan.Has(models.FilterGlitch) {
		v = g.chain(v, glitchFilter(), "v")
	}

	// Captions after all geometry changes so text is never warped.
	var assPath string
	if len(plan.Captions) > 0 {
		assPath = outPath + ".ass"
		err := captions.WriteASS(assPath, plan.Captions, plan.CaptionZone,
			h.Info.Width, h.Info.Height,
			captions.Style{FontName: c.render.FontName, FontSize: c.render.FontSize})
		if err != nil {
			return fmt.Errorf("write captions: %w", err)
		}
		defer os.Remove(assPath)
		v = g.chain(v, subtitleFilter(assPath), "v")
	}

	// B-roll last: composite one stock clip at a random point in the first
	// half. Any failure leaves the main clip unmodified.
	if brollPath := c.fetchBRoll(ctx, plan, outPath, rng); brollPath != "" {
		defer os.Remove(brollPath)
		inputs = append(inputs, "-i", brollPath)
		insertAt := rng.Float64() * duration / 2
		br := g.chain("[1:v]",
			fmt.Sprintf("trim=start=0:end=3,setpts=PTS-STARTPTS+%.3f/TB,scale=%d:%d",
				insertAt, h.Info.Width, h.Info.Height), "br")
		out := g.label("v")
		g.raw(v + br + "overlay=(main_w-overlay_w)/2:(main_h-overlay_h)/2:eof_action=pass" + out)
		v = out
	}

	args := append([]string{}, inputs...)
	args = append(args, "-filter_complex", g.String(), "-map", v)
	if hasAudio {
		if a == "[0:a]" {
			args = append(args, "-map", "0:a", "-c:a", c.render.AudioCodec)
		} else {
			args = append(args, "-map", a, "-c:a", c.render.AudioCodec)
		}
	}
	args = append(args, "-r", fmt.Sprintf("%.2f", c.render.FPS), "-pix_fmt", "yuv420p")

	// Hardware first, software retry at the same quality target.
	if err := c.encode(ctx, args, c.render.HardwareCodec, outPath); err != nil {
		c.logger.Warn().Err(err).Str("codec", c.render.HardwareCodec).
			Msg("hardware encode failed, retrying with software encoder")
		if err := c.encode(ctx, args, c.render.SoftwareCodec, outPath); err != nil {
			return fmt.Errorf("%w: %s", ErrEncodeFailed, err)
		}
	}

	c.logger.Info().Str("output", outPath).Float64("speed", plan.Speed).
		Int("filters", len(plan.Filters)).Msg("render completed")
	return nil
}

// trimHooks emits trim/concat fragments and returns the new stream labels.
func (c *Compositor) trimHooks(g *graph, hooks []models.HookWindow, duration float64, hasAudio bool) (string, string) {
	var segLabels string
	n := 0
	for _, hp := range hooks {
		end := hp.End + hookPadding
		if end > duration {
			end = duration
		}
		if end <= hp.Start {
			continue
		}
		vt := g.label("ht")
		g.raw(fmt.Sprintf("[0:v]trim=start=%.3f:end=%.3f,setpts=PTS-STARTPTS%s", hp.Start, end, vt))
		segLabels += vt
		if hasAudio {
			at := g.label("ht")
			g.raw(fmt.Sprintf("[0:a]atrim=start=%.3f:end=%.3f,asetpts=PTS-STARTPTS%s", hp.Start, end, at))
			segLabels += at
		}
		n++
	}
	if n == 0 {
		return "[0:v]", "[0:a]"
	}

	vOut := g.label("v")
	if hasAudio {
		aOut := g.label("a")
		g.raw(fmt.Sprintf("%sconcat=n=%d:v=1:a=1%s%s", segLabels, n, vOut, aOut))
		return vOut, aOut
	}
	g.raw(fmt.Sprintf("%sconcat=n=%d:v=1:a=0%s", segLabels, n, vOut))
	return vOut, "[0:a]"
}

// fetchBRoll picks one random keyword and downloads one matching stock
// clip. Returns "" on any failure; injection is strictly best-effort.
func (c *Compositor) fetchBRoll(ctx context.Context, plan EffectPlan, outPath string, rng *rand.Rand) string {
	if c.broll == nil || len(plan.BRollKeywords) == 0 {
		return ""
	}
	keyword := plan.BRollKeywords[rng.Intn(len(plan.BRollKeywords))]

	videos, err := c.broll.Search(ctx, keyword, 3)
	if err != nil || len(videos) == 0 {
		c.logger.Debug().Err(err).Str("keyword", keyword).Msg("b-roll search empty, skipping injection")
		return ""
	}
	path, err := c.broll.Download(ctx, videos[0], filepath.Dir(outPath))
	if err != nil {
		c.logger.Debug().Err(err).Str("keyword", keyword).Msg("b-roll download failed, skipping injection")
		return ""
	}
	return path
}

// encode runs one ffmpeg encode attempt with the given video codec.
func (c *Compositor) encode(ctx context.Context, baseArgs []string, codec, outPath string) error {
	args := []string{"-y", "-v", "error"}
	if c.render.Threads > 0 {
		args = append(args, "-threads", fmt.Sprintf("%d", c.render.Threads))
	}
	args = append(args, baseArgs...)
	args = append(args, "-c:v", codec)
	args = append(args, qualityArgs(codec, c.render)...)
	args = append(args, outPath)

	c.logger.Debug().Strs("args", args).Msg("executing ffmpeg")
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg: %w (%s)", err, tail(string(out), 300))
	}
	return nil
}

// qualityArgs maps the quality target onto encoder-specific rate options.
func qualityArgs(codec string, render config.RenderConfig) []string {
	if codec == "h264_nvenc" || codec == "hevc_nvenc" {
		return []string{"-cq", fmt.Sprintf("%d", render.CRF), "-maxrate", "12M", "-bufsize", "24M"}
	}
	return []string{"-crf", fmt.Sprintf("%d", render.CRF), "-preset", render.Preset,
		"-maxrate", "12M", "-bufsize", "24M"}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
