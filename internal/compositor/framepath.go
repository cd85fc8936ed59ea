package compositor

import (
	"context"
	"fmt"
	"io"
	"math/rand"

	"viralforge/internal/media"
	"viralforge/internal/models"
)

// renderFrames is the degraded-mode path: it reads frames sequentially from
// the secondary decoder, applies the per-frame-safe subset of the plan by
// direct pixel manipulation, and writes frames to the output container
// incrementally. Time remaps, timed overlays, hook trimming, captions, and
// b-roll are not available here, and the output carries no audio track: a
// degraded source's audio stream is as suspect as its video, so copying it
// could fail an otherwise recoverable render. Callers should prefer the
// composable path whenever the loader returns a non-degraded handle.
func (c *Compositor) renderFrames(ctx context.Context, h *media.Handle, plan EffectPlan, outPath string) error {
	reader, err := media.OpenFrameReader(ctx, h)
	if err != nil {
		return fmt.Errorf("open frame reader: %w", err)
	}
	defer reader.Close()

	// The originality mirror upscales 5%; output geometry is fixed up front.
	outW := even(int(float64(h.Info.Width) * 1.05))
	outH := even(int(float64(h.Info.Height) * 1.05))

	fps := h.Info.FPS
	if fps <= 0 {
		fps = c.render.FPS
	}
	writer, err := media.OpenFrameWriter(ctx, outPath, outW, outH, fps, c.render.SoftwareCodec, c.render.CRF)
	if err != nil {
		return fmt.Errorf("open frame writer: %w", err)
	}

	grain := plan.Has(models.FilterGrain)
	gray := plan.Has(models.FilterGrayscale)
	zoom := 1.0
	if plan.Has(models.FilterJitter) {
		// No per-frame offsets without the clip abstraction; the
		// compensating zoom alone keeps output consistent with the
		// composable path's framing.
		zoom = JitterZoom(plan.JitterIntensity)
	}
	rng := rand.New(rand.NewSource(int64(h.Info.Width)<<16 | int64(h.Info.Height)))

	frames := 0
	for {
		frame, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			writer.Close()
			return fmt.Errorf("decode frame %d: %w", frames, err)
		}

		mirrorFrame(frame)
		if zoom > 1.0 {
			frame = cropCenter(frame, zoom)
		}
		frame = resizeNearest(frame, outW, outH)
		if grain {
			addGrain(frame, 12, rng)
		}
		if gray {
			toGrayscale(frame)
		}

		if err := writer.Write(frame); err != nil {
			writer.Close()
			return fmt.Errorf("encode frame %d: %w", frames, err)
		}
		frames++
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("%w: finalize container: %s", ErrEncodeFailed, err)
	}
	c.logger.Info().Str("output", outPath).Int("frames", frames).Msg("frame-by-frame render completed")
	return nil
}

func even(n int) int {
	return n &^ 1
}

// mirrorFrame flips the frame horizontally in place.
func mirrorFrame(f *media.Frame) {
	for y := 0; y < f.Height; y++ {
		row := f.Pix[y*f.Width*3 : (y+1)*f.Width*3]
		for x := 0; x < f.Width/2; x++ {
			l := x * 3
			r := (f.Width - 1 - x) * 3
			row[l], row[r] = row[r], row[l]
			row[l+1], row[r+1] = row[r+1], row[l+1]
			row[l+2], row[r+2] = row[r+2], row[l+2]
		}
	}
}

// cropCenter keeps the central 1/zoom region.
func cropCenter(f *media.Frame, zoom float64) *media.Frame {
	w := even(int(float64(f.Width) / zoom))
	h := even(int(float64(f.Height) / zoom))
	x0 := (f.Width - w) / 2
	y0 := (f.Height - h) / 2

	out := &media.Frame{Index: f.Index, Width: w, Height: h, Pix: make([]byte, w*h*3)}
	for y := 0; y < h; y++ {
		src := ((y+y0)*f.Width + x0) * 3
		copy(out.Pix[y*w*3:(y+1)*w*3], f.Pix[src:src+w*3])
	}
	return out
}

// resizeNearest scales to the target geometry by nearest-neighbor. Good
// enough at the ~5% factors this path uses.
func resizeNearest(f *media.Frame, w, h int) *media.Frame {
	if f.Width == w && f.Height == h {
		return f
	}
	out := &media.Frame{Index: f.Index, Width: w, Height: h, Pix: make([]byte, w*h*3)}
	for y := 0; y < h; y++ {
		sy := y * f.Height / h
		for x := 0; x < w; x++ {
			sx := x * f.Width / w
			si := (sy*f.Width + sx) * 3
			di := (y*w + x) * 3
			copy(out.Pix[di:di+3], f.Pix[si:si+3])
		}
	}
	return out
}

// addGrain perturbs each pixel's luminance by up to ±amount.
func addGrain(f *media.Frame, amount int, rng *rand.Rand) {
	for i := 0; i < len(f.Pix); i += 3 {
		n := rng.Intn(2*amount+1) - amount
		f.Pix[i] = clampByte(int(f.Pix[i]) + n)
		f.Pix[i+1] = clampByte(int(f.Pix[i+1]) + n)
		f.Pix[i+2] = clampByte(int(f.Pix[i+2]) + n)
	}
}

// toGrayscale converts in place using BT.601 luma weights.
func toGrayscale(f *media.Frame) {
	for i := 0; i < len(f.Pix); i += 3 {
		b, g, r := int(f.Pix[i]), int(f.Pix[i+1]), int(f.Pix[i+2])
		luma := byte((299*r + 587*g + 114*b) / 1000)
		f.Pix[i], f.Pix[i+1], f.Pix[i+2] = luma, luma, luma
	}
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
