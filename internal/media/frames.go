package media

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// Frame is one decoded video frame as packed BGR24 bytes, row-major.
type Frame struct {
	Index  int
	Width  int
	Height int
	Pix    []byte
}

// At returns the B, G, R bytes at (x, y).
func (f *Frame) At(x, y int) (byte, byte, byte) {
	i := (y*f.Width + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Set writes the B, G, R bytes at (x, y).
func (f *Frame) Set(x, y int, b, g, r byte) {
	i := (y*f.Width + x) * 3
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = b, g, r
}

// FrameReader decodes a video sequentially into raw BGR24 frames over an
// ffmpeg pipe. This is the only frame access available in degraded mode.
type FrameReader struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	width  int
	height int
	index  int
}

// OpenFrameReader starts decoding h. Callers must Close.
func OpenFrameReader(ctx context.Context, h *Handle) (*FrameReader, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-i", h.Path,
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"-")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg decoder: %w", err)
	}
	return &FrameReader{
		cmd:    cmd,
		stdout: stdout,
		width:  h.Info.Width,
		height: h.Info.Height,
	}, nil
}

// Next reads one frame. Returns io.EOF when the stream ends.
func (r *FrameReader) Next() (*Frame, error) {
	pix := make([]byte, r.width*r.height*3)
	if _, err := io.ReadFull(r.stdout, pix); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return nil, err
	}
	frame := &Frame{Index: r.index, Width: r.width, Height: r.height, Pix: pix}
	r.index++
	return frame, nil
}

// Close stops the decoder and reaps the process.
func (r *FrameReader) Close() error {
	r.stdout.Close()
	return r.cmd.Wait()
}

// FrameWriter encodes raw BGR24 frames into an output container
// incrementally through an ffmpeg pipe.
type FrameWriter struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

// OpenFrameWriter starts an encoder writing to outPath at the given
// geometry. codec is the video codec name, e.g. "libx264". The output is
// video-only; the raw frame pipe carries no audio.
func OpenFrameWriter(ctx context.Context, outPath string, width, height int, fps float64, codec string, crf int) (*FrameWriter, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-v", "error",
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", fmt.Sprintf("%.3f", fps),
		"-i", "-",
		"-an",
		"-c:v", codec,
		"-crf", fmt.Sprintf("%d", crf),
		"-pix_fmt", "yuv420p",
		outPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg encoder: %w", err)
	}
	return &FrameWriter{cmd: cmd, stdin: stdin}, nil
}

// Write encodes one frame.
func (w *FrameWriter) Write(f *Frame) error {
	_, err := w.stdin.Write(f.Pix)
	return err
}

// Close flushes the encoder and waits for it to finish the container.
func (w *FrameWriter) Close() error {
	w.stdin.Close()
	return w.cmd.Wait()
}
