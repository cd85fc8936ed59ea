package captions

import (
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// TesseractDetector runs the tesseract CLI in TSV mode. Returns nil from
// NewTesseractDetector when the binary is absent so the analyzer degrades
// to its bottom default instead of failing jobs.
type TesseractDetector struct{}

// NewTesseractDetector returns a detector, or nil when tesseract is not
// installed.
func NewTesseractDetector() *TesseractDetector {
	if _, err := exec.LookPath("tesseract"); err != nil {
		return nil
	}
	return &TesseractDetector{}
}

// DetectText OCRs one frame image.
func (t *TesseractDetector) DetectText(ctx context.Context, imagePath string) ([]Detection, error) {
	height, err := frameHeight(imagePath)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, "tesseract", imagePath, "stdout", "tsv")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("tesseract failed: %w", err)
	}
	return parseTSV(string(output), height), nil
}

// frameHeight reads the image height from the jpeg header without decoding
// pixel data.
func frameHeight(imagePath string) (int, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		return 0, fmt.Errorf("read frame header: %w", err)
	}
	return cfg.Height, nil
}

// parseTSV extracts word-level detections from tesseract TSV output.
// Columns: level page block par line word left top width height conf text.
func parseTSV(output string, frameHeight int) []Detection {
	var detections []Detection
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		if i == 0 {
			continue // header
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 12 {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}
		top, err1 := strconv.Atoi(cols[7])
		height, err2 := strconv.Atoi(cols[9])
		if err1 != nil || err2 != nil {
			continue
		}
		detections = append(detections, Detection{
			Text:        text,
			Confidence:  conf / 100,
			YMin:        top,
			YMax:        top + height,
			FrameHeight: frameHeight,
		})
	}
	return detections
}
