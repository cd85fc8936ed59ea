package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"

	"viralforge/internal/captions"
	"viralforge/internal/compositor"
	"viralforge/internal/config"
	"viralforge/internal/logging"
	"viralforge/internal/media"
	"viralforge/internal/orchestrator"
	"viralforge/internal/stock"
	"viralforge/internal/strategy"
	"viralforge/internal/transcribe"
)

// render runs the editing pipeline once against a local file, without the
// server or the job queue. Useful for tuning effect parameters.
func main() {
	var (
		inputFile = flag.String("i", "", "Input video file")
		outFile   = flag.String("o", "output.mp4", "Output video file")
		niche     = flag.String("niche", "", "Content niche for the strategy prompt")
		style     = flag.String("style", "", "Editing style for the strategy prompt")
		tier      = flag.String("tier", "balanced", "Quality tier: fast, balanced, max")
		seed      = flag.Int64("seed", 0, "Random seed (0 = time-based)")
		verbose   = flag.Bool("v", false, "Verbose output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -i clip.mp4\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i clip.mp4 -o short.mp4 -niche fitness -tier max\n", os.Args[0])
	}

	flag.Parse()

	if *inputFile == "" {
		fmt.Fprintf(os.Stderr, "Error: input file is required\n\n")
		flag.Usage()
		os.Exit(1)
	}
	if _, err := os.Stat(*inputFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: input file not found: %s\n", *inputFile)
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logging.Init(*verbose)
	log := logging.WithComponent("render")

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))
	ctx := context.Background()

	loader := media.NewLoader(log)
	handle, err := loader.Load(ctx, *inputFile)
	if err != nil {
		log.Fatal().Err(err).Msg("open source")
	}
	log.Info().Str("mode", handle.Mode.String()).
		Int("width", handle.Info.Width).Int("height", handle.Info.Height).
		Msg("source loaded")

	transcript := transcribe.New(log, cfg.WhisperModel).Transcribe(ctx, *inputFile)
	strat := strategy.New(log, cfg.GroqAPIKey, cfg.GroqModel).
		GenerateVisualStrategy(ctx, transcript, *niche, *style)
	log.Info().Str("vibe", strat.Vibe).Str("explanation", strat.Explanation).Msg("strategy")

	zone := captions.ZoneBottom
	if handle.Mode == media.ModeFull {
		zone = captions.NewAnalyzer(log, detectorOrNil()).ChooseZone(ctx, *inputFile)
	}

	var broll compositor.BRollSource
	if cfg.PexelsAPIKey != "" {
		broll = stock.NewClient(log, cfg.PexelsAPIKey)
	}

	enabled := orchestrator.TierFilters(*tier)
	plan := compositor.Resolve(enabled, strat, transcript, zone, handle.Mode == media.ModeDegraded, rng)

	comp := compositor.New(log, cfg.Render, broll)
	if err := comp.Render(ctx, handle, plan, *outFile, rng); err != nil {
		log.Fatal().Err(err).Msg("render failed")
	}

	fmt.Println(*outFile)
}

func detectorOrNil() captions.TextDetector {
	if d := captions.NewTesseractDetector(); d != nil {
		return d
	}
	return nil
}
