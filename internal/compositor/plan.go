package compositor

import (
	"math/rand"
	"sort"

	"viralforge/internal/captions"
	"viralforge/internal/models"
)

// EffectPlan is the resolved, ordered set of operations a render will run:
// the union of caller-enabled filters and the strategy's recommendations,
// deduplicated, with parameters resolved. Owned by one job execution.
type EffectPlan struct {
	Filters []models.FilterKind

	// Speed is the playback multiplier actually drawn from the strategy's
	// range; 1.0 when speed ramping is not in the plan.
	Speed           float64
	JitterIntensity float64
	HookPoints      []models.HookWindow
	BRollKeywords   []string
	Captions        []models.TranscriptSegment
	CaptionZone     captions.Zone

	// Degraded restricts the plan to the per-frame-safe subset.
	Degraded bool
}

// canonicalOrder fixes effect ordering: time-remap first, then overlay
// effects, color work last. Captions and b-roll are sequenced by the
// renderer after these.
var canonicalOrder = []models.FilterKind{
	models.FilterSpeedRamp,
	models.FilterJitter,
	models.FilterCinematicOverlay,
	models.FilterGlow,
	models.FilterGrain,
	models.FilterGrayscale,
	models.FilterGlitch,
}

// frameSafe lists operations the degraded frame-by-frame path can apply by
// direct pixel manipulation. Time remaps and timed overlays need the
// composable clip abstraction and are stripped in degraded mode.
var frameSafe = map[models.FilterKind]bool{
	models.FilterJitter:    true, // compensating zoom only, no per-frame offset
	models.FilterGrain:     true,
	models.FilterGrayscale: true,
}

// JitterZoom returns the compensating zoom for a jitter intensity. Always
// at least the base 1.04 so frame edges are never exposed.
func JitterZoom(intensity float64) float64 {
	if intensity < 0 {
		intensity = 0
	}
	return 1.04 + intensity*0.01
}

// Resolve merges enabled filters with the strategy recommendations and
// resolves parameters. rng drives the speed draw so renders are seedable.
func Resolve(enabled []models.FilterKind, strat models.Strategy, transcript []models.TranscriptSegment, zone captions.Zone, degraded bool, rng *rand.Rand) EffectPlan {
	seen := make(map[models.FilterKind]bool)
	for _, f := range enabled {
		if f.Known() {
			seen[f] = true
		}
	}
	for _, f := range strat.RecommendedFilters {
		if f.Known() {
			seen[f] = true
		}
	}

	plan := EffectPlan{
		Speed:           1.0,
		JitterIntensity: strat.JitterIntensity,
		Captions:        transcript,
		CaptionZone:     zone,
		Degraded:        degraded,
	}

	for _, f := range canonicalOrder {
		if !seen[f] {
			continue
		}
		if degraded && !frameSafe[f] {
			continue
		}
		plan.Filters = append(plan.Filters, f)
	}

	if plan.Has(models.FilterSpeedRamp) {
		lo, hi := strat.SpeedRange[0], strat.SpeedRange[1]
		if lo <= 0 || lo > hi {
			lo, hi = 0.95, 1.05
		}
		plan.Speed = lo + rng.Float64()*(hi-lo)
	}

	if !degraded {
		plan.HookPoints = normalizeHooks(strat.HookPoints)
		plan.BRollKeywords = strat.BRollKeywords
	} else {
		plan.Captions = nil
	}
	return plan
}

// Has reports whether the plan includes f.
func (p EffectPlan) Has(f models.FilterKind) bool {
	for _, k := range p.Filters {
		if k == f {
			return true
		}
	}
	return false
}

// TrimmedDuration returns the render duration before any speed ramp: the
// padded hook windows when trimming, otherwise sourceDuration.
func (p EffectPlan) TrimmedDuration(sourceDuration float64) float64 {
	if len(p.HookPoints) == 0 {
		return sourceDuration
	}
	var total float64
	for _, hp := range p.HookPoints {
		end := hp.End + hookPadding
		if end > sourceDuration {
			end = sourceDuration
		}
		if end > hp.Start {
			total += end - hp.Start
		}
	}
	return total
}

// hookPadding extends each hook window so cuts land after the beat, not on it.
const hookPadding = 0.5

// normalizeHooks drops invalid windows and sorts by start time so the
// trimmed render preserves source order.
func normalizeHooks(hooks []models.HookWindow) []models.HookWindow {
	var out []models.HookWindow
	for _, h := range hooks {
		if h.Start >= 0 && h.Start < h.End {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
