package models

// TranscriptSegment is one timed line of speech. Segments are ordered and
// non-overlapping with Start < End.
type TranscriptSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// HookWindow is a [start, end) range of the source judged high-retention.
type HookWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Strategy is the editing plan produced for one job. Immutable once built.
type Strategy struct {
	SpeedRange         [2]float64   `json:"speed_range"`
	JitterIntensity    float64      `json:"jitter_intensity"`
	RecommendedFilters []FilterKind `json:"recommended_filters"`
	HookPoints         []HookWindow `json:"hook_points"`
	BRollKeywords      []string     `json:"b_roll_keywords"`
	Vibe               string       `json:"vibe"`
	Explanation        string       `json:"explanation"`
}

// DefaultStrategy is the neutral plan used whenever the strategy
// collaborator is unavailable. The pipeline must never fail because of a
// missing strategy, so these values are deliberately imperceptible.
func DefaultStrategy() Strategy {
	return Strategy{
		SpeedRange:      [2]float64{0.98, 1.02},
		JitterIntensity: 1.0,
		Vibe:            "Neutral",
	}
}

// FilterKind is the closed set of optional visual filters. The upstream
// dashboard exposes these as opaque ids ("f6".."f12"); those remain the
// wire tokens but behavior selection is on the enum.
type FilterKind int

const (
	FilterSpeedRamp FilterKind = iota
	FilterCinematicOverlay
	FilterJitter
	FilterGlow
	FilterGrain
	FilterGrayscale
	FilterGlitch
)

var filterTokens = map[FilterKind]string{
	FilterSpeedRamp:        "f6",
	FilterCinematicOverlay: "f7",
	FilterJitter:           "f8",
	FilterGlow:             "f9",
	FilterGrain:            "f10",
	FilterGrayscale:        "f11",
	FilterGlitch:           "f12",
}

var filterNames = map[FilterKind]string{
	FilterSpeedRamp:        "speed_ramp",
	FilterCinematicOverlay: "cinematic_overlay",
	FilterJitter:           "jitter",
	FilterGlow:             "glow",
	FilterGrain:            "grain",
	FilterGrayscale:        "grayscale",
	FilterGlitch:           "glitch",
}

func (f FilterKind) String() string {
	if name, ok := filterNames[f]; ok {
		return name
	}
	return "unknown"
}

// Token returns the dashboard wire id for f.
func (f FilterKind) Token() string {
	return filterTokens[f]
}

// ParseFilter maps a wire token or name to its FilterKind.
func ParseFilter(s string) (FilterKind, bool) {
	for kind, token := range filterTokens {
		if s == token || s == filterNames[kind] {
			return kind, true
		}
	}
	return 0, false
}

// MarshalJSON emits the wire token so persisted strategies match what the
// dashboard and the strategy collaborator exchange.
func (f FilterKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + f.Token() + `"`), nil
}

// UnmarshalJSON accepts either wire tokens or symbolic names. Unknown
// values are dropped by the caller, not here; this only errors on malformed
// JSON.
func (f *FilterKind) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	if kind, ok := ParseFilter(s); ok {
		*f = kind
	} else {
		*f = FilterKind(-1)
	}
	return nil
}

// Known reports whether f is a member of the closed filter set.
func (f FilterKind) Known() bool {
	_, ok := filterTokens[f]
	return ok
}
