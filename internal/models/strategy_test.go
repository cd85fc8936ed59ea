package models

import (
	"encoding/json"
	"testing"
)

func TestDefaultStrategy(t *testing.T) {
	s := DefaultStrategy()
	if s.SpeedRange != [2]float64{0.98, 1.02} {
		t.Errorf("speed range = %v", s.SpeedRange)
	}
	if s.JitterIntensity != 1.0 {
		t.Errorf("jitter intensity = %v", s.JitterIntensity)
	}
	if s.Vibe != "Neutral" {
		t.Errorf("vibe = %q", s.Vibe)
	}
	if len(s.RecommendedFilters) != 0 || len(s.HookPoints) != 0 {
		t.Error("default strategy should recommend nothing")
	}
}

func TestParseFilter(t *testing.T) {
	cases := []struct {
		in   string
		want FilterKind
		ok   bool
	}{
		{"f6", FilterSpeedRamp, true},
		{"f7", FilterCinematicOverlay, true},
		{"f12", FilterGlitch, true},
		{"glow", FilterGlow, true},
		{"grayscale", FilterGrayscale, true},
		{"f99", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseFilter(tc.in)
		if ok != tc.ok {
			t.Errorf("ParseFilter(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("ParseFilter(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFilterJSONRoundTrip(t *testing.T) {
	in := []FilterKind{FilterJitter, FilterGrain}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["f8","f10"]` {
		t.Errorf("marshal = %s", data)
	}

	var out []FilterKind
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0] != FilterJitter || out[1] != FilterGrain {
		t.Errorf("unmarshal = %v", out)
	}
}

func TestFilterUnmarshalUnknown(t *testing.T) {
	var f FilterKind
	if err := json.Unmarshal([]byte(`"f42"`), &f); err != nil {
		t.Fatal(err)
	}
	if f.Known() {
		t.Errorf("unknown token should not map to a known filter, got %v", f)
	}
}
