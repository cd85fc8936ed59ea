package compositor

import (
	"runtime"
	"strings"
	"testing"

	"viralforge/internal/config"
)

func TestGraphChain(t *testing.T) {
	var g graph
	v := g.chain("[0:v]", "hflip", "v")
	v = g.chain(v, "hue=s=0", "v")

	got := g.String()
	want := "[0:v]hflip[v1];[v1]hue=s=0[v2]"
	if got != want {
		t.Errorf("graph = %q, want %q", got, want)
	}
}

func TestGraphLabelsUnique(t *testing.T) {
	var g graph
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		l := g.label("x")
		if seen[l] {
			t.Fatalf("duplicate label %s", l)
		}
		seen[l] = true
	}
}

func TestMirrorFilter(t *testing.T) {
	f := mirrorFilter()
	if !strings.HasPrefix(f, "hflip,") {
		t.Errorf("mirror must flip first: %q", f)
	}
	if !strings.Contains(f, "1.0500") {
		t.Errorf("mirror must upscale by 5%%: %q", f)
	}
	if !strings.Contains(f, "trunc(") || !strings.Contains(f, "/2)*2") {
		t.Errorf("upscale must keep even dimensions: %q", f)
	}
}

func TestJitterFilter(t *testing.T) {
	f := jitterFilter(2.0)
	// Intensity 2 gives zoom 1.06 and a 2px offset bound.
	if !strings.Contains(f, "1.0600") {
		t.Errorf("expected compensating zoom 1.06: %q", f)
	}
	if !strings.Contains(f, "2.00*(random(1)*2-1)") {
		t.Errorf("expected intensity-bounded x offset: %q", f)
	}
	if !strings.Contains(f, "crop=") {
		t.Errorf("jitter must crop back: %q", f)
	}
}

func TestFlashFilterTiming(t *testing.T) {
	f := flashFilter()
	for _, fragment := range []string{"white@0.12", "gte(t\\,2)", "mod(t\\,3)", "0.15"} {
		if !strings.Contains(f, fragment) {
			t.Errorf("flash filter missing %q: %q", fragment, f)
		}
	}
}

func TestLeakSource(t *testing.T) {
	f := leakSource(1080, 1920, 4.2, "[leak]")
	for _, fragment := range []string{
		"color=c=0xFFD2A0", "s=1080x1920", "d=0.6",
		"aa=0.08", "fade=t=in:st=0:d=0.2", "fade=t=out:st=0.4:d=0.2",
		"+4.200/TB", "[leak]",
	} {
		if !strings.Contains(f, fragment) {
			t.Errorf("leak source missing %q: %q", fragment, f)
		}
	}
}

func TestGlowParts(t *testing.T) {
	var g graph
	out := glowParts(&g, "[0:v]")
	s := g.String()
	if !strings.Contains(s, "split") || !strings.Contains(s, "gblur=sigma=12") {
		t.Errorf("glow graph = %q", s)
	}
	if !strings.Contains(s, "blend=all_mode=screen:all_opacity=0.35") {
		t.Errorf("glow must screen-blend at 0.35: %q", s)
	}
	if !strings.HasSuffix(s, out) {
		t.Errorf("last fragment must produce the returned label %s: %q", out, s)
	}
}

func TestEscapeSubtitlePath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix path escaping")
	}
	got := escapeSubtitlePath("/tmp/it's.ass")
	if !strings.Contains(got, "\\'") {
		t.Errorf("single quote not escaped: %q", got)
	}
	if strings.Contains(got, "'s.ass") {
		t.Errorf("raw quote survived: %q", got)
	}
}

func TestQualityArgs(t *testing.T) {
	render := config.DefaultRender()

	hw := strings.Join(qualityArgs("h264_nvenc", render), " ")
	if !strings.Contains(hw, "-cq 18") {
		t.Errorf("nvenc args = %q", hw)
	}
	if strings.Contains(hw, "-crf") {
		t.Errorf("nvenc must not use -crf: %q", hw)
	}

	sw := strings.Join(qualityArgs("libx264", render), " ")
	if !strings.Contains(sw, "-crf 18") || !strings.Contains(sw, "-preset slower") {
		t.Errorf("x264 args = %q", sw)
	}
}
