package captions

import (
	"strings"
	"testing"
)

// det places one confident detection at normalized y in a 1000px frame.
func det(y float64) Detection {
	center := int(y * 1000)
	return Detection{
		Text:        "x",
		Confidence:  0.9,
		YMin:        center - 10,
		YMax:        center + 10,
		FrameHeight: 1000,
	}
}

func TestDecideZone_EmptyFrameDefaultsBottom(t *testing.T) {
	if got := DecideZone(nil, 0.3); got != ZoneBottom {
		t.Errorf("empty detections = %s, want bottom", got)
	}
}

func TestDecideZone_BottomClearStaysBottom(t *testing.T) {
	// Text in the top fifth only: bottom two zones are clear.
	if got := DecideZone([]Detection{det(0.1)}, 0.3); got != ZoneBottom {
		t.Errorf("got %s, want bottom", got)
	}
}

func TestDecideZone_BottomBusyMovesTop(t *testing.T) {
	// Burned-in subtitles at the bottom; top two zones are clear.
	got := DecideZone([]Detection{det(0.9), det(0.75)}, 0.3)
	if got != ZoneTop {
		t.Errorf("got %s, want top", got)
	}
}

func TestDecideZone_TopAndBottomBusyMovesCenter(t *testing.T) {
	got := DecideZone([]Detection{det(0.1), det(0.9)}, 0.3)
	if got != ZoneCenter {
		t.Errorf("got %s, want center", got)
	}
}

func TestDecideZone_AllBusyPicksLeastOccupiedEdge(t *testing.T) {
	// Everything occupied; bottom is denser than top so top wins.
	detections := []Detection{
		det(0.1),
		det(0.3), det(0.5),
		det(0.9), det(0.85), det(0.95),
	}
	if got := DecideZone(detections, 0.3); got != ZoneTop {
		t.Errorf("got %s, want top", got)
	}

	// Flip the density and the answer flips.
	detections = []Detection{
		det(0.1), det(0.05), det(0.15),
		det(0.3), det(0.5),
		det(0.9),
	}
	if got := DecideZone(detections, 0.3); got != ZoneBottom {
		t.Errorf("got %s, want bottom", got)
	}
}

func TestDecideZone_ConfidenceGate(t *testing.T) {
	low := det(0.9)
	low.Confidence = 0.2
	// Only low-confidence noise at the bottom; treated as clear.
	if got := DecideZone([]Detection{low}, 0.3); got != ZoneBottom {
		t.Errorf("got %s, want bottom", got)
	}
}

func TestDecideZone_Idempotent(t *testing.T) {
	detections := []Detection{det(0.9), det(0.2)}
	first := DecideZone(detections, 0.3)
	for i := 0; i < 5; i++ {
		if got := DecideZone(detections, 0.3); got != first {
			t.Fatalf("decision changed across calls: %s then %s", first, got)
		}
	}
}

func TestNormalizedY(t *testing.T) {
	d := Detection{YMin: 900, YMax: 1000, FrameHeight: 1000}
	if got := d.NormalizedY(); got != 0.95 {
		t.Errorf("NormalizedY = %v, want 0.95", got)
	}
	if (Detection{}).NormalizedY() != 0 {
		t.Error("zero frame height must normalize to 0")
	}
}

func TestParseTSV(t *testing.T) {
	tsv := strings.Join([]string{
		"level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext",
		"5\t1\t1\t1\t1\t1\t40\t900\t120\t60\t91.5\tSUBSCRIBE",
		"5\t1\t1\t1\t1\t2\t40\t100\t80\t40\t-1\t", // layout row, no text
		"5\t1\t1\t1\t1\t3\t40\t50\t80\t40\t88.0\t   ",
		"bad line",
	}, "\n")

	detections := parseTSV(tsv, 1000)
	if len(detections) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(detections))
	}
	d := detections[0]
	if d.Text != "SUBSCRIBE" || d.YMin != 900 || d.YMax != 960 {
		t.Errorf("detection = %+v", d)
	}
	if d.Confidence < 0.914 || d.Confidence > 0.916 {
		t.Errorf("confidence = %v, want 0.915", d.Confidence)
	}
	if d.NormalizedY() != 0.93 {
		t.Errorf("NormalizedY = %v", d.NormalizedY())
	}
}
