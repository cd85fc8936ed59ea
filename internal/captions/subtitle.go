package captions

import (
	"fmt"
	"os"
	"strings"

	"viralforge/internal/models"
)

// Style controls caption rendering for burn-in.
type Style struct {
	FontName string
	FontSize int
}

// alignment maps placement zones to ASS numpad alignment codes.
func alignment(zone Zone) int {
	switch zone {
	case ZoneTop:
		return 8
	case ZoneCenter:
		return 5
	default:
		return 2
	}
}

// WriteASS renders the transcript as an ASS subtitle file anchored at the
// chosen zone: upper-cased, high-vis yellow fill with a black stroke, the
// look used across shorts output.
func WriteASS(path string, segments []models.TranscriptSegment, zone Zone, width, height int, style Style) error {
	if style.FontName == "" {
		style.FontName = "DejaVu Sans"
	}
	if style.FontSize == 0 {
		style.FontSize = height / 15
	}

	var sb strings.Builder
	sb.WriteString("[Script Info]\n")
	sb.WriteString("ScriptType: v4.00+\n")
	fmt.Fprintf(&sb, "PlayResX: %d\nPlayResY: %d\n\n", width, height)

	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, OutlineColour, Bold, Outline, Shadow, Alignment, MarginL, MarginR, MarginV\n")
	// #FFE100 in ASS BGR byte order.
	fmt.Fprintf(&sb,
		"Style: Caption,%s,%d,&H0000E1FF,&H00000000,-1,3,0,%d,%d,%d,%d\n\n",
		style.FontName, style.FontSize, alignment(zone),
		width/13, width/13, height/12)

	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Text\n")
	for _, seg := range segments {
		fmt.Fprintf(&sb, "Dialogue: 0,%s,%s,Caption,%s\n",
			assTime(seg.Start), assTime(seg.End), escapeASS(strings.ToUpper(seg.Text)))
	}

	return os.WriteFile(path, []byte(sb.String()), 0644)
}

// assTime formats seconds as H:MM:SS.cc.
func assTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	s := int(seconds) % 60
	cs := int((seconds - float64(int(seconds))) * 100)
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

func escapeASS(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, "\n", "\\N")
	return strings.ReplaceAll(text, "{", "(")
}
