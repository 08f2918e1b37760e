package youtube

import (
	"fmt"
	"strings"
	"time"
)

// Cue is one timed caption line.
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// FormatVTT renders cues as a WebVTT document.
func FormatVTT(cues []Cue) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")
	for _, c := range cues {
		fmt.Fprintf(&sb, "%s --> %s\n", formatVTTTime(c.Start), formatVTTTime(c.End))
		sb.WriteString(c.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// formatVTTTime formats d as HH:MM:SS.mmm.
func formatVTTTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d.%03d", ms/3_600_000, (ms/60_000)%60, (ms/1000)%60, ms%1000)
}
