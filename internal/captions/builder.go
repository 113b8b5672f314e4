package captions

import (
	"fmt"
	"strconv"
	"strings"
)

// VTTHeader opens every WebVTT document.
const VTTHeader = "WEBVTT\n\n"

// Segment is one timed span of recognised speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Build renders segments as a complete subtitle document in the given format.
// Blocks follow input order; SRT indices count from 1 regardless of gaps in the
// timeline. An empty segment list yields "" for SRT and the bare header for VTT.
func Build(segments []Segment, format Format, maxWidth int) (string, error) {
	switch format {
	case FormatSRT, FormatVTT:
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
	}

	blocks := make([]string, 0, len(segments))
	for i, seg := range segments {
		blocks = append(blocks, renderBlock(i+1, seg, format, maxWidth))
	}
	body := strings.Join(blocks, "\n")
	if format == FormatVTT {
		return VTTHeader + body, nil
	}
	return body, nil
}

func renderBlock(index int, seg Segment, format Format, maxWidth int) string {
	text := strings.TrimSpace(seg.Text)
	caption := WrapCaption(text, maxWidth).Or(text)
	sep := format.separator()

	var b strings.Builder
	if format == FormatSRT {
		b.WriteString(strconv.Itoa(index))
		b.WriteByte('\n')
	}
	b.WriteString(FormatTimestamp(seg.Start, sep))
	b.WriteString(" --> ")
	b.WriteString(FormatTimestamp(seg.End, sep))
	b.WriteByte('\n')
	b.WriteString(caption)
	b.WriteByte('\n')
	return b.String()
}

// Sanitize returns a copy of segments with negative starts clamped to zero and
// any end earlier than its start raised to the start. The second result counts
// the segments that were adjusted.
func Sanitize(segments []Segment) ([]Segment, int) {
	out := make([]Segment, len(segments))
	adjusted := 0
	for i, seg := range segments {
		fixed := seg
		if fixed.Start < 0 {
			fixed.Start = 0
		}
		if fixed.End < fixed.Start {
			fixed.End = fixed.Start
		}
		if fixed != seg {
			adjusted++
		}
		out[i] = fixed
	}
	return out, adjusted
}
