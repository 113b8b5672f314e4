package captions

import (
	"fmt"
	"strings"
)

// Summary describes a rendered subtitle document.
type Summary struct {
	Format      Format
	Cues        int
	FirstMillis int64
	LastMillis  int64
	Issues      []string
}

// Inspect counts cues and timeline bounds in an SRT or WebVTT document and
// reports structural issues. An empty Issues slice means the document passed.
func Inspect(content string) Summary {
	summary := Summary{Format: FormatSRT}
	body := strings.ReplaceAll(content, "\r\n", "\n")
	if strings.HasPrefix(body, "WEBVTT") {
		summary.Format = FormatVTT
		if !strings.HasPrefix(body, VTTHeader) {
			summary.Issues = append(summary.Issues, "vtt_header_not_followed_by_blank_line")
		}
		body = strings.TrimPrefix(body, "WEBVTT")
	}

	body = strings.TrimSpace(body)
	if body == "" {
		summary.Issues = append(summary.Issues, "empty_subtitle_file")
		return summary
	}

	found := false
	for i, block := range strings.Split(body, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		summary.Cues++
		start, end, err := blockTiming(block)
		if err != nil {
			summary.Issues = append(summary.Issues, fmt.Sprintf("cue %d: %v", i+1, err))
			continue
		}
		if end < start {
			summary.Issues = append(summary.Issues, fmt.Sprintf("cue %d: end precedes start", i+1))
		}
		if !found || start < summary.FirstMillis {
			summary.FirstMillis = start
		}
		if end > summary.LastMillis {
			summary.LastMillis = end
		}
		found = true
	}
	if !found {
		summary.Issues = append(summary.Issues, "no_valid_timestamps")
	}
	return summary
}

func blockTiming(block string) (int64, int64, error) {
	for _, line := range strings.Split(block, "\n") {
		if !strings.Contains(line, "-->") {
			continue
		}
		parts := strings.Split(line, "-->")
		if len(parts) != 2 {
			return 0, 0, fmt.Errorf("malformed timing line %q", line)
		}
		start, err := ParseTimestamp(parts[0])
		if err != nil {
			return 0, 0, err
		}
		end, err := ParseTimestamp(parts[1])
		if err != nil {
			return 0, 0, err
		}
		return start, end, nil
	}
	return 0, 0, fmt.Errorf("missing timing line")
}
