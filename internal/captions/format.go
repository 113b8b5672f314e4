package captions

import (
	"errors"
	"fmt"
	"strings"
)

// Format identifies a subtitle document format.
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
)

// ErrUnsupportedFormat is returned for format values other than srt and vtt.
var ErrUnsupportedFormat = errors.New("unsupported subtitle format")

// ParseFormat accepts "srt" or "vtt" in any case.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case FormatSRT, FormatVTT:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, value)
	}
}

// Extension returns the file extension, including the leading dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the media type served for documents of this format.
func (f Format) ContentType() string {
	if f == FormatVTT {
		return "text/vtt; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

func (f Format) separator() byte {
	if f == FormatVTT {
		return '.'
	}
	return ','
}
