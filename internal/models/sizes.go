package models

import (
	"errors"
	"fmt"
	"strings"
)

// Size names a speech-recognition model variant.
type Size string

const (
	SizeTiny   Size = "tiny"
	SizeBase   Size = "base"
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// DefaultSize is used when a request does not name a model.
const DefaultSize = SizeSmall

// ErrUnknownSize is returned for sizes outside the supported set.
var ErrUnknownSize = errors.New("unknown model size")

// SizeInfo describes a supported model size for listings.
type SizeInfo struct {
	Size        Size
	Parameters  string
	Description string
}

var catalog = []SizeInfo{
	{SizeTiny, "39M", "Fastest, lowest accuracy"},
	{SizeBase, "74M", "Fast, suitable for clear speech"},
	{SizeSmall, "244M", "Balanced default"},
	{SizeMedium, "769M", "Higher accuracy, slower"},
	{SizeLarge, "1550M", "Best accuracy, needs a GPU for real-time use"},
}

// Catalog returns the supported sizes from smallest to largest.
func Catalog() []SizeInfo {
	return append([]SizeInfo(nil), catalog...)
}

// Sizes returns the supported size identifiers from smallest to largest.
func Sizes() []Size {
	out := make([]Size, len(catalog))
	for i, info := range catalog {
		out[i] = info.Size
	}
	return out
}

// ParseSize validates a size identifier. Empty input selects DefaultSize.
func ParseSize(value string) (Size, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return DefaultSize, nil
	}
	for _, info := range catalog {
		if string(info.Size) == trimmed {
			return info.Size, nil
		}
	}
	return "", fmt.Errorf("%w %q (expected one of %s)", ErrUnknownSize, value, joinSizes())
}

func joinSizes() string {
	names := make([]string, len(catalog))
	for i, info := range catalog {
		names[i] = string(info.Size)
	}
	return strings.Join(names, ", ")
}
