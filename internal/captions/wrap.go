package captions

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxCaptionLines is the most lines a single caption may occupy before the
// wrap is abandoned.
const MaxCaptionLines = 2

// Wrap is the outcome of wrapping one caption: either the wrapped lines or an
// overflow marker when the text needs more than MaxCaptionLines.
type Wrap struct {
	lines    []string
	overflow bool
}

// Overflow reports whether the text did not fit in MaxCaptionLines.
func (w Wrap) Overflow() bool {
	return w.overflow
}

// Lines returns the wrapped lines. It is nil on overflow.
func (w Wrap) Lines() []string {
	if w.overflow {
		return nil
	}
	return append([]string(nil), w.lines...)
}

// Or returns the wrapped lines joined by newlines, or fallback on overflow.
func (w Wrap) Or(fallback string) string {
	if w.overflow {
		return fallback
	}
	return strings.Join(w.lines, "\n")
}

// WrapCaption greedily packs the words of text into lines of at most width
// characters. Words are never split, so a word longer than width sits alone
// on its own line. Whitespace between words on the same line is kept, with
// each whitespace character written as a space; whitespace at a line break
// is dropped.
func WrapCaption(text string, width int) Wrap {
	lines := wrapWords(splitWords(text), width)
	if len(lines) > MaxCaptionLines {
		return Wrap{overflow: true}
	}
	return Wrap{lines: lines}
}

// word is a run of non-space runes and the whitespace that preceded it.
type word struct {
	gap  string
	text string
}

func splitWords(text string) []word {
	var (
		words []word
		gap   strings.Builder
		cur   strings.Builder
	)
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		words = append(words, word{gap: gap.String(), text: cur.String()})
		gap.Reset()
		cur.Reset()
	}
	for _, r := range text {
		if unicode.IsSpace(r) {
			flush()
			gap.WriteByte(' ')
			continue
		}
		cur.WriteRune(r)
	}
	flush()
	return words
}

func wrapWords(words []word, width int) []string {
	if len(words) == 0 {
		return nil
	}
	if width < 1 {
		width = 1
	}
	var (
		lines   []string
		current strings.Builder
		size    int
	)
	for _, w := range words {
		n := utf8.RuneCountInString(w.text)
		if size > 0 && size+len(w.gap)+n > width {
			lines = append(lines, current.String())
			current.Reset()
			size = 0
		}
		if size > 0 {
			current.WriteString(w.gap)
			size += len(w.gap)
		}
		current.WriteString(w.text)
		size += n
	}
	return append(lines, current.String())
}
