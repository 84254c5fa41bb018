// Package dialogue normalizes and fuzzily matches caption dialogue lines
// across two scripts to estimate the timing drift between them.
package dialogue

import (
	"strings"

	"github.com/crsod/crsod/internal/timing"
)

// DefaultMinMatchLength is the minimum normalized text length considered
// unambiguous enough to anchor a cross-script match. Shorter lines
// ("Huh?", "No!") recur too often to identify a position reliably.
const DefaultMinMatchLength = 6

// Line is one timed subtitle entry, reduced to what matching needs.
// Derived per comparison and never persisted.
type Line struct {
	Raw        string
	Normalized string
	StartMs    int64
}

// Normalize strips ASS override blocks (`{...}`, single level, up to the
// next closing brace) and backslash escapes (the backslash and the
// following character both dropped), then keeps only ASCII letters and
// digits. Case is preserved: matching is exact-normalized, not folded.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inBlock := false
	skipNext := false
	for _, r := range text {
		switch {
		case skipNext:
			skipNext = false
		case inBlock:
			if r == '}' {
				inBlock = false
			}
		case r == '{':
			inBlock = true
		case r == '\\':
			skipNext = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		}
	}

	return b.String()
}

// ExtractLines collects the Dialogue entries of an ASS script in order.
// The start time is the second comma-delimited field; the free-text
// payload begins after exactly nine comma-delimited header fields.
// Lines whose time field fails to parse are skipped rather than failing
// the whole extraction.
func ExtractLines(script string) []Line {
	var lines []Line
	for _, raw := range strings.Split(script, "\r\n") {
		if !strings.HasPrefix(raw, "Dialogue: ") {
			continue
		}
		fields := strings.SplitN(raw, ",", 10)
		if len(fields) != 10 {
			continue
		}
		startMs, err := timing.ParseTime(fields[1])
		if err != nil {
			continue
		}
		lines = append(lines, Line{
			Raw:        raw,
			Normalized: Normalize(fields[9]),
			StartMs:    startMs,
		})
	}
	return lines
}

// FindMatchingPair scans the dialogue lines of scriptA in order and, for
// each line whose normalized text is at least minLen long, scans scriptB
// in order for the first exact normalized match. First found wins; there
// is no scoring and the tie-break is strictly positional.
func FindMatchingPair(scriptA, scriptB string, minLen int) (Line, Line, bool) {
	if minLen <= 0 {
		minLen = DefaultMinMatchLength
	}

	linesB := ExtractLines(scriptB)
	for _, a := range ExtractLines(scriptA) {
		if len(a.Normalized) < minLen {
			continue
		}
		for _, b := range linesB {
			if a.Normalized == b.Normalized {
				return a, b, true
			}
		}
	}
	return Line{}, Line{}, false
}

// EstimateOffset returns the millisecond drift between two scripts as
// `timeA - timeB` of the first matching pair. The boolean distinguishes
// a legitimately-zero offset from no match found.
func EstimateOffset(scriptA, scriptB string, minLen int) (int64, bool) {
	a, b, ok := FindMatchingPair(scriptA, scriptB, minLen)
	if !ok {
		return 0, false
	}
	return a.StartMs - b.StartMs, true
}
