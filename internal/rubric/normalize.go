package rubric

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Word processors sprinkle directional marks around Hebrew text; they never carry meaning.
var invisibleMarks = strings.NewReplacer(
	"\u200e", "",
	"\u200f", "",
	"\u202a", "",
	"\u202b", "",
	"\u202c", "",
	"\u202d", "",
	"\u202e", "",
	"\u2066", "",
	"\u2067", "",
	"\u2068", "",
	"\u2069", "",
	"\ufeff", "",
	"\u00a0", " ",
)

const bulletMarks = "\u2022\u00b7\u25aa\u25cf\u25e6"

// NormalizeLine converts a raw paragraph into the canonical form the classifier expects:
// NFC composed, without directional marks or list bullets, with single spaces and no
// surrounding whitespace. Blank input yields an empty string.
func NormalizeLine(raw string) string {
	line := invisibleMarks.Replace(norm.NFC.String(raw))
	line = strings.Join(strings.Fields(line), " ")
	line = strings.TrimLeft(line, bulletMarks)
	return strings.TrimSpace(line)
}
