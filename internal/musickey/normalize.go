// Package musickey folds track titles and artist names into comparison keys
// that survive case, width, bracketed annotations, punctuation and
// traditional/simplified Chinese differences.
package musickey

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"ottermusic/searchservice/internal/domain"
)

var (
	// NFKC folds full-width brackets to ASCII first; the CJK forms stay for
	// 【】, which have no compatibility mapping.
	bracketPattern = regexp.MustCompile(`(?s)[(\[{【（].*?[)\]}】）]`)
	noisePattern   = regexp.MustCompile(`[^0-9a-z_\x{4e00}-\x{9fa5}]+`)
)

var simplifiedByTraditional = buildSimplifiedTable()

func buildSimplifiedTable() map[rune]rune {
	traditional := []rune(traditionalChars)
	simplified := []rune(simplifiedChars)
	if len(traditional) != len(simplified) {
		panic("musickey: traditional/simplified tables are misaligned")
	}
	table := make(map[rune]rune, len(traditional))
	for i, r := range traditional {
		table[r] = simplified[i]
	}
	return table
}

// Normalize returns the comparison form of text. The result is idempotent:
// Normalize(Normalize(s)) == Normalize(s). When folding strips everything,
// the lowercased input without whitespace is returned so that symbol-only
// titles still produce a usable key.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	lowered := strings.ToLower(text)

	folded := strings.ToLower(norm.NFKC.String(lowered))
	folded = bracketPattern.ReplaceAllString(folded, "")
	folded = toSimplified(folded)
	folded = strings.TrimSpace(noisePattern.ReplaceAllString(folded, ""))
	if folded != "" {
		return folded
	}
	return stripSpace(lowered)
}

// NormalizeArtists normalizes each name, drops names that fold to nothing
// and sorts the rest, so artist order never affects a key.
func NormalizeArtists(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if normalized := Normalize(name); normalized != "" {
			out = append(out, normalized)
		}
	}
	sort.Strings(out)
	return out
}

func ArtistKey(artists []string) string {
	return strings.Join(NormalizeArtists(artists), "/")
}

// ExactKey identifies a recording across sources. Two tracks with equal keys
// are duplicates, not merely similar.
func ExactKey(name string, artists []string) string {
	return Normalize(name) + "|" + ArtistKey(artists)
}

func TrackKey(track domain.Track) string {
	return ExactKey(track.Name, track.Artists)
}

func toSimplified(text string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x4e00 || r > 0x9fa5 {
			return r
		}
		if simplified, ok := simplifiedByTraditional[r]; ok {
			return simplified
		}
		return r
	}, text)
}

func stripSpace(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
}
