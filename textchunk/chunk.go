// Package textchunk splits text into segments that fit a message-length limit.
package textchunk

// DefaultLimit is the maximum length of one LINE text message, in characters.
const DefaultLimit = 2000

// Chunk splits text into consecutive segments of at most limit characters
// (Unicode code points). Concatenating the segments reproduces text exactly.
// The result always has at least one element; empty text yields [""].
// A non-positive limit falls back to DefaultLimit.
func Chunk(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}

	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	segments := make([]string, 0, (len(runes)+limit-1)/limit)
	for len(runes) > limit {
		segments = append(segments, string(runes[:limit]))
		runes = runes[limit:]
	}
	return append(segments, string(runes))
}

// Count returns how many segments Chunk produces for text.
func Count(text string, limit int) int {
	if limit <= 0 {
		limit = DefaultLimit
	}
	n := len([]rune(text))
	if n == 0 {
		return 1
	}
	return (n + limit - 1) / limit
}
