package retrieval

import "strings"

// DefaultChunkSize is the maximum chunk length in runes.
const DefaultChunkSize = 2000

// Chunk splits text into pieces of at most maxLen runes. Whitespace-only
// text yields no chunks.
func Chunk(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultChunkSize
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	rs := []rune(text)
	out := make([]string, 0, (len(rs)/maxLen)+1)
	for i := 0; i < len(rs); i += maxLen {
		end := min(i+maxLen, len(rs))
		out = append(out, string(rs[i:end]))
	}
	return out
}
