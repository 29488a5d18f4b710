package retrieval

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestChunk(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   []string
	}{
		{"empty", "", 10, nil},
		{"whitespace", "  \n\t", 10, nil},
		{"short", "hello", 10, []string{"hello"}},
		{"exact", "abcd", 2, []string{"ab", "cd"}},
		{"remainder", "abcde", 2, []string{"ab", "cd", "e"}},
		{"multibyte", "ééééé", 2, []string{"éé", "éé", "é"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, Chunk(tc.text, tc.maxLen)); diff != "" {
				t.Errorf("Chunk mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChunk_DefaultSize(t *testing.T) {
	got := Chunk(strings.Repeat("x", DefaultChunkSize+1), 0)
	if len(got) != 2 {
		t.Fatalf("got %d chunks, want 2", len(got))
	}
}
