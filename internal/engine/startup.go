package engine

import (
	"context"
	"fmt"
	"io"
)

// EnsureReady fails fast when the backend is down and pulls whichever of the
// chat and embedding models is missing. Empty names are skipped and a model
// shared by both roles is checked once. Progress goes to w.
func EnsureReady(ctx context.Context, e Engine, chatModel, embedModel string, w io.Writer) error {
	if !e.IsRunning(ctx) {
		return fmt.Errorf("model backend is not reachable; start it or check the provider settings")
	}

	for _, model := range distinct(chatModel, embedModel) {
		if !e.HasModel(ctx, model) {
			fmt.Fprintf(w, "model %s: pulling...\n", model)
			pw := &pullPrinter{w: w}
			if err := e.PullModel(ctx, model, pw.print); err != nil {
				return fmt.Errorf("pulling model %s: %w", model, err)
			}
		}
		fmt.Fprintf(w, "model %s: ready\n", model)
	}
	return nil
}

func distinct(names ...string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// pullPrinter writes one line per progress update, dropping updates that
// would repeat the previous line.
type pullPrinter struct {
	w    io.Writer
	last string
}

func (p *pullPrinter) print(pp PullProgress) {
	line := pp.Status
	if pp.Total > 0 {
		line = fmt.Sprintf("%s %.0f%%", pp.Status, float64(pp.Completed)/float64(pp.Total)*100)
	}
	if line == p.last {
		return
	}
	p.last = line
	fmt.Fprintf(p.w, "  %s\n", line)
}
