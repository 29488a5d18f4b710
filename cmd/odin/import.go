package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/odin/internal/engine"
	"github.com/kalambet/odin/internal/graph"
	"github.com/kalambet/odin/internal/ingest"
	"github.com/kalambet/odin/internal/prompts"
	"github.com/kalambet/odin/internal/vault"
)

const (
	defaultImportLimit = 100
	previewFiles       = 20
	rule               = "======================================================================"
)

var importCmd = &cobra.Command{
	Use:   "import <vault>",
	Short: "Import the most recent vault notes into the graph",
	Long: `Import the most recently modified notes of a vault into the knowledge graph
and the vector index.

Examples:
  odin import ~/notes
  odin import ~/notes --clear-db --limit 50
  odin import ~/notes --ext md,txt,pdf --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().Bool("clear-db", false, "clear the graph and vector stores before importing")
	importCmd.Flags().Int("limit", defaultImportLimit, "number of most recent files to import (0 for all)")
	importCmd.Flags().Bool("yes", false, "skip the confirmation prompt")
	importCmd.Flags().StringSlice("ext", vault.DefaultExtensions, "file extensions to import")
	importCmd.Flags().Bool("no-embed", false, "skip the embedding pass")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	clearDB, _ := cmd.Flags().GetBool("clear-db")
	limit, _ := cmd.Flags().GetInt("limit")
	yes, _ := cmd.Flags().GetBool("yes")
	exts, _ := cmd.Flags().GetStringSlice("ext")
	noEmbed, _ := cmd.Flags().GetBool("no-embed")

	root, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving vault path: %w", err)
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "ODIN VAULT IMPORT")
	fmt.Fprintln(out, rule)
	printStatus("Vault", "%s", root)
	printStatus("File limit", "%d", limit)
	printStatus("Clear DB", "%t", clearDB)

	docs, err := vault.Scan(root, limit, exts)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no files found to import in %s", root)
	}
	writeFileSummary(out, docs)

	if !clearDB && !yes && !confirm(cmd.InOrStdin(), out, "Proceed with import? (yes/no): ") {
		printWarning("Import cancelled.")
		return nil
	}

	tr, eng, err := a.translator(ctx)
	if err != nil {
		return err
	}
	if err := tr.Validate(prompts.RoleGenerate, prompts.RoleUpdate); err != nil {
		return err
	}
	if engine.Pullable(a.cfg.LLM.Provider) {
		printStep("Checking models")
		embedModel := ""
		if !noEmbed && engine.Pullable(a.cfg.Embedding.Provider) {
			embedModel = a.cfg.Embedding.Model
		}
		if err := engine.EnsureReady(ctx, eng, a.cfg.LLM.Model, embedModel, cmd.ErrOrStderr()); err != nil {
			return err
		}
	}

	g, err := a.openGraph(ctx)
	if err != nil {
		return err
	}
	st, err := a.openStore()
	if err != nil {
		return err
	}

	var index ingest.DocumentIndexer
	if !noEmbed {
		ix, err := a.indexer()
		if err != nil {
			return err
		}
		if err := ix.Ensure(ctx); err != nil {
			return fmt.Errorf("preparing vector collection: %w", err)
		}
		index = ix
	}

	im := ingest.New(g, tr, index, a.log, ingest.WithRecorder(ingest.StoreRecorder{Store: st}))
	run, runErr := im.Run(ctx, docs, ingest.Options{
		RootPath: root,
		Reset:    clearDB,
		Progress: func(p ingest.Progress) {
			printStep("%d/%d documents, ETA %s", p.Done, p.Total, ingest.FormatDuration(p.ETA))
		},
	})

	fmt.Fprintln(out)
	if err := ingest.WriteReport(out, run); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	stats, err := g.Stats(ctx)
	if err != nil {
		printWarning("querying graph statistics: %v", err)
	} else {
		writeGraphStats(out, stats)
	}

	printSuccess("Import complete (run %s)", run.ID)
	return nil
}

// writeFileSummary lists the first files of an import, newest first.
func writeFileSummary(w io.Writer, docs []vault.Document) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "FILES TO IMPORT (most recent first)")
	fmt.Fprintln(w, rule)
	for i, d := range docs {
		if i == previewFiles {
			break
		}
		fmt.Fprintf(w, "  %3d. %s (%s, %s bytes)\n", i+1, d.RelPath, d.ModTime.Format("2006-01-02 15:04"), groupDigits(d.Size))
	}
	if len(docs) > previewFiles {
		fmt.Fprintf(w, "  ... and %d more files\n", len(docs)-previewFiles)
	}
	fmt.Fprintln(w, rule)
}

// confirm asks a yes/no question. Only "yes" or "y" confirms.
func confirm(r io.Reader, w io.Writer, prompt string) bool {
	fmt.Fprint(w, prompt)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "yes", "y":
		return true
	}
	return false
}

func writeGraphStats(w io.Writer, st graph.Stats) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "DATABASE STATISTICS")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Total nodes: %s\n", groupDigits(st.Nodes))
	if len(st.Labels) > 0 {
		fmt.Fprintln(w, "\nNode types:")
		for _, c := range st.Labels {
			fmt.Fprintf(w, "  %s: %s\n", c.Name, groupDigits(c.Count))
		}
	}
	if len(st.Relationships) > 0 {
		fmt.Fprintln(w, "\nRelationship types:")
		for _, c := range st.Relationships {
			fmt.Fprintf(w, "  %s: %s\n", c.Name, groupDigits(c.Count))
		}
	}
	fmt.Fprintf(w, "\nFiles represented in graph: %d\n", st.Files)
	fmt.Fprintln(w, rule)
}

// groupDigits formats n with comma thousands separators.
func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show graph statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		g, err := a.openGraph(cmd.Context())
		if err != nil {
			return err
		}
		st, err := g.Stats(cmd.Context())
		if err != nil {
			return err
		}
		writeGraphStats(cmd.OutOrStdout(), st)
		return nil
	},
}

// isTerminal reports whether f is an interactive terminal.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
