package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/odin/internal/config"
	"github.com/kalambet/odin/internal/ingest"
	"github.com/kalambet/odin/internal/storage"
	"github.com/kalambet/odin/internal/vault"
)

// --- translate ---

var translateCmd = &cobra.Command{
	Use:   "translate <file>",
	Short: "Print the Cypher generated for one note without writing it",
	Long: `Print the Cypher statements generated for a single note. Nothing is written
to the graph.

Examples:
  odin translate ~/notes/ideas.md
  odin translate ~/notes/ideas.md --update --root ~/notes`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		update, _ := cmd.Flags().GetBool("update")
		root, _ := cmd.Flags().GetString("root")
		showPrompt, _ := cmd.Flags().GetBool("show-prompt")

		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		if root == "" {
			root = filepath.Dir(path)
		}
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		text, err := vault.Read(vault.Document{Path: path, RelPath: filepath.Base(path), ModTime: info.ModTime(), Size: info.Size()})
		if err != nil {
			return err
		}

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		tr, _, err := a.translator(ctx)
		if err != nil {
			return err
		}

		var out string
		if update {
			g, err := a.openGraph(ctx)
			if err != nil {
				return err
			}
			data, err := g.ExportForRoot(ctx, root)
			if err != nil {
				return err
			}
			out, err = tr.SynthesizeUpdate(ctx, data, text, root, path)
			if err != nil {
				return err
			}
		} else {
			out, err = tr.SynthesizeCreate(ctx, text, root, path)
			if err != nil {
				return err
			}
		}

		if showPrompt {
			for _, m := range tr.LastExchange() {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s\n%s\n\n", colorize(colorBold, "["+m.Role+"]"), m.Content)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	translateCmd.Flags().Bool("update", false, "translate against the existing graph instead of an empty one")
	translateCmd.Flags().String("root", "", "vault root (default: the file's directory)")
	translateCmd.Flags().Bool("show-prompt", false, "print the exchanged prompt and response to stderr")
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Run an auxiliary model prompt",
}

// askSubcommand builds an ask subcommand reading its input from a file
// argument or stdin.
func askSubcommand(use, short string, call func(a *app, cmd *cobra.Command, input string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [file]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("no input: pass a file or pipe text on stdin")
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()

			out, err := call(a, cmd, input)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

func init() {
	askCmd.AddCommand(
		askSubcommand("questions", "Generate study questions about a text", func(a *app, cmd *cobra.Command, in string) (string, error) {
			tr, _, err := a.translator(cmd.Context())
			if err != nil {
				return "", err
			}
			return tr.GenerateQuestions(cmd.Context(), in)
		}),
		askSubcommand("explain", "Explain a code snippet", func(a *app, cmd *cobra.Command, in string) (string, error) {
			tr, _, err := a.translator(cmd.Context())
			if err != nil {
				return "", err
			}
			return tr.ExplainCode(cmd.Context(), in)
		}),
		askSubcommand("optimize", "Rewrite a code snippet in a cleaner style", func(a *app, cmd *cobra.Command, in string) (string, error) {
			tr, _, err := a.translator(cmd.Context())
			if err != nil {
				return "", err
			}
			return tr.OptimizeCodeStyle(cmd.Context(), in)
		}),
		askSubcommand("debug", "Find and fix bugs in a code snippet", func(a *app, cmd *cobra.Command, in string) (string, error) {
			tr, _, err := a.translator(cmd.Context())
			if err != nil {
				return "", err
			}
			return tr.DebugCode(cmd.Context(), in)
		}),
	)
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantically search imported notes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		r, err := a.retriever()
		if err != nil {
			return err
		}
		matches, err := r.Search(cmd.Context(), strings.Join(args, " "), limit)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			printWarning("No matches.")
			return nil
		}

		out := cmd.OutOrStdout()
		for i, m := range matches {
			fmt.Fprintf(out, "%d. %s #%d (score %.3f)\n", i+1, colorize(colorBold, m.SourceID), m.ChunkIndex, m.Score)
			fmt.Fprintf(out, "   %s\n", snippet(m.Text, 200))
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().Int("limit", 5, "maximum number of results")
}

// snippet flattens whitespace and truncates s to max runes.
func snippet(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// --- runs ---

var runsCmd = &cobra.Command{
	Use:   "runs [id]",
	Short: "List past imports or show one in detail",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		st, err := a.openStore()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(args) == 1 {
			run, err := st.GetImportRun(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("run %s: %w", args[0], err)
			}
			if asJSON {
				return writeIndentedJSON(out, run)
			}
			return ingest.WriteReport(out, ingest.FromStorage(run))
		}

		runs, err := st.ListImportRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if asJSON {
			return writeIndentedJSON(out, runs)
		}
		writeRunTable(out, runs)
		return nil
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "number of runs to list")
	runsCmd.Flags().Bool("json", false, "print JSON")
}

func writeRunTable(w io.Writer, runs []storage.ImportRun) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No imports recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tROOT\tPROCESSED\tFAILED\tEMBEDDED\tELAPSED")
	for _, r := range runs {
		status := ""
		if r.Cancelled {
			status = " (cancelled)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%d\t%d\t%s%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.RootPath,
			r.Processed, r.Total, r.Failed, r.Embedded,
			ingest.FormatDuration(r.Elapsed), status)
	}
	tw.Flush()
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		writeConfig(cmd.OutOrStdout(), cfg)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the default config file location",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.DefaultPath())
	},
}

func writeConfig(w io.Writer, cfg config.Config) {
	for _, k := range config.ShowAll(cfg) {
		fmt.Fprintf(w, "  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorCyan, "$"+k.EnvVar))
	}
}

func init() {
	configCmd.AddCommand(configShowCmd, configPathCmd)
}
