package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nordlex/lagrum/pkg/amendment"
	"github.com/nordlex/lagrum/pkg/citation"
	"github.com/nordlex/lagrum/pkg/config"
	"github.com/nordlex/lagrum/pkg/logging"
	"github.com/nordlex/lagrum/pkg/metrics"
	"github.com/nordlex/lagrum/pkg/search"
	"github.com/nordlex/lagrum/pkg/segment"
	"github.com/nordlex/lagrum/pkg/store"
	"github.com/nordlex/lagrum/pkg/types"
)

var version = "0.1.0"

// app carries the wired-up components shared by the subcommands.
type app struct {
	cfg      config.Config
	metrics  *metrics.Metrics
	registry *prometheus.Registry
}

func main() {
	a := &app{}
	var configPath string
	var showMetrics bool

	rootCmd := &cobra.Command{
		Use:   "lagrum",
		Short: "Swedish statute database with temporal versioning",
		Long: `Lagrum ingests consolidated SFS statute text, segments it into
provisions, and tracks how each provision's wording changes over time.

It answers:
  - What does 3 kap. 5 § say today?
  - What did it say on 2019-06-01?
  - What changed between two dates?
  - Which provisions mention a term, as the law stood at a date?`,
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.registry = prometheus.NewRegistry()
			a.metrics = metrics.New(a.registry)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !showMetrics {
				return nil
			}
			return printMetrics(a.registry)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().String("db", "", "database path (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&showMetrics, "metrics", false, "print collected metrics after the command")

	rootCmd.AddCommand(ingestCmd(a))
	rootCmd.AddCommand(provisionCmd(a))
	rootCmd.AddCommand(diffCmd(a))
	rootCmd.AddCommand(changesCmd(a))
	rootCmd.AddCommand(searchCmd(a))
	rootCmd.AddCommand(amendmentsCmd(a))
	rootCmd.AddCommand(promoteCmd(a))
	rootCmd.AddCommand(statusCmd(a))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore opens the configured database, honoring the --db override.
func (a *app) openStore(cmd *cobra.Command) (*store.Store, error) {
	path := a.cfg.Database.Path
	if override, _ := cmd.Flags().GetString("db"); override != "" {
		path = override
	}
	log := logging.New(logging.Config{
		Level:  a.cfg.Log.Level,
		Pretty: a.cfg.Log.Pretty,
	})
	return store.Open(path,
		store.WithLogger(log),
		store.WithStrictIntervals(a.cfg.Store.StrictIntervals))
}

func ingestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [sfs-number] [file]",
		Short: "Segment a consolidated statute text and record it",
		Long: `Ingest reads a consolidated statute text, segments it into provisions,
and applies the result to the version store. Unchanged provisions keep
their validity window; changed wordings close the old window at the
effective date and open a new one.

Example:
  lagrum ingest 2018:218 dataskyddslagen.txt
  lagrum ingest 2018:218 dataskyddslagen.txt --effective 2021-01-01`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			documentID, path := args[0], args[1]

			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading statute text: %w", err)
			}

			var effective *types.Date
			if v, _ := cmd.Flags().GetString("effective"); v != "" {
				d, err := types.ParseDate(v)
				if err != nil {
					return err
				}
				effective = &d
			}

			fmt.Printf("Ingesting %s from %s\n", documentID, path)

			fmt.Print("  1. Segmenting provisions... ")
			seg := segment.New()
			provisions, diag := seg.Segment(documentID, string(raw))
			a.metrics.ObserveDiagnostics(len(provisions), diag)
			fmt.Printf("done (%d provisions, %d suppressed, %d markers ignored)\n",
				len(provisions), diag.SuppressedSectionCandidates, diag.IgnoredChapterMarkers)

			fmt.Print("  2. Applying to version store... ")
			s, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := s.IngestDocument(cmd.Context(), store.IngestParams{
				DocumentID: documentID,
				Provisions: provisions,
				Effective:  effective,
			})
			if err != nil {
				return err
			}
			a.metrics.ObserveIngest(result.Opened, result.Reworded, result.Closed)
			fmt.Printf("done (run %s)\n", result.RunID)
			fmt.Printf("     opened %d, reworded %d, closed %d, unchanged %d\n",
				result.Opened, result.Reworded, result.Closed, result.Unchanged)

			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose && diag.SuppressedSectionCandidates > 0 {
				fmt.Println("  Suppressions by reason:")
				for reason, count := range diag.SuppressionsByReason {
					fmt.Printf("    %-22s %d\n", reason, count)
				}
			}
			return nil
		},
	}
	cmd.Flags().String("effective", "", "date the changed wordings take effect (YYYY-MM-DD)")
	cmd.Flags().Bool("verbose", false, "print suppression diagnostics")
	return cmd
}

func provisionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision [sfs-number] [ref]",
		Short: "Show a provision's wording, current or at a date",
		Long: `Provision prints the wording of one provision. With --at it resolves
the wording valid on that date and reports its status: current,
historical, future, or not_found.

Example:
  lagrum provision 2018:218 1:1
  lagrum provision 2018:218 1:1 --at 2019-06-01`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			documentID, ref := args[0], args[1]

			s, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			at := types.Today()
			if v, _ := cmd.Flags().GetString("at"); v != "" {
				at, err = types.ParseDate(v)
				if err != nil {
					return err
				}
			}

			result, err := s.VersionAt(cmd.Context(), documentID, ref, at)
			if err != nil {
				return err
			}
			a.metrics.VersionLookups.WithLabelValues(string(result.Status)).Inc()

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(result)
			}

			fmt.Printf("Status: %s\n", result.Status)
			if result.Version == nil {
				return nil
			}
			v := result.Version
			chapter, section := types.SplitRef(ref)
			fmt.Printf("\n%s%s\n", citation.FormatPinpoint(chapter, section),
				statuteName(cmd.Context(), s, documentID))
			if v.Title != "" {
				fmt.Printf("%s\n", v.Title)
			}
			fmt.Printf("Valid: %s\n\n%s\n", windowLabel(v.ValidityWindow), v.Content)
			return nil
		},
	}
	cmd.Flags().String("at", "", "resolve the wording valid on this date (YYYY-MM-DD)")
	cmd.Flags().Bool("json", false, "print the raw result as JSON")
	return cmd
}

func diffCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "diff [sfs-number] [ref]",
		Short:   "Compare a provision's wording between two dates",
		Example: `  lagrum diff 2018:218 1:2 --from 2019-01-01 --to 2022-01-01`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			documentID, ref := args[0], args[1]

			fromStr, _ := cmd.Flags().GetString("from")
			toStr, _ := cmd.Flags().GetString("to")
			if fromStr == "" || toStr == "" {
				return fmt.Errorf("--from and --to are required")
			}
			from, err := types.ParseDate(fromStr)
			if err != nil {
				return err
			}
			to, err := types.ParseDate(toStr)
			if err != nil {
				return err
			}

			s, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := s.Diff(cmd.Context(), documentID, ref, from, to)
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(result)
			}

			if !result.Changed {
				fmt.Printf("%s %s: unchanged between %s and %s\n", documentID, ref, from, to)
				return nil
			}
			fmt.Printf("%s %s: changed between %s and %s\n\n", documentID, ref, from, to)
			fmt.Println(result.Diff)
			return nil
		},
	}
	cmd.Flags().String("from", "", "earlier date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "later date (YYYY-MM-DD)")
	cmd.Flags().Bool("json", false, "print the raw result as JSON")
	return cmd
}

func changesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changes",
		Short: "List provision wordings that took effect since a date",
		Example: `  lagrum changes --since 2023-01-01
  lagrum changes --since 2023-01-01 --document 2018:218`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sinceStr, _ := cmd.Flags().GetString("since")
			if sinceStr == "" {
				return fmt.Errorf("--since is required")
			}
			since, err := types.ParseDate(sinceStr)
			if err != nil {
				return err
			}
			documentID, _ := cmd.Flags().GetString("document")

			s, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			feed, err := s.ChangesSince(cmd.Context(), since, documentID)
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(feed)
			}

			if len(feed) == 0 {
				fmt.Printf("No wording changes since %s\n", since)
				return nil
			}
			for _, v := range feed {
				fmt.Printf("%s  %s %-10s %s\n",
					v.ValidFrom, v.DocumentID, v.Ref(), firstLine(v.Content))
			}
			return nil
		},
	}
	cmd.Flags().String("since", "", "list changes effective on or after this date (YYYY-MM-DD)")
	cmd.Flags().String("document", "", "restrict to one statute")
	cmd.Flags().Bool("json", false, "print the raw feed as JSON")
	return cmd
}

func searchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Full-text search over provisions",
		Long: `Search runs a full-text query over the current wordings, or, with
--as-of, over the wordings valid at that date.

Example:
  lagrum search "personuppgifter"
  lagrum search "personuppgifter" --as-of 2019-06-01`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			req := search.Request{Query: args[0]}
			req.DocumentID, _ = cmd.Flags().GetString("document")
			req.AsOf, _ = cmd.Flags().GetString("as-of")
			req.Limit, _ = cmd.Flags().GetInt("limit")

			adapter := search.New(s.DB(),
				search.WithFallback(a.cfg.Search.EnableFallback),
				search.WithLogger(logging.New(logging.Config{
					Level:  a.cfg.Log.Level,
					Pretty: a.cfg.Log.Pretty,
				})))

			resp, err := adapter.Search(cmd.Context(), req)
			if err != nil {
				return err
			}
			mode := "current"
			if req.AsOf != "" {
				mode = "as_of"
			}
			a.metrics.SearchQueries.WithLabelValues(mode).Inc()
			if resp.UsedFallback {
				a.metrics.SearchFallback.Inc()
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(resp)
			}

			if len(resp.Hits) == 0 {
				fmt.Println("No matches.")
				return nil
			}
			if resp.UsedFallback {
				fmt.Println("(no exact phrase match; showing relaxed term matches)")
			}
			for _, h := range resp.Hits {
				fmt.Printf("%s %-10s %s\n", h.DocumentID, h.ProvisionRef, h.Snippet)
			}
			return nil
		},
	}
	cmd.Flags().String("document", "", "restrict to one statute")
	cmd.Flags().String("as-of", "", "search wordings valid on this date (YYYY-MM-DD)")
	cmd.Flags().Int("limit", 0, "maximum number of hits")
	cmd.Flags().Bool("json", false, "print the raw response as JSON")
	return cmd
}

func amendmentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amendments [sfs-number]",
		Short: "List recorded amendment facts for a statute",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ref, _ := cmd.Flags().GetString("ref")
			facts, err := s.AmendmentsFor(cmd.Context(), args[0], ref)
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(facts)
			}

			if len(facts) == 0 {
				fmt.Println("No amendment facts recorded.")
				return nil
			}
			for _, f := range facts {
				fmt.Printf("%-10s %-12s by SFS %-10s (%s) %s\n",
					f.ProvisionRef, f.Type, f.AmendedBySFS, f.Position, f.RawText)
			}
			return nil
		},
	}
	cmd.Flags().String("ref", "", "restrict to one provision")
	cmd.Flags().Bool("json", false, "print the raw facts as JSON")
	return cmd
}

func promoteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promote [sfs-number] [ref]",
		Short: "Extract amendment references from a provision and record them",
		Long: `Promote runs the amendment extractor over the current wording of a
provision and records the extracted references in the amendment log.
Ingestion never does this on its own; extracted references stay
derived annotations until promoted.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			documentID, ref := args[0], args[1]

			s, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			p, err := s.CurrentProvision(cmd.Context(), documentID, ref)
			if err != nil {
				return err
			}

			refs := amendment.NewExtractor().ExtractFromProvisionText(p.Content)
			if len(refs) == 0 {
				fmt.Println("No amendment references found.")
				return nil
			}

			if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
				fmt.Printf("Would record %d amendment fact(s):\n", len(refs))
				for _, r := range refs {
					fmt.Printf("  %-12s by SFS %-10s (%s)\n", r.Type, r.AmendedBySFS, r.Position)
				}
				return nil
			}

			n, err := s.PromoteAmendments(cmd.Context(), documentID, ref, refs)
			if err != nil {
				return err
			}
			fmt.Printf("Recorded %d amendment fact(s) for %s %s\n", n, documentID, ref)
			return nil
		},
	}
	cmd.Flags().Bool("dry-run", false, "show what would be recorded without writing")
	return cmd
}

func statusCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show database contents and per-document currency",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			stats, err := s.DatabaseStats(cmd.Context())
			if err != nil {
				return err
			}
			docs, err := s.ListDocuments(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(struct {
					Stats     store.Stats      `json:"stats"`
					Documents []types.Document `json:"documents"`
				}{stats, docs})
			}

			fmt.Printf("Documents:       %d\n", stats.Documents)
			fmt.Printf("Provisions:      %d\n", stats.Provisions)
			fmt.Printf("Versions:        %d (%d open)\n", stats.Versions, stats.OpenVersions)
			fmt.Printf("Amendment facts: %d\n", stats.AmendmentFacts)

			if len(docs) > 0 {
				fmt.Println("\nStatutes:")
				today := types.Today()
				for _, d := range docs {
					state := "in force"
					if !d.InForceAt(today) {
						state = fmt.Sprintf("repealed by %s", d.RepealedBy)
					}
					title := d.Title
					if title == "" {
						title = "(untitled)"
					}
					fmt.Printf("  SFS %-10s %-40s %s\n", d.DocumentID, title, state)
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "print the raw stats as JSON")
	return cmd
}

// printMetrics dumps the gathered counter families to stderr, labels
// included, so batch runs can be inspected without a scrape endpoint.
func printMetrics(reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	fmt.Fprintln(os.Stderr, "--- metrics ---")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			fmt.Fprintf(os.Stderr, "%s %v\n", name, m.GetCounter().GetValue())
		}
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// statuteName returns the stored title when the document has one, else the
// SFS number itself.
func statuteName(ctx context.Context, s *store.Store, documentID string) string {
	doc, err := s.GetDocument(ctx, documentID)
	if err != nil || doc.Title == "" {
		return "(" + documentID + ")"
	}
	return fmt.Sprintf("%s (%s)", doc.Title, documentID)
}

func windowLabel(w types.ValidityWindow) string {
	from := "original wording"
	if w.ValidFrom != nil {
		from = "from " + w.ValidFrom.String()
	}
	if w.ValidTo == nil {
		return from + " (current)"
	}
	return fmt.Sprintf("%s until %s", from, w.ValidTo)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	// Truncate on runes so multi-byte letters are never split.
	if utf8.RuneCountInString(s) > 80 {
		runes := []rune(s)
		s = string(runes[:77]) + "..."
	}
	return s
}
