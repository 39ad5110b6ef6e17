// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/sieve/internal/evidence"
	"github.com/pdiddy/sieve/internal/export"
	"github.com/pdiddy/sieve/internal/store"
	"github.com/pdiddy/sieve/pkg/types"
)

// --- list ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List curation records page by page",
	Long: `List shows a page of records, optionally filtered by status and
ordered by one of the sort keys. Decided records show their latest
decision, so --status ACCEPTED --sort decided_at lists recent acceptances.`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	statusFlag, _ := cmd.Flags().GetString("status")
	sortFlag, _ := cmd.Flags().GetString("sort")
	desc, _ := cmd.Flags().GetBool("desc")
	page, _ := cmd.Flags().GetInt("page")
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	opts := store.ListOptions{Descending: desc, Limit: limit}
	if statusFlag != "" {
		status := types.Status(strings.ToUpper(statusFlag))
		if !status.Valid() {
			return fmt.Errorf("unknown status %q: use UNREVIEWED, ACCEPTED, REJECTED or CONTROVERSIAL", statusFlag)
		}
		opts.Status = status
	}
	key, err := store.ParseSortKey(sortFlag)
	if err != nil {
		return err
	}
	opts.Sort = key
	if page < 1 {
		page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 25
	}
	opts.Offset = (page - 1) * opts.Limit

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	result, err := e.store.ListRecords(context.Background(), opts)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(os.Stdout, result)
	}
	return formatList(os.Stdout, result, page)
}

func formatList(w io.Writer, p store.Page, page int) error {
	if len(p.Records) == 0 {
		fmt.Fprintln(w, "No records found.")
		return nil
	}

	fmt.Fprintf(w, "%-18s  %-13s  %6s  %-48s  %s\n", "ID", "Status", "Score", "Assertion", "Decision")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, lr := range p.Records {
		r := lr.Record
		decision := ""
		if lr.Latest != nil {
			decision = fmt.Sprintf("%s by %s %s", lr.Latest.Decision,
				firstNonEmpty(lr.Latest.CuratorName, lr.Latest.CuratorORCID),
				lr.Latest.DecidedAt.Format("2006-01-02"))
		}
		fmt.Fprintf(w, "%-18s  %-13s  %+6.2f  %-48s  %s\n",
			truncate(r.ID, 18), r.Status, r.EvidenceScore, truncate(r.Assertion.Text(), 48), decision)
	}
	fmt.Fprintf(w, "\npage %d of %d (%d records)\n", page, p.Pages(), p.Total)
	return nil
}

// --- show ---

var showCmd = &cobra.Command{
	Use:   "show <record-id>",
	Short: "Show one record with its evidence and score breakdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

type shownRecord struct {
	Record   *types.CurationRecord   `json:"record"`
	Latest   *types.CurationDecision `json:"latest_decision,omitempty"`
	Category evidence.Category       `json:"category"`
	Score    evidence.Breakdown      `json:"breakdown"`
}

func runShow(cmd *cobra.Command, args []string) error {
	rdf, _ := cmd.Flags().GetBool("rdf")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := context.Background()
	rec, err := e.store.GetRecord(ctx, args[0])
	if err != nil {
		return err
	}

	if rdf {
		prefixes := export.DefaultPrefixes().With(e.cfg.Export.Prefixes)
		ttl, err := export.RecordTurtle(*rec, prefixes)
		if err != nil {
			return err
		}
		fmt.Print(ttl)
		return nil
	}

	latest, ok, err := e.store.LatestDecision(ctx, rec.ID)
	if err != nil {
		return err
	}
	shown := shownRecord{
		Record:   rec,
		Category: evidence.Label(rec.EvidenceScore),
		Score:    evidence.Explain(rec.Evidence),
	}
	if ok {
		shown.Latest = &latest
	}
	if jsonOutput {
		return writeJSON(os.Stdout, shown)
	}
	formatRecord(os.Stdout, shown)
	return nil
}

func formatRecord(w io.Writer, s shownRecord) {
	r := s.Record
	a := r.Assertion
	fmt.Fprintf(w, "%s\n%s\n\n", r.ID, a.Text())
	fmt.Fprintf(w, "  subject    %s %s\n", a.SubjectID, a.SubjectLabel)
	fmt.Fprintf(w, "  predicate  %s %s\n", a.Predicate, a.PredicateLabel)
	fmt.Fprintf(w, "  object     %s %s\n", a.ObjectID, a.ObjectLabel)
	fmt.Fprintf(w, "  status     %s\n", r.Status)
	if r.EvidenceSteward != "" {
		fmt.Fprintf(w, "  steward    %s\n", r.EvidenceSteward)
	}
	if r.Confidence != nil {
		fmt.Fprintf(w, "  confidence %.2f\n", *r.Confidence)
	}
	fmt.Fprintf(w, "  score      %+.2f %s (%s)\n\n", r.EvidenceScore, s.Category, s.Category.Color())
	fmt.Fprintln(w, s.Score.String())

	fmt.Fprintf(w, "\nEvidence (%d)\n", len(r.Evidence))
	for _, ev := range r.Evidence {
		fmt.Fprintf(w, "  %-14s %-12s %.2f  %s\n", ev.Type(), ev.Direction, ev.Strength, evidenceSummary(ev))
	}
	if r.Synthesis != nil {
		fmt.Fprintf(w, "\nSynthesis (confidence %.2f)\n  %s\n", r.Synthesis.Confidence, r.Synthesis.Summary)
	}
	if s.Latest != nil {
		d := s.Latest
		fmt.Fprintf(w, "\nLatest decision: %s by %s on %s (certainty %.2f)\n",
			d.Decision, firstNonEmpty(d.CuratorName, d.CuratorORCID), d.DecidedAt.Format("2006-01-02 15:04"), d.Certainty)
		if d.Rationale != "" {
			fmt.Fprintf(w, "  %s\n", d.Rationale)
		}
	}
}

func evidenceSummary(ev types.EvidenceItem) string {
	switch d := ev.Detail.(type) {
	case types.ConcordanceEvidence:
		return firstNonEmpty(d.SourceName, d.Source) + " " + d.PredicateID
	case types.LiteratureEvidence:
		return firstNonEmpty(d.PublicationID, d.PublicationTitle)
	case types.ExpertReviewEvidence:
		return firstNonEmpty(d.ReviewerName, d.ReviewerORCID)
	case types.ComputationalEvidence:
		return d.Method
	}
	return ev.Description
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history <record-id>",
	Short: "Show every decision recorded for a record, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := context.Background()
		if _, err := e.store.GetRecord(ctx, args[0]); err != nil {
			return err
		}
		history, err := e.store.DecisionsForRecord(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(os.Stdout, history)
		}
		if len(history) == 0 {
			fmt.Println("No decisions recorded.")
			return nil
		}
		for _, d := range history {
			fmt.Printf("%s  %-13s  %.2f  %-28s  %s\n", d.DecidedAt.Format("2006-01-02 15:04:05"),
				d.Decision, d.Certainty, firstNonEmpty(d.CuratorName, d.CuratorORCID), d.Rationale)
		}
		return nil
	},
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize review progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		asYAML, _ := cmd.Flags().GetBool("yaml")
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		c, err := e.store.Stats(context.Background())
		if err != nil {
			return err
		}
		if asYAML {
			enc := yaml.NewEncoder(os.Stdout)
			defer enc.Close()
			return enc.Encode(c)
		}
		fmt.Printf("total:         %d\n", c.Total)
		fmt.Printf("unreviewed:    %d\n", c.Unreviewed)
		fmt.Printf("accepted:      %d\n", c.Accepted)
		fmt.Printf("rejected:      %d\n", c.Rejected)
		fmt.Printf("controversial: %d\n", c.Controversial)
		fmt.Printf("progress:      %s %.0f%%\n", progressBar(c.Progress(), 30), c.Progress()*100)
		return nil
	},
}

func progressBar(frac float64, width int) string {
	filled := int(frac*float64(width) + 0.5)
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// --- shared helpers ---

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	keys := make([]string, 0)
	for _, k := range store.SortKeys() {
		keys = append(keys, string(k))
	}

	listCmd.Flags().String("status", "", "filter by status: UNREVIEWED, ACCEPTED, REJECTED, CONTROVERSIAL")
	listCmd.Flags().String("sort", "created_at", "sort key: "+strings.Join(keys, ", "))
	listCmd.Flags().Bool("desc", false, "sort descending")
	listCmd.Flags().Int("page", 1, "page number, starting at 1")
	listCmd.Flags().Int("limit", 25, "records per page")
	listCmd.Flags().Bool("json", false, "output the page as JSON")

	showCmd.Flags().Bool("rdf", false, "print the assertion as a Turtle triple")
	showCmd.Flags().Bool("json", false, "output the record as JSON")

	historyCmd.Flags().Bool("json", false, "output decisions as JSON")

	statsCmd.Flags().Bool("yaml", false, "output counts as YAML")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
}
