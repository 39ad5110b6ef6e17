// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/sieve/internal/auth"
	"github.com/pdiddy/sieve/internal/curation"
	"github.com/pdiddy/sieve/internal/lifecycle"
	"github.com/pdiddy/sieve/internal/logging"
	"github.com/pdiddy/sieve/pkg/types"
)

// --- decide ---

var decideCmd = &cobra.Command{
	Use:   "decide <record-id> <accept|reject|controversial>",
	Short: "Record a curator decision on an unreviewed record",
	Long: `Decide appends a decision to the ledger and moves the record to
ACCEPTED, REJECTED or CONTROVERSIAL in one transaction. The curator given
by --as (or the "curator" config key) must be on the allow-list. A
rejection needs --rationale.`,
	Args: cobra.ExactArgs(2),
	RunE: runDecide,
}

func runDecide(cmd *cobra.Command, args []string) error {
	actor, err := actorFlag(cmd)
	if err != nil {
		return err
	}
	rationale, _ := cmd.Flags().GetString("rationale")
	name, _ := cmd.Flags().GetString("name")

	in := lifecycle.DecisionInput{
		RecordID:     args[0],
		CuratorORCID: actor,
		CuratorName:  name,
		Decision:     types.DecisionType(strings.ToUpper(args[1])),
		Rationale:    rationale,
	}
	if cmd.Flags().Changed("certainty") {
		c, _ := cmd.Flags().GetFloat64("certainty")
		in.Certainty = &c
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	svc := curation.NewService(e.store, e.allowList(),
		curation.WithLogger(e.log), curation.WithMetrics(e.metrics))
	rec, d, err := svc.Decide(context.Background(), in)
	if err != nil {
		return err
	}
	fmt.Printf("%s is now %s (%s, certainty %.2f)\n", rec.ID, rec.Status, d.ID, d.Certainty)
	return nil
}

// --- return ---

var returnCmd = &cobra.Command{
	Use:   "return <record-id>",
	Short: "Return a decided record to the review queue (admin only)",
	Long: `Return resets a decided record to UNREVIEWED and clears its steward
and confidence. Earlier decisions stay in the ledger.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		actor, err := actorFlag(cmd)
		if err != nil {
			return err
		}
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		svc := curation.NewService(e.store, e.allowList(),
			curation.WithLogger(e.log), curation.WithMetrics(e.metrics))
		rec, err := svc.ReturnToQueue(context.Background(), actor, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s returned to the queue (%s)\n", rec.ID, rec.Status)
		return nil
	},
}

// --- curators ---

var curatorsCmd = &cobra.Command{
	Use:   "curators",
	Short: "List the curator allow-list",
	Long: `Curators prints the allow-list. With --watch it stays running and
prints the list again whenever the curators file changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		watch, _ := cmd.Flags().GetBool("watch")
		if !watch {
			return printCurators(os.Stdout, auth.NewAllowList(cfg.Auth, nil))
		}

		log, err := logging.New(cfg.Log.Mode)
		if err != nil {
			return err
		}
		defer log.Sync()
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return watchCurators(ctx, os.Stdout, auth.NewAllowList(cfg.Auth, log))
	},
}

// watchCurators prints the allow-list, then reprints it after every change
// to the curators file until ctx is done.
func watchCurators(ctx context.Context, w io.Writer, allow *auth.AllowList) error {
	var mu sync.Mutex
	show := func(header string) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprint(w, header)
		if err := printCurators(w, allow); err != nil {
			fmt.Fprintf(w, "curators file unreadable: %v\n", err)
		}
	}
	allow.OnChange(func() { show(fmt.Sprintf("\n%s changed\n", allow.Path())) })
	show("")
	if err := allow.Watch(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func printCurators(w io.Writer, allow *auth.AllowList) error {
	list, err := allow.Curators()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintf(w, "No curators in %s.\n", allow.Path())
		return nil
	}
	ids := make([]string, 0, len(list))
	for id := range list {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c := list[id]
		fmt.Fprintf(w, "%-20s  %-8s  %s\n", c.ORCID, c.Role, c.Name)
	}
	return nil
}

func actorFlag(cmd *cobra.Command) (string, error) {
	actor, _ := cmd.Flags().GetString("as")
	if actor == "" {
		actor = viper.GetString("curator")
	}
	if actor == "" {
		return "", fmt.Errorf("curator ORCID required: pass --as or set SIEVE_CURATOR")
	}
	return actor, nil
}

func init() {
	decideCmd.Flags().String("as", "", "ORCID of the deciding curator")
	decideCmd.Flags().String("name", "", "curator display name (default from the allow-list)")
	decideCmd.Flags().Float64("certainty", 1.0, "certainty in [0, 1]")
	decideCmd.Flags().String("rationale", "", "reason for the decision (required for reject)")

	returnCmd.Flags().String("as", "", "ORCID of the admin returning the record")

	curatorsCmd.Flags().Bool("watch", false, "keep running and reprint the list when the curators file changes")

	rootCmd.AddCommand(decideCmd)
	rootCmd.AddCommand(returnCmd)
	rootCmd.AddCommand(curatorsCmd)
}
