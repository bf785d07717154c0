package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/oxhq/rulefx/db"
	"github.com/oxhq/rulefx/models"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close(conn)

			runs, err := db.RecentRuns(conn, limit)
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list (0 lists all)")

	cmd.AddCommand(newHistoryShowCmd(a), newHistoryPruneCmd(a))
	return cmd
}

func newHistoryShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the files and offenses of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close(conn)

			run, err := db.LoadRun(conn, args[0])
			if err != nil {
				return err
			}
			printRun(cmd.OutOrStdout(), run)
			return nil
		},
	}
}

func newHistoryPruneCmd(a *app) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the most recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close(conn)

			removed, err := db.Prune(conn, keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs\n", removed)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 50, "Number of runs to keep")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printRuns(w io.Writer, runs []models.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tMODE\tFILES\tOFFENSES\tCORRECTED\tROOT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			shortID(r.ID), r.StartedAt.Local().Format(time.DateTime), r.Mode,
			r.FilesScanned, r.Offenses, r.Corrections, r.Root)
	}
	tw.Flush()
}

func printRun(w io.Writer, run *models.Run) {
	fmt.Fprintf(w, "Run %s (%s)\n", run.ID, run.Mode)
	fmt.Fprintf(w, "Root:     %s\n", run.Root)
	fmt.Fprintf(w, "Started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	if run.TransactionID != "" {
		fmt.Fprintf(w, "Transaction: %s\n", run.TransactionID)
	}
	fmt.Fprintf(w, "%d files, %d offenses, %d corrected, %d errors\n",
		run.FilesScanned, run.Offenses, run.Corrections, run.FilesWithErrs)

	for _, f := range run.Files {
		fmt.Fprintf(w, "\n%s [%s]", f.Path, f.Status)
		if f.Written {
			fmt.Fprint(w, " written")
		}
		fmt.Fprintln(w)
		if f.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", f.Error)
		}
		for _, o := range f.Offenses {
			mark := ""
			switch {
			case o.Corrected:
				mark = " [Corrected]"
			case o.Correctable:
				mark = " [Correctable]"
			}
			fmt.Fprintf(w, "  %d:%d: %s: %s%s\n", o.StartLine, o.StartColumn, o.Rule, o.Message, mark)
		}
	}
}
