package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/drivemapper/drivemapper/internal/authz"
	"github.com/drivemapper/drivemapper/internal/journal"
	"github.com/drivemapper/drivemapper/internal/reconcile"
)

// stdoutIsTTY reports whether stdout is an interactive terminal. Aligned
// tables go to humans; tab-separated plain rows go to pipes.
func stdoutIsTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// newTable returns a tabwriter tuned for terminal or pipe output.
func newTable() *tabwriter.Writer {
	padding := 2
	if !stdoutIsTTY() {
		padding = 1
	}

	return tabwriter.NewWriter(os.Stdout, 0, 0, padding, ' ', 0)
}

// printJSON marshals v to stdout with indentation.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// renderPlan prints the computed plan.
func renderPlan(plan *reconcile.Plan) error {
	if flagJSON {
		return printJSON(plan)
	}

	w := newTable()
	fmt.Fprintln(w, "DRIVE\tLETTER\tSTATE\tAUTHORIZED\tACTION")

	for i := range plan.Items {
		item := &plan.Items[i]

		state := item.State
		if item.ProbeError != "" {
			state = "probe-error"
		}

		fmt.Fprintf(w, "%s\t%s:\t%s\t%v\t%s\n",
			item.Mapping.Name, item.Mapping.Letter, state, item.Authorized, item.Op)
	}

	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d action(s) planned\n", plan.ActionCount())

	return nil
}

// renderResults prints per-mapping outcomes after a run.
func renderResults(results []reconcile.Result) error {
	if flagJSON {
		return printJSON(results)
	}

	w := newTable()
	fmt.Fprintln(w, "DRIVE\tLETTER\tACTION\tOUTCOME")

	failures := 0

	for _, r := range results {
		line := string(r.Outcome)
		if r.Error != "" {
			line += " (" + r.Error + ")"
		}

		if r.Outcome == reconcile.OutcomeFailed {
			failures++
		}

		fmt.Fprintf(w, "%s\t%s:\t%s\t%s\n", r.Mapping.Name, r.Mapping.Letter, r.Op, line)
	}

	if err := w.Flush(); err != nil {
		return err
	}

	if failures > 0 {
		fmt.Printf("\n%d mapping(s) failed — see the log for details\n", failures)
	}

	return nil
}

// renderStatus prints observed states only.
func renderStatus(plan *reconcile.Plan) error {
	if flagJSON {
		return printJSON(plan)
	}

	w := newTable()
	fmt.Fprintln(w, "DRIVE\tLETTER\tSTATE")

	for i := range plan.Items {
		item := &plan.Items[i]

		state := item.State
		if item.ProbeError != "" {
			state = "probe-error: " + item.ProbeError
		}

		fmt.Fprintf(w, "%s\t%s:\t%s\n", item.Mapping.Name, item.Mapping.Letter, state)
	}

	return w.Flush()
}

// renderGroups prints resolved memberships, sorted for stable output.
func renderGroups(groups authz.Memberships) error {
	keys := groups.Keys()
	sort.Strings(keys)

	if flagJSON {
		return printJSON(keys)
	}

	for _, k := range keys {
		fmt.Println(k)
	}

	fmt.Printf("\n%d group(s)\n", len(keys))

	return nil
}

// renderHistory prints recent journaled runs, newest first.
func renderHistory(runs []journal.Run) error {
	if flagJSON {
		return printJSON(runs)
	}

	w := newTable()
	fmt.Fprintln(w, "STARTED\tDURATION\tOUTCOME\tMAPPINGS\tACTIONS\tFAILURES")

	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
			formatTime(r.StartedAt),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.Outcome, r.Mappings, r.Actions, r.Failures)
	}

	return w.Flush()
}

// formatTime returns a compact timestamp for display.
func formatTime(t time.Time) string {
	now := time.Now()

	// Same calendar year: show "Jan  2 15:04"
	if t.Year() == now.Year() {
		return t.Local().Format("Jan _2 15:04")
	}

	return t.Local().Format("Jan _2  2006")
}
