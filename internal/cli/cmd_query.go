package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/taskboard/internal/record"
	"github.com/calvinalkan/taskboard/internal/view"
)

var errLimitNegative = errors.New("limit must be >= 0")

// QueryCmd returns the query command.
func QueryCmd(app *App) *Command {
	flags := flag.NewFlagSet("query", flag.ContinueOnError)
	limit := flags.IntP("limit", "n", 0, "Show at most `N` rows (0 = all)")

	return &Command{
		Flags:   flags,
		Section: "Rows",
		Usage:   "query [--limit N]",
		Short:   "Show the active view's rows",
		Long: `Fetch the active view's partition and print its rows after filters,
search, status filter, sort and saved row order are applied.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			if *limit < 0 {
				return errLimitNegative
			}

			sess, err := app.session(ctx)
			if err != nil {
				return err
			}

			res, err := sess.board.Refresh(ctx)
			if err != nil {
				return err
			}

			for _, c := range res.Malformed {
				o.Warn(fmt.Sprintf("filter %s matches everything", formatClause(c)), "fix or remove it with 'tb view set'")
			}

			rows := res.Rows
			if *limit > 0 && len(rows) > *limit {
				rows = rows[:*limit]
			}

			printRows(o, res.View, rows, "")

			return nil
		},
	}
}

// RowsMoveCmd returns the rows move command.
func RowsMoveCmd(app *App) *Command {
	return &Command{
		Flags:   flag.NewFlagSet("rows move", flag.ContinueOnError),
		Section: "Rows",
		Usage:   "rows move <id>...",
		Short:   "Pin rows to the top of the active view",
		Long: `Save an explicit row order for the active view. The given records come
first in that order, the rest keep their order below them. Without ids the
saved order is cleared. Row order only applies while the view is unsorted.
Ids the active view does not show are kept but warned about.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			sess, err := app.session(ctx)
			if err != nil {
				return err
			}

			v, err := sess.views.PatchActiveView(ctx, view.Patch{RowOrder: view.Ptr(append([]string{}, args...))})
			if err != nil {
				return err
			}

			if v.SortBy != "" {
				o.Warn("view is sorted by "+v.SortBy, "run 'tb view set --sort none' for the row order to apply")
			}

			for _, id := range absentRows(ctx, sess, args) {
				o.Warn("row "+id+" is not in view "+v.Title, "it takes its place once the view shows it")
			}

			if len(args) == 0 {
				o.Println("Cleared row order")
			} else {
				o.Println("Row order:", strings.Join(args, " "))
			}

			o.CheckSaved(sess.views)

			return nil
		},
	}
}

// absentRows lists the ids not among the active view's rows, refreshing the
// board unless it already holds them. A failed refresh skips the check.
func absentRows(ctx context.Context, sess *Session, ids []string) []string {
	if len(ids) == 0 {
		return nil
	}

	if !sess.board.Loaded(sess.views.ActiveID()) {
		_, err := sess.board.Refresh(ctx)
		if err != nil {
			sess.log.Debug("row check skipped", "error", err)

			return nil
		}
	}

	rows := sess.board.Rows()

	var out []string

	for _, id := range ids {
		if !record.Contains(rows, id) {
			out = append(out, id)
		}
	}

	return out
}

// printRows prints rows as a table of the view's visible columns. The row
// whose id equals mark is prefixed with '>'.
func printRows(o *IO, v view.Config, rows []record.Record, mark string) {
	cols := displayColumns(v)
	table := make([][]string, 0, len(rows))

	for _, r := range rows {
		m := " "
		if mark != "" && r.ID() == mark {
			m = ">"
		}

		line := []string{m, r.ID()}
		for _, c := range cols {
			line = append(line, cell(r, c))
		}

		table = append(table, line)
	}

	o.Table(append([]string{" ", "ID"}, upper(cols)...), table)
	o.Printf("%d rows (%s, %s)\n", len(rows), v.Title, v.Partition)
}

func upper(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = strings.ToUpper(c)
	}

	return out
}

// cell renders one field. References show their name when the source
// expanded them.
func cell(r record.Record, col string) string {
	v, ok := r.Lookup(col)
	if !ok {
		return "-"
	}

	if ref, isRef := v.(record.Ref); isRef {
		if name, ok := ref.Fields["name"].(string); ok && name != "" {
			return name
		}
	}

	s := strings.ReplaceAll(record.String(v), "\n", " ")
	if s == "" {
		return "-"
	}

	const maxCell = 40
	if len([]rune(s)) > maxCell {
		s = string([]rune(s)[:maxCell-3]) + "..."
	}

	return s
}
