package cli

import (
	"context"
	"errors"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/taskboard/internal/locate"
)

var errRecordIDRequired = errors.New("record id is required")

// LocateCmd returns the locate command.
func LocateCmd(app *App) *Command {
	return &Command{
		Flags:   flag.NewFlagSet("locate", flag.ContinueOnError),
		Section: "Rows",
		Usage:   "locate <id>",
		Short:   "Find the view showing a record and switch to it",
		Long: `Search every view and partition for the record, switch to the first one
that shows it and print its rows with the record marked '>'. Views are
searched in tab order, partitions in the order assigned, created, review,
completed, receivedVerification.

When no view shows the record the first view's default partition is
activated and a diagnostic is printed.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errRecordIDRequired
			}

			sess, err := app.session(ctx)
			if err != nil {
				return err
			}

			id := args[0]

			res, err := sess.locator.Locate(ctx, id)
			if errors.Is(err, locate.ErrNotFound) {
				if res.Diagnostic != nil {
					o.ErrPrintln(res.Diagnostic.String())
				}

				o.CheckSaved(sess.views)

				return err
			}

			if err != nil {
				return err
			}

			// Rendering the activated view delivers the loaded event that
			// finalizes the highlight.
			out, err := sess.board.Refresh(ctx)
			if err != nil {
				return err
			}

			mark := sess.locator.Highlighted()
			if mark == "" {
				o.Warn("record "+id+" was not in the refreshed rows", "the source changed during the search; run 'tb locate "+id+"' again")
			}

			o.Printf("Found %s in %s (%s)\n", id, out.View.Title, out.View.Partition)
			printRows(o, out.View, out.Rows, mark)
			o.CheckSaved(sess.views)

			return nil
		},
	}
}
