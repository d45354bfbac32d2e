package cli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"
)

var (
	errKeyRequired     = errors.New("dashboard key is required")
	errDeleteOpenBoard = errors.New("cannot delete the open dashboard")
)

// DashboardsCmd returns the dashboards command.
func DashboardsCmd(app *App) *Command {
	return &Command{
		Flags:   flag.NewFlagSet("dashboards", flag.ContinueOnError),
		Section: "Dashboards",
		Usage:   "dashboards",
		Short:   "List dashboards with saved views",
		Long:    "List every dashboard key with saved views in the selected backend. The open dashboard is marked with '*'.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			sess, err := app.session(ctx)
			if err != nil {
				return err
			}

			keys, err := sess.bridge.Keys(ctx)
			if err != nil {
				return err
			}

			for _, key := range keys {
				mark := " "
				if key == sess.cfg.Dashboard {
					mark = "*"
				}

				o.Println(mark, key)
			}

			return nil
		},
	}
}

// DashboardDeleteCmd returns the dashboard delete command.
func DashboardDeleteCmd(app *App) *Command {
	return &Command{
		Flags:   flag.NewFlagSet("dashboard delete", flag.ContinueOnError),
		Section: "Dashboards",
		Usage:   "dashboard delete <key>",
		Short:   "Delete a dashboard's saved views",
		Long:    "Delete the saved views of another dashboard. The open dashboard cannot be deleted.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errKeyRequired
			}

			sess, err := app.session(ctx)
			if err != nil {
				return err
			}

			if args[0] == sess.cfg.Dashboard {
				return fmt.Errorf("%w: %s", errDeleteOpenBoard, args[0])
			}

			err = sess.bridge.Delete(ctx, args[0])
			if err != nil {
				return err
			}

			o.Println("Deleted", args[0])

			return nil
		},
	}
}
