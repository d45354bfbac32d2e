package cli

import (
	"context"
	"errors"
	"slices"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/taskboard/internal/query"
	"github.com/calvinalkan/taskboard/internal/view"
)

var (
	errColumnIDRequired     = errors.New("column id is required")
	errPriorityNameRequired = errors.New("priority name is required")
)

// ColumnsCmd returns the columns command.
func ColumnsCmd(app *App) *Command {
	return &Command{
		Flags:   flag.NewFlagSet("columns", flag.ContinueOnError),
		Section: "Columns and priorities",
		Usage:   "columns",
		Short:   "List known columns",
		Long:    "List every known column with its kind and width. Columns visible in the active view are marked with '*'.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			sess, err := app.session(ctx)
			if err != nil {
				return err
			}

			active := sess.views.Active()

			for _, c := range sess.registry.Columns() {
				mark := " "
				if slices.Contains(active.VisibleColumns, c.ID) {
					mark = "*"
				}

				width := c.DefaultWidth
				if w, ok := active.ColumnWidths[c.ID]; ok {
					width = w
				}

				custom := ""
				if c.Custom {
					custom = " custom"
				}

				o.Printf("%s %-20s %-6s %4d  %s%s\n", mark, c.ID, c.Kind, width, c.Label, custom)
			}

			return nil
		},
	}
}

// ColumnAddCmd returns the column add command.
func ColumnAddCmd(app *App) *Command {
	flags := flag.NewFlagSet("column add", flag.ContinueOnError)
	kind := flags.String("kind", string(query.KindText), "Column kind: text, number, date, ref, list")
	label := flags.String("label", "", "Column label (defaults to the id)")
	width := flags.Int("width", 0, "Default width")

	return &Command{
		Flags:   flags,
		Section: "Columns and priorities",
		Usage:   "column add <id> [flags]",
		Short:   "Add a custom column to every view",
		Long: `Register a custom column for this session and merge it into every view.
To keep it across runs add it to custom_columns in the config file.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errColumnIDRequired
			}

			sess, err := app.session(ctx)
			if err != nil {
				return err
			}

			err = sess.registry.AddColumn(view.KnownColumn{
				ID:           args[0],
				Label:        *label,
				DefaultWidth: *width,
				Kind:         query.ColumnKind(*kind),
			})
			if err != nil {
				return err
			}

			sess.views.SetColumns(ctx, sess.registry.Columns())
			o.Println("Added column", args[0])
			o.CheckSaved(sess.views)

			return nil
		},
	}
}

// PrioritiesCmd returns the priorities command.
func PrioritiesCmd(app *App) *Command {
	return &Command{
		Flags:   flag.NewFlagSet("priorities", flag.ContinueOnError),
		Section: "Columns and priorities",
		Usage:   "priorities",
		Short:   "List priorities by rank",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			sess, err := app.session(ctx)
			if err != nil {
				return err
			}

			for _, p := range sess.registry.Priorities() {
				custom := ""
				if p.Custom {
					custom = " custom"
				}

				o.Printf("%4d  %s%s\n", p.Rank, p.Name, custom)
			}

			return nil
		},
	}
}

// PriorityAddCmd returns the priority add command.
func PriorityAddCmd(app *App) *Command {
	return &Command{
		Flags:   flag.NewFlagSet("priority add", flag.ContinueOnError),
		Section: "Columns and priorities",
		Usage:   "priority add <name>",
		Short:   "Rank a custom priority last",
		Long: `Rank a custom priority after every existing one for this session and
refresh the group order of views grouped or sorted by priority.
To keep it across runs add it to custom_priorities in the config file.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errPriorityNameRequired
			}

			sess, err := app.session(ctx)
			if err != nil {
				return err
			}

			err = sess.registry.AddPriority(args[0])
			if err != nil {
				return err
			}

			ranks := sess.registry.Ranks()
			sess.views.SetRanks(ctx, ranks)
			o.Printf("Added priority %s (rank %d)\n", args[0], ranks.Rank(args[0]))
			o.CheckSaved(sess.views)

			return nil
		},
	}
}
