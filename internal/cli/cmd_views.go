package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/taskboard/internal/query"
	"github.com/calvinalkan/taskboard/internal/view"
)

var (
	errIDRequired    = errors.New("view id is required")
	errTitleRequired = errors.New("title is required")
	errWidthFormat   = errors.New("width must be column=N")
)

// ViewsCmd returns the views command.
func ViewsCmd(app *App) *Command {
	return &Command{
		Flags:   flag.NewFlagSet("views", flag.ContinueOnError),
		Section: "Views",
		Usage:   "views",
		Short:   "List saved views",
		Long:    "List saved views in tab order. The active view is marked with '*'.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			sess, err := app.session(ctx)
			if err != nil {
				return err
			}

			printViews(o, sess.views)
			o.CheckSaved(sess.views)

			return nil
		},
	}
}

func printViews(o *IO, views *view.Store) {
	active := views.ActiveID()

	for _, v := range views.Views() {
		mark := " "
		if v.ID == active {
			mark = "*"
		}

		sort := "-"
		if v.SortBy != "" {
			sort = v.SortBy + " " + string(v.SortOrder)
		}

		o.Printf("%s %s  %-16s partition=%s sort=%s filters=%d\n",
			mark, v.ID, v.Title, v.Partition, sort, len(v.Filters))
	}
}

// ViewAddCmd returns the view add command.
func ViewAddCmd(app *App) *Command {
	flags := flag.NewFlagSet("view add", flag.ContinueOnError)
	title := flags.StringP("title", "t", "", "Title for the new view")

	return &Command{
		Flags:   flags,
		Section: "Views",
		Usage:   "view add [--title T]",
		Short:   "Add a view and switch to it",
		Long:    "Add a view with default settings, titled 'View N' unless --title is given, and make it active.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			sess, err := app.session(ctx)
			if err != nil {
				return err
			}

			v, err := sess.views.AddView(ctx)
			if err != nil {
				return err
			}

			if *title != "" {
				err = sess.views.RenameView(ctx, v.ID, *title)
				if err != nil {
					return err
				}

				v.Title = *title
			}

			o.Println("Added", v.ID, v.Title)
			o.CheckSaved(sess.views)

			return nil
		},
	}
}

// ViewCloseCmd returns the view close command.
func ViewCloseCmd(app *App) *Command {
	return &Command{
		Flags:   flag.NewFlagSet("view close", flag.ContinueOnError),
		Section: "Views",
		Usage:   "view close <id>",
		Short:   "Close a view",
		Long:    "Close a view. The last remaining view cannot be closed. Closing the active view activates its left neighbour.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errIDRequired
			}

			sess, err := app.session(ctx)
			if err != nil {
				return err
			}

			err = sess.views.CloseView(ctx, args[0])
			if err != nil {
				return err
			}

			o.Println("Closed", args[0])
			o.CheckSaved(sess.views)

			return nil
		},
	}
}

// ViewRenameCmd returns the view rename command.
func ViewRenameCmd(app *App) *Command {
	return &Command{
		Flags:   flag.NewFlagSet("view rename", flag.ContinueOnError),
		Section: "Views",
		Usage:   "view rename <id> <title>",
		Short:   "Rename a view",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errIDRequired
			}

			if len(args) < 2 {
				return errTitleRequired
			}

			sess, err := app.session(ctx)
			if err != nil {
				return err
			}

			title := strings.Join(args[1:], " ")

			err = sess.views.RenameView(ctx, args[0], title)
			if err != nil {
				return err
			}

			o.Println("Renamed", args[0], "to", title)
			o.CheckSaved(sess.views)

			return nil
		},
	}
}

// ViewMoveCmd returns the view move command.
func ViewMoveCmd(app *App) *Command {
	return &Command{
		Flags:   flag.NewFlagSet("view move", flag.ContinueOnError),
		Section: "Views",
		Usage:   "view move <id>...",
		Short:   "Reorder views",
		Long:    "Reorder views. The ids must name every view exactly once, in the new tab order.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			sess, err := app.session(ctx)
			if err != nil {
				return err
			}

			err = sess.views.ReorderViews(ctx, args)
			if err != nil {
				return err
			}

			printViews(o, sess.views)
			o.CheckSaved(sess.views)

			return nil
		},
	}
}

// ViewUseCmd returns the view use command.
func ViewUseCmd(app *App) *Command {
	return &Command{
		Flags:   flag.NewFlagSet("view use", flag.ContinueOnError),
		Section: "Views",
		Usage:   "view use <id>",
		Short:   "Switch the active view",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errIDRequired
			}

			sess, err := app.session(ctx)
			if err != nil {
				return err
			}

			err = sess.views.SetActive(ctx, args[0])
			if err != nil {
				return err
			}

			o.Println("Active", args[0])
			o.CheckSaved(sess.views)

			return nil
		},
	}
}

// ViewSetCmd returns the view set command.
func ViewSetCmd(app *App) *Command {
	flags := flag.NewFlagSet("view set", flag.ContinueOnError)
	sortBy := flags.String("sort", "", "Sort by `field` (\"none\" clears)")
	order := flags.String("order", "", "Sort order: asc or desc")
	search := flags.String("search", "", "Search `term` (\"\" clears with --clear-search)")
	clearSearch := flags.Bool("clear-search", false, "Clear the search term")
	status := flags.String("status", "", "Status filter (\"all\" shows every status)")
	partition := flags.String("partition", "", "Partition: "+strings.Join(query.Partitions, ", "))
	group := flags.String("group", "", "Group by `field` (\"none\" clears)")
	columns := flags.StringSlice("columns", nil, "Visible columns, comma separated")
	widths := flags.StringArray("width", nil, "Column width as `col=N` (repeatable)")
	filters := flags.StringArray("filter", nil, "Add a filter `col:op[:value[:logic]]` (repeatable)")
	clearFilters := flags.Bool("clear-filters", false, "Remove all filters before adding --filter ones")
	subject := flags.String("subject", "", "Show this view for another person `id` (\"none\" clears)")

	return &Command{
		Flags:   flags,
		Section: "Views",
		Usage:   "view set [flags]",
		Short:   "Change the active view",
		Long: `Change the active view. Only the given settings change.

Filters are col:op[:value[:logic]]. Operators: is, is_not, contains,
does_not_contain, is_empty, is_not_empty, any_of (values separated by |),
before, after, on_or_before, on_or_after. Logic joins a filter to the ones
before it: and (default), or, any_of.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			sess, err := app.session(ctx)
			if err != nil {
				return err
			}

			active := sess.views.Active()
			p := view.Patch{}

			if flags.Changed("sort") {
				p.SortBy = view.Ptr(noneToEmpty(*sortBy))
			}

			if flags.Changed("order") {
				so, parseErr := query.ParseSortOrder(*order)
				if parseErr != nil {
					return parseErr
				}

				p.SortOrder = &so
			}

			if flags.Changed("search") {
				p.SearchTerm = search
			}

			if *clearSearch {
				p.SearchTerm = view.Ptr("")
			}

			if flags.Changed("status") {
				p.StatusFilter = status
			}

			if flags.Changed("partition") {
				p.Partition = partition
			}

			if flags.Changed("group") {
				p.GroupBy = view.Ptr(noneToEmpty(*group))
			}

			if flags.Changed("subject") {
				p.SelectedSubjectID = view.Ptr(noneToEmpty(*subject))
			}

			if flags.Changed("columns") {
				p.VisibleColumns = columns
			}

			if len(*widths) > 0 {
				p.ColumnWidths, err = parseWidths(*widths)
				if err != nil {
					return err
				}
			}

			if *clearFilters || len(*filters) > 0 {
				next, filterErr := buildFilters(sess, active.Filters, *filters, *clearFilters)
				if filterErr != nil {
					return filterErr
				}

				p.Filters = &next
			}

			v, err := sess.views.PatchActiveView(ctx, p)
			if err != nil {
				return err
			}

			printView(o, v)
			o.CheckSaved(sess.views)

			return nil
		},
	}
}

func noneToEmpty(s string) string {
	if s == "none" {
		return ""
	}

	return s
}

func parseWidths(raw []string) (map[string]int, error) {
	out := make(map[string]int, len(raw))

	for _, w := range raw {
		col, n, ok := strings.Cut(w, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("%w: %q", errWidthFormat, w)
		}

		width, err := strconv.Atoi(n)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", errWidthFormat, w)
		}

		out[col] = width
	}

	return out, nil
}

// buildFilters parses new filter flags and validates each against its
// column's kind. Filters on columns the registry does not know are rejected
// here; saved ones on since-removed columns still load and match everything.
func buildFilters(sess *Session, current []query.Clause, raw []string, reset bool) ([]query.Clause, error) {
	out := []query.Clause{}
	if !reset {
		out = append(out, current...)
	}

	for _, r := range raw {
		c, err := query.ParseClause(r)
		if err != nil {
			return nil, err
		}

		root, _, _ := strings.Cut(c.Column, ".")

		kind, ok := sess.registry.Kind(root)
		if !ok {
			return nil, fmt.Errorf("%w: unknown column %q", query.ErrInvalidClause, c.Column)
		}

		err = c.Validate(kind)
		if err != nil {
			return nil, err
		}

		out = append(out, c)
	}

	return out, nil
}

func printView(o *IO, v view.Config) {
	o.Printf("id=%s\n", v.ID)
	o.Printf("title=%s\n", v.Title)
	o.Printf("partition=%s\n", v.Partition)
	o.Printf("sort=%s\n", v.SortBy)
	o.Printf("order=%s\n", v.SortOrder)
	o.Printf("search=%s\n", v.SearchTerm)
	o.Printf("status=%s\n", v.StatusFilter)

	if v.GroupBy != "" {
		o.Printf("group=%s (%s)\n", v.GroupBy, strings.Join(v.GroupOrder, ","))
	}

	if v.SelectedSubjectID != "" {
		o.Printf("subject=%s\n", v.SelectedSubjectID)
	}

	o.Printf("columns=%s\n", strings.Join(displayColumns(v), ","))

	for i, c := range v.Filters {
		o.Printf("filter.%d=%s\n", i, formatClause(c))
	}
}

func formatClause(c query.Clause) string {
	parts := []string{c.Column, string(c.Operator)}

	if c.Value.IsList() {
		parts = append(parts, strings.Join(c.Value.Items(), "|"))
	} else if s := c.Value.String(); s != "" {
		parts = append(parts, s)
	}

	if c.Logic != "" && c.Logic != query.LogicAnd {
		parts = append(parts, string(c.Logic))
	}

	return strings.Join(parts, ":")
}

// displayColumns returns the visible columns in display order.
func displayColumns(v view.Config) []string {
	out := make([]string, 0, len(v.VisibleColumns))

	for _, id := range v.ColumnOrder {
		for _, vis := range v.VisibleColumns {
			if vis == id {
				out = append(out, id)

				break
			}
		}
	}

	return out
}
