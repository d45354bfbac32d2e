package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command defines a CLI command with unified help generation.
type Command struct {
	// Flags defines command-specific flags.
	// The FlagSet name is not used - command identity comes from Usage.
	Flags *flag.FlagSet

	// Section groups the command in the help listing.
	Section string

	// Usage is the freeform usage string shown after "tb" in help.
	// The leading words up to the first argument or flag are the command
	// name, so "view add [--title T]" is invoked as "tb view add".
	Usage string

	// Short is a one-line description for the global help listing.
	Short string

	// Long is the full description shown in command help.
	// If empty, Short is used instead.
	Long string

	// Exec runs the command after flags are parsed.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name: the words of Usage before the first
// argument placeholder or flag.
func (c *Command) Name() string {
	var words []string

	for _, w := range strings.Fields(c.Usage) {
		if strings.HasPrefix(w, "<") || strings.HasPrefix(w, "[") || strings.HasPrefix(w, "-") {
			break
		}

		words = append(words, w)
	}

	return strings.Join(words, " ")
}

// HelpLine returns the short help line for the main usage display.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-34s %s", c.Usage, c.Short)
}

// helpLines lists cmds under their section headings, sections in order of
// first appearance.
func helpLines(cmds []*Command) []string {
	var (
		order    []string
		sections = map[string][]string{}
	)

	for _, c := range cmds {
		if _, ok := sections[c.Section]; !ok {
			order = append(order, c.Section)
		}

		sections[c.Section] = append(sections[c.Section], c.HelpLine())
	}

	var out []string

	for i, s := range order {
		if i > 0 {
			out = append(out, "")
		}

		out = append(out, s+":")
		out = append(out, sections[s]...)
	}

	return out
}

// PrintHelp prints the full help output for "tb <cmd> --help".
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: tb", c.Usage)
	o.Println()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	o.Println(desc)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")

		var buf strings.Builder
		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run parses flags and executes the command. Returns exit code.
// Handles error printing internally for consistent output ordering.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{}) // discard pflag output

	err := c.Flags.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o)

			return 0
		}

		o.Error(err)
		o.ErrPrintln()
		c.PrintHelp(o)

		return 1
	}

	if err := c.Exec(ctx, o, c.Flags.Args()); err != nil {
		o.Error(err)

		return 1
	}

	return 0
}
