package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
)

// IO handles one command's output. Warnings are printed to stderr both
// before the first line of output and again at the end, so they survive
// head/tail. A warning repeated within a command is reported once.
type IO struct {
	out      io.Writer
	errOut   io.Writer
	warnings []string
	started  bool
}

// NewIO creates a new IO instance.
func NewIO(out, errOut io.Writer) *IO {
	return &IO{out: out, errOut: errOut}
}

// Warn records an issue the user should act on. Any warning makes
// [IO.Finish] return exit code 1; normal output is not suppressed.
func (o *IO) Warn(issue, action string) {
	w := fmt.Sprintf("%s: %s", issue, action)
	if slices.Contains(o.warnings, w) {
		return
	}

	o.warnings = append(o.warnings, w)
}

// saveReporter is the part of the view store that remembers the outcome of
// its last write.
type saveReporter interface {
	LastSaveError() error
}

// CheckSaved warns when the views' last write failed. The change itself
// applied and lasts until the process exits.
func (o *IO) CheckSaved(views saveReporter) {
	if err := views.LastSaveError(); err != nil {
		o.Warn("views not saved: "+err.Error(), "changes last only for this session")
	}
}

// Println writes to stdout. On first call, any collected warnings
// are printed to stderr first.
func (o *IO) Println(a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout. On first call, any collected
// warnings are printed to stderr first.
func (o *IO) Printf(format string, a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// Table writes header and rows to stdout as space-padded columns.
func (o *IO) Table(header []string, rows [][]string) {
	var buf strings.Builder

	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	_, _ = fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, r := range rows {
		_, _ = fmt.Fprintln(tw, strings.Join(r, "\t"))
	}

	_ = tw.Flush()

	o.Printf("%s", buf.String())
}

// ErrPrintln writes to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Error writes err to stderr as "error: <err>".
func (o *IO) Error(err error) {
	o.ErrPrintln("error:", err)
}

// Finish prints warnings to stderr and returns the exit code: 1 if any
// warnings, 0 otherwise. It leaves o empty, ready for the next shell line.
func (o *IO) Finish() int {
	// If no output happened but we have warnings, print them at "start" position
	o.flushWarningsStart()

	for _, w := range o.warnings {
		_, _ = fmt.Fprintln(o.errOut, "warning:", w)
	}

	code := 0
	if len(o.warnings) > 0 {
		code = 1
	}

	o.warnings = nil
	o.started = false

	return code
}

func (o *IO) flushWarningsStart() {
	if !o.started && len(o.warnings) > 0 {
		for _, w := range o.warnings {
			_, _ = fmt.Fprintln(o.errOut, "warning:", w)
		}

		o.started = true
	}
}
