package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
)

var (
	errNestedShell   = errors.New("already in a shell")
	errUnclosedQuote = errors.New("unclosed quote")
)

const shellPrompt = "tb> "

// lineReader is the prompt the shell reads from: liner on a terminal, a
// plain scanner otherwise.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

type scanReader struct {
	sc *bufio.Scanner
}

func (s *scanReader) Prompt(string) (string, error) {
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return "", err
		}

		return "", io.EOF
	}

	return s.sc.Text(), nil
}

func (*scanReader) AppendHistory(string) {}

func (*scanReader) Close() error { return nil }

type linerReader struct {
	*liner.State

	history string
}

func (l *linerReader) Close() error {
	if l.history != "" {
		if f, err := os.Create(l.history); err == nil {
			_, _ = l.WriteHistory(f)
			_ = f.Close()
		}
	}

	return l.State.Close()
}

// ShellCmd returns the shell command.
func ShellCmd(app *App) *Command {
	return &Command{
		Flags:   flag.NewFlagSet("shell", flag.ContinueOnError),
		Section: "Other",
		Usage:   "shell",
		Short:   "Run commands interactively",
		Long: `Read commands line by line against one open dashboard. Highlights set by
locate clear on their timer while the shell runs. Type 'help' for commands,
'exit' or Ctrl-D to leave.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			if app.inShell {
				return errNestedShell
			}

			sess, err := app.session(ctx)
			if err != nil {
				return err
			}

			app.inShell = true
			defer func() { app.inShell = false }()

			r := app.newLineReader(filepath.Join(sess.cfg.StoreDirAbs, "history"))
			defer func() { _ = r.Close() }()

			return app.repl(ctx, o, r)
		},
	}
}

func (a *App) newLineReader(history string) lineReader {
	if a.in != os.Stdin {
		return &scanReader{sc: bufio.NewScanner(a.in)}
	}

	st := liner.NewLiner()
	st.SetCtrlCAborts(true)
	st.SetCompleter(a.complete)

	if f, err := os.Open(history); err == nil {
		_, _ = st.ReadHistory(f)
		_ = f.Close()
	}

	return &linerReader{State: st, history: history}
}

func (a *App) repl(ctx context.Context, o *IO, r lineReader) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := r.Prompt(shellPrompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		r.AppendHistory(line)

		args, err := splitArgs(line)
		if err != nil {
			o.Error(err)

			continue
		}

		switch args[0] {
		case "exit", "quit":
			return nil
		case "help":
			for _, line := range helpLines(a.commands()) {
				o.Println(line)
			}

			continue
		}

		// Each line gets its own warnings; the shell itself exits 0.
		a.dispatch(ctx, o, args)
	}
}

// complete offers command names for the liner completer.
func (a *App) complete(line string) []string {
	var out []string

	for _, c := range a.commands() {
		if name := c.Name(); strings.HasPrefix(name, line) {
			out = append(out, name)
		}
	}

	for _, w := range []string{"exit", "help", "quit"} {
		if strings.HasPrefix(w, line) {
			out = append(out, w)
		}
	}

	return out
}

// splitArgs splits a shell line with POSIX shell quoting rules. Every
// unterminated quote or trailing escape reports [errUnclosedQuote].
func splitArgs(line string) ([]string, error) {
	args, err := shellquote.Split(line)

	switch {
	case errors.Is(err, shellquote.UnterminatedSingleQuoteError),
		errors.Is(err, shellquote.UnterminatedDoubleQuoteError),
		errors.Is(err, shellquote.UnterminatedEscapeError):
		return nil, errUnclosedQuote
	case err != nil:
		return nil, fmt.Errorf("split line: %w", err)
	}

	return args, nil
}
