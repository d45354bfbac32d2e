package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/taskboard/internal/config"
)

// ErrUnknownCommand is returned for a command name no [Command] has.
var ErrUnknownCommand = errors.New("unknown command")

// App carries what every command needs: the resolved config, the logger and
// the lazily opened session.
type App struct {
	cfg     config.Config
	log     *slog.Logger
	in      io.Reader
	env     map[string]string
	sess    *Session
	inShell bool
}

// session opens the dashboard on first use.
func (a *App) session(ctx context.Context) (*Session, error) {
	if a.sess != nil {
		return a.sess, nil
	}

	sess, err := openSession(ctx, a.cfg, a.log)
	if err != nil {
		return nil, err
	}

	a.sess = sess

	return sess, nil
}

func (a *App) close() {
	if a.sess == nil {
		return
	}

	if err := a.sess.Close(); err != nil {
		a.log.Warn("closing session failed", "error", err)
	}

	a.sess = nil
}

// commands builds fresh commands; flag sets keep parsed values, so every
// invocation needs its own.
func (a *App) commands() []*Command {
	return []*Command{
		ViewsCmd(a),
		ViewAddCmd(a),
		ViewCloseCmd(a),
		ViewRenameCmd(a),
		ViewMoveCmd(a),
		ViewUseCmd(a),
		ViewSetCmd(a),
		QueryCmd(a),
		RowsMoveCmd(a),
		LocateCmd(a),
		ColumnsCmd(a),
		ColumnAddCmd(a),
		PrioritiesCmd(a),
		PriorityAddCmd(a),
		DashboardsCmd(a),
		DashboardDeleteCmd(a),
		ShellCmd(a),
		PrintConfigCmd(a),
	}
}

// lookup finds the command for args, preferring two-word names.
func (a *App) lookup(args []string) (*Command, []string, error) {
	cmds := a.commands()

	for _, n := range []int{2, 1} {
		if len(args) < n {
			continue
		}

		name := strings.Join(args[:n], " ")
		for _, c := range cmds {
			if c.Name() == name {
				return c, args[n:], nil
			}
		}
	}

	return nil, nil, fmt.Errorf("%w: %s", ErrUnknownCommand, strings.Join(args, " "))
}

// dispatch runs one command line and returns its exit code.
func (a *App) dispatch(ctx context.Context, o *IO, args []string) int {
	cmd, rest, err := a.lookup(args)
	if err != nil {
		o.Error(err)

		return 1
	}

	code := cmd.Run(ctx, o, rest)

	// Warnings of a failed command are still shown.
	if finished := o.Finish(); code == 0 {
		code = finished
	}

	return code
}

// Run is the main entry point. Returns exit code.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	globals := flag.NewFlagSet("tb", flag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.SetOutput(io.Discard)

	workDir := globals.StringP("cwd", "C", "", "Run as if started in `dir`")
	configPath := globals.StringP("config", "c", "", "Use specified config `file`")
	storeDir := globals.String("store-dir", "", "Directory holding saved views")
	backend := globals.String("backend", "", "View store backend: file or sqlite")
	dashboard := globals.String("dashboard", "", "Dashboard key the views are saved under")
	records := globals.String("records", "", "Record fixture `file`")
	subject := globals.String("subject", "", "Show the dashboard for this person `id`")
	help := globals.BoolP("help", "h", false, "Show help")

	if len(args) == 0 {
		args = []string{"tb"}
	}

	err := globals.Parse(args[1:])
	if err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut, globals)

		return 1
	}

	rest := globals.Args()
	if *help || len(rest) == 0 {
		printUsage(out, globals)

		return 0
	}

	cfg, err := config.Load(config.LoadInput{
		WorkDirOverride:   *workDir,
		ConfigPath:        *configPath,
		StoreDirOverride:  *storeDir,
		BackendOverride:   *backend,
		DashboardOverride: *dashboard,
		RecordsOverride:   *records,
		SubjectOverride:   *subject,
		Env:               env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	app := &App{
		cfg: cfg,
		log: slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: cfg.Level()})),
		in:  in,
		env: env,
	}
	defer app.close()

	return app.dispatch(ctx, NewIO(out, errOut), rest)
}

// Environ picks the variables tb reads out of a KEY=VALUE list: every
// config.EnvPrefix override plus the two that locate the global config.
func Environ(environ []string) map[string]string {
	env := map[string]string{}

	for _, e := range environ {
		k, v, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}

		if strings.HasPrefix(k, config.EnvPrefix) || k == "HOME" || k == "XDG_CONFIG_HOME" {
			env[k] = v
		}
	}

	return env
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, globals *flag.FlagSet) {
	fprintln(w, `tb - saved task views with filters, sorting and record lookup

Usage: tb [options] <command> [args]

Options:`)

	var buf strings.Builder

	globals.SetOutput(&buf)
	globals.PrintDefaults()
	globals.SetOutput(io.Discard)

	_, _ = io.WriteString(w, buf.String())

	fprintln(w)

	for _, line := range helpLines((&App{}).commands()) {
		fprintln(w, line)
	}
}
