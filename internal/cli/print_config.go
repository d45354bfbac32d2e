package cli

import (
	"context"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/taskboard/internal/config"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(app *App) *Command {
	return &Command{
		Flags:   flag.NewFlagSet("print-config", flag.ContinueOnError),
		Section: "Other",
		Usage:   "print-config",
		Short:   "Show resolved configuration",
		Long:    "Display the effective configuration and where it was loaded from.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			execPrintConfig(o, app.cfg)

			return nil
		},
	}
}

func execPrintConfig(o *IO, cfg config.Config) {
	o.Println("effective_cwd=" + cfg.EffectiveCwd)
	o.Println("store_dir=" + cfg.StoreDirAbs)
	o.Println("backend=" + cfg.Backend)
	o.Println("dashboard=" + cfg.Dashboard)
	o.Println("records=" + cfg.RecordsAbs)

	if cfg.Subject != "" {
		o.Println("subject=" + cfg.Subject)
	}

	o.Println("highlight_seconds=" + strconv.Itoa(cfg.HighlightSeconds))
	o.Println("log_level=" + cfg.LogLevel)

	for _, c := range cfg.CustomColumns {
		o.Printf("custom_column=%s (%s)\n", c.ID, c.Kind)
	}

	if len(cfg.CustomPriorities) > 0 {
		o.Println("custom_priorities=" + strings.Join(cfg.CustomPriorities, ","))
	}

	o.Println("")
	o.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" && len(cfg.Sources.Env) == 0 {
		o.Println("(defaults only)")

		return
	}

	if cfg.Sources.Global != "" {
		o.Println("global_config=" + cfg.Sources.Global)
	}

	if cfg.Sources.Project != "" {
		o.Println("project_config=" + cfg.Sources.Project)
	}

	for _, name := range cfg.Sources.Env {
		o.Println("env=" + name)
	}
}
