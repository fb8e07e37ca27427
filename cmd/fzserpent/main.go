package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fzserpent/internal/backend"
	"fzserpent/internal/config"
	"fzserpent/internal/core"
	"fzserpent/internal/eventlog"
	"fzserpent/internal/invoke"
	"fzserpent/internal/plugindef"
	"fzserpent/internal/runner"
	"fzserpent/internal/store"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage(os.Stderr)
		return invoke.ExitUsage
	}

	switch args[0] {
	case "run":
		return runCalc(args[1:])
	case "check":
		return runCheck(args[1:])
	case "vars":
		return runVars(args[1:])
	case "history":
		return runHistory(args[1:])
	case "help", "-h", "-help", "--help":
		usage(os.Stdout)
		return invoke.ExitOK
	default:
		if strings.HasPrefix(args[0], "-") {
			usage(os.Stderr)
			return invoke.ExitUsage
		}
		// The fz framework launches calculators as `<cmd> <path> [extra...]`,
		// so a bare path is an implicit run.
		return runCalc(args)
	}
}

func usage(out *os.File) {
	fmt.Fprintln(out, `usage: fzserpent <command> [options]

commands:
  run <input-file-or-dir> [extra args...]   execute one Serpent calculation
  check [plugin-root]                       validate the .fz plugin files
  vars <input.inp>                          list ${...} variables in an input deck
  history                                   list recorded invocations

A bare path argument is treated as "run <path>".`)
}

func runCalc(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "Optional config file path")
	dbPath := fs.String("db", "", "SQLite invocation history path (overrides config)")
	eventsPath := fs.String("events", "", "JSONL event log path (overrides config)")
	if err := fs.Parse(args); err != nil {
		return invoke.ExitUsage
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "usage: fzserpent run <input-file-or-dir> [extra args...]")
		return invoke.ExitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return invoke.ExitError
	}
	if *dbPath != "" {
		cfg.HistoryDB = *dbPath
	}
	if *eventsPath != "" {
		cfg.EventLog = *eventsPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inv := &invoke.Invoker{
		Runner:   runner.NewExecRunner(),
		Backends: backend.NewResolver().WithExtra(cfg.ExtraBackends),
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}

	if cfg.EventLog != "" {
		logger, err := eventlog.New(cfg.EventLog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open event log: %v\n", err)
			return invoke.ExitError
		}
		defer logger.Close()
		inv.Events = logger
	}

	if cfg.HistoryDB != "" {
		db, err := store.NewSQLite(cfg.HistoryDB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open history db: %v\n", err)
			return invoke.ExitError
		}
		defer db.Close()
		if err := db.Init(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "init history db: %v\n", err)
			return invoke.ExitError
		}
		inv.Store = db
	}

	err = inv.Run(ctx, invoke.Request{Path: rest[0], ExtraArgs: rest[1:]})
	if err != nil {
		// Backend failures already reported themselves and echoed the log.
		var failure *invoke.BackendFailureError
		if !errors.As(err, &failure) {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	return invoke.ExitStatus(err)
}

func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	configPath := fs.String("config", "", "Optional config file path")
	if err := fs.Parse(args); err != nil {
		return invoke.ExitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return invoke.ExitError
	}
	root := cfg.PluginRoot
	if fs.NArg() > 0 {
		root = fs.Arg(0)
	}

	problems := 0

	modelFiles, err := plugindef.ModelFiles(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list models: %v\n", err)
		return invoke.ExitError
	}
	if len(modelFiles) == 0 {
		fmt.Fprintf(os.Stderr, "no model files under %s\n", root)
		problems++
	}
	for _, path := range modelFiles {
		if _, err := plugindef.LoadModel(path); err != nil {
			fmt.Fprintf(os.Stderr, "invalid model: %v\n", err)
			problems++
			continue
		}
		fmt.Printf("model ok: %s\n", path)
	}

	calcFiles, err := plugindef.CalculatorFiles(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list calculators: %v\n", err)
		return invoke.ExitError
	}
	if len(calcFiles) == 0 {
		fmt.Fprintf(os.Stderr, "no calculator files under %s\n", root)
		problems++
	}
	for _, path := range calcFiles {
		calc, err := plugindef.LoadCalculator(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid calculator: %v\n", err)
			problems++
			continue
		}
		if !calc.HasModel(plugindef.ModelID) {
			fmt.Fprintf(os.Stderr, "calculator %s does not declare the %s model\n", path, plugindef.ModelID)
			problems++
			continue
		}
		fmt.Printf("calculator ok: %s\n", path)
	}

	if problems > 0 {
		return invoke.ExitError
	}
	return invoke.ExitOK
}

func runVars(args []string) int {
	fs := flag.NewFlagSet("vars", flag.ContinueOnError)
	configPath := fs.String("config", "", "Optional config file path")
	if err := fs.Parse(args); err != nil {
		return invoke.ExitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: fzserpent vars <input.inp>")
		return invoke.ExitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return invoke.ExitError
	}

	model := loadModelOrDefault(cfg.PluginRoot)
	names, err := model.ScanVariables(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return invoke.ExitError
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return invoke.ExitOK
}

func runHistory(args []string) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	configPath := fs.String("config", "", "Optional config file path")
	dbPath := fs.String("db", "", "SQLite invocation history path (overrides config)")
	limit := fs.Int("n", 20, "Number of invocations to list")
	if err := fs.Parse(args); err != nil {
		return invoke.ExitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return invoke.ExitError
	}
	if *dbPath != "" {
		cfg.HistoryDB = *dbPath
	}
	if cfg.HistoryDB == "" {
		fmt.Fprintln(os.Stderr, "no history db configured; pass -db or set history_db in the config")
		return invoke.ExitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.NewSQLite(cfg.HistoryDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open history db: %v\n", err)
		return invoke.ExitError
	}
	defer db.Close()
	if err := db.Init(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "init history db: %v\n", err)
		return invoke.ExitError
	}

	records, err := db.ListRecent(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list invocations: %v\n", err)
		return invoke.ExitError
	}

	for _, rec := range records {
		fmt.Printf("%s  %s  %-9s  exit=%d  %s  %s\n",
			rec.StartedAt.Local().Format(time.DateTime),
			rec.InvocationID,
			rec.Status,
			rec.ExitCode,
			rec.InputFile,
			formatDuration(rec),
		)
	}
	return invoke.ExitOK
}

func loadModelOrDefault(root string) plugindef.Model {
	files, err := plugindef.ModelFiles(root)
	if err == nil {
		for _, path := range files {
			if model, err := plugindef.LoadModel(path); err == nil {
				return model
			}
		}
	}
	return plugindef.Default()
}

func formatDuration(rec core.InvocationRecord) string {
	if rec.DurationMs <= 0 {
		return "-"
	}
	return (time.Duration(rec.DurationMs) * time.Millisecond).String()
}
