package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/min2tray/internal/app"
	"github.com/1broseidon/min2tray/internal/config"
	"github.com/1broseidon/min2tray/internal/mcp"
	"github.com/1broseidon/min2tray/internal/process"
	"github.com/1broseidon/min2tray/internal/tray"
)

// errMissingTitle exits 1 like the other setup errors.
var errMissingTitle = errors.New("-w/--window_title is required")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) > 0 {
		switch args[0] {
		case "windows":
			return runWindows(args[1:], os.Stdout)
		case "config":
			return runConfig(args[1:], os.Stdout, os.Stderr)
		case "help", "-h", "--help":
			printMainUsage(os.Stdout)
			return 0
		}
	}

	opts, err := parseRunFlags(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "")
		printMainUsage(os.Stderr)
		if errors.Is(err, errMissingTitle) {
			return 1
		}
		return 2
	}
	return runTray(opts)
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: min2tray -w <window_title> [options]")
	fmt.Fprintln(w, "       min2tray <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  -w, --window_title TITLE    Exact title of the window to manage (required)")
	fmt.Fprintln(w, "  -c, --command CMD           Launch CMD first and exit when it exits")
	fmt.Fprintln(w, "  -i, --icon_image PATH       Tray icon image (png, jpeg, gif)")
	fmt.Fprintln(w, "  -k, --hotkey CHORD          Global hotkey that toggles the window, e.g. ctrl+alt+h")
	fmt.Fprintln(w, "  -m, --start_minimized       Hide the window as soon as it is found")
	fmt.Fprintln(w, "      --config PATH           Config file (default: ~/.config/min2tray/config.yaml)")
	fmt.Fprintln(w, "      --mcp                   Serve window control tools over MCP on stdio")
	fmt.Fprintln(w, "      --log-level LEVEL       debug, info, warning or error")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  windows [--json|--pick]     List or pick top-level windows by title")
	fmt.Fprintln(w, "  config init                 Write a default config file")
	fmt.Fprintln(w, "  config print                Print configuration")
	fmt.Fprintln(w, "  config validate             Validate configuration")
	fmt.Fprintln(w, "  help                        Show this help")
}

// runOptions holds the parsed command line. set records which flags were
// given explicitly so they can override config file values.
type runOptions struct {
	WindowTitle    string
	Command        string
	IconImage      string
	Hotkey         string
	StartMinimized bool
	ConfigPath     string
	MCP            bool
	LogLevel       string

	set map[string]bool
}

// canonicalFlag maps short forms to the long flag name.
var canonicalFlag = map[string]string{
	"w": "window_title",
	"c": "command",
	"i": "icon_image",
	"k": "hotkey",
	"m": "start_minimized",
}

func parseRunFlags(args []string, stderr io.Writer) (*runOptions, error) {
	opts := &runOptions{set: map[string]bool{}}

	fs := flag.NewFlagSet("min2tray", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printMainUsage(stderr) }

	for _, name := range []string{"w", "window_title"} {
		fs.StringVar(&opts.WindowTitle, name, "", "Window title")
	}
	for _, name := range []string{"c", "command"} {
		fs.StringVar(&opts.Command, name, "", "Command to launch")
	}
	for _, name := range []string{"i", "icon_image"} {
		fs.StringVar(&opts.IconImage, name, "", "Tray icon image")
	}
	for _, name := range []string{"k", "hotkey"} {
		fs.StringVar(&opts.Hotkey, name, "", "Global hotkey")
	}
	for _, name := range []string{"m", "start_minimized"} {
		fs.BoolVar(&opts.StartMinimized, name, false, "Start hidden")
	}
	fs.StringVar(&opts.ConfigPath, "config", "", "Config file path")
	fs.BoolVar(&opts.MCP, "mcp", false, "Serve MCP on stdio")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Log level")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	fs.Visit(func(f *flag.Flag) {
		name := f.Name
		if long, ok := canonicalFlag[name]; ok {
			name = long
		}
		opts.set[name] = true
	})

	if opts.WindowTitle == "" {
		return nil, errMissingTitle
	}
	if opts.set["log-level"] {
		if _, err := config.ParseLogLevel(opts.LogLevel); err != nil {
			return nil, err
		}
	}
	return opts, nil
}

// loadConfig reads the config file and applies explicitly set flags on top.
func loadConfig(opts *runOptions) (*config.Config, error) {
	path := opts.ConfigPath
	if path == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	cfg := res.Config

	if opts.set["icon_image"] {
		cfg.IconImage = opts.IconImage
	}
	if opts.set["hotkey"] {
		cfg.Hotkey = opts.Hotkey
	}
	if opts.set["start_minimized"] {
		cfg.StartMinimized = opts.StartMinimized
	}
	if opts.set["log-level"] {
		cfg.LogLevel = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runTray(opts *runOptions) int {
	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	proc := process.NewManager(logger)
	if opts.MCP {
		// stdout carries the MCP protocol.
		proc.Stdout = os.Stderr
	}

	a, err := app.New(app.Options{
		WindowTitle:       opts.WindowTitle,
		TrayName:          cfg.TrayName,
		TrayTitle:         cfg.TrayTitle,
		TerminateTimeout:  cfg.TerminateTimeout,
		ReconcileInterval: cfg.ReconcileInterval,
		Process:           proc,
		Logger:            logger,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if code, ok := setup(a, opts, cfg); !ok {
		a.Stop()
		return code
	}

	if opts.MCP {
		srv := mcp.NewServer(a, logger)
		a.AddService(srv.Run)
	}

	if err := a.Start(ctx, cfg.IconPath(), cfg.StartMinimized); err != nil {
		fmt.Fprintln(os.Stderr, err)
		a.Stop()
		return 1
	}
	if err := a.Stop(); err != nil {
		logger.Warn("shutdown completed with errors", "error", err)
	}
	return 0
}

// setup checks the icon, launches the command, resolves the window and
// registers the hotkey.
func setup(a *app.App, opts *runOptions, cfg *config.Config) (int, bool) {
	if _, err := tray.LoadImage(cfg.IconPath()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1, false
	}

	if opts.Command != "" {
		argv, err := process.SplitCommand(opts.Command)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Invalid command:", err)
			return 2, false
		}
		if len(argv) == 0 {
			fmt.Fprintln(os.Stderr, "Invalid command: empty")
			return 2, false
		}
		if !a.RunCommand(argv, cfg.WarmupDelay) {
			fmt.Fprintf(os.Stderr, "Command %q is not running after startup\n", argv[0])
			return 1, false
		}
	}

	if err := a.SetupWindow(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1, false
	}

	if cfg.Hotkey != "" {
		if err := a.RegisterHotkey(cfg.Hotkey); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1, false
		}
	}
	return 0, true
}
