package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/1broseidon/min2tray/internal/config"
)

func runConfig(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(stderr, "Usage:")
		fmt.Fprintln(stderr, "  min2tray config init [--path PATH] [--force]")
		fmt.Fprintln(stderr, "  min2tray config validate [--path PATH]")
		fmt.Fprintln(stderr, "  min2tray config print [--path PATH] [--defaults]")
		return 2
	}

	switch args[0] {
	case "init":
		fs := flag.NewFlagSet("init", flag.ContinueOnError)
		fs.SetOutput(stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/min2tray/config.yaml)")
		force := fs.Bool("force", false, "Overwrite an existing file")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		target, err := configPath(*path)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		if _, err := os.Stat(target); err == nil && !*force {
			fmt.Fprintf(stderr, "%s already exists (use --force to overwrite)\n", target)
			return 1
		}
		if err := config.DefaultConfig().Save(target); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintf(stdout, "config: wrote defaults to %s\n", target)
		return 0

	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/min2tray/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		res, err := loadConfigFile(*path)
		if err != nil {
			if config.IsValidationError(err) {
				fmt.Fprintln(stderr, "config: invalid:", err)
			} else {
				fmt.Fprintln(stderr, "config: unreadable:", err)
			}
			return 1
		}
		if res.File == "" {
			fmt.Fprintln(stdout, "config: ok (no file, using defaults)")
			return 0
		}
		fmt.Fprintf(stdout, "config: ok (%s)\n", res.File)
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/min2tray/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			res, err := loadConfigFile(*path)
			if err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
			if res.File != "" {
				fmt.Fprintf(stdout, "# source: %s\n", res.File)
			}
			cfg = res.Config
		}
		data, err := cfg.Marshal()
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprint(stdout, string(data))
		return 0

	default:
		fmt.Fprintf(stderr, "Unknown config command: %s\n", args[0])
		return 2
	}
}

func configPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return config.DefaultConfigPath()
}

func loadConfigFile(path string) (*config.LoadResult, error) {
	p, err := configPath(path)
	if err != nil {
		return nil, err
	}
	return config.LoadFromPath(p)
}
