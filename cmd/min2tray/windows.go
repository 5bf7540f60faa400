package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"github.com/1broseidon/min2tray/internal/window"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1)
)

func runWindows(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("windows", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: min2tray windows [--json | --pick]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List top-level windows. Use a listed title with -w.")
		fmt.Fprintln(os.Stderr, "--pick opens an interactive selector and prints the chosen title.")
	}
	asJSON := fs.Bool("json", false, "Output JSON")
	pick := fs.Bool("pick", false, "Select a window interactively and print its title")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if *asJSON && *pick {
		fmt.Fprintln(os.Stderr, "--json and --pick are mutually exclusive")
		return 2
	}

	infos, err := window.List()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to list windows:", err)
		return 1
	}

	switch {
	case *asJSON:
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(infos); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	case *pick:
		return pickWindow(stdout, infos)
	}

	writeWindows(stdout, infos, term.IsTerminal(int(os.Stdout.Fd())))
	return 0
}

// writeWindows prints a styled table for terminals and plain TSV otherwise
// so the output stays easy to cut and grep.
func writeWindows(w io.Writer, infos []window.Info, styled bool) {
	if !styled {
		for _, info := range infos {
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", info.ID, info.PID, info.Owner, info.Title)
		}
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("238"))).
		Headers("ID", "PID", "OWNER", "TITLE").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 2:
				return dimStyle
			default:
				return cellStyle
			}
		})
	for _, info := range infos {
		owner := info.Owner
		if owner == "" {
			owner = "-"
		}
		t.Row(fmt.Sprintf("0x%x", info.ID), strconv.Itoa(info.PID), owner, info.Title)
	}
	fmt.Fprintln(w, t.Render())
}

func pickWindow(stdout io.Writer, infos []window.Info) int {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "--pick needs an interactive terminal")
		return 2
	}
	opts := pickOptions(infos)
	if len(opts) == 0 {
		fmt.Fprintln(os.Stderr, "No titled windows found")
		return 1
	}

	var title string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Window").
				Description("Pass the selected title to min2tray -w").
				Options(opts...).
				Value(&title),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return 1
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Fprintln(stdout, title)
	return 0
}

// pickOptions lists each distinct non-empty title once; -w matches titles
// exactly so duplicates would be ambiguous anyway.
func pickOptions(infos []window.Info) []huh.Option[string] {
	seen := make(map[string]bool, len(infos))
	opts := make([]huh.Option[string], 0, len(infos))
	for _, info := range infos {
		if info.Title == "" || seen[info.Title] {
			continue
		}
		seen[info.Title] = true
		label := info.Title
		if info.Owner != "" {
			label = fmt.Sprintf("%s (%s)", info.Title, info.Owner)
		}
		opts = append(opts, huh.NewOption(label, info.Title))
	}
	return opts
}
