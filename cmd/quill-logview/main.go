// Command quill-logview is a tool for viewing and analyzing Quill
// transport log files.
//
// Log files are created with the pkg/log FileLogger, for example by
// running quill-probe with the -log-file flag.
//
// Usage:
//
//	quill-logview <command> [flags] <file.qlog>
//
// Commands:
//
//	view   View log file in human-readable format
//	stats  Show statistics about the log file
//
// Examples:
//
//	# View all events
//	quill-logview view session.qlog
//
//	# View only inbound data events
//	quill-logview view -direction in -category data session.qlog
//
//	# View events for one connection
//	quill-logview view -conn-id abc12345 session.qlog
//
//	# Show statistics
//	quill-logview stats session.qlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/quill-messaging/quill-go/cmd/quill-logview/commands"
	"github.com/quill-messaging/quill-go/pkg/log"
)

const usage = `quill-logview - Quill Transport Log Analyzer

Usage:
  quill-logview <command> [flags] <file.qlog>

Commands:
  view   View log file in human-readable format
  stats  Show statistics about the log file

Use "quill-logview <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `quill-logview view - View log file in human-readable format

Usage:
  quill-logview view [flags] <file.qlog>

Flags:
`)
		fs.PrintDefaults()
	}

	connID := fs.String("conn-id", "", "Filter by connection ID")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (data, state, error)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}

	filter := log.Filter{ConnectionID: *connID}

	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.Direction = &d
	}

	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.Category = &c
	}

	if err := commands.View(os.Stdout, fs.Arg(0), filter); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `quill-logview stats - Show statistics about the log file

Usage:
  quill-logview stats <file.qlog>
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}

	stats, err := commands.CollectStats(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	commands.WriteStats(os.Stdout, stats)
}
