package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sevigo/doc-sentry/internal/report"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s <report.json>\n\nInteractive browser for doc-sentry impact reports.\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	result, err := report.ReadJSON(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load report: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(initialModel(result), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error running program: %v\n", err)
		os.Exit(1)
	}
}
