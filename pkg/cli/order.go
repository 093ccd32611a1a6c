package cli

import (
	"flag"
	"fmt"
	"strings"

	"github.com/platinummonkey/patchbridge/pkg/dependencies"
	"github.com/platinummonkey/patchbridge/pkg/plugins"
)

type orderEntry struct {
	Position int      `json:"position" yaml:"position"`
	Plugin   string   `json:"plugin" yaml:"plugin"`
	Depends  []string `json:"depends,omitempty" yaml:"depends,omitempty"`
	Missing  []string `json:"missing,omitempty" yaml:"missing,omitempty"`
}

func newOrderCommand() *Command {
	cmd := &Command{
		Name:        "order",
		Description: "Print the load order of the plugins in a directory",
		Flags:       flag.NewFlagSet("order", flag.ContinueOnError),
		Run:         runOrder,
	}

	cmd.Flags.String("dir", "plugins", "Plugins directory")
	cmd.Flags.String("format", FormatText, "Output format (text, json, yaml)")
	cmd.Flags.Bool("graph", false, "Print the dependency graph as Cytoscape JSON")

	return cmd
}

func runOrder(args []string) error {
	flags := flag.NewFlagSet("order", flag.ContinueOnError)
	flags.SetOutput(stderr)
	dir := flags.String("dir", "plugins", "Plugins directory")
	format := flags.String("format", FormatText, "Output format (text, json, yaml)")
	graphOut := flags.Bool("graph", false, "Print the dependency graph as Cytoscape JSON")

	if err := flags.Parse(args); err != nil {
		return err
	}

	manager := plugins.NewManager(*dir, nil, newLogger(false))
	if _, err := manager.Discover(); err != nil {
		return err
	}
	graph := manager.DependencyGraph()
	if *graphOut {
		return printStructured(FormatJSON, graph.ToCytoscape())
	}

	order, err := graph.LoadOrder()
	if err != nil {
		return err
	}

	entries := make([]orderEntry, 0, len(order))
	for i, name := range order {
		entry := orderEntry{
			Position: i + 1,
			Plugin:   name,
			Missing:  graph.MissingDependencies(name),
		}
		for _, d := range graph.GetDependencies(name) {
			if d.Type != dependencies.EdgeLoadBefore {
				entry.Depends = append(entry.Depends, d.Plugin)
			}
		}
		entries = append(entries, entry)
	}

	if *format != FormatText {
		return printStructured(*format, entries)
	}
	for _, e := range entries {
		line := fmt.Sprintf("%d. %s", e.Position, e.Plugin)
		if len(e.Depends) > 0 {
			line += fmt.Sprintf(" (after %s)", strings.Join(e.Depends, ", "))
		}
		if len(e.Missing) > 0 {
			line += fmt.Sprintf(" [missing %s]", strings.Join(e.Missing, ", "))
		}
		fmt.Fprintln(stdout, line)
	}
	return nil
}
