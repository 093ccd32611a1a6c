package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// stdout receives command output, stderr logs
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// NewRootCommand creates the root command
func NewRootCommand() *Command {
	root := &Command{
		Name:        "patchbridge",
		Description: "patchbridge - plugin host tooling",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("patchbridge", flag.ExitOnError),
	}

	root.Subcommands["inspect"] = newInspectCommand()
	root.Subcommands["resolve"] = newResolveCommand()
	root.Subcommands["cache"] = newCacheCommand()
	root.Subcommands["order"] = newOrderCommand()
	root.Subcommands["serve"] = newServeCommand()

	return root
}

// Execute runs the command with the process arguments
func (c *Command) Execute() error {
	return c.ExecuteArgs(os.Args[1:])
}

// ExecuteArgs dispatches args to a subcommand
func (c *Command) ExecuteArgs(args []string) error {
	if len(args) == 0 || isHelp(args[0]) {
		return c.usage()
	}

	if subcmd, ok := c.Subcommands[args[0]]; ok {
		if subcmd.Run == nil {
			return subcmd.ExecuteArgs(args[1:])
		}
		return subcmd.Run(args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

func isHelp(arg string) bool {
	return strings.EqualFold(arg, "-h") || strings.EqualFold(arg, "--help")
}

// usage prints the command usage
func (c *Command) usage() error {
	fmt.Fprintf(stdout, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(stdout, "Commands:\n")
	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(stdout, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}
