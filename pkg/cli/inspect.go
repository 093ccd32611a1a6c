package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/platinummonkey/patchbridge/pkg/plugins"
)

func newInspectCommand() *Command {
	cmd := &Command{
		Name:        "inspect",
		Description: "Validate plugin archives without loading them",
		Flags:       flag.NewFlagSet("inspect", flag.ContinueOnError),
		Run:         runInspect,
	}

	cmd.Flags.String("format", FormatText, "Output format (text, json, yaml)")
	cmd.Flags.Bool("verbose", false, "Log progress to stderr")

	return cmd
}

func runInspect(args []string) error {
	flags := flag.NewFlagSet("inspect", flag.ContinueOnError)
	flags.SetOutput(stderr)
	format := flags.String("format", FormatText, "Output format (text, json, yaml)")
	verbose := flags.Bool("verbose", false, "Log progress to stderr")

	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return fmt.Errorf("at least one archive is required")
	}

	validator := plugins.NewValidator(newLogger(*verbose))
	results := make([]*plugins.ValidationResult, 0, flags.NArg())
	invalid := 0
	for _, archive := range flags.Args() {
		result, err := validator.ValidateArchive(context.Background(), archive)
		if err != nil {
			return fmt.Errorf("inspecting %s: %w", archive, err)
		}
		if !result.Valid {
			invalid++
		}
		results = append(results, result)
	}

	if *format == FormatText {
		for _, result := range results {
			printInspection(result)
		}
	} else if err := printStructured(*format, results); err != nil {
		return err
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d archive(s) failed validation", invalid, len(results))
	}
	return nil
}

func printInspection(result *plugins.ValidationResult) {
	status := "valid"
	if !result.Valid {
		status = "INVALID"
	}
	fmt.Fprintf(stdout, "%s: %s\n", result.Archive, status)
	if d := result.Descriptor; d != nil {
		fmt.Fprintf(stdout, "  plugin:   %s %s\n", d.Name, d.Version)
		fmt.Fprintf(stdout, "  main:     %s\n", d.Main)
		if depends := d.RequiredPlugins(); len(depends) > 0 {
			fmt.Fprintf(stdout, "  requires: %v\n", depends)
		}
		if len(d.Libraries) > 0 {
			fmt.Fprintf(stdout, "  libraries:\n")
			for _, lib := range d.Libraries {
				fmt.Fprintf(stdout, "    - %s\n", lib)
			}
		}
	}
	for _, pkg := range result.Packages {
		fmt.Fprintf(stdout, "  package:  %s\n", pkg)
	}
	for _, e := range result.ManifestErrors {
		fmt.Fprintf(stdout, "  error:    %s\n", e.Error())
	}
	for _, issue := range result.SecurityIssues {
		fmt.Fprintf(stdout, "  [%s] %s: %s\n", issue.Severity, issue.Category, issue.Description)
	}
}
