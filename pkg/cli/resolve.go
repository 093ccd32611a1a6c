package cli

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/platinummonkey/patchbridge/pkg/resolver"
)

func newResolveCommand() *Command {
	cmd := &Command{
		Name:        "resolve",
		Description: "Download Maven coordinates and their runtime dependencies",
		Flags:       flag.NewFlagSet("resolve", flag.ContinueOnError),
		Run:         runResolve,
	}

	cmd.Flags.String("file", "", "File with one coordinate per line")
	cmd.Flags.String("cache", "patchbridge-libs", "Local repository directory")
	cmd.Flags.String("repositories", resolver.FormatRepositories(resolver.DefaultRepositories), "Comma separated id=url list")
	cmd.Flags.Int("workers", 4, "Parallel downloads")
	cmd.Flags.Duration("timeout", 2*time.Minute, "HTTP timeout")
	cmd.Flags.Bool("verbose", false, "Log progress to stderr")

	return cmd
}

func runResolve(args []string) error {
	flags := flag.NewFlagSet("resolve", flag.ContinueOnError)
	flags.SetOutput(stderr)
	file := flags.String("file", "", "File with one coordinate per line")
	cacheDir := flags.String("cache", "patchbridge-libs", "Local repository directory")
	repoList := flags.String("repositories", resolver.FormatRepositories(resolver.DefaultRepositories), "Comma separated id=url list")
	workers := flags.Int("workers", 4, "Parallel downloads")
	timeout := flags.Duration("timeout", 2*time.Minute, "HTTP timeout")
	verbose := flags.Bool("verbose", false, "Log progress to stderr")

	if err := flags.Parse(args); err != nil {
		return err
	}

	text := strings.Join(flags.Args(), "\n")
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			return fmt.Errorf("reading coordinates: %w", err)
		}
		text += "\n" + string(data)
	}
	if len(resolver.NormalizeCoordinates(text)) == 0 {
		return fmt.Errorf("no coordinates given")
	}

	repos, err := resolver.ParseRepositories(*repoList)
	if err != nil {
		return err
	}

	r := resolver.New(
		resolver.WithRepositories(repos),
		resolver.WithHTTPClient(&http.Client{Timeout: *timeout}),
		resolver.WithLogger(newLogger(*verbose)),
		resolver.WithWorkers(*workers),
	)
	paths := r.Resolve(context.Background(), text, *cacheDir)
	for _, p := range paths {
		fmt.Fprintln(stdout, p)
	}
	if len(paths) == 0 {
		return fmt.Errorf("nothing could be resolved")
	}
	return nil
}
