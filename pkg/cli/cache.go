package cli

import (
	"flag"
	"fmt"
	"time"

	"github.com/platinummonkey/patchbridge/pkg/resolver"
)

const defaultCacheDir = "patchbridge-libs"

func newCacheCommand() *Command {
	return &Command{
		Name:        "cache",
		Description: "Inspect and maintain a local library cache",
		Subcommands: map[string]*Command{
			"list": {
				Name:        "list",
				Description: "List cached artifacts",
				Run:         runCacheList,
			},
			"verify": {
				Name:        "verify",
				Description: "Check cached artifacts against their recorded checksums",
				Run:         runCacheVerify,
			},
			"prune": {
				Name:        "prune",
				Description: "Remove artifacts not used recently",
				Run:         runCachePrune,
			},
			"clear": {
				Name:        "clear",
				Description: "Remove the whole cache directory",
				Run:         runCacheClear,
			},
		},
	}
}

func cacheFlags(name string) (*flag.FlagSet, *string) {
	flags := flag.NewFlagSet("cache "+name, flag.ContinueOnError)
	flags.SetOutput(stderr)
	dir := flags.String("dir", defaultCacheDir, "Local repository directory")
	return flags, dir
}

func runCacheList(args []string) error {
	flags, dir := cacheFlags("list")
	format := flags.String("format", FormatText, "Output format (text, json, yaml)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cache := resolver.NewCache(*dir)
	entries, err := cache.ListEntries()
	if err != nil {
		return err
	}
	if *format != FormatText {
		return printStructured(*format, entries)
	}

	var total int64
	for _, e := range entries {
		fmt.Fprintf(stdout, "%-60s %10d  %-10s %s\n", e.Coordinate, e.Size, e.Repository, e.LastUsedAt.Format(time.RFC3339))
		total += e.Size
	}
	fmt.Fprintf(stdout, "%d artifact(s), %d bytes\n", len(entries), total)
	return nil
}

func runCacheVerify(args []string) error {
	flags, dir := cacheFlags("verify")
	if err := flags.Parse(args); err != nil {
		return err
	}

	corrupted, err := resolver.NewCache(*dir).VerifyIntegrity()
	if err != nil {
		return err
	}
	for _, c := range corrupted {
		fmt.Fprintln(stdout, c)
	}
	if len(corrupted) > 0 {
		return fmt.Errorf("%d corrupted artifact(s)", len(corrupted))
	}
	fmt.Fprintln(stdout, "All cached artifacts are intact")
	return nil
}

func runCachePrune(args []string) error {
	flags, dir := cacheFlags("prune")
	maxAge := flags.Duration("max-age", 720*time.Hour, "Remove artifacts unused for longer than this")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *maxAge <= 0 {
		return fmt.Errorf("max-age must be positive")
	}

	pruned, err := resolver.NewCache(*dir).PruneOldEntries(*maxAge)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Pruned %d artifact(s)\n", pruned)
	return nil
}

func runCacheClear(args []string) error {
	flags, dir := cacheFlags("clear")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := resolver.NewCache(*dir).Clear(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	fmt.Fprintf(stdout, "Removed %s\n", *dir)
	return nil
}
