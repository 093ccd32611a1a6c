package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/platinummonkey/patchbridge/pkg/config"
	"github.com/platinummonkey/patchbridge/pkg/host"
	"github.com/platinummonkey/patchbridge/pkg/observability"
)

// serveContext bounds a serve run; signals end it as well
var serveContext = context.Background

func newServeCommand() *Command {
	cmd := &Command{
		Name:        "serve",
		Description: "Run the plugin host standalone, without a native core",
		Flags:       flag.NewFlagSet("serve", flag.ContinueOnError),
		Run:         runServe,
	}

	cmd.Flags.String("plugins-dir", "", "Plugins directory (overrides PATCHBRIDGE_PLUGINS_DIR)")
	cmd.Flags.String("admin-addr", "", "Admin listen address (overrides PATCHBRIDGE_ADMIN_ADDR)")
	cmd.Flags.Bool("enable", true, "Enable plugins after loading them")

	return cmd
}

func runServe(args []string) error {
	flags := flag.NewFlagSet("serve", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pluginsDir := flags.String("plugins-dir", "", "Plugins directory (overrides PATCHBRIDGE_PLUGINS_DIR)")
	adminAddr := flags.String("admin-addr", "", "Admin listen address (overrides PATCHBRIDGE_ADMIN_ADDR)")
	enable := flags.Bool("enable", true, "Enable plugins after loading them")

	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if *pluginsDir != "" {
		cfg.Plugins.Dir = *pluginsDir
	}
	if *adminAddr != "" {
		cfg.Admin.Addr = *adminAddr
	}

	rt, err := host.New(cfg, host.WithLogger(observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, stderr)))
	if err != nil {
		return err
	}
	ctx := serveContext()
	if err := rt.Start(ctx); err != nil {
		return err
	}
	if *enable {
		rt.EnableAll()
	}
	if addr := rt.AdminAddr(); addr != "" {
		fmt.Fprintf(stdout, "Admin API on http://%s\n", addr)
	}

	sm := observability.NewShutdownManager(rt.Logger(), nil, cfg.Admin.ShutdownTimeout)
	sm.RegisterShutdownFunc(rt.Shutdown)
	return sm.WaitForShutdown(ctx)
}
