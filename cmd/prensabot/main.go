package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"prensabot/internal/app"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "path to config file (json or yaml); optional")
		daemon  = flag.Bool("daemon", false, "stay alive and scan on the configured schedule")
		dryRun  = flag.Bool("dry-run", false, "log deliveries instead of sending to Telegram")
	)
	flag.Parse()

	// A .env next to the binary stands in for the systemd EnvironmentFile;
	// missing is fine.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(app.Options{ConfigPath: *cfgPath, Daemon: *daemon, DryRun: *dryRun})
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	code := 0
	if *daemon || a.DaemonEnabled() {
		code = a.RunDaemon(ctx)
	} else {
		code = a.RunOnce(ctx)
	}
	a.Close()
	os.Exit(code)
}
