// Command editor is a terminal front end for authoring wellness sessions
// against a running wellnesshub API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/wellnesshub/internal/client"
	"github.com/geocoder89/wellnesshub/internal/editor"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		apiURL    string
		credsPath string
		autoSave  time.Duration
		logLevel  string
	)

	defaultCreds, _ := client.DefaultCredentialsPath()

	flagSet := pflag.NewFlagSet("editor", pflag.ContinueOnError)
	flagSet.StringVar(&apiURL, "api", envOr("WELLNESSHUB_API", "http://localhost:5000"), "base URL of the wellnesshub API")
	flagSet.StringVar(&credsPath, "credentials", defaultCreds, "file the login is kept in between runs")
	flagSet.DurationVar(&autoSave, "autosave", editor.DefaultAutoSaveDelay, "idle time before a draft is saved")
	flagSet.StringVar(&logLevel, "log-level", "warn", "debug, info, warn or error")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}

	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := newREPL(os.Stdin, os.Stdout)

	opts := editor.Options{
		AutoSaveDelay: autoSave,
		Logger:        log,
		OnChange:      r.asyncUpdate,
	}
	if credsPath != "" {
		opts.Store = client.NewCredentialStore(credsPath)
	}

	ed := editor.New(client.New(apiURL, nil), opts)
	defer ed.Close()

	ed.Start(ctx)

	return r.run(ctx, ed)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "usage: editor [flags]\n\n")
	flagSet.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\n%s", commandHelp)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
