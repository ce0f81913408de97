package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/anyhandle"
	"github.com/wippyai/anyhandle/registry"
)

func main() {
	var (
		seedFile    = flag.String("seed", "", "Seed file (.yaml, .yml or .toml); built-in sample when empty")
		probeKind   = flag.String("probe", "", "Downcast every entry to this kind and report hits")
		interactive = flag.Bool("i", false, "Interactive mode with TUI (default when stdout is a terminal)")
		logLevel    = flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	log, err := newLogger(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck
	anyhandle.SetLogger(log.Named("handle"))
	registry.SetLogger(log.Named("registry"))

	tty := term.IsTerminal(int(os.Stdout.Fd()))
	explicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "i" {
			explicit = true
		}
	})
	if !explicit {
		*interactive = tty && *probeKind == ""
	}

	if err := run(*seedFile, *probeKind, *interactive, tty); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func run(seedFile, probeKind string, interactive, tty bool) error {
	cfg := defaultSeed()
	if seedFile != "" {
		var err error
		if cfg, err = LoadSeedConfig(seedFile); err != nil {
			return err
		}
	}

	table := registry.New()
	defer table.Close()

	if err := Seed(table, cfg); err != nil {
		return err
	}

	if interactive {
		return runInteractive(table, seedFile)
	}

	width := 0
	if tty {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width = w
		}
	}

	if probeKind != "" {
		results, err := probe(table, probeKind)
		if err != nil {
			return err
		}
		printProbe(os.Stdout, probeKind, results)
		return nil
	}

	printListing(os.Stdout, table, width)
	return nil
}
