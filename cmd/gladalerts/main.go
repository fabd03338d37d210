package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/rizkyfirmansyah/glad-alerts/internal/config"
	"github.com/rizkyfirmansyah/glad-alerts/internal/logctx"
)

// Exit codes
const (
	ExitSuccess            = 0
	ExitGeneralError       = 1
	ExitInvalidArgs        = 2
	ExitServiceUnavailable = 3
	ExitStorageError       = 5
	ExitMergeFailed        = 7
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "run":
		return runPipeline(cmdArgs)
	case "export":
		return runExport(cmdArgs)
	case "download":
		return runDownload(cmdArgs)
	case "merge":
		return runMerge(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: gladalerts <command> [options]

Commands:
  run       Export the latest alerts, download them, merge and clean up
  export    Submit the alert exports and wait for them to finish
  download  Download every exported file into temp_download
  merge     Merge temp_download into the final output and clean up

Run 'gladalerts <command> -h' for command-specific help.`)
}

// app is the state shared by every command: the loaded configuration and a
// context carrying the logger, cancelled on SIGINT or SIGTERM.
type app struct {
	cfg    config.Config
	ctx    context.Context
	logger *zerolog.Logger

	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// setup parses the common flags and builds the configuration in order:
// YAML file, .env and GLAD_ environment, then flags.
func setup(name, usage string, args []string) (*app, int) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	configPath := fs.String("config", "", "Path to a YAML config file")
	envPath := fs.String("env", ".env", "Path to a .env file")
	human := fs.Bool("human", false, "Human-readable log output")
	debug := fs.Bool("debug", false, "Enable debug logging")
	removeDuplicates := fs.Bool("remove-duplicates", true, "Dissolve records with identical geometry")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, usage+"\n\nOptions:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, ExitSuccess
		}
		return nil, ExitInvalidArgs
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return nil, ExitInvalidArgs
	}

	cfg, err := loadConfig(*configPath, *envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, ExitInvalidArgs
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "remove-duplicates" {
			cfg.RemoveDuplicates = *removeDuplicates
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, ExitInvalidArgs
	}

	a := &app{cfg: cfg}

	logOpts := logctx.Options{Debug: *debug, Human: *human}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			return nil, ExitGeneralError
		}
		logOpts.File = f
		a.closers = append(a.closers, func() { f.Close() })
	}
	logger := logctx.NewConfiguredLogger(logOpts).With().Str("command", name).Logger()
	a.logger = &logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	a.closers = append(a.closers, stop)
	a.ctx = logctx.WithLogger(ctx, logger)

	return a, ExitSuccess
}

// loadConfig builds the configuration from defaults, an optional YAML
// file, an optional .env file and the environment.
func loadConfig(configPath, envPath string) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.LoadFromFile(configPath)
		if err != nil {
			return cfg, err
		}
	}
	if err := config.LoadDotEnv(envPath); err != nil {
		return cfg, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
