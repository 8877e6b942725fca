// blokfs mounts a backing directory at a mount point through FUSE. Every request is forwarded to the
// matching host call on the backing directory, with no caching of data or attributes.
//
// Usage:
//
//	blokfs [flags] rootDir mountPoint
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/blokfs/blokfs/internal/config"
	"github.com/blokfs/blokfs/internal/filesystem"
	"github.com/blokfs/blokfs/internal/fuse"
	"github.com/blokfs/blokfs/internal/metrics"
	"github.com/blokfs/blokfs/pkg/errors"
	"github.com/blokfs/blokfs/pkg/utils"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// options holds the command line before it is merged into the configuration
type options struct {
	configFile  string
	logLevel    string
	logFile     string
	metricsAddr string
	debug       bool
	allowOther  bool
	readOnly    bool
	mountOpts   []string

	root       string
	mountPoint string
}

func newFlagSet(opts *options, stderr io.Writer) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("blokfs", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "process log level (TRACE, DEBUG, INFO, WARN, ERROR)")
	flagSet.StringVar(&opts.logFile, "log-file", "", "write the process log here instead of stderr")
	flagSet.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on host:port")
	flagSet.BoolVar(&opts.debug, "debug", false, "log FUSE protocol traffic")
	flagSet.BoolVar(&opts.allowOther, "allow-other", false, "allow other users to access the mount")
	flagSet.BoolVar(&opts.readOnly, "read-only", false, "mount read-only")
	flagSet.StringArrayVarP(&opts.mountOpts, "options", "o", nil, "comma separated mount options, repeatable")
	flagSet.BoolP("help", "h", false, "show help")
	flagSet.Usage = func() { printUsage(stderr, flagSet) }
	return flagSet
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, "usage: blokfs [flags] rootDir mountPoint\n\nFlags:\n")
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
}

// checkPositionals rejects a command line whose last two words are missing or look like flags
func checkPositionals(args []string) error {
	if len(args) < 2 {
		return errors.NewError(errors.ErrCodeUsage, "rootDir and mountPoint are required")
	}
	for _, arg := range args[len(args)-2:] {
		if strings.HasPrefix(arg, "-") {
			return errors.NewError(errors.ErrCodeUsage,
				fmt.Sprintf("rootDir and mountPoint must be the last two arguments, got %q", arg))
		}
	}
	return nil
}

// parseArgs validates the positional layout, then parses flags
func parseArgs(args []string, stderr io.Writer) (*options, *pflag.FlagSet, error) {
	opts := &options{}
	flagSet := newFlagSet(opts, stderr)

	if len(args) == 1 && (args[0] == "-h" || args[0] == "--help") {
		return nil, flagSet, pflag.ErrHelp
	}
	if err := checkPositionals(args); err != nil {
		return nil, flagSet, err
	}
	if err := flagSet.Parse(args); err != nil {
		return nil, flagSet, err
	}
	if help, _ := flagSet.GetBool("help"); help {
		return nil, flagSet, pflag.ErrHelp
	}

	positionals := flagSet.Args()
	if len(positionals) != 2 {
		return nil, flagSet, errors.NewError(errors.ErrCodeUsage,
			fmt.Sprintf("expected rootDir and mountPoint, got %d arguments", len(positionals)))
	}
	opts.root, opts.mountPoint = positionals[0], positionals[1]
	return opts, flagSet, nil
}

// buildConfig merges defaults, the config file, the environment and the command line, in that order
func buildConfig(opts *options, flagSet *pflag.FlagSet) (*config.Configuration, error) {
	cfg := config.NewDefault()

	if opts.configFile != "" {
		if err := cfg.LoadFromFile(opts.configFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	if flagSet.Changed("log-level") {
		cfg.Log.Level = strings.ToUpper(opts.logLevel)
	}
	if flagSet.Changed("log-file") {
		cfg.Log.File = opts.logFile
	}
	if flagSet.Changed("metrics-addr") {
		cfg.Metrics.Enabled = opts.metricsAddr != ""
		cfg.Metrics.Address = opts.metricsAddr
	}
	if flagSet.Changed("debug") {
		cfg.Mount.Debug = opts.debug
	}
	if flagSet.Changed("allow-other") {
		cfg.Mount.AllowOther = opts.allowOther
	}
	if flagSet.Changed("read-only") {
		cfg.Mount.ReadOnly = opts.readOnly
	}
	for _, o := range opts.mountOpts {
		for _, part := range strings.Split(o, ",") {
			if part = strings.TrimSpace(part); part != "" {
				cfg.Mount.Options = append(cfg.Mount.Options, part)
			}
		}
	}

	cfg.Global.RootDir = opts.root
	cfg.Global.MountPoint = opts.mountPoint

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mountOptions(cfg *config.Configuration) *fuse.MountOptions {
	m := cfg.Mount
	return &fuse.MountOptions{
		ReadOnly:     m.ReadOnly,
		AllowOther:   m.AllowOther,
		AllowRoot:    m.AllowRoot,
		DefaultPerms: m.DefaultPermissions,
		MaxWrite:     m.MaxWrite,
		Debug:        m.Debug,
		FSName:       m.FSName,
		Subtype:      m.Subtype,
		AttrTimeout:  m.AttrTimeout,
		EntryTimeout: m.EntryTimeout,
		Extra:        m.Options,
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	opts, flagSet, err := parseArgs(args, stderr)
	if err != nil {
		if err == pflag.ErrHelp {
			printUsage(stderr, flagSet)
			return exitOK
		}
		fmt.Fprintf(stderr, "blokfs: %v\n", err)
		printUsage(stderr, flagSet)
		return exitUsage
	}

	cfg, err := buildConfig(opts, flagSet)
	if err != nil {
		fmt.Fprintf(stderr, "blokfs: %v\n", err)
		return exitFailure
	}

	logOutput := stderr
	if cfg.Log.File != "" {
		file, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(stderr, "blokfs: failed to open log file: %v\n", err)
			return exitFailure
		}
		defer func() { _ = file.Close() }()
		logOutput = file
	}
	log, err := utils.NewProcessLogger(cfg.Log.Level, logOutput)
	if err != nil {
		fmt.Fprintf(stderr, "blokfs: %v\n", err)
		return exitFailure
	}

	diag, err := utils.OpenDiagnosticLog(cfg.Log.DiagnosticFile, &utils.RotationConfig{
		MaxSize:    int64(cfg.Log.MaxSizeMB),
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		logErr := errors.Wrap(errors.ErrCodeLogOpen, "cannot create diagnostic log", err)
		log.Error(logErr.Error(), utils.Fields{
			"file":  cfg.Log.DiagnosticFile,
			"cause": err.Error(),
		})
		return exitFailure
	}
	defer func() { _ = diag.Close() }()

	if err := serve(ctx, cfg, log, diag); err != nil {
		log.Error("blokfs stopped with error", utils.Fields{"error": err.Error()})
		return exitFailure
	}
	return exitOK
}

// serve mounts the file system and runs the metrics endpoint until the mount ends or ctx is cancelled
func serve(ctx context.Context, cfg *config.Configuration, log, diag *utils.StructuredLogger) error {
	mountCtx, err := filesystem.NewMountContext(cfg.Global.RootDir, diag)
	if err != nil {
		return err
	}

	collector, err := metrics.NewCollector(&metrics.Config{
		Enabled:   cfg.Metrics.Enabled,
		Address:   cfg.Metrics.Address,
		Namespace: cfg.Metrics.Namespace,
	}, log)
	if err != nil {
		return err
	}

	d := filesystem.NewDispatcher(mountCtx, collector)
	if err := collector.RegisterStats(d); err != nil {
		return err
	}

	mgr := fuse.CreatePlatformMountManager(d, &fuse.MountConfig{
		MountPoint: cfg.Global.MountPoint,
		Options:    mountOptions(cfg),
	}, log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		if err := mgr.Mount(gctx); err != nil {
			return err
		}
		mgr.Wait()
		return nil
	})
	g.Go(func() error {
		return collector.Serve(gctx)
	})

	err = g.Wait()
	stats := mgr.GetStats()
	log.Info("blokfs exiting", utils.Fields{
		"lookups":       stats.Lookups,
		"reads":         stats.Reads,
		"writes":        stats.Writes,
		"bytes_read":    stats.BytesRead,
		"bytes_written": stats.BytesWritten,
		"errors":        stats.Errors,
	})
	return err
}
