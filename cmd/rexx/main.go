package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"rexx"
	"rexx/internal/config"
	"rexx/internal/interrupt"
	"rexx/internal/log"
	"rexx/internal/repl"
)

var (
	// Version is set at build time with -ldflags "-X main.Version=...".
	Version   = "dev"
	BuildDate = "unknown"
	Commit    = "unknown"
	help      bool
	version   bool
	// program
	source     string
	configFile string
	env        string
	trace      string
	// logging
	logLevel string
	logFile  string
)

func init() {
	flag.BoolVar(&help, "help", false, "Display help information and exit")
	flag.BoolVar(&help, "h", false, "Display help information and exit")
	flag.BoolVar(&version, "version", false, "Display version information and exit")
	flag.BoolVar(&version, "v", false, "Display version information and exit")
	flag.StringVar(&source, "e", "", "Run the given source instead of a program file")
	flag.StringVar(&configFile, "config", "", "Configuration file (.toml, .yaml); default $REXX_CONFIG")
	flag.StringVar(&env, "env", "", "Initial ADDRESS environment")
	flag.StringVar(&trace, "trace", "", "Initial TRACE setting")
	flag.StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error, none")
	flag.StringVar(&logFile, "log-file", "", "Log file path (if not set, logs to stderr)")
}

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if version {
		printVersion()
		return 0
	}
	if help {
		printHelp()
		return 0
	}

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 3
	}
	cfg.Version, cfg.BuildDate, cfg.Commit = Version, BuildDate, Commit
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if env != "" {
		cfg.DefaultEnv = strings.ToUpper(env)
	}
	if trace != "" {
		cfg.Trace = trace
	}

	logger, err := log.New(log.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 3
	}
	defer logger.Close()
	slog.SetDefault(logger.Logger)
	slog.Debug("configuration loaded",
		slog.String("source", cfg.Source),
		slog.String("extension", cfg.Extension),
		slog.Any("path", cfg.Path))

	// SIGHUP reopens the log file when there is one
	halting := interrupt.Halting
	if cfg.LogFile != "" {
		halting = []os.Signal{os.Interrupt, unix.SIGTERM}
	}
	halter := interrupt.Watch(halting...)
	defer halter.Stop()

	opts := rexx.Options{
		DefaultEnv: cfg.DefaultEnv,
		Extension:  cfg.Extension,
		Path:       cfg.Path,
		Digits:     cfg.Digits,
		Trace:      cfg.Trace,
		Shell:      cfg.Shell,
		SQLDriver:  cfg.SQLDriver,
		SQLDSN:     cfg.SQLDSN,
		Halter:     halter,
		Logger:     logger.Logger,
	}

	interactive := source == "" && flag.NArg() == 0 && term.IsTerminal(int(os.Stdin.Fd()))
	var console *repl.REPL
	if interactive {
		console = repl.New("", os.Stdout)
		defer console.Close()
		opts.TraceInput = console.TraceInput
	}

	sess := rexx.New(opts)
	defer sess.Close()
	ctx := context.Background()

	if interactive {
		fmt.Printf("%s (%s)\n", rexx.Version, Version)
		out, err := console.Run(sess.Shell(ctx, ""))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return status(out.RC, out.Result)
	}

	inv := rexx.Invocation{CallType: rexx.AsCommand, Flags: rexx.TopLevel}
	switch {
	case source != "":
		inv.Name = "-e"
		inv.Source = []byte(source)
		inv.Args = argString(flag.Args())
	case flag.NArg() == 0:
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 3
		}
		inv.Name = "STDIN"
		inv.Source = src
	default:
		inv.Name = flag.Arg(0)
		inv.Args = argString(flag.Args()[1:])
	}

	rc, result, err := sess.Start(ctx, inv)
	if err != nil {
		slog.Debug("program not started", slog.String("name", inv.Name), slog.Any("error", err))
	}
	return status(rc, result)
}

// argString passes the command line words as the single argument string
// a command receives.
func argString(words []string) []string {
	if len(words) == 0 {
		return nil
	}
	return []string{strings.Join(words, " ")}
}

// status is the process exit status: the error number after a failure,
// else the program's result when it is a whole number.
func status(rc int, result string) int {
	if rc < 0 {
		return -rc
	}
	if rc > 0 {
		return rc
	}
	if n, err := strconv.Atoi(strings.TrimSpace(result)); err == nil {
		return n
	}
	return 0
}

func printVersion() {
	fmt.Printf("rexx version 'v%s' %s %s (%s)\n", Version, BuildDate, Commit, rexx.Version)
}

func printHelp() {
	fmt.Printf(`Usage: rexx [options] [filename [args...]]

Options:
  -e <source>        Run the given source. Remaining arguments are its argument string.
  -config <path>     Read settings from a TOML or YAML file. Default is $REXX_CONFIG.
  -env <name>        Set the initial ADDRESS environment. Default is SYSTEM.
  -trace <setting>   Set the initial TRACE setting, for example R or ?I.
  -help              Display this help information and exit.
  -version           Display version information and exit.
  -log-level <level> Set the log level: trace, debug, info, warn, error, none. Default is 'none'.
  -log-file <path>   Specify a log file to write logs. Default is stderr.

Environment:
  REXXEXT            Default extension of program files (.rexx).
  REXXPATH           Directories searched for programs and external routines.
  REXX_SQL_DSN       Data source of ADDRESS SQL.

Without a filename the program is read from standard input, or an
interactive session starts when standard input is a terminal.

Examples:
  rexx myfile.rexx              Execute the provided file
  rexx myfile arg1 arg2         Search for myfile.rexx and run it with an argument string
  rexx -e "say 2**10"           Run a one line program

Version Information:
  Version:    %s
  Build Date: %s
  Commit:     %s
`, Version, BuildDate, Commit)
}
