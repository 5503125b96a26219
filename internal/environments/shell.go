package environments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Stdio is the standard input and output handed to commands.
type Stdio struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// notFound is the shell's exit status for an unknown command.
const notFound = 127

// Shell passes commands to the operating system shell.
type Shell struct {
	Path  string
	Stdio Stdio
}

func (s *Shell) Handle(ctx context.Context, req Request) Reply {
	path := s.Path
	if path == "" {
		path = "/bin/sh"
	}
	cmd := exec.CommandContext(ctx, path, "-c", req.Command)
	cmd.Stdin = s.Stdio.In
	cmd.Stdout = s.Stdio.Out
	cmd.Stderr = s.Stdio.Err
	err := cmd.Run()
	if err == nil {
		return Reply{RC: "0"}
	}
	var exit *exec.ExitError
	if errors.As(err, &exit) {
		code := exit.ExitCode()
		slog.Debug("command failed",
			slog.String("env", req.Env),
			slog.String("command", req.Command),
			slog.Int("rc", code))
		if code == notFound {
			return Reply{RC: strconv.Itoa(code), Status: Failure}
		}
		return Reply{RC: strconv.Itoa(code), Status: Error}
	}
	slog.Warn("command could not be started",
		slog.String("env", req.Env),
		slog.String("command", req.Command),
		slog.Any("error", err))
	return Reply{RC: "-3", Status: Failure, Output: err.Error()}
}

// Builtin is a small line-oriented shell executed in-process.
type Builtin struct {
	Stdio Stdio
}

func (b *Builtin) Handle(_ context.Context, req Request) Reply {
	words := strings.Fields(req.Command)
	if len(words) == 0 {
		return Reply{RC: "0"}
	}
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(req.Command), words[0]))
	switch strings.ToLower(words[0]) {
	case "echo":
		fmt.Fprintln(b.out(), rest)
		return Reply{RC: "0"}
	case "pwd":
		dir, err := os.Getwd()
		if err != nil {
			return Reply{RC: "1", Status: Error, Output: err.Error()}
		}
		fmt.Fprintln(b.out(), dir)
		return Reply{RC: "0"}
	case "cd":
		dir := rest
		if dir == "" {
			dir, _ = os.UserHomeDir()
		}
		if err := os.Chdir(dir); err != nil {
			return Reply{RC: "1", Status: Error, Output: err.Error()}
		}
		return Reply{RC: "0"}
	case "set":
		name, value, ok := strings.Cut(rest, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return Reply{RC: "1", Status: Error, Output: "usage: set NAME=VALUE"}
		}
		if err := os.Setenv(strings.TrimSpace(name), value); err != nil {
			return Reply{RC: "1", Status: Error, Output: err.Error()}
		}
		return Reply{RC: "0"}
	case "exit":
		if rest == "" {
			return Reply{RC: "0"}
		}
		if _, err := strconv.Atoi(rest); err != nil {
			return Reply{RC: "1", Status: Error, Output: "exit code must be a number"}
		}
		if rest != "0" {
			return Reply{RC: rest, Status: Error}
		}
		return Reply{RC: "0"}
	}
	return Reply{RC: "-3", Status: Failure, Output: "unknown command: " + words[0]}
}

func (b *Builtin) out() io.Writer {
	if b.Stdio.Out == nil {
		return os.Stdout
	}
	return b.Stdio.Out
}
