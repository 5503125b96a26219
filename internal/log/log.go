package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
	"golang.org/x/sys/unix"
)

// LevelTrace and LevelNone extend the slog levels with the names the
// -log-level flag accepts.
const (
	LevelTrace = slog.LevelDebug - 4
	LevelNone  = slog.LevelError + 4
)

// ParseLevel maps trace, debug, info, warn, error and none to a level.
// Unknown names yield LevelNone and false.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, true
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	case "none", "off", "":
		return LevelNone, true
	default:
		return LevelNone, false
	}
}

// Logger owns the handlers built by New and the log file, if any.
type Logger struct {
	*slog.Logger
	Level *slog.LevelVar

	file *fileWriter
	sigs chan os.Signal
}

// Options select where log records go.
type Options struct {
	Level string
	File  string // empty logs to Stderr
	// Stderr receives records when File is empty. os.Stderr when nil.
	Stderr io.Writer
	// Journal forces the systemd journal handler on or off. When nil it
	// is used only when running as a systemd service.
	Journal *bool
}

// New builds a logger fanning out to a text handler and, under systemd,
// the journal.
func New(opts Options) (*Logger, error) {
	lv, ok := ParseLevel(opts.Level)
	if !ok {
		return nil, fmt.Errorf("invalid log level %q", opts.Level)
	}
	l := &Logger{Level: new(slog.LevelVar)}
	l.Level.Set(lv)

	var out io.Writer = os.Stderr
	if opts.Stderr != nil {
		out = opts.Stderr
	}
	if opts.File != "" {
		fw, err := openFile(opts.File)
		if err != nil {
			return nil, err
		}
		l.file = fw
		out = fw
	}

	journal := isSystemdService()
	if opts.Journal != nil {
		journal = *opts.Journal
	}

	var handlers []slog.Handler
	text := slog.NewTextHandler(out, &slog.HandlerOptions{Level: l.Level})
	if !journal || l.file != nil {
		handlers = append(handlers, text)
	}
	if journal {
		jh, err := slogjournal.NewHandler(&slogjournal.Options{
			ReplaceGroup: toJournalKey,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err != nil {
			record := slog.NewRecord(time.Now(), slog.LevelWarn, "new systemd journal handler", 0)
			record.Add("error", err)
			_ = text.Handle(context.Background(), record)
			if len(handlers) == 0 {
				handlers = append(handlers, text)
			}
		} else {
			handlers = append(handlers, &leveled{Handler: jh, level: l.Level})
		}
	}

	l.Logger = slog.New(slogmulti.Fanout(handlers...))
	l.watchRotation()
	return l, nil
}

// Close stops listening for SIGHUP and closes the log file.
func (l *Logger) Close() error {
	if l.sigs != nil {
		signal.Stop(l.sigs)
		close(l.sigs)
		l.sigs = nil
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Reopen reopens the log file, for use after it has been rotated.
func (l *Logger) Reopen() error {
	if l.file == nil {
		return nil
	}
	return l.file.reopen()
}

// watchRotation reopens the log file on SIGHUP:
//
//	mv rexx.log rexx.bak && kill -HUP <pid>
func (l *Logger) watchRotation() {
	if l.file == nil {
		return
	}
	l.sigs = make(chan os.Signal, 1)
	signal.Notify(l.sigs, unix.SIGHUP)
	go func(sigs chan os.Signal) {
		for range sigs {
			if err := l.Reopen(); err != nil {
				fmt.Fprintf(os.Stderr, "could not reopen log file: %v\n", err)
			}
		}
	}(l.sigs)
}

type fileWriter struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

func openFile(name string) (*fileWriter, error) {
	fw := &fileWriter{path: name}
	if err := fw.reopen(); err != nil {
		return nil, err
	}
	return fw, nil
}

func (w *fileWriter) reopen() error {
	if dir := filepath.Dir(w.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	w.mu.Lock()
	old := w.f
	w.f = f
	w.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

func (w *fileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return 0, os.ErrClosed
	}
	return w.f.Write(p)
}

func (w *fileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

// leveled filters a handler that has no level option of its own.
type leveled struct {
	slog.Handler
	level slog.Leveler
}

func (h *leveled) Enabled(ctx context.Context, lv slog.Level) bool {
	return lv >= h.level.Level() && h.Handler.Enabled(ctx, lv)
}

func (h *leveled) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &leveled{Handler: h.Handler.WithAttrs(attrs), level: h.level}
}

func (h *leveled) WithGroup(name string) slog.Handler {
	return &leveled{Handler: h.Handler.WithGroup(name), level: h.level}
}

func toJournalKey(str string) string {
	str = strings.ToUpper(str)
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, str)
}

func isSystemdService() bool {
	content, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return false
	}
	parts := strings.Split(strings.TrimSpace(string(content)), ":")
	if len(parts) < 3 {
		return false
	}
	return strings.HasSuffix(path.Dir(parts[2]), ".service")
}
