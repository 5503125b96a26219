// Package streams implements the character and line streams behind
// LINEIN, LINEOUT, CHARIN, CHAROUT, LINES, CHARS and STREAM.
//
// Open streams are kept in a hashtab.Table keyed by name. Regular files are
// persistent: read and write positions are tracked separately and can be
// moved. Terminals, pipes and the standard streams are transient.
package streams

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/term"

	"rexx/internal/hashtab"
)

var (
	// ErrNotReady is returned when a stream cannot deliver or accept data.
	// It raises the NOTREADY condition.
	ErrNotReady = errors.New("stream not ready")
	// ErrBadArgument is returned for unusable positions or commands.
	ErrBadArgument = errors.New("incorrect stream argument")
)

// State is the state reported by STREAM(name, 'S').
type State int

const (
	Unknown State = iota
	Ready
	NotReady
	Error
)

func (s State) String() string {
	switch s {
	case Ready:
		return "READY"
	case NotReady:
		return "NOTREADY"
	case Error:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Stream is one open stream.
type Stream struct {
	Name       string
	Persistent bool

	file   *os.File
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader

	readPos   int64 // byte offset of the next read
	writePos  int64 // byte offset of the next write
	readLine  int64 // line number of the next read, 0 when unknown
	writeLine int64
	writable  bool

	state   State
	lastErr error
	eof     bool
}

// Table holds the open streams of a session.
type Table struct {
	streams *hashtab.Table[*Stream]
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// NewTable returns a table with the standard streams bound to the given
// reader and writers.
func NewTable(stdin io.Reader, stdout, stderr io.Writer) *Table {
	t := &Table{streams: hashtab.New[*Stream](), stdin: stdin, stdout: stdout, stderr: stderr}
	t.streams.Insert("STDIN", &Stream{Name: "STDIN", in: stdin, reader: bufio.NewReader(stdin), state: Ready, readLine: 1})
	t.streams.Insert("STDOUT", &Stream{Name: "STDOUT", out: stdout, state: Ready, writable: true})
	t.streams.Insert("STDERR", &Stream{Name: "STDERR", out: stderr, state: Ready, writable: true})
	return t
}

// Stdin returns the reader behind the default input stream.
func (t *Table) Stdin() *bufio.Reader {
	s, _ := t.streams.Get("STDIN")
	return s.reader
}

func standardName(name string, output bool) string {
	switch strings.ToUpper(name) {
	case "":
		if output {
			return "STDOUT"
		}
		return "STDIN"
	case "STDIN", "STDOUT", "STDERR":
		return strings.ToUpper(name)
	}
	return ""
}

// lookup returns the stream for name, opening it when write is set or the
// file exists.
func (t *Table) lookup(name string, write bool) (*Stream, error) {
	if std := standardName(name, write); std != "" {
		s, _ := t.streams.Get(std)
		return s, nil
	}
	s, ok := t.streams.Get(name)
	if ok && s.file != nil && (!write || s.writable) {
		return s, nil
	}
	if err := t.open(name, s, write); err != nil {
		return nil, err
	}
	s, _ = t.streams.Get(name)
	return s, nil
}

func (t *Table) open(name string, prev *Stream, write bool) error {
	flag := os.O_RDONLY
	if write {
		flag = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(name, flag, 0o644)
	if err != nil {
		if prev == nil {
			t.streams.Insert(name, &Stream{Name: name, state: NotReady, lastErr: err})
		} else {
			prev.state, prev.lastErr = NotReady, err
		}
		return fmt.Errorf("%w: %s: %v", ErrNotReady, name, err)
	}
	s := &Stream{Name: name, file: f, in: f, out: f, state: Ready, readLine: 1, writable: write}
	if fi, err := f.Stat(); err == nil && fi.Mode().IsRegular() && !term.IsTerminal(int(f.Fd())) {
		s.Persistent = true
		s.writePos = fi.Size()
	}
	if prev != nil {
		s.readPos, s.readLine = prev.readPos, prev.readLine
		if prev.file != nil {
			prev.file.Close()
		}
	}
	slog.Debug("opened stream",
		slog.String("name", name),
		slog.Bool("persistent", s.Persistent),
		slog.Bool("write", write))
	t.streams.Insert(name, s)
	return nil
}

func (s *Stream) fail(err error) error {
	if errors.Is(err, io.EOF) {
		s.state = NotReady
		s.eof = true
		s.lastErr = io.EOF
	} else {
		s.state = Error
		s.lastErr = err
	}
	return fmt.Errorf("%w: %s", ErrNotReady, s.Name)
}

// buffered returns the reader positioned at the read position.
func (s *Stream) buffered() (*bufio.Reader, error) {
	if s.reader != nil {
		return s.reader, nil
	}
	if s.in == nil {
		return nil, s.fail(fmt.Errorf("%s is not open for reading", s.Name))
	}
	if s.Persistent {
		if _, err := s.file.Seek(s.readPos, io.SeekStart); err != nil {
			return nil, s.fail(err)
		}
	}
	s.reader = bufio.NewReader(s.in)
	return s.reader, nil
}

// seekLine moves the read position to the start of line n of a persistent
// stream.
func (s *Stream) seekLine(n int64, write bool) error {
	if !s.Persistent || n < 1 {
		return ErrBadArgument
	}
	pos := int64(0)
	if n > 1 {
		data, err := os.ReadFile(s.Name)
		if err != nil {
			return s.fail(err)
		}
		line := int64(1)
		for i, c := range data {
			if c == '\n' {
				line++
				if line == n {
					pos = int64(i + 1)
					break
				}
			}
		}
		if line < n {
			if !write {
				return s.fail(io.EOF)
			}
			pos = int64(len(data))
		}
	}
	if write {
		s.writePos, s.writeLine = pos, n
	} else {
		s.readPos, s.readLine = pos, n
		s.reader = nil
	}
	s.eof = false
	return nil
}

// LineIn reads count (0 or 1) lines from name, first moving to line when it
// is positive.
func (t *Table) LineIn(name string, line int64, count int) (string, error) {
	s, err := t.lookup(name, false)
	if err != nil {
		return "", err
	}
	if line > 0 {
		if err := s.seekLine(line, false); err != nil {
			return "", err
		}
	}
	if count == 0 {
		return "", nil
	}
	r, err := s.buffered()
	if err != nil {
		return "", err
	}
	text, err := r.ReadString('\n')
	if err != nil && (text == "" || !errors.Is(err, io.EOF)) {
		return "", s.fail(err)
	}
	s.readPos += int64(len(text))
	if s.readLine > 0 {
		s.readLine++
	}
	s.state = Ready
	text = strings.TrimSuffix(text, "\n")
	return strings.TrimSuffix(text, "\r"), nil
}

// LineOut writes data followed by a newline. With data nil the stream is
// closed. It returns the number of lines not written.
func (t *Table) LineOut(name string, data *string, line int64) (int, error) {
	if data == nil && line == 0 {
		return 0, t.Close(name)
	}
	s, err := t.lookup(name, true)
	if err != nil {
		return 1, err
	}
	if line > 0 {
		if err := s.seekLine(line, true); err != nil {
			return 1, err
		}
	}
	if data == nil {
		return 0, nil
	}
	if err := s.write([]byte(*data + "\n")); err != nil {
		return 1, err
	}
	if s.writeLine > 0 {
		s.writeLine++
	}
	return 0, nil
}

func (s *Stream) write(b []byte) error {
	if s.out == nil {
		return s.fail(fmt.Errorf("%s is not open for writing", s.Name))
	}
	var err error
	if s.Persistent {
		_, err = s.file.WriteAt(b, s.writePos)
		s.reader = nil
	} else {
		_, err = s.out.Write(b)
	}
	if err != nil {
		return s.fail(err)
	}
	s.writePos += int64(len(b))
	s.state = Ready
	return nil
}

// CharIn reads count characters, first moving to the 1-based position
// start when it is positive.
func (t *Table) CharIn(name string, start int64, count int) (string, error) {
	s, err := t.lookup(name, false)
	if err != nil {
		return "", err
	}
	if start > 0 {
		if !s.Persistent {
			return "", ErrBadArgument
		}
		s.readPos, s.readLine, s.reader, s.eof = start-1, 0, nil, false
	}
	if count == 0 {
		return "", nil
	}
	r, err := s.buffered()
	if err != nil {
		return "", err
	}
	buf := make([]byte, count)
	n, err := io.ReadFull(r, buf)
	s.readPos += int64(n)
	if bytes.IndexByte(buf[:n], '\n') >= 0 {
		s.readLine = 0
	}
	if err != nil {
		return string(buf[:n]), s.fail(io.EOF)
	}
	s.state = Ready
	return string(buf), nil
}

// CharOut writes data, first moving to the 1-based position start when it
// is positive. It returns the number of characters not written.
func (t *Table) CharOut(name string, data *string, start int64) (int, error) {
	if data == nil && start == 0 {
		return 0, t.Close(name)
	}
	s, err := t.lookup(name, true)
	if err != nil {
		if data != nil {
			return len(*data), err
		}
		return 0, err
	}
	if start > 0 {
		if !s.Persistent {
			return 0, ErrBadArgument
		}
		s.writePos, s.writeLine = start-1, 0
	}
	if data == nil {
		return 0, nil
	}
	if err := s.write([]byte(*data)); err != nil {
		return len(*data), err
	}
	return 0, nil
}

// Lines reports the lines left to read. Unless exact is set a persistent
// stream only reports whether any are left.
func (t *Table) Lines(name string, exact bool) int {
	s, err := t.lookup(name, false)
	if err != nil || s.in == nil {
		return 0
	}
	if !s.Persistent {
		return s.transientLeft()
	}
	rest, err := s.rest()
	if err != nil || len(rest) == 0 {
		return 0
	}
	if !exact {
		return 1
	}
	n := bytes.Count(rest, []byte("\n"))
	if rest[len(rest)-1] != '\n' {
		n++
	}
	return n
}

// Chars reports the characters left to read.
func (t *Table) Chars(name string) int {
	s, err := t.lookup(name, false)
	if err != nil || s.in == nil {
		return 0
	}
	if !s.Persistent {
		return s.transientLeft()
	}
	rest, err := s.rest()
	if err != nil {
		return 0
	}
	return len(rest)
}

func (s *Stream) transientLeft() int {
	if s.eof {
		return 0
	}
	if f, ok := s.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return 1
	}
	r, err := s.buffered()
	if err != nil {
		return 0
	}
	if _, err := r.Peek(1); err != nil {
		s.eof = true
		return 0
	}
	return 1
}

func (s *Stream) rest() ([]byte, error) {
	data, err := os.ReadFile(s.Name)
	if err != nil {
		return nil, err
	}
	if s.readPos >= int64(len(data)) {
		return nil, nil
	}
	return data[s.readPos:], nil
}

// Close closes a stream. Standard streams stay open.
func (t *Table) Close(name string) error {
	if standardName(name, true) != "" {
		return nil
	}
	s, ok := t.streams.Get(name)
	if !ok {
		return nil
	}
	t.streams.Delete(name)
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			return fmt.Errorf("close %s: %w", name, err)
		}
	}
	return nil
}

// CloseAll closes every open file stream.
func (t *Table) CloseAll() {
	var names []string
	t.streams.Each(func(name string, s *Stream) bool {
		if s.file != nil {
			names = append(names, name)
		}
		return true
	})
	for _, name := range names {
		if err := t.Close(name); err != nil {
			slog.Warn("closing stream failed", slog.String("name", name), slog.Any("error", err))
		}
	}
}

// State returns the state of a stream.
func (t *Table) State(name string) State {
	if std := standardName(name, false); std != "" {
		name = std
	}
	s, ok := t.streams.Get(name)
	if !ok {
		return Unknown
	}
	return s.state
}

// Description returns the state of a stream with the reason for the last
// failure.
func (t *Table) Description(name string) string {
	st := t.State(name)
	s, ok := t.streams.Get(name)
	switch {
	case !ok || st == Ready || st == Unknown:
		return st.String() + ":"
	case s.eof:
		return st.String() + ":EOF"
	case s.lastErr != nil:
		return st.String() + ":" + s.lastErr.Error()
	}
	return st.String() + ":"
}

// Command executes a STREAM(name, 'C', command) request.
func (t *Table) Command(name, command string) (string, error) {
	words := strings.Fields(strings.ToUpper(command))
	if len(words) == 0 {
		return "", ErrBadArgument
	}
	switch words[0] {
	case "OPEN":
		write := true
		if len(words) > 1 && words[1] == "READ" {
			write = false
		}
		if s, ok := t.streams.Get(name); ok && (s.writable || !write) {
			return "READY:", nil
		}
		if _, err := t.lookup(name, write); err != nil {
			return t.Description(name), nil
		}
		return "READY:", nil
	case "CLOSE":
		if err := t.Close(name); err != nil {
			return "ERROR:" + err.Error(), nil
		}
		return "READY:", nil
	case "FLUSH":
		if s, ok := t.streams.Get(name); ok && s.file != nil {
			if err := s.file.Sync(); err != nil {
				return "ERROR:" + err.Error(), nil
			}
		}
		return "READY:", nil
	case "QUERY":
		if len(words) < 2 {
			return "", ErrBadArgument
		}
		return t.query(name, words[1])
	}
	return "", fmt.Errorf("%w: %s", ErrBadArgument, command)
}

func (t *Table) query(name, what string) (string, error) {
	fi, err := os.Stat(name)
	switch what {
	case "EXISTS":
		if err != nil {
			return "", nil
		}
		abs, err := filepath.Abs(name)
		if err != nil {
			return name, nil
		}
		return abs, nil
	case "SIZE":
		if err != nil {
			return "", nil
		}
		return strconv.FormatInt(fi.Size(), 10), nil
	case "DATETIME":
		if err != nil {
			return "", nil
		}
		return fi.ModTime().Format("01-02-06 15:04:05"), nil
	case "POSITION":
		s, ok := t.streams.Get(name)
		if !ok {
			return "", nil
		}
		return strconv.FormatInt(s.readPos+1, 10), nil
	}
	return "", fmt.Errorf("%w: QUERY %s", ErrBadArgument, what)
}
