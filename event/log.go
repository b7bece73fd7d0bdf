package event

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const (
	InLogFile  = "in.log"
	OutLogFile = "out.log"
)

// Entry is one line of an event log.
type Entry struct {
	Time    int64  `json:"time"`
	Service string `json:"service"`
	Action  string `json:"action"`
	Data    string `json:"data"`
}

// Log appends consumed and published events as JSON lines.
type Log struct {
	mu  sync.Mutex
	in  io.Writer
	out io.Writer
}

func NewLog(in, out io.Writer) *Log {
	return &Log{in: in, out: out}
}

// OpenLog opens in.log and out.log under dir, creating dir when missing.
func OpenLog(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create event log dir: %w", err)
	}

	in, err := os.OpenFile(filepath.Join(dir, InLogFile), os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return nil, err
	}
	out, err := os.OpenFile(filepath.Join(dir, OutLogFile), os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		in.Close()
		return nil, err
	}
	return NewLog(in, out), nil
}

func (l *Log) In(e Entry) error {
	return l.write(l.in, e)
}

func (l *Log) Out(e Entry) error {
	return l.write(l.out, e)
}

func (l *Log) Close() error {
	var errs []error
	for _, w := range []io.Writer{l.in, l.out} {
		if c, ok := w.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

func (l *Log) write(w io.Writer, e Entry) error {
	line, err := json.Marshal(e)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = w.Write(append(line, '\n'))
	return err
}

// ReadLog calls fn for every entry of an event log in order.
func ReadLog(r io.Reader, fn func(Entry) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return fmt.Errorf("decode event log line: %w", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return scanner.Err()
}
