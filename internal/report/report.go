package report

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
)

// DefaultPath is the report file used when none is configured
const DefaultPath = "ranking_stock_returns.txt"

// Entry is one line of the ranking
type Entry struct {
	Symbol string
	Return decimal.Decimal
}

// String formats the entry as a report line, without the trailing newline
func (e Entry) String() string {
	return fmt.Sprintf("Symbol: %s, Return: %s", e.Symbol, e.Return.String())
}

// Sink consumes a ranked list of entries
type Sink interface {
	Write(entries []Entry) error
}

// WriterSink writes report lines to an io.Writer
type WriterSink struct {
	w io.Writer
}

// NewWriterSink creates a sink writing to w
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Write writes one line per entry in the given order
func (s *WriterSink) Write(entries []Entry) error {
	bw := bufio.NewWriter(s.w)
	for _, e := range entries {
		if _, err := fmt.Fprintln(bw, e.String()); err != nil {
			return fmt.Errorf("failed to write report line: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush report: %w", err)
	}
	return nil
}

// FileSink appends report lines to a file, creating it if needed.
// Earlier runs are kept.
type FileSink struct {
	path string
}

// NewFileSink creates a sink appending to path
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Path returns the report file path
func (s *FileSink) Path() string {
	return s.path
}

// Write appends one line per entry to the report file
func (s *FileSink) Write(entries []Entry) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open report file: %w", err)
	}

	if err := NewWriterSink(f).Write(entries); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	return nil
}
