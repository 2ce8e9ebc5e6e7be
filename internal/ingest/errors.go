package ingest

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ingestion taxonomy. Callers distinguish them with
// errors.Is to decide whether to retry with another parser, ask a human to
// re-map columns, or abort.
var (
	// ErrUnreadable means the file could not be opened or decoded at all
	ErrUnreadable = errors.New("unreadable source file")

	// ErrNoHeader means no header-row candidate cleared the detection threshold
	ErrNoHeader = errors.New("no header row candidate found")

	// ErrUnparseable means the markup could not be parsed
	ErrUnparseable = errors.New("unparseable markup")

	// ErrNoAdapter means no registered adapter was confident about the input
	ErrNoAdapter = errors.New("no adapter recognized the file format")
)

// Error is a fatal ingestion failure carrying the row/position context
// where one is available. Line is 1-based; 0 means unknown.
type Error struct {
	Adapter string
	Line    int
	Err     error
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %v", e.Adapter, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Adapter, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func ingestErr(adapter string, line int, err error) error {
	return &Error{Adapter: adapter, Line: line, Err: err}
}
