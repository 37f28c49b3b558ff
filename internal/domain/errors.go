package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPoints means the merged ground-condition collection is empty, so
	// no association is possible.
	ErrNoPoints = errors.New("no ground-condition points loaded")

	// ErrNoTargets means no target sites could be constructed from the
	// configured inputs.
	ErrNoTargets = errors.New("no target sites to parametrize")
)

// MalformedRowError reports a ground-condition or coordinate source row that
// does not parse. The run cannot proceed with an incomplete point set, so it
// is fatal.
type MalformedRowError struct {
	File string
	Line int
	Err  error
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("%s:%d: malformed row: %v", e.File, e.Line, e.Err)
}

func (e *MalformedRowError) Unwrap() error { return e.Err }

// OutputWriteError reports a failure to produce the site-model table. The
// writer guarantees no partial file is left at Path.
type OutputWriteError struct {
	Path string
	Err  error
}

func (e *OutputWriteError) Error() string {
	return fmt.Sprintf("write site model %s: %v", e.Path, e.Err)
}

func (e *OutputWriteError) Unwrap() error { return e.Err }
