package search

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery is returned when the query version string does not
// parse as a comparable version. The query aborts before any storage
// access.
var ErrInvalidQuery = errors.New("invalid version string")

// DeserializationError means a stored record could not be
// reconstituted. The whole query aborts: callers must see a
// deterministic result set, never a partial one.
type DeserializationError struct {
	CveId string
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("could not deserialize %s", e.CveId)
}

// UnsupportedSourceError means a stored meta row references a source
// tag this engine does not know.
type UnsupportedSourceError struct {
	Source string
}

func (e *UnsupportedSourceError) Error() string {
	return fmt.Sprintf("unsupported data source %s", e.Source)
}
