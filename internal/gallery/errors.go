package gallery

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation references an item that is not
// in the canonical index.
var ErrNotFound = errors.New("item not found in gallery")

// IOError wraps a filesystem failure with the path it concerns. Individual
// write and delete failures surface as IOError to the initiating caller and
// never corrupt the in-memory index.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("gallery %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
