package session

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMissingID = errors.New("session id is required")

type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// IncompleteError blocks report generation until the listed parts are
// filled in. Saving is never blocked by it.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return "missing data in: " + strings.Join(e.Missing, ", ")
}
