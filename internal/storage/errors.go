package storage

import (
	"errors"
	"fmt"
	"strings"
)

// RowError reports that the destination rejected a single row. It is not
// fatal to a run.
type RowError struct {
	Line    int
	Reasons []string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row at line %d rejected: %s", e.Line, strings.Join(e.Reasons, "; "))
}

// IsRowError reports whether err is, or wraps, a *RowError.
func IsRowError(err error) bool {
	var re *RowError
	return errors.As(err, &re)
}
