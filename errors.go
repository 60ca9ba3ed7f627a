package scanobj

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNoData is returned when an export is asked to write zero surfaces.
var ErrNoData = errors.New("scanobj: no mesh surfaces to export")

// WriteError wraps a failure to create or write the destination file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("scanobj: write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Cause() error { return e.Err }

// MalformedSurfaceError reports a surface whose buffers or counts are inconsistent.
type MalformedSurfaceError struct {
	Surface int
	Reason  string
	Err     error
}

func (e *MalformedSurfaceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scanobj: malformed surface %d: %s: %v", e.Surface, e.Reason, e.Err)
	}
	return fmt.Sprintf("scanobj: malformed surface %d: %s", e.Surface, e.Reason)
}

func (e *MalformedSurfaceError) Unwrap() error { return e.Err }

// DecodeError is returned by the buffer accessors when a record would read
// past the end of its buffer.
type DecodeError struct {
	Record int
	Offset int
	Size   int
	Len    int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("scanobj: record %d needs bytes [%d, %d) but buffer holds %d", e.Record, e.Offset, e.Offset+e.Size, e.Len)
}

func malformed(surface int, err error, format string, args ...interface{}) error {
	return &MalformedSurfaceError{Surface: surface, Reason: fmt.Sprintf(format, args...), Err: err}
}
