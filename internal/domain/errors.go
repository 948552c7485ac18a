package domain

import "errors"

// Error kinds shared by the document model, the gateways and the command
// surface. Callers match them with errors.Is; messages are wrapped around them
// with fmt.Errorf("...: %w", kind).
var (
	ErrIO              = errors.New("io error")
	ErrFormat          = errors.New("format error")
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAlreadyExists   = errors.New("already exists")
)

// ErrorKind returns the sentinel kind wrapped by err, or nil if err is not
// one of the document error kinds.
func ErrorKind(err error) error {
	for _, kind := range []error{ErrNotFound, ErrAlreadyExists, ErrInvalidArgument, ErrFormat, ErrIO} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
