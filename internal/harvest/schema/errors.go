package schema

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Invalid describes one violated constraint at a path inside a record.
type Invalid struct {
	Path    []string
	Message string
}

// PathString returns the dotted path of the violation.
func (e *Invalid) PathString() string {
	return strings.Join(e.Path, ".")
}

func (e *Invalid) Error() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.PathString(), e.Message)
}

// ValidationError is returned when a record does not match its schema.
type ValidationError struct {
	Errors []*Invalid
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, inv := range e.Errors {
		msgs[i] = inv.Error()
	}
	if len(msgs) == 1 {
		return "validation failed: " + msgs[0]
	}
	return fmt.Sprintf("validation failed with %d errors: %s", len(msgs), strings.Join(msgs, "; "))
}

func invalidf(format string, args ...any) error {
	return &Invalid{Message: fmt.Sprintf(format, args...)}
}

// flatten turns any error produced by a validator into a list of
// violations, each prefixed with the given path segment.
func flatten(err error, segment string) []*Invalid {
	switch e := err.(type) {
	case nil:
		return nil
	case *multierror.Error:
		var out []*Invalid
		for _, inner := range e.Errors {
			out = append(out, flatten(inner, segment)...)
		}
		return out
	case *Invalid:
		path := e.Path
		if segment != "" {
			path = append([]string{segment}, e.Path...)
		}
		return []*Invalid{{Path: path, Message: e.Message}}
	default:
		inv := &Invalid{Message: err.Error()}
		if segment != "" {
			inv.Path = []string{segment}
		}
		return []*Invalid{inv}
	}
}

// collect appends the violations of err under segment to acc.
func collect(acc *multierror.Error, err error, segment string) *multierror.Error {
	for _, inv := range flatten(err, segment) {
		acc = multierror.Append(acc, inv)
	}
	return acc
}
