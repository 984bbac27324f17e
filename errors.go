package structgraph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedType is returned when a type matches no category detector.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrUnknownTypeCode is returned when a runtime value cannot be classified while reading.
	ErrUnknownTypeCode = errors.New("unknown type code")
	// ErrUnresolvableType is returned for malformed or unknown type identifiers.
	ErrUnresolvableType = errors.New("unresolvable type")
	// ErrUnsupportedOperation is returned when a builder receives an operation of the wrong kind.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrPropertyTypeMismatch is returned when a value cannot be assigned to a property or parameter.
	ErrPropertyTypeMismatch = errors.New("property type mismatch")
	// ErrNoMatchingConstructor is returned when no constructor is satisfied by the buffered properties.
	ErrNoMatchingConstructor = errors.New("no matching constructor")
	// ErrObjectNotInitialized is returned when an operation arrives before a structure type is known.
	ErrObjectNotInitialized = errors.New("object not initialized")
	// ErrInvalidPreBuildSignature is returned when a PreBuild function has the wrong shape.
	ErrInvalidPreBuildSignature = errors.New("invalid prebuild signature")
	// ErrInvalidConstructor is returned when a registered constructor does not fit its type.
	ErrInvalidConstructor = errors.New("invalid constructor")
	// ErrTypeSealed is returned when a type is described after it was populated.
	ErrTypeSealed = errors.New("type already populated")
	// ErrUnknownProperty is returned for unmapped properties in strict mode.
	ErrUnknownProperty = errors.New("unknown property")
	// ErrInvalidReference is returned when a back-reference names no known structure.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrCycle is returned when references are collapsed and the graph is cyclic.
	ErrCycle = errors.New("reference cycle")
)

// PathError carries the property trail of a failure, innermost segment first.
type PathError struct {
	Segments []string
	Err      error
}

// Path returns the trail from the outermost to the innermost segment.
func (e *PathError) Path() string {
	parts := make([]string, len(e.Segments))
	for i, segment := range e.Segments {
		parts[len(e.Segments)-1-i] = segment
	}
	return strings.Join(parts, "/")
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path(), e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// WrapPath appends a Type.Property segment to err, keeping the original cause.
func WrapPath(err error, typeName, property string) error {
	if err == nil {
		return nil
	}
	segment := property
	if typeName != "" {
		segment = typeName + "." + property
	}
	var pathErr *PathError
	if errors.As(err, &pathErr) {
		pathErr.Segments = append(pathErr.Segments, segment)
		return pathErr
	}
	return &PathError{Segments: []string{segment}, Err: err}
}
