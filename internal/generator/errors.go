package generator

import (
	"fmt"
	"strings"
)

// ConfigurationError reports an object whose configuration cannot back a
// working generator. Construction of other objects continues.
type ConfigurationError struct {
	Object string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("object %q: invalid configuration: %s", e.Object, e.Reason)
}

// UnsupportedTypeError reports an unknown data_type.
type UnsupportedTypeError struct {
	Object   string
	DataType string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("object %q: unsupported data type %q", e.Object, e.DataType)
}

// DependencyCycleError reports a cycle among aggregate source references.
// Warning-grade: the re-visited edge is cut and construction continues.
type DependencyCycleError struct {
	Path []string
}

func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("aggregate dependency cycle: %s", strings.Join(e.Path, " -> "))
}

// SourceLookupError reports an aggregate source that could not be resolved
// during an update cycle. Recoverable: the source is skipped for the cycle.
type SourceLookupError struct {
	Aggregate string
	Source    string
}

func (e *SourceLookupError) Error() string {
	return fmt.Sprintf("aggregate %q: source %q not found", e.Aggregate, e.Source)
}
