package extracthtml

import (
	"errors"
	"fmt"
)

var (
	// ErrInputNotFound is returned when the selected file does not exist,
	// is not a regular file, or cannot be read.
	ErrInputNotFound = errors.New("input not found")

	// ErrStructureMissing is returned when a mandatory landmark element is
	// absent from the document. Use errors.As with *StructureError to learn
	// which one.
	ErrStructureMissing = errors.New("structure missing")

	// ErrUnknownCategory is returned for category tags with no registered extractor.
	ErrUnknownCategory = errors.New("unknown category")
)

// StructureError names the landmark a handler could not find.
type StructureError struct {
	Landmark string
	Selector string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("%s: <%s> (%s) not found in document", ErrStructureMissing, e.Landmark, e.Selector)
}

func (e *StructureError) Unwrap() error { return ErrStructureMissing }

func missing(landmark, selector string) error {
	return &StructureError{Landmark: landmark, Selector: selector}
}
