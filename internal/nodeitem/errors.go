package nodeitem

import "fmt"

// StructuralError reports misuse that indicates an invalid schema or a
// programming error, such as atomizing a node that has no value
type StructuralError struct {
	Path    string
	Message string
	Err     error
}

func (e *StructuralError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *StructuralError) Unwrap() error { return e.Err }

// ValueError reports instance data that does not have the shape or lexical
// form its definition describes
type ValueError struct {
	Path string
	Err  error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ValueError) Unwrap() error { return e.Err }
