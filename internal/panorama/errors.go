package panorama

import "fmt"

// LoadError reports a panorama that could not be turned into an RGB
// buffer. No view work is attempted for it.
type LoadError struct {
	ID  string // panorama id
	Op  string // file, decode, image or pixels
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("panorama %q: %s: %v", e.ID, e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ConfigurationError reports an invalid view or processing option. It
// affects only the view it names.
type ConfigurationError struct {
	View   View
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s for %s: %s", e.Field, e.View, e.Reason)
}

// ResampleError reports an internal failure while filling a view.
type ResampleError struct {
	View View
	Err  error
}

func (e *ResampleError) Error() string {
	return fmt.Sprintf("resample %s: %v", e.View, e.Err)
}

func (e *ResampleError) Unwrap() error { return e.Err }
