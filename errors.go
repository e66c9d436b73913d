package ultrametric

import "github.com/cockroachdb/errors"

// ErrInvalidInput reports inputs the kernel cannot compute on: an empty
// point set, non-finite embedding values, mismatched label/point counts,
// a malformed edge list, or a negative or non-finite margin. Check with
// errors.Is.
var ErrInvalidInput = errors.New("ultrametric: invalid input")

// invalidInputf builds a descriptive error that errors.Is-matches
// ErrInvalidInput.
func invalidInputf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf("ultrametric: "+format, args...), ErrInvalidInput)
}
