package errors

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
)

var (
	New     = errors.New
	Errorf  = errors.Errorf
	Wrap    = errors.Wrap
	Wrapf   = errors.Wrapf
	Is      = errors.Is
	As      = errors.As
	HasType = errors.HasType
	Cause   = errors.UnwrapAll
)

// Fatal prints err with its stack trace and exits with non-zero status.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "fatal: %+v\n", err)
	os.Exit(1)
}
