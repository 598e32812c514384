package exitcode

import (
	"errors"
	"os"

	"github.com/spf13/pflag"
)

const (
	// The input had problems that were reported as diagnostics
	Diagnostics = 1

	// Bad flags or arguments
	Usage = 2

	// A bug inside the tool, such as a finalization fault
	Internal = 3
)

// Coder is an error that knows which exit code it should produce
type Coder interface {
	error
	ExitCode() int
}

// Get returns the exit code for an error:
//
//	nil => 0
//	errors implementing Coder => value returned by ExitCode
//	pflag.ErrHelp => Usage
//	all other errors => Diagnostics
func Get(err error) int {
	if err == nil {
		return 0
	}

	if coder := Coder(nil); errors.As(err, &coder) {
		return coder.ExitCode()
	}

	if errors.Is(err, pflag.ErrHelp) {
		return Usage
	}

	return Diagnostics
}

// Set wraps an error so that Get returns "code" for it
func Set(err error, code int) error {
	if err == nil {
		return nil
	}
	return coder{err, code}
}

var _ Coder = coder{}

type coder struct {
	error
	code int
}

func (c coder) ExitCode() int {
	return c.code
}

func (c coder) Unwrap() error {
	return c.error
}

func Exit(err error) {
	os.Exit(Get(err))
}
