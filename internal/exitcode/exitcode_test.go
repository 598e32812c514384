package exitcode_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bundlekit/finalizer/internal/exitcode"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	fault := exitcode.Set(errors.New("fault"), exitcode.Internal)

	testCases := map[string]struct {
		err  error
		want int
	}{
		"nil":     {nil, 0},
		"default": {errors.New("bad input"), exitcode.Diagnostics},
		"help":    {pflag.ErrHelp, exitcode.Usage},
		"set":     {exitcode.Set(errors.New(""), 5), 5},
		"wrapped": {fmt.Errorf("finalizing: %w", fault), exitcode.Internal},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, exitcode.Get(tc.err), "%v", tc.err)
		})
	}
}

func TestSetNil(t *testing.T) {
	assert.NoError(t, exitcode.Set(nil, exitcode.Internal))
}
