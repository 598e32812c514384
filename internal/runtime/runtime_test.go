package runtime_test

import (
	"testing"

	"github.com/bundlekit/finalizer/internal/js_parser"
	"github.com/bundlekit/finalizer/internal/logger"
	"github.com/bundlekit/finalizer/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeParses(t *testing.T) {
	log := logger.NewDeferLog()
	tree, ok := js_parser.Parse(log, runtime.Source())

	if log.HasErrors() {
		msgs := "Internal error: failed to parse runtime:\n"
		for _, msg := range log.Done() {
			msgs += msg.String(logger.OutputOptions{IncludeSource: true}, logger.TerminalInfo{})
		}
		t.Fatal(msgs[:len(msgs)-1])
	}
	require.True(t, ok)

	for _, name := range runtime.HelperNames {
		_, found := tree.NamedExports[name]
		assert.True(t, found, name)
		_, declared := tree.ModuleScope.Members[name]
		assert.True(t, declared, name)
	}
}
