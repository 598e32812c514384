package test

import (
	"os"
	"testing"

	"github.com/bundlekit/finalizer/internal/ast"
	"github.com/bundlekit/finalizer/internal/logger"
)

func AssertEqual(t *testing.T, observed interface{}, expected interface{}) {
	t.Helper()
	if observed != expected {
		t.Fatalf("%s != %s", observed, expected)
	}
}

func AssertEqualWithDiff(t *testing.T, observed string, expected string) {
	t.Helper()
	if observed != expected {
		color := logger.GetTerminalInfo(os.Stdout).UseColorEscapes
		t.Fatal("\n" + Diff(expected, observed, color))
	}
}

func SourceForTest(path string, contents string) logger.Source {
	return logger.Source{
		Index:          0,
		PrettyPath:     path,
		Contents:       contents,
		IdentifierName: ast.GenerateNonUniqueNameFromPath(path),
	}
}
