package logger_test

import (
	"testing"

	"github.com/bundlekit/finalizer/internal/logger"
	"github.com/bundlekit/finalizer/internal/test"
	"github.com/stretchr/testify/require"
)

func TestMsgStringWithSource(t *testing.T) {
	source := logger.Source{PrettyPath: "entry.js", Contents: "let a = 1\nimport {x} from './missing'\n"}
	log := logger.NewDeferLog()
	log.AddRangeError(&source, logger.Range{Loc: logger.Loc{Start: 26}, Len: 11}, "Could not resolve \"./missing\"")
	msgs := log.Done()
	require.Len(t, msgs, 1)
	require.True(t, log.HasErrors())

	text := msgs[0].String(logger.OutputOptions{IncludeSource: true}, logger.TerminalInfo{})
	test.AssertEqualWithDiff(t, text, `entry.js:2:16: error: Could not resolve "./missing"
import {x} from './missing'
                ~~~~~~~~~~~
`)
}

func TestMsgStringWithoutLocation(t *testing.T) {
	msg := logger.Msg{Kind: logger.Warning, Text: "nothing to do"}
	test.AssertEqual(t, msg.String(logger.OutputOptions{}, logger.TerminalInfo{}), "warning: nothing to do\n")
}

func TestDeferLogSortsMessages(t *testing.T) {
	source := logger.Source{PrettyPath: "b.js", Contents: "x\ny\n"}
	log := logger.NewDeferLog()
	log.AddWarning(&source, logger.Loc{Start: 2}, "second")
	log.AddWarning(&source, logger.Loc{Start: 0}, "first")
	log.AddError(nil, logger.Loc{}, "global")

	msgs := log.Done()
	require.Len(t, msgs, 3)
	test.AssertEqual(t, msgs[0].Text, "global")
	test.AssertEqual(t, msgs[1].Text, "first")
	test.AssertEqual(t, msgs[2].Text, "second")
}

func TestRangeOfString(t *testing.T) {
	source := logger.Source{Contents: `require("a\"b") + x`}
	r := source.RangeOfString(logger.Loc{Start: 8})
	test.AssertEqual(t, source.TextForRange(r), `"a\"b"`)
}
