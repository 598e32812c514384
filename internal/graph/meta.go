package graph

import (
	"github.com/bundlekit/finalizer/internal/ast"
)

type WrapKind uint8

const (
	WrapNone WrapKind = iota

	// The module will be bundled CommonJS-style like this:
	//
	//   // foo.js
	//   var require_foo = __commonJSMin((exports, module) => {
	//     exports.foo = 123;
	//   });
	//
	//   // bar.js
	//   var foo = flag ? require_foo() : null;
	//
	WrapCJS

	// The module will be bundled ESM-style like this:
	//
	//   // foo.js
	//   var foo, foo_exports = {};
	//   __export(foo_exports, {
	//     foo: () => foo
	//   });
	//   var init_foo = __esmMin(() => {
	//     foo = 123;
	//   });
	//
	//   // bar.js
	//   var foo = flag ? (init_foo(), __toCommonJS(foo_exports)) : null;
	//
	WrapESM
)

func (kind WrapKind) String() string {
	switch kind {
	case WrapCJS:
		return "cjs"
	case WrapESM:
		return "esm"
	default:
		return "none"
	}
}

// This contains linker-specific metadata for a module. It's separated out
// because it's computed by linking, which runs after every module has been
// scanned, and it's read by the finalizers of other modules.
type LinkingInfo struct {
	Wrap WrapKind

	// The symbol holding "require_foo" or "init_foo". This is an invalid ref
	// unless the module is wrapped.
	WrapperRef ast.Ref

	// The index of the automatically-generated statement info used to
	// represent the wrapper. This is invalid unless the module is wrapped.
	WrapperStmtInfo ast.Index32

	// This is true if the set of exports can't be known at build time, which
	// happens when the module re-exports everything from a CommonJS module.
	// Consumers then have to copy properties at run time with "__reExport".
	HasDynamicExports bool

	// Never iterate over the export map directly. Instead, iterate over this
	// array, which is sorted by alias to avoid non-determinism due to random
	// map iteration order. This includes re-exports resolved through
	// "export * from".
	SortedExports []ExportEntry
}

type ExportEntry struct {
	Alias string

	// The exported symbol, which may live in another module for re-exports
	Ref ast.Ref
}
