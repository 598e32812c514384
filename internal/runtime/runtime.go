package runtime

// This is runtime code that gets bundled like any other module.
// The finalizer only refers to the exported helpers. Tree shaking then drops
// every statement that no included module ends up referencing.

import (
	"github.com/bundlekit/finalizer/internal/logger"
)

// The runtime is always the first source, so its symbols keep their names
const SourceIndex = uint32(0)

const Code = `
	var __create = Object.create
	var __defProp = Object.defineProperty
	var __getOwnPropDesc = Object.getOwnPropertyDescriptor
	var __getOwnPropNames = Object.getOwnPropertyNames
	var __getProtoOf = Object.getPrototypeOf
	var __hasOwnProp = Object.prototype.hasOwnProperty

	// Wraps an ESM closure so it runs at most once
	export var __esmMin = (fn, res) => () => (fn && (res = fn(fn = 0)), res)

	// Wraps a CommonJS closure and returns a require() function
	export var __commonJSMin = (cb, mod) => () => (mod || cb((mod = { exports: {} }).exports, mod), mod.exports)

	// Used to implement ESM exports both for "require()" and "import * as"
	export var __export = (target, all) => {
		for (var name in all)
			__defProp(target, name, { get: all[name], enumerable: true })
	}

	var __copyProps = (to, from, except, desc) => {
		if (from && typeof from === 'object' || typeof from === 'function')
			for (let key of __getOwnPropNames(from))
				if (!__hasOwnProp.call(to, key) && key !== except)
					__defProp(to, key, { get: () => from[key], enumerable: !(desc = __getOwnPropDesc(from, key)) || desc.enumerable })
		return to
	}

	// This is used to implement "export * from" statements. It copies properties
	// from the imported module to the current module's ESM export object. If the
	// current module is an entry point and the target format is CommonJS, we
	// also copy the properties to "module.exports" in addition to our module's
	// internal ESM export object.
	export var __reExport = (target, mod, secondTarget) => (
		__copyProps(target, mod, 'default'),
		secondTarget && __copyProps(secondTarget, mod, 'default')
	)

	// Converts the module from CommonJS to ESM. When in node mode (i.e. in an
	// ".mjs" file, package.json has "type: module", or the "__esModule" export
	// in the CommonJS file is falsy or missing), the "default" property is
	// overridden to point to the original CommonJS exports object instead.
	export var __toESM = (mod, isNodeMode, target) => (
		target = mod != null ? __create(__getProtoOf(mod)) : {},
		__copyProps(
			isNodeMode || !mod || !mod.__esModule
				? __defProp(target, 'default', { value: mod, enumerable: true })
				: target,
			mod)
	)

	// Converts the module from ESM to CommonJS. This clones the input module
	// object with the addition of a non-enumerable "__esModule" property set
	// to "true", which overwrites any existing export named "__esModule".
	export var __toCommonJS = mod => __copyProps(__defProp({}, '__esModule', { value: true }), mod)
`

// The names of the helpers the finalizer may reference
var HelperNames = []string{
	"__esmMin",
	"__commonJSMin",
	"__export",
	"__reExport",
	"__toESM",
	"__toCommonJS",
}

func Source() logger.Source {
	return logger.Source{
		Index:          SourceIndex,
		PrettyPath:     "<runtime>",
		IdentifierName: "runtime",
		Contents:       Code,
	}
}
