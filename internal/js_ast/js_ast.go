package js_ast

import (
	"github.com/bundlekit/finalizer/internal/ast"
	"github.com/bundlekit/finalizer/internal/logger"
)

// Every module is parsed into a separate AST. The parser also resolves scopes
// and binds symbols, but unlike a pure ref-based tree, identifiers here keep
// their surface text next to a module-local symbol id. The finalizer rewrites
// the text to the canonical name and then clears the id, so a cleared id is
// the mark of a processed identifier. Identifiers that never had an id are
// globals or names synthesized by the bundler.
//
// The finalizer mutates trees in place. Each module's tree is owned by exactly
// one finalization task at a time.

type L int

// https://developer.mozilla.org/en-US/docs/Web/JavaScript/Reference/Operators/Operator_Precedence
const (
	LLowest L = iota
	LComma
	LSpread
	LYield
	LAssign
	LConditional
	LNullishCoalescing
	LLogicalOr
	LLogicalAnd
	LBitwiseOr
	LBitwiseXor
	LBitwiseAnd
	LEquals
	LCompare
	LShift
	LAdd
	LMultiply
	LExponentiation
	LPrefix
	LPostfix
	LNew
	LCall
	LMember
)

type OpCode uint8

func (op OpCode) IsPrefix() bool {
	return op < UnOpPostDec
}

func (op OpCode) IsUpdate() bool {
	return op >= UnOpPreDec && op <= UnOpPostInc
}

func (op OpCode) IsLeftAssociative() bool {
	return op >= BinOpAdd && op < BinOpComma && op != BinOpPow
}

func (op OpCode) IsRightAssociative() bool {
	return op >= BinOpAssign || op == BinOpPow
}

// If you add a new operator, remember to add it to "OpTable" too
const (
	// Prefix
	UnOpPos OpCode = iota
	UnOpNeg
	UnOpCpl
	UnOpNot
	UnOpVoid
	UnOpTypeof
	UnOpDelete

	// Prefix update
	UnOpPreDec
	UnOpPreInc

	// Postfix update
	UnOpPostDec
	UnOpPostInc

	// Left-associative
	BinOpAdd
	BinOpSub
	BinOpMul
	BinOpDiv
	BinOpRem
	BinOpPow
	BinOpLt
	BinOpLe
	BinOpGt
	BinOpGe
	BinOpIn
	BinOpInstanceof
	BinOpShl
	BinOpShr
	BinOpUShr
	BinOpLooseEq
	BinOpLooseNe
	BinOpStrictEq
	BinOpStrictNe
	BinOpNullishCoalescing
	BinOpLogicalOr
	BinOpLogicalAnd
	BinOpBitwiseOr
	BinOpBitwiseAnd
	BinOpBitwiseXor

	// Non-associative
	BinOpComma

	// Right-associative, only valid in "EAssign"
	BinOpAssign
	BinOpAddAssign
	BinOpSubAssign
	BinOpMulAssign
	BinOpDivAssign
	BinOpRemAssign
	BinOpPowAssign
	BinOpShlAssign
	BinOpShrAssign
	BinOpUShrAssign
	BinOpBitwiseOrAssign
	BinOpBitwiseAndAssign
	BinOpBitwiseXorAssign
	BinOpNullishCoalescingAssign
	BinOpLogicalOrAssign
	BinOpLogicalAndAssign
)

type opTableEntry struct {
	Text      string
	Level     L
	IsKeyword bool
}

var OpTable = []opTableEntry{
	// Prefix
	{"+", LPrefix, false},
	{"-", LPrefix, false},
	{"~", LPrefix, false},
	{"!", LPrefix, false},
	{"void", LPrefix, true},
	{"typeof", LPrefix, true},
	{"delete", LPrefix, true},

	// Prefix update
	{"--", LPrefix, false},
	{"++", LPrefix, false},

	// Postfix update
	{"--", LPostfix, false},
	{"++", LPostfix, false},

	// Left-associative
	{"+", LAdd, false},
	{"-", LAdd, false},
	{"*", LMultiply, false},
	{"/", LMultiply, false},
	{"%", LMultiply, false},
	{"**", LExponentiation, false}, // Right-associative
	{"<", LCompare, false},
	{"<=", LCompare, false},
	{">", LCompare, false},
	{">=", LCompare, false},
	{"in", LCompare, true},
	{"instanceof", LCompare, true},
	{"<<", LShift, false},
	{">>", LShift, false},
	{">>>", LShift, false},
	{"==", LEquals, false},
	{"!=", LEquals, false},
	{"===", LEquals, false},
	{"!==", LEquals, false},
	{"??", LNullishCoalescing, false},
	{"||", LLogicalOr, false},
	{"&&", LLogicalAnd, false},
	{"|", LBitwiseOr, false},
	{"&", LBitwiseAnd, false},
	{"^", LBitwiseXor, false},

	// Non-associative
	{",", LComma, false},

	// Right-associative
	{"=", LAssign, false},
	{"+=", LAssign, false},
	{"-=", LAssign, false},
	{"*=", LAssign, false},
	{"/=", LAssign, false},
	{"%=", LAssign, false},
	{"**=", LAssign, false},
	{"<<=", LAssign, false},
	{">>=", LAssign, false},
	{">>>=", LAssign, false},
	{"|=", LAssign, false},
	{"&=", LAssign, false},
	{"^=", LAssign, false},
	{"??=", LAssign, false},
	{"||=", LAssign, false},
	{"&&=", LAssign, false},
}

// A named binding site: function names, class names, import clause items and
// the default export name. An invalid symbol id means the name was synthesized
// or has already been finalized.
type LocRef struct {
	Loc      logger.Loc
	Name     string
	SymbolID ast.Index32
}

type PropertyKind uint8

const (
	PropertyNormal PropertyKind = iota
	PropertyGet
	PropertySet
	PropertySpread
)

type Property struct {
	Kind PropertyKind
	Key  Expr

	// This is omitted for spread properties, where the spread target is stored
	// in "ValueOrNil" instead
	ValueOrNil Expr

	// Methods store an "EFunction" as their value
	IsMethod   bool
	IsComputed bool

	// This is true for "{ a }" which is sugar for "{ a: a }". The key and the
	// value are both present and the value is an "EIdentifier".
	IsShorthand bool

	// "{ a = 1 }" is only valid when the object literal is later converted to
	// an assignment target. The default value is kept here until then.
	InitializerOrNil Expr
}

type ClassProperty struct {
	Key Expr

	// Methods, getters and setters store an "EFunction" here
	ValueOrNil Expr

	Kind       PropertyKind
	IsMethod   bool
	IsStatic   bool
	IsComputed bool
}

type Class struct {
	Name          *LocRef
	ExtendsOrNil  Expr
	Properties    []ClassProperty
	BodyLoc       logger.Loc
	IsDeclaration bool
}

type Arg struct {
	Binding      Binding
	DefaultOrNil Expr
}

type FnBody struct {
	Loc   logger.Loc
	Stmts []Stmt
}

type Fn struct {
	Name        *LocRef
	Args        []Arg
	Body        FnBody
	HasRestArg  bool
	IsAsync     bool
	IsGenerator bool
}

////////////////////////////////////////////////////////////////////////////////
// Binding patterns

type Binding struct {
	Loc  logger.Loc
	Data B
}

// This interface is never called. Its purpose is to encode a variant type in
// Go's type system.
type B interface{ isBinding() }

type BMissing struct{}

type BIdentifier struct {
	Name     string
	SymbolID ast.Index32
}

type BArray struct {
	Items        []ArrayBinding
	HasSpread    bool
	IsSingleLine bool
}

type BObject struct {
	Properties   []PropertyBinding
	IsSingleLine bool
}

type ArrayBinding struct {
	Binding           Binding
	DefaultValueOrNil Expr
}

type PropertyBinding struct {
	Key               Expr
	Value             Binding
	DefaultValueOrNil Expr
	IsComputed        bool
	IsSpread          bool

	// "{ a }" and "{ a = 1 }". The value is always a "BIdentifier" whose
	// original name equals the key.
	IsShorthand bool
}

func (*BMissing) isBinding()    {}
func (*BIdentifier) isBinding() {}
func (*BArray) isBinding()      {}
func (*BObject) isBinding()     {}

////////////////////////////////////////////////////////////////////////////////
// Assignment targets
//
// These mirror binding patterns but appear on the left of "=" in expressions,
// so their leaves are references to existing bindings instead of new ones.

type Target struct {
	Loc  logger.Loc
	Data T
}

// This interface is never called. Its purpose is to encode a variant type in
// Go's type system.
type T interface{ isTarget() }

type TIdentifier struct {
	Name     string
	SymbolID ast.Index32
}

// "a.b" or "a[b]". The member expression is stored as an ordinary expression.
type TMember struct {
	Value Expr
}

type TArray struct {
	Items     []TArrayItem
	HasSpread bool
}

type TArrayItem struct {
	// A "TMissing" target represents a hole
	Target            Target
	DefaultValueOrNil Expr
}

type TObject struct {
	Properties []TProperty
}

type TProperty struct {
	Key               Expr
	Target            Target
	DefaultValueOrNil Expr
	IsComputed        bool
	IsSpread          bool

	// "({ a } = b)" and "({ a = 1 } = b)". The target is always a "TIdentifier".
	IsShorthand bool
}

type TMissing struct{}

func (*TIdentifier) isTarget() {}
func (*TMember) isTarget()     {}
func (*TArray) isTarget()      {}
func (*TObject) isTarget()     {}
func (*TMissing) isTarget()    {}

////////////////////////////////////////////////////////////////////////////////
// Expressions

type Expr struct {
	Loc  logger.Loc
	Data E
}

// This interface is never called. Its purpose is to encode a variant type in
// Go's type system.
type E interface{ isExpr() }

type EArray struct {
	Items        []Expr
	IsSingleLine bool
}

type EUnary struct {
	Op    OpCode
	Value Expr
}

type EBinary struct {
	Left  Expr
	Right Expr
	Op    OpCode
}

type EAssign struct {
	Target Target
	Value  Expr
	Op     OpCode
}

type EBoolean struct{ Value bool }

type EThis struct{}

type ESuper struct{}

// An array hole as in "[, a]"
type EMissing struct{}

type ENull struct{}

type EUndefined struct{}

type ENew struct {
	Target Expr
	Args   []Expr
}

type ECall struct {
	Target Expr
	Args   []Expr
}

type EDot struct {
	Target  Expr
	Name    string
	NameLoc logger.Loc
}

type EIndex struct {
	Target Expr
	Index  Expr
}

type EArrow struct {
	Args       []Arg
	Body       FnBody
	HasRestArg bool
	IsAsync    bool

	// "() => x" instead of "() => { return x }"
	PreferExpr bool
}

type EFunction struct{ Fn Fn }

type EClass struct{ Class Class }

type EIdentifier struct {
	Name     string
	SymbolID ast.Index32
}

type EObject struct {
	Properties   []Property
	IsSingleLine bool
}

type ESpread struct{ Value Expr }

type ENumber struct{ Value float64 }

// String values are kept in UTF-8. Lone surrogates are not representable.
type EString struct{ Value string }

type ETemplatePart struct {
	Value Expr
	Tail  string
}

type ETemplate struct {
	Head  string
	Parts []ETemplatePart
}

type EAwait struct{ Value Expr }

type EYield struct {
	ValueOrNil Expr
	IsStar     bool
}

type EIf struct {
	Test Expr
	Yes  Expr
	No   Expr
}

// "import(path)"
type EImportCall struct {
	Expr         Expr
	OptionsOrNil Expr
}

func (*EArray) isExpr()      {}
func (*EUnary) isExpr()      {}
func (*EBinary) isExpr()     {}
func (*EAssign) isExpr()     {}
func (*EBoolean) isExpr()    {}
func (*EThis) isExpr()       {}
func (*ESuper) isExpr()      {}
func (*EMissing) isExpr()    {}
func (*ENull) isExpr()       {}
func (*EUndefined) isExpr()  {}
func (*ENew) isExpr()        {}
func (*ECall) isExpr()       {}
func (*EDot) isExpr()        {}
func (*EIndex) isExpr()      {}
func (*EArrow) isExpr()      {}
func (*EFunction) isExpr()   {}
func (*EClass) isExpr()      {}
func (*EIdentifier) isExpr() {}
func (*EObject) isExpr()     {}
func (*ESpread) isExpr()     {}
func (*ENumber) isExpr()     {}
func (*EString) isExpr()     {}
func (*ETemplate) isExpr()   {}
func (*EAwait) isExpr()      {}
func (*EYield) isExpr()      {}
func (*EIf) isExpr()         {}
func (*EImportCall) isExpr() {}

////////////////////////////////////////////////////////////////////////////////
// Statements

type Stmt struct {
	Loc  logger.Loc
	Data S
}

// This interface is never called. Its purpose is to encode a variant type in
// Go's type system.
type S interface{ isStmt() }

type SBlock struct{ Stmts []Stmt }

type SEmpty struct{}

type SDebugger struct{}

// A comment kept in the output, used for "// path" separators in chunks
type SComment struct{ Text string }

// This object represents all of these types of import statements:
//
//	import 'path'
//	import {item1, item2} from 'path'
//	import * as ns from 'path'
//	import defaultItem, {item1, item2} from 'path'
//	import defaultItem, * as ns from 'path'
//
// The import record is found by looking up the statement's location in the
// module's import table.
type SImport struct {
	DefaultName *LocRef
	Items       *[]ClauseItem
	StarName    *LocRef
}

type ClauseItem struct {
	Alias    string
	AliasLoc logger.Loc
	Name     LocRef
}

// "export {a, b as c}"
type SExportClause struct {
	Items []ClauseItem
}

// "export {a, b as c} from 'path'"
type SExportFrom struct {
	Items []ClauseItem
}

// "export * from 'path'"
// "export * as ns from 'path'"
type SExportStar struct {
	Alias *ExportStarAlias
}

type ExportStarAlias struct {
	Loc  logger.Loc
	Name LocRef
}

// "export default ...". The value is an "SExpr", "SFunction" or "SClass". The
// default name is the generated "<module>_default" symbol, which anonymous
// functions and classes take as their own name.
type SExportDefault struct {
	DefaultName LocRef
	Value       Stmt
}

type SExpr struct{ Value Expr }

type LocalKind uint8

const (
	LocalVar LocalKind = iota
	LocalLet
	LocalConst
	LocalUsing
)

func (kind LocalKind) String() string {
	switch kind {
	case LocalVar:
		return "var"
	case LocalLet:
		return "let"
	case LocalConst:
		return "const"
	case LocalUsing:
		return "using"
	default:
		panic("Internal error")
	}
}

type Decl struct {
	Binding    Binding
	ValueOrNil Expr
}

type SLocal struct {
	Decls    []Decl
	Kind     LocalKind
	IsExport bool
}

type SFunction struct {
	Fn       Fn
	IsExport bool
}

type SClass struct {
	Class    Class
	IsExport bool
}

type SIf struct {
	Test    Expr
	Yes     Stmt
	NoOrNil Stmt
}

type SFor struct {
	InitOrNil   Stmt // May be a SLocal or SExpr
	TestOrNil   Expr
	UpdateOrNil Expr
	Body        Stmt
}

type SForIn struct {
	Init  Stmt // A SLocal without a value, or an SExpr holding the target
	Value Expr
	Body  Stmt
}

type SForOf struct {
	Init  Stmt
	Value Expr
	Body  Stmt
}

type SWhile struct {
	Test Expr
	Body Stmt
}

type SReturn struct{ ValueOrNil Expr }

type SThrow struct{ Value Expr }

type STry struct {
	Block        SBlock
	Catch        *Catch
	FinallyOrNil *SBlock
}

type Catch struct {
	BindingOrNil Binding
	Block        SBlock
}

type SBreak struct{}

type SContinue struct{}

func (*SBlock) isStmt()         {}
func (*SEmpty) isStmt()         {}
func (*SDebugger) isStmt()      {}
func (*SComment) isStmt()       {}
func (*SImport) isStmt()        {}
func (*SExportClause) isStmt()  {}
func (*SExportFrom) isStmt()    {}
func (*SExportStar) isStmt()    {}
func (*SExportDefault) isStmt() {}
func (*SExpr) isStmt()          {}
func (*SLocal) isStmt()         {}
func (*SFunction) isStmt()      {}
func (*SClass) isStmt()         {}
func (*SIf) isStmt()            {}
func (*SFor) isStmt()           {}
func (*SForIn) isStmt()         {}
func (*SForOf) isStmt()         {}
func (*SWhile) isStmt()         {}
func (*SReturn) isStmt()        {}
func (*SThrow) isStmt()         {}
func (*STry) isStmt()           {}
func (*SBreak) isStmt()         {}
func (*SContinue) isStmt()      {}

// IsModuleDecl reports whether the statement is import or export syntax that
// must not survive finalization.
func IsModuleDecl(data S) bool {
	switch s := data.(type) {
	case *SImport, *SExportClause, *SExportFrom, *SExportStar, *SExportDefault:
		return true
	case *SLocal:
		return s.IsExport
	case *SFunction:
		return s.IsExport
	case *SClass:
		return s.IsExport
	}
	return false
}

////////////////////////////////////////////////////////////////////////////////
// Scopes and the per-module tree

type ScopeKind uint8

const (
	ScopeBlock ScopeKind = iota
	ScopeClassName
	ScopeClassBody
	ScopeFunctionArgs
	ScopeFunctionBody
	ScopeCatchBinding
	ScopeEntry // This is a module or a function body
)

type Scope struct {
	Kind     ScopeKind
	Parent   *Scope
	Children []*Scope

	// Names declared in this scope mapped to module-local symbol ids
	Members map[string]ast.Index32

	// Symbols declared in this scope in declaration order. The renamer walks
	// this list instead of the map so that naming is deterministic.
	Ordered []ast.Index32
}

type AST struct {
	Directives []string
	Stmts      []Stmt

	ModuleScope *Scope
	Symbols     []ast.Symbol

	ImportRecords []ast.ImportRecord

	// Import records are keyed by the location of the statement, "require"
	// call, or "import()" expression that created them
	ImportRecordsByLoc map[logger.Loc]uint32

	// Names that are referenced but never declared in this module. The
	// renamer reserves them bundle-wide.
	UnboundNames []string

	// Module-level facts gathered while parsing
	HasESMSyntax     bool
	UsesCommonJSVars bool // "module" or "exports" is referenced as a global

	NamedImports map[uint32]NamedImport // keyed by the symbol id of the import item
	NamedExports map[string]NamedExport // keyed by the exported alias
	ExportStars  []uint32               // import record indices of "export * from"
	TopLevelUses []map[uint32]struct{}  // per statement, module-scope symbol ids referenced

	// Generated symbols that every module has
	NamespaceRef ast.Index32 // "<name>_exports"
	DefaultRef   ast.Index32 // "<name>_default"
	WrapperRef   ast.Index32 // "require_<name>" or "init_<name>"
}

type NamedImport struct {
	// "*" for "import * as ns" and "export * as ns"
	Alias             string
	AliasLoc          logger.Loc
	ImportRecordIndex uint32

	// True for "export {a} from" and "export * as ns from", whose local symbol
	// only exists to be re-exported
	IsReExport bool
}

type NamedExport struct {
	SymbolID ast.Index32
	AliasLoc logger.Loc
}
