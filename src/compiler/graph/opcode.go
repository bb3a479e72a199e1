package graph

// Opcode is the closed tag enumeration carried by every Node. The tag
// itself is bare; purity, arity and CSE-bucketing facts live in the
// opcodeTable below rather than in the tag's bit layout, so that adding an
// opcode never requires re-deriving a bit pattern (spec.md §9, "Opcode
// flags").
type Opcode int

const (
	OpInvalid Opcode = iota

	// Constants and locals.
	OpJSConstant
	OpWeakJSConstant
	OpGetLocal
	OpSetLocal

	// Bitwise / truncating.
	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitLShift
	OpBitRShift
	OpBitURShift
	OpValueToInt32
	OpUInt32ToNumber
	OpInt32ToDouble
	OpDoubleAsInt32

	// Arithmetic.
	OpArithAdd
	OpArithSub
	OpArithMul
	OpArithDiv
	OpArithMod
	OpArithMin
	OpArithMax
	OpArithAbs
	OpArithSqrt
	OpArithNegate
	OpArithRound
	OpArithFloor
	OpArithCeil
	OpValueAdd

	// Strings.
	OpStringCharAt
	OpStringCharCodeAt
	OpStrCat

	// Compares / logic.
	OpCompareEq
	OpCompareLess
	OpCompareLessEq
	OpCompareGreater
	OpCompareGreaterEq
	OpLogicalNot
	OpInstanceOf

	// Property / element access.
	OpGetById
	OpGetByVal
	OpPutByVal
	OpPutByValAlias
	OpGetByOffset
	OpPutByOffset
	OpGetPropertyStorage
	OpGetIndexedPropertyStorage
	OpArrayPush
	OpArrayPop

	// Length specializations, produced only by fixup.
	OpGetArrayLength
	OpGetStringLength
	OpGetInt8ArrayLength
	OpGetInt32ArrayLength
	OpGetFloat64ArrayLength

	// Object / container construction and coercion.
	OpNewObject
	OpCreateThis
	OpNewArray
	OpNewArrayBuffer
	OpNewRegexp
	OpNewTypedArray
	OpConvertThis
	OpToPrimitive

	// Scope / globals / calls.
	OpGetScopeChain
	OpGetCallee
	OpGetGlobalVar
	OpPutGlobalVar
	OpGetScopedVar
	OpResolve
	OpCall

	// Structure guards.
	OpCheckStructure
	OpPutStructure
	OpCheckFunction
	OpCheckArray
	OpArrayifyToStructure

	// Bookkeeping.
	OpPhantom
	OpNop

	opcodeCount
)

// Flag bits packed alongside each opcode's descriptor.
type opFlag uint8

const (
	flagHasVarArgs opFlag = 1 << iota
	flagClobbersWorld
	flagMightClobber
)

// IDKind buckets opcodes for CSE's lastSeen[kind] lookback tables. Several
// opcodes that differ only in their specialized payload (e.g. the
// length-getter family) share a kind so pure-CSE finds them interchangeably
// the way the source's IdMask slices do.
type IDKind uint8

const (
	KindOther IDKind = iota
	KindArith
	KindBitwise
	KindCompare
	KindLength
	KindStringChar
	KindScopeChain
	KindGlobalVar
	KindByOffset
	KindPropertyStorage
	KindIndexedPropertyStorage
	KindStructureCheck
	KindFunctionCheck
	KindGetByVal
	KindCallee

	KindCount
)

type opDescriptor struct {
	flags opFlag
	kind  IDKind
}

var opcodeTable = [opcodeCount]opDescriptor{
	OpJSConstant:     {kind: KindOther},
	OpWeakJSConstant: {kind: KindOther},
	OpGetLocal:       {kind: KindOther},
	OpSetLocal:       {flags: flagClobbersWorld, kind: KindOther},

	OpBitAnd:         {kind: KindBitwise},
	OpBitOr:          {kind: KindBitwise},
	OpBitXor:         {kind: KindBitwise},
	OpBitLShift:      {kind: KindBitwise},
	OpBitRShift:      {kind: KindBitwise},
	OpBitURShift:     {kind: KindBitwise},
	OpValueToInt32:   {kind: KindBitwise},
	OpUInt32ToNumber: {kind: KindArith},
	OpInt32ToDouble:  {kind: KindArith},
	OpDoubleAsInt32:  {kind: KindArith},

	OpArithAdd:    {kind: KindArith},
	OpArithSub:    {kind: KindArith},
	OpArithMul:    {kind: KindArith},
	OpArithDiv:    {kind: KindArith},
	OpArithMod:    {kind: KindArith},
	OpArithMin:    {kind: KindArith},
	OpArithMax:    {kind: KindArith},
	OpArithAbs:    {kind: KindArith},
	OpArithSqrt:   {kind: KindArith},
	OpArithNegate: {kind: KindArith},
	OpArithRound:  {kind: KindArith},
	OpArithFloor:  {kind: KindArith},
	OpArithCeil:   {kind: KindArith},
	OpValueAdd:    {flags: flagMightClobber, kind: KindArith},

	OpStringCharAt:     {kind: KindStringChar},
	OpStringCharCodeAt: {kind: KindStringChar},
	OpStrCat:           {flags: flagHasVarArgs, kind: KindOther},

	OpCompareEq:         {flags: flagMightClobber, kind: KindCompare},
	OpCompareLess:       {flags: flagMightClobber, kind: KindCompare},
	OpCompareLessEq:     {flags: flagMightClobber, kind: KindCompare},
	OpCompareGreater:    {flags: flagMightClobber, kind: KindCompare},
	OpCompareGreaterEq:  {flags: flagMightClobber, kind: KindCompare},
	OpLogicalNot:        {flags: flagMightClobber, kind: KindOther},
	OpInstanceOf:        {flags: flagClobbersWorld, kind: KindOther},

	OpGetById:                   {flags: flagClobbersWorld, kind: KindOther},
	OpGetByVal:                  {flags: flagMightClobber, kind: KindGetByVal},
	OpPutByVal:                  {flags: flagClobbersWorld, kind: KindOther},
	OpPutByValAlias:             {kind: KindOther},
	OpGetByOffset:               {kind: KindByOffset},
	OpPutByOffset:               {flags: flagClobbersWorld, kind: KindByOffset},
	OpGetPropertyStorage:        {kind: KindPropertyStorage},
	OpGetIndexedPropertyStorage: {kind: KindIndexedPropertyStorage},
	OpArrayPush:                 {flags: flagClobbersWorld, kind: KindOther},
	OpArrayPop:                  {flags: flagClobbersWorld, kind: KindOther},

	OpGetArrayLength:        {kind: KindLength},
	OpGetStringLength:       {kind: KindLength},
	OpGetInt8ArrayLength:    {kind: KindLength},
	OpGetInt32ArrayLength:   {kind: KindLength},
	OpGetFloat64ArrayLength: {kind: KindLength},

	OpNewObject:      {flags: flagClobbersWorld, kind: KindOther},
	OpCreateThis:     {flags: flagClobbersWorld, kind: KindOther},
	OpNewArray:       {flags: flagHasVarArgs | flagClobbersWorld, kind: KindOther},
	OpNewArrayBuffer: {flags: flagClobbersWorld, kind: KindOther},
	OpNewRegexp:      {flags: flagClobbersWorld, kind: KindOther},
	OpNewTypedArray:  {flags: flagHasVarArgs | flagClobbersWorld, kind: KindOther},
	OpConvertThis:    {kind: KindOther},
	OpToPrimitive:    {flags: flagMightClobber, kind: KindOther},

	OpGetScopeChain: {kind: KindScopeChain},
	OpGetCallee:     {kind: KindCallee},
	OpGetGlobalVar:  {kind: KindGlobalVar},
	OpPutGlobalVar:  {flags: flagClobbersWorld, kind: KindGlobalVar},
	OpGetScopedVar:  {flags: flagClobbersWorld, kind: KindOther},
	OpResolve:       {flags: flagClobbersWorld, kind: KindOther},
	OpCall:          {flags: flagHasVarArgs | flagClobbersWorld, kind: KindOther},

	OpCheckStructure:      {kind: KindStructureCheck},
	OpPutStructure:        {flags: flagClobbersWorld, kind: KindStructureCheck},
	OpCheckFunction:       {kind: KindFunctionCheck},
	OpCheckArray:          {kind: KindOther},
	OpArrayifyToStructure: {flags: flagClobbersWorld, kind: KindOther},

	OpPhantom: {kind: KindOther},
	OpNop:     {kind: KindOther},
}

func (op Opcode) descriptor() opDescriptor { return opcodeTable[op] }

// HasVarArgs reports whether the node's operands live in the graph's
// var-args child vector rather than child1..child3.
func (op Opcode) HasVarArgs() bool { return op.descriptor().flags&flagHasVarArgs != 0 }

// ClobbersWorld reports whether the opcode unconditionally invalidates
// every heap-resident value from the point of view of a later load.
func (op Opcode) ClobbersWorld() bool { return op.descriptor().flags&flagClobbersWorld != 0 }

// MightClobber reports whether purity depends on the node's current
// operand predictions (resolved by clobbersWorld in cse.go).
func (op Opcode) MightClobber() bool { return op.descriptor().flags&flagMightClobber != 0 }

// Kind returns the opcode's CSE bucket (see IDKind).
func (op Opcode) Kind() IDKind { return op.descriptor().kind }

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "OpUnknown"
}

var opcodeByName map[string]Opcode

func init() {
	opcodeByName = make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		opcodeByName[name] = op
	}
}

// ParseOpcode looks up an opcode by its String() spelling, for the text
// graph loader in cmd/dfgprop.
func ParseOpcode(name string) (Opcode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}

var opcodeNames = map[Opcode]string{
	OpJSConstant: "JSConstant", OpWeakJSConstant: "WeakJSConstant",
	OpGetLocal: "GetLocal", OpSetLocal: "SetLocal",
	OpBitAnd: "BitAnd", OpBitOr: "BitOr", OpBitXor: "BitXor",
	OpBitLShift: "BitLShift", OpBitRShift: "BitRShift", OpBitURShift: "BitURShift",
	OpValueToInt32: "ValueToInt32", OpUInt32ToNumber: "UInt32ToNumber",
	OpInt32ToDouble: "Int32ToDouble", OpDoubleAsInt32: "DoubleAsInt32",
	OpArithAdd: "ArithAdd", OpArithSub: "ArithSub", OpArithMul: "ArithMul",
	OpArithDiv: "ArithDiv", OpArithMod: "ArithMod", OpArithMin: "ArithMin",
	OpArithMax: "ArithMax", OpArithAbs: "ArithAbs", OpArithSqrt: "ArithSqrt",
	OpArithNegate: "ArithNegate", OpArithRound: "ArithRound",
	OpArithFloor: "ArithFloor", OpArithCeil: "ArithCeil", OpValueAdd: "ValueAdd",
	OpStringCharAt: "StringCharAt", OpStringCharCodeAt: "StringCharCodeAt",
	OpStrCat: "StrCat",
	OpCompareEq: "CompareEq", OpCompareLess: "CompareLess",
	OpCompareLessEq: "CompareLessEq", OpCompareGreater: "CompareGreater",
	OpCompareGreaterEq: "CompareGreaterEq", OpLogicalNot: "LogicalNot",
	OpInstanceOf: "InstanceOf",
	OpGetById:    "GetById", OpGetByVal: "GetByVal", OpPutByVal: "PutByVal",
	OpPutByValAlias: "PutByValAlias", OpGetByOffset: "GetByOffset",
	OpPutByOffset: "PutByOffset", OpGetPropertyStorage: "GetPropertyStorage",
	OpGetIndexedPropertyStorage: "GetIndexedPropertyStorage",
	OpArrayPush:                 "ArrayPush", OpArrayPop: "ArrayPop",
	OpGetArrayLength: "GetArrayLength", OpGetStringLength: "GetStringLength",
	OpGetInt8ArrayLength:    "GetInt8ArrayLength",
	OpGetInt32ArrayLength:   "GetInt32ArrayLength",
	OpGetFloat64ArrayLength: "GetFloat64ArrayLength",
	OpNewObject:             "NewObject", OpCreateThis: "CreateThis",
	OpNewArray: "NewArray", OpNewArrayBuffer: "NewArrayBuffer",
	OpNewRegexp: "NewRegexp", OpNewTypedArray: "NewTypedArray",
	OpConvertThis: "ConvertThis", OpToPrimitive: "ToPrimitive",
	OpGetScopeChain: "GetScopeChain", OpGetCallee: "GetCallee",
	OpGetGlobalVar: "GetGlobalVar", OpPutGlobalVar: "PutGlobalVar",
	OpGetScopedVar: "GetScopedVar", OpResolve: "Resolve", OpCall: "Call",
	OpCheckStructure: "CheckStructure", OpPutStructure: "PutStructure",
	OpCheckFunction: "CheckFunction", OpCheckArray: "CheckArray",
	OpArrayifyToStructure: "ArrayifyToStructure",
	OpPhantom:             "Phantom", OpNop: "Nop",
}
