package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// File is a whole IR source file: an optional version header and a list of functions
type File struct {
	Pos       lexer.Position
	Version   *Version    `@@?`
	Functions []*Function `@@*`
}

type Version struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Value  string `"version" @String`
}

type Function struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Name   GlobalName `"func" @@ "("`
	Params []*Param   `[ @@ { "," @@ } ] ")"`
	Return *TypeRef   `[ "->" @@ ]`
	Blocks []*Block   `"{" @@* "}"`
}

// GlobalName is a function name such as @main
type GlobalName struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Value  string `@Global`
}

// LocalName is a value name such as %x
type LocalName struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Value  string `@Local`
}

// Label is a block label, either where it is defined or where it is referenced
type Label struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Value  string `@Ident`
}

type Param struct {
	Pos  lexer.Position
	Type *TypeRef  `@@`
	Name LocalName `@@`
}

type TypeRef struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Name   string `@Ident`
}

type Block struct {
	Pos          lexer.Position
	EndPos       lexer.Position
	Label        Label          `@@ ":"`
	Instructions []*Instruction `@@*`
	Terminator   *Terminator    `@@`
}

type Instruction struct {
	Pos     lexer.Position
	EndPos  lexer.Position
	Result  LocalName    `@@ "="`
	Phi     *PhiExpr     `( @@`
	Compare *CompareExpr `| @@`
	Const   *ConstExpr   `| @@`
	Binary  *BinaryExpr  `| @@ )`
}

type PhiExpr struct {
	Type     *TypeRef   `"phi" @@`
	Incoming []*PhiEdge `@@ { "," @@ }`
}

type PhiEdge struct {
	Pos   lexer.Position
	Value *Operand `"[" @@ ","`
	Block Label    `@@ "]"`
}

type CompareExpr struct {
	Pred  Label    `"icmp" @@`
	Type  *TypeRef `@@`
	Left  *Operand `@@ ","`
	Right *Operand `@@`
}

type ConstExpr struct {
	Type  *TypeRef `"const" @@`
	Value *Operand `@@`
}

type BinaryExpr struct {
	Op    string   `@("add" | "sub" | "mul" | "and" | "or" | "xor")`
	Type  *TypeRef `@@`
	Left  *Operand `@@ ","`
	Right *Operand `@@`
}

// Operand is either a named value or an integer literal
type Operand struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Local  *string `  @Local`
	Int    *string `| @Integer`
}

type Terminator struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Ret    *RetTerm    `  @@`
	Branch *BranchTerm `| @@`
	Jump   *JumpTerm   `| @@`
}

type RetTerm struct {
	Void  bool     `"ret" ( @"void"`
	Type  *TypeRef `| @@`
	Value *Operand `@@ )`
}

type BranchTerm struct {
	Condition *Operand `"br" @@ ","`
	True      Label    `@@ ","`
	False     Label    `@@`
}

type JumpTerm struct {
	Target Label `"jmp" @@`
}
