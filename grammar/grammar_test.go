package grammar_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deopt/grammar"
)

const square = `version "1.0.0"

; squares its argument
func @square(i32 %x) -> i32 {
entry:
  %r = mul i32 %x, %x
  %neg = icmp slt i32 %r, 0
  br %neg, bad, good
bad:
  ret i32 -1
good:
  %p = phi i32 [ %r, entry ]
  ret i32 %p
}

func @nothing() {
entry:
  ret void
}
`

func parse(t *testing.T, src string) *grammar.File {
	t.Helper()
	parser, err := grammar.NewParser()
	require.NoError(t, err)
	file, err := parser.ParseString("test.ir", src)
	require.NoError(t, err)
	return file
}

func TestParseStructure(t *testing.T) {
	file := parse(t, square)

	require.NotNil(t, file.Version)
	assert.Equal(t, `"1.0.0"`, file.Version.Value)
	require.Len(t, file.Functions, 2)

	fn := file.Functions[0]
	assert.Equal(t, "@square", fn.Name.Value)
	require.Len(t, fn.Params, 1)
	assert.Equal(t, "i32", fn.Params[0].Type.Name)
	assert.Equal(t, "%x", fn.Params[0].Name.Value)
	require.NotNil(t, fn.Return)
	assert.Equal(t, "i32", fn.Return.Name)
	require.Len(t, fn.Blocks, 3)

	entry := fn.Blocks[0]
	assert.Equal(t, "entry", entry.Label.Value)
	assert.Equal(t, 5, entry.Label.Pos.Line)
	require.Len(t, entry.Instructions, 2)

	mul := entry.Instructions[0]
	assert.Equal(t, "%r", mul.Result.Value)
	require.NotNil(t, mul.Binary)
	assert.Equal(t, "mul", mul.Binary.Op)
	assert.Equal(t, "%x", *mul.Binary.Left.Local)

	cmp := entry.Instructions[1]
	require.NotNil(t, cmp.Compare)
	assert.Equal(t, "slt", cmp.Compare.Pred.Value)
	assert.Equal(t, "0", *cmp.Compare.Right.Int)

	require.NotNil(t, entry.Terminator.Branch)
	assert.Equal(t, "bad", entry.Terminator.Branch.True.Value)
	assert.Equal(t, "good", entry.Terminator.Branch.False.Value)

	bad := fn.Blocks[1]
	require.NotNil(t, bad.Terminator.Ret)
	assert.False(t, bad.Terminator.Ret.Void)
	assert.Equal(t, "-1", *bad.Terminator.Ret.Value.Int)

	good := fn.Blocks[2]
	require.NotNil(t, good.Instructions[0].Phi)
	assert.Equal(t, "entry", good.Instructions[0].Phi.Incoming[0].Block.Value)

	void := file.Functions[1]
	assert.Nil(t, void.Return)
	assert.True(t, void.Blocks[0].Terminator.Ret.Void)
}

func TestParseRejectsMissingTerminator(t *testing.T) {
	parser, err := grammar.NewParser()
	require.NoError(t, err)

	_, err = parser.ParseString("bad.ir", "func @f() {\nentry:\n  %x = const i32 1\n}\n")
	assert.Error(t, err)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "square.ir")
	require.NoError(t, os.WriteFile(path, []byte(square), 0o644))

	file, err := grammar.ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, file.Functions, 2)

	_, err = grammar.ParseFile(filepath.Join(t.TempDir(), "missing.ir"))
	assert.ErrorContains(t, err, "failed to read file")
}

func TestTokenize(t *testing.T) {
	tokens, err := grammar.Tokenize("t.ir", "  %a = add i8 %b, -3 ; note\n")
	require.NoError(t, err)

	var kinds []string
	for _, tok := range tokens {
		if kind := grammar.TokenKind(tok.Type); kind != "Whitespace" {
			kinds = append(kinds, kind+":"+tok.Value)
		}
	}
	assert.Equal(t, []string{
		"Local:%a", "Punctuation:=", "Ident:add", "Ident:i8",
		"Local:%b", "Punctuation:,", "Integer:-3", "Comment:; note",
	}, kinds)
}

func TestReportParseError(t *testing.T) {
	color.NoColor = true
	src := "func @f() {\nentry:\n  jmp\n}\n"
	parser, err := grammar.NewParser()
	require.NoError(t, err)
	_, err = parser.ParseString("caret.ir", src)
	require.Error(t, err)

	var buf bytes.Buffer
	grammar.ReportParseError(&buf, src, err)

	assert.Contains(t, buf.String(), "Syntax error in caret.ir")
	assert.Contains(t, buf.String(), "^")
}

func TestIsKeyword(t *testing.T) {
	assert.True(t, grammar.IsKeyword("phi"))
	assert.False(t, grammar.IsKeyword("entry"))
}

func TestTokenizeKeepsTokensBeforeLexError(t *testing.T) {
	tokens, err := grammar.Tokenize("t.ir", "ret i32 %a $")
	require.Error(t, err)

	var values []string
	for _, tok := range tokens {
		if grammar.TokenKind(tok.Type) != "Whitespace" {
			values = append(values, tok.Value)
		}
	}
	assert.Equal(t, []string{"ret", "i32", "%a"}, values)
}
