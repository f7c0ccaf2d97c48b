package driver

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deopt/internal/ir"
)

func init() {
	color.NoColor = true
}

const square = `version "1.0.0"

func @square(i32 %x) -> i32 {
entry:
  %r = mul i32 %x, %x
  %s = add i32 %r, 0
  ret i32 %s
}
`

func TestProcessExpandsAndChecksEquivalence(t *testing.T) {
	opts := Options{Function: "square", Args: []int64{-7}}
	out, err := Process("square.ir", square, opts)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Rewritten())
	assert.Equal(t, []ir.ExpansionReport{{Function: "square", Rewritten: 1}}, out.Reports)
	assert.Equal(t, int64(49), out.Before.Value)
	assert.Equal(t, int64(49), out.After.Value)
	assert.Greater(t, out.After.Trace.Steps, out.Before.Trace.Steps)
	assert.Zero(t, ir.CountMuls(out.Module.Functions[0]))
}

func TestProcessWithOptimizeStillVerifies(t *testing.T) {
	out, err := Process("square.ir", square, Options{Optimize: true, Function: "square", Args: []int64{3}})
	require.NoError(t, err)
	assert.Equal(t, int64(9), out.After.Value)
	require.NoError(t, ir.VerifyModule(out.Module))
}

func TestProcessStopsOnErrors(t *testing.T) {
	out, err := Process("bad.ir", "func @f() -> i32 {\nentry:\n  ret i32 %nope\n}\n", Options{})
	assert.ErrorIs(t, err, ErrDiagnostics)
	assert.Nil(t, out.Module)
	require.Len(t, out.Diagnostics, 1)

	var buf bytes.Buffer
	out.Write(&buf, Options{})
	assert.Contains(t, buf.String(), "error[E0105]")
}

func TestProcessUnknownFunction(t *testing.T) {
	_, err := Process("square.ir", square, Options{Function: "cube"})
	assert.ErrorContains(t, err, "no function @cube")
}

func TestWriteShowsReportsIRAndRuns(t *testing.T) {
	opts := Options{Print: true, ShowPreds: true, Function: "square", Args: []int64{5}}
	out, err := Process("square.ir", square, opts)
	require.NoError(t, err)

	var buf bytes.Buffer
	out.Write(&buf, opts)
	text := buf.String()

	assert.Contains(t, text, "@square: expanded 1 mul instruction into repeated additions")
	assert.Contains(t, text, "entry_forloopy:  ; preds = ")
	assert.Contains(t, text, "@square(5)")
	assert.Contains(t, text, "before: 25 in ")
	assert.Contains(t, text, "after:  25 in ")
}

func TestProcessAndWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "square.ir")
	require.NoError(t, os.WriteFile(path, []byte(square), 0o644))

	var buf bytes.Buffer
	require.NoError(t, ProcessAndWrite(&buf, path, Options{}))
	assert.Contains(t, buf.String(), "Expanded 1 multiplication(s) in "+path)

	buf.Reset()
	err := ProcessAndWrite(&buf, filepath.Join(t.TempDir(), "missing.ir"), Options{})
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "Failed after")
}

func TestParseArgs(t *testing.T) {
	args, err := ParseArgs(" 4, -3,0 ")
	require.NoError(t, err)
	assert.Equal(t, []int64{4, -3, 0}, args)

	args, err = ParseArgs("")
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = ParseArgs("1,x")
	assert.ErrorContains(t, err, `invalid argument "x"`)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "500ns", FormatDuration(500*time.Nanosecond))
	assert.Equal(t, "1.5μs", FormatDuration(1500*time.Nanosecond))
	assert.Equal(t, "2.0ms", FormatDuration(2*time.Millisecond))
	assert.Equal(t, "1.50s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "2.00min", FormatDuration(2*time.Minute))
}

func TestWatchReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "square.ir")
	require.NoError(t, os.WriteFile(path, []byte(square), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func() { changed <- struct{}{} })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(square+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.ir"), []byte("x"), 0o644))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestExamples(t *testing.T) {
	tests := []struct {
		file     string
		function string
		args     []int64
		want     int64
		muls     int
	}{
		{"mul.ir", "mul", []int64{7, -6}, -42, 1},
		{"poly.ir", "poly", []int64{5}, 86, 4},
		{"poly.ir", "poly", []int64{7}, -62, 4},
		{"loop.ir", "weighted", []int64{5, 3}, 30, 1},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			for _, optimize := range []bool{false, true} {
				opts := Options{Optimize: optimize, Function: tt.function, Args: tt.args}
				out, err := ProcessFile(filepath.Join("..", "..", "examples", tt.file), opts)
				require.NoError(t, err)
				assert.Equal(t, tt.muls, out.Rewritten())
				assert.Equal(t, tt.want, out.After.Value)
			}
		})
	}
}
