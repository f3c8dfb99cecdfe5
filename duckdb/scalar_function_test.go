package duckdb

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConn(t *testing.T) (*Database, *Conn) {
	t.Helper()
	db, err := Open("")
	require.NoError(t, err)
	conn, err := db.Connect()
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
		db.Close()
	})
	return db, conn
}

// queryInt64s collects the first column of a BIGINT result, NULLs are skipped
func queryInt64s(t *testing.T, conn *Conn, query string) []int64 {
	t.Helper()
	res, err := conn.Query(query)
	require.NoError(t, err)
	defer res.Close()

	var out []int64
	for chunk, ok := res.NextChunk(); ok; chunk, ok = res.NextChunk() {
		vec, err := chunk.Vector(0)
		require.NoError(t, err)
		values, err := Values[int64](vec)
		require.NoError(t, err)
		for row, v := range values {
			if vec.IsValid(row) {
				out = append(out, v)
			}
		}
	}
	return out
}

func queryString(t *testing.T, conn *Conn, query string) string {
	t.Helper()
	res, err := conn.Query(query)
	require.NoError(t, err)
	defer res.Close()

	chunk, ok := res.NextChunk()
	require.True(t, ok, "query returned no rows")
	vec, err := chunk.Vector(0)
	require.NoError(t, err)
	s, err := vec.String(0)
	require.NoError(t, err)
	return s
}

// multiplier multiplies its BIGINT argument by the extra info if any, by 2 otherwise
type multiplier struct{}

func (multiplier) Func(info *FunctionInfo, input *DataChunk, output *Vector) error {
	factor := int64(2)
	if f, ok := ExtraInfoAs[int64](info); ok && f != nil {
		factor = *f
	}

	col, err := input.Vector(0)
	if err != nil {
		return err
	}
	src, err := Values[int64](col)
	if err != nil {
		return err
	}
	dst, err := Values[int64](output)
	if err != nil {
		return err
	}
	for i, v := range src {
		if !col.IsValid(i) {
			if err := output.SetNull(i); err != nil {
				return err
			}
			continue
		}
		dst[i] = v * factor
	}
	return nil
}

func (multiplier) ReturnType() TypeID   { return TypeBigInt }
func (multiplier) Parameters() []TypeID { return []TypeID{TypeBigInt} }

// funcOf adapts a plain ScalarFunc to VFunc for one BIGINT parameter and result
type funcOf ScalarFunc

func (f funcOf) Func(info *FunctionInfo, input *DataChunk, output *Vector) error {
	return f(info, input, output)
}
func (funcOf) ReturnType() TypeID   { return TypeBigInt }
func (funcOf) Parameters() []TypeID { return []TypeID{TypeBigInt} }

func TestRegisterVFunc(t *testing.T) {
	_, conn := newTestConn(t)
	require.NoError(t, conn.RegisterVFunc("double_it", multiplier{}))

	assert.Equal(t, []int64{2}, queryInt64s(t, conn, "SELECT double_it(1::BIGINT)"))
	assert.Equal(t, []int64{0, 2, 4, 6}, queryInt64s(t, conn, "SELECT double_it(i) FROM range(4) t(i) ORDER BY i"))
}

func TestRegisterVFuncNullInput(t *testing.T) {
	_, conn := newTestConn(t)
	require.NoError(t, conn.RegisterVFunc("double_it", multiplier{}))

	res, err := conn.Query("SELECT double_it(CASE WHEN i % 2 = 0 THEN NULL ELSE i END) FROM range(4) t(i) ORDER BY i")
	require.NoError(t, err)
	defer res.Close()

	chunk, ok := res.NextChunk()
	require.True(t, ok)
	vec, err := chunk.Vector(0)
	require.NoError(t, err)
	require.Equal(t, 4, vec.Len())
	values, err := Values[int64](vec)
	require.NoError(t, err)

	assert.False(t, vec.IsValid(0))
	assert.Equal(t, int64(2), values[1])
	assert.False(t, vec.IsValid(2))
	assert.Equal(t, int64(6), values[3])
}

func TestRegisterVFuncWithExtraInfo(t *testing.T) {
	_, conn := newTestConn(t)

	factor := int64(10)
	released := 0
	err := RegisterVFuncWithExtraInfo(conn, "times_n", multiplier{}, &factor, func(f *int64) {
		assert.Equal(t, int64(10), *f)
		released++
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{10}, queryInt64s(t, conn, "SELECT times_n(1::BIGINT)"))
	assert.Equal(t, []int64{100}, queryInt64s(t, conn, "SELECT times_n(10::BIGINT)"))
	assert.Equal(t, 0, released, "extra info released while the function is registered")
}

func TestExtraInfoReleasedOnceOnClose(t *testing.T) {
	db, err := Open("")
	require.NoError(t, err)
	conn, err := db.Connect()
	require.NoError(t, err)

	factor := int64(3)
	var released atomic.Int32
	err = RegisterVFuncWithExtraInfo(conn, "times_n", multiplier{}, &factor, func(*int64) { released.Add(1) })
	require.NoError(t, err)
	assert.Equal(t, []int64{6}, queryInt64s(t, conn, "SELECT times_n(2::BIGINT)"))
	assert.Equal(t, int32(0), released.Load())

	conn.Close()
	db.Close()
	assert.Equal(t, int32(1), released.Load())

	// closing twice must not release again
	conn.Close()
	db.Close()
	assert.Equal(t, int32(1), released.Load())
}

func TestSetExtraInfoReplacesPrevious(t *testing.T) {
	f, err := NewScalarFunction()
	require.NoError(t, err)

	var first, second int
	a, b := 1, 2
	require.NoError(t, SetExtraInfo(f, &a, func(*int) { first++ }))
	require.NoError(t, SetExtraInfo(f, &b, func(*int) { second++ }))
	assert.Equal(t, 1, first, "previous extra info released on replace")
	assert.Equal(t, 0, second)

	f.Destroy()
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second, "destroy releases the current extra info")
}

func TestSetNameWithNUL(t *testing.T) {
	f, err := NewScalarFunction()
	require.NoError(t, err)
	defer f.Destroy()

	err = f.SetName("bad\x00name")
	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, 3, encErr.Offset)
	assert.Equal(t, "name", encErr.Field)

	_, conn := newTestConn(t)
	err = conn.RegisterVFunc("also\x00bad", multiplier{})
	require.ErrorAs(t, err, &encErr)
}

func TestRegisterIncompleteFunction(t *testing.T) {
	_, conn := newTestConn(t)

	tests := []struct {
		name    string
		setup   func(t *testing.T, f *ScalarFunction)
		missing string
	}{
		{
			name: "no function",
			setup: func(t *testing.T, f *ScalarFunction) {
				require.NoError(t, f.SetName("no_body"))
				require.NoError(t, withLogicalType(TypeBigInt, f.SetReturnType))
			},
			missing: "function",
		},
		{
			name: "no name",
			setup: func(t *testing.T, f *ScalarFunction) {
				require.NoError(t, withLogicalType(TypeBigInt, f.SetReturnType))
				require.NoError(t, f.SetFunction(multiplier{}.Func))
			},
			missing: "name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewScalarFunction()
			require.NoError(t, err)

			var released int
			v := 1
			require.NoError(t, SetExtraInfo(f, &v, func(*int) { released++ }))
			tt.setup(t, f)

			err = conn.RegisterScalarFunction(f)
			var engErr *EngineError
			require.ErrorAs(t, err, &engErr)
			assert.True(t, errors.Is(err, StateError))
			assert.Contains(t, engErr.Message, tt.missing)

			// still ours after a failed registration
			require.NoError(t, f.SetName("renamed"))
			assert.Equal(t, 0, released)

			f.Destroy()
			assert.Equal(t, 1, released)
			f.Destroy()
			assert.Equal(t, 1, released)
		})
	}
}

func TestDescriptorUnusableAfterRegister(t *testing.T) {
	_, conn := newTestConn(t)

	f, err := NewScalarFunction()
	require.NoError(t, err)
	require.NoError(t, f.SetName("once"))
	require.NoError(t, withLogicalType(TypeBigInt, f.AddParameter))
	require.NoError(t, withLogicalType(TypeBigInt, f.SetReturnType))
	require.NoError(t, f.SetFunction(multiplier{}.Func))
	require.NoError(t, conn.RegisterScalarFunction(f))

	assert.ErrorIs(t, conn.RegisterScalarFunction(f), ErrDescriptorReleased)
	assert.ErrorIs(t, f.SetName("again"), ErrDescriptorReleased)
	assert.ErrorIs(t, f.SetFunction(multiplier{}.Func), ErrDescriptorReleased)
	f.Destroy() // no-op

	assert.Equal(t, []int64{8}, queryInt64s(t, conn, "SELECT once(4::BIGINT)"))
}

func TestSetReturnTypeLastWins(t *testing.T) {
	_, conn := newTestConn(t)

	f, err := NewScalarFunction()
	require.NoError(t, err)
	defer f.Destroy()
	require.NoError(t, f.SetName("retyped"))
	require.NoError(t, withLogicalType(TypeBigInt, f.AddParameter))
	require.NoError(t, withLogicalType(TypeVarchar, f.SetReturnType))
	require.NoError(t, withLogicalType(TypeBigInt, f.SetReturnType))
	require.NoError(t, f.SetFunction(multiplier{}.Func))
	require.NoError(t, conn.RegisterScalarFunction(f))

	assert.Equal(t, "BIGINT", queryString(t, conn, "SELECT typeof(retyped(1::BIGINT))"))
}

func TestSetFunctionNil(t *testing.T) {
	f, err := NewScalarFunction()
	require.NoError(t, err)
	defer f.Destroy()
	assert.ErrorIs(t, f.SetFunction(nil), ErrNilFunction)

	_, conn := newTestConn(t)
	assert.ErrorIs(t, conn.RegisterVFunc("nothing", nil), ErrNilFunction)
}

func TestClosedLogicalTypeRejected(t *testing.T) {
	lt, err := NewLogicalType(TypeBigInt)
	require.NoError(t, err)
	assert.Equal(t, TypeBigInt, lt.ID())
	lt.Close()
	lt.Close()

	f, err := NewScalarFunction()
	require.NoError(t, err)
	defer f.Destroy()
	assert.ErrorIs(t, f.AddParameter(lt), ErrClosed)
	assert.ErrorIs(t, f.SetReturnType(lt), ErrClosed)

	_, err = NewLogicalType(TypeDecimal)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestTrampolineViewsExpire(t *testing.T) {
	_, conn := newTestConn(t)

	var calls int
	var kept []*Vector
	var names []string
	fn := funcOf(func(info *FunctionInfo, input *DataChunk, output *Vector) error {
		calls++
		names = append(names, info.Name())
		col, err := input.Vector(0)
		if err != nil {
			return err
		}
		kept = append(kept, col, output)
		return multiplier{}.Func(info, input, output)
	})
	require.NoError(t, conn.RegisterVFunc("spy", fn))

	assert.Equal(t, []int64{0, 2, 4}, queryInt64s(t, conn, "SELECT spy(i) FROM range(3) t(i) ORDER BY i"))
	assert.Equal(t, []int64{0, 2, 4}, queryInt64s(t, conn, "SELECT spy(i) FROM range(3) t(i) ORDER BY i"))

	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{"spy", "spy"}, names)
	require.Len(t, kept, 4)
	assert.NotSame(t, kept[0], kept[2])
	for _, v := range kept {
		_, err := Values[int64](v)
		assert.ErrorIs(t, err, ErrViewExpired)
		assert.Equal(t, 0, v.Len())
		assert.ErrorIs(t, v.SetNull(0), ErrViewExpired)
	}
}

func TestFunctionErrorFailsQuery(t *testing.T) {
	_, conn := newTestConn(t)

	fn := funcOf(func(*FunctionInfo, *DataChunk, *Vector) error {
		return fmt.Errorf("value out of range for fixture")
	})
	require.NoError(t, conn.RegisterVFunc("always_fails", fn))

	_, err := conn.Query("SELECT always_fails(i) FROM range(3) t(i)")
	var engErr *EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Contains(t, engErr.Message, "value out of range for fixture")

	// the connection survives a failed invocation
	require.NoError(t, conn.RegisterVFunc("double_it", multiplier{}))
	assert.Equal(t, []int64{2}, queryInt64s(t, conn, "SELECT double_it(1::BIGINT)"))
}

func TestFunctionPanicFailsQuery(t *testing.T) {
	_, conn := newTestConn(t)

	fn := funcOf(func(*FunctionInfo, *DataChunk, *Vector) error {
		panic("boom")
	})
	require.NoError(t, conn.RegisterVFunc("panics", fn))

	_, err := conn.Query("SELECT panics(i) FROM range(3) t(i)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in panics: boom")
}

func TestValuesTypeMismatch(t *testing.T) {
	_, conn := newTestConn(t)

	fn := funcOf(func(_ *FunctionInfo, input *DataChunk, _ *Vector) error {
		col, err := input.Vector(0)
		if err != nil {
			return err
		}
		_, err = Values[int32](col)
		return err
	})
	require.NoError(t, conn.RegisterVFunc("wrong_width", fn))

	_, err := conn.Query("SELECT wrong_width(i) FROM range(2) t(i)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type mismatch")
	assert.Contains(t, err.Error(), "BIGINT")
}

func TestVectorBounds(t *testing.T) {
	_, conn := newTestConn(t)

	var colErr, rowErr error
	fn := funcOf(func(info *FunctionInfo, input *DataChunk, output *Vector) error {
		_, colErr = input.Vector(5)
		rowErr = output.SetNull(output.Len())
		return multiplier{}.Func(info, input, output)
	})
	require.NoError(t, conn.RegisterVFunc("bounds", fn))
	queryInt64s(t, conn, "SELECT bounds(i) FROM range(2) t(i)")

	assert.ErrorIs(t, colErr, ErrColumnOutOfRange)
	assert.ErrorIs(t, rowErr, ErrRowOutOfRange)
}

// shout upper-cases its VARCHAR argument
type shout struct{}

func (shout) Func(_ *FunctionInfo, input *DataChunk, output *Vector) error {
	col, err := input.Vector(0)
	if err != nil {
		return err
	}
	for row := 0; row < col.Len(); row++ {
		if !col.IsValid(row) {
			if err := output.SetNull(row); err != nil {
				return err
			}
			continue
		}
		s, err := col.String(row)
		if err != nil {
			return err
		}
		if err := output.SetString(row, strings.ToUpper(s)+"!"); err != nil {
			return err
		}
	}
	return nil
}

func (shout) ReturnType() TypeID   { return TypeVarchar }
func (shout) Parameters() []TypeID { return []TypeID{TypeVarchar} }

func TestVarcharFunction(t *testing.T) {
	_, conn := newTestConn(t)
	require.NoError(t, conn.RegisterVFunc("shout", shout{}))

	assert.Equal(t, "HELLO!", queryString(t, conn, "SELECT shout('hello')"))

	// longer than the inlined string size
	long := strings.Repeat("quack", 10)
	assert.Equal(t, strings.ToUpper(long)+"!", queryString(t, conn, fmt.Sprintf("SELECT shout('%s')", long)))
}

func TestConnClosed(t *testing.T) {
	db, conn := newTestConn(t)
	conn.Close()

	assert.ErrorIs(t, conn.Exec("SELECT 1"), ErrClosed)
	assert.ErrorIs(t, conn.RegisterVFunc("late", multiplier{}), ErrClosed)

	db.Close()
	_, err := db.Connect()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenWithSettings(t *testing.T) {
	db, err := Open("", WithSetting("threads", "1"), WithSetting("access_mode", "READ_WRITE"))
	require.NoError(t, err)
	defer db.Close()
	conn, err := db.Connect()
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "1", queryString(t, conn, "SELECT current_setting('threads')::VARCHAR"))

	_, err = Open("", WithSetting("no_such_setting", "1"))
	var engErr *EngineError
	assert.ErrorAs(t, err, &engErr)

	_, err = Open("", WithSetting("threads", "1\x00"))
	var encErr *EncodingError
	assert.ErrorAs(t, err, &encErr)
}

func TestQueryError(t *testing.T) {
	_, conn := newTestConn(t)
	_, err := conn.Query("SELECT * FROM no_such_table")
	var engErr *EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, "query", engErr.Op)
	assert.Contains(t, engErr.Message, "no_such_table")
}

// answer takes no arguments and always returns 42
type answer struct{}

func (answer) Func(_ *FunctionInfo, input *DataChunk, output *Vector) error {
	if n := input.ColumnCount(); n != 0 {
		return fmt.Errorf("expected no input columns, got %d", n)
	}
	dst, err := Values[int64](output)
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = 42
	}
	return nil
}

func (answer) ReturnType() TypeID   { return TypeBigInt }
func (answer) Parameters() []TypeID { return nil }

func TestRegisterZeroArity(t *testing.T) {
	_, conn := newTestConn(t)
	require.NoError(t, conn.RegisterVFunc("answer", answer{}))

	assert.Equal(t, []int64{42, 42, 42}, queryInt64s(t, conn, "SELECT answer() FROM range(3) t(i)"))
	assert.Equal(t, []int64{42}, queryInt64s(t, conn, "SELECT answer()"))
}

func TestRegisterDuplicateName(t *testing.T) {
	db, err := Open("")
	require.NoError(t, err)
	conn, err := db.Connect()
	require.NoError(t, err)

	first, second := int64(3), int64(5)
	var releasedFirst, releasedSecond int
	require.NoError(t, RegisterVFuncWithExtraInfo(conn, "times_n", multiplier{}, &first, func(*int64) { releasedFirst++ }))

	err = RegisterVFuncWithExtraInfo(conn, "times_n", multiplier{}, &second, func(*int64) { releasedSecond++ })
	var engErr *EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, 0, releasedFirst)
	assert.Equal(t, 1, releasedSecond, "rejected function releases its extra info on abort")

	assert.Equal(t, []int64{6}, queryInt64s(t, conn, "SELECT times_n(2::BIGINT)"), "first registration still serves")

	conn.Close()
	db.Close()
	assert.Equal(t, 1, releasedFirst)
	assert.Equal(t, 1, releasedSecond)
}

func TestViewsCachedPerColumn(t *testing.T) {
	_, conn := newTestConn(t)

	var same bool
	var keptInfo *FunctionInfo
	var namesDuring string
	fn := funcOf(func(info *FunctionInfo, input *DataChunk, output *Vector) error {
		keptInfo = info
		namesDuring = info.Name()
		a, err := input.Vector(0)
		if err != nil {
			return err
		}
		for row := 0; row < a.Len(); row++ {
			b, err := input.Vector(0)
			if err != nil {
				return err
			}
			same = a == b
		}
		return multiplier{}.Func(info, input, output)
	})
	require.NoError(t, conn.RegisterVFunc("cached", fn))
	assert.Equal(t, []int64{0, 2, 4}, queryInt64s(t, conn, "SELECT cached(i) FROM range(3) t(i) ORDER BY i"))

	assert.True(t, same, "one view per column")
	assert.Equal(t, "cached", namesDuring)
	require.NotNil(t, keptInfo)
	assert.Equal(t, "", keptInfo.Name(), "expired info has no name")
	assert.Nil(t, keptInfo.ExtraInfo())
}
