package duckdb

/*
#cgo CFLAGS: -I${SRCDIR}/../third_party/duckdb
#cgo LDFLAGS: -L${SRCDIR}/../third_party/duckdb -lduckdb -Wl,-rpath,${SRCDIR}/../third_party/duckdb
#include <duckdb.h>
#include <stdlib.h>
*/
import "C"
import (
	"fmt"
	"unsafe"

	"github.com/vfunc-dev/duckdb-vfunc-go/internal"
)

// DataChunk is a view over a duckdb_data_chunk. Chunks handed to a scalar
// function are borrowed from the engine and expire when the call returns.
type DataChunk struct {
	h       *internal.Handle
	vectors map[int]*Vector // views handed out, one per column
}

func (c *DataChunk) data() C.duckdb_data_chunk {
	return C.duckdb_data_chunk(c.h.Ptr())
}

// ColumnCount returns the number of vectors in the chunk
func (c *DataChunk) ColumnCount() int {
	if !c.h.Live() {
		return 0
	}
	return int(C.duckdb_data_chunk_get_column_count(c.data()))
}

// Size returns the number of rows in the chunk
func (c *DataChunk) Size() int {
	if !c.h.Live() {
		return 0
	}
	return int(C.duckdb_data_chunk_get_size(c.data()))
}

// Vector returns the column vector col
func (c *DataChunk) Vector(col int) (*Vector, error) {
	if !c.h.Live() {
		return nil, ErrViewExpired
	}
	if n := c.ColumnCount(); col < 0 || col >= n {
		return nil, fmt.Errorf("%w: %d of %d", ErrColumnOutOfRange, col, n)
	}
	if vec, ok := c.vectors[col]; ok {
		return vec, nil
	}
	v := C.duckdb_data_chunk_get_vector(c.data(), C.idx_t(col))
	vec := &Vector{h: internal.NewBorrowed(unsafe.Pointer(v)), size: c.Size()}
	if c.vectors == nil {
		c.vectors = map[int]*Vector{}
	}
	c.vectors[col] = vec
	return vec, nil
}

func (c *DataChunk) expire() {
	for _, v := range c.vectors {
		v.h.Expire()
	}
	c.vectors = nil
	c.h.Expire()
}

// destroy releases a chunk owned by a Result
func (c *DataChunk) destroy() {
	for _, v := range c.vectors {
		v.h.Expire()
	}
	c.vectors = nil
	c.h.Free(func(p unsafe.Pointer) {
		ch := C.duckdb_data_chunk(p)
		C.duckdb_destroy_data_chunk(&ch)
	})
}

// Vector is a borrowed view over a duckdb_vector, never owned by Go
type Vector struct {
	h    *internal.Handle
	size int
}

func (v *Vector) data() C.duckdb_vector {
	return C.duckdb_vector(v.h.Ptr())
}

// Len returns the number of rows addressable through the view
func (v *Vector) Len() int {
	if !v.h.Live() {
		return 0
	}
	return v.size
}

// Type returns the type id of the vector's column
func (v *Vector) Type() TypeID {
	if !v.h.Live() {
		return TypeInvalid
	}
	lt := C.duckdb_vector_get_column_type(v.data())
	defer C.duckdb_destroy_logical_type(&lt)
	return TypeID(C.duckdb_get_type_id(lt))
}

// IsValid reports whether row holds a non-NULL value
func (v *Vector) IsValid(row int) bool {
	if !v.h.Live() || row < 0 || row >= v.size {
		return false
	}
	validity := C.duckdb_vector_get_validity(v.data())
	if validity == nil {
		return true
	}
	return bool(C.duckdb_validity_row_is_valid(validity, C.idx_t(row)))
}

// SetNull marks row as NULL
func (v *Vector) SetNull(row int) error {
	if err := v.checkRow(row); err != nil {
		return err
	}
	C.duckdb_vector_ensure_validity_writable(v.data())
	validity := C.duckdb_vector_get_validity(v.data())
	C.duckdb_validity_set_row_invalid(validity, C.idx_t(row))
	return nil
}

// String reads a VARCHAR or BLOB value
func (v *Vector) String(row int) (string, error) {
	if err := v.checkRow(row); err != nil {
		return "", err
	}
	if t := v.Type(); t != TypeVarchar && t != TypeBlob {
		return "", fmt.Errorf("%w: vector is %s, requested VARCHAR", ErrTypeMismatch, t)
	}
	strs := unsafe.Slice((*C.duckdb_string_t)(C.duckdb_vector_get_data(v.data())), v.size)
	s := &strs[row]
	return C.GoStringN(C.duckdb_string_t_data(s), C.int(C.duckdb_string_t_length(*s))), nil
}

// SetString writes a VARCHAR or BLOB value, the engine copies s
func (v *Vector) SetString(row int, s string) error {
	if err := v.checkRow(row); err != nil {
		return err
	}
	if t := v.Type(); t != TypeVarchar && t != TypeBlob {
		return fmt.Errorf("%w: vector is %s, writing VARCHAR", ErrTypeMismatch, t)
	}
	cs := C.CString(s)
	defer C.free(unsafe.Pointer(cs))
	C.duckdb_vector_assign_string_element_len(v.data(), C.idx_t(row), cs, C.idx_t(len(s)))
	return nil
}

func (v *Vector) checkRow(row int) error {
	if !v.h.Live() {
		return ErrViewExpired
	}
	if row < 0 || row >= v.size {
		return fmt.Errorf("%w: %d of %d", ErrRowOutOfRange, row, v.size)
	}
	return nil
}

// Primitive lists the Go types with the same memory layout as a fixed
// width engine type
type Primitive interface {
	bool | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

func typeIDOf[T Primitive]() TypeID {
	var zero T
	switch any(zero).(type) {
	case bool:
		return TypeBoolean
	case int8:
		return TypeTinyInt
	case int16:
		return TypeSmallInt
	case int32:
		return TypeInteger
	case int64:
		return TypeBigInt
	case uint8:
		return TypeUTinyInt
	case uint16:
		return TypeUSmallInt
	case uint32:
		return TypeUInteger
	case uint64:
		return TypeUBigInt
	case float32:
		return TypeFloat
	case float64:
		return TypeDouble
	}
	return TypeInvalid
}

// Values returns the vector's data as a slice of T without copying.
// Writes go straight to the engine's buffer. The slice must not be kept
// after the view expires.
func Values[T Primitive](v *Vector) ([]T, error) {
	if !v.h.Live() {
		return nil, ErrViewExpired
	}
	if want, got := typeIDOf[T](), v.Type(); want != got {
		return nil, fmt.Errorf("%w: vector is %s, requested %s", ErrTypeMismatch, got, want)
	}
	if v.size == 0 {
		return []T{}, nil
	}
	ptr := C.duckdb_vector_get_data(v.data())
	if ptr == nil {
		return []T{}, nil
	}
	return unsafe.Slice((*T)(ptr), v.size), nil
}
