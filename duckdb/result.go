package duckdb

/*
#cgo CFLAGS: -I${SRCDIR}/../third_party/duckdb
#cgo LDFLAGS: -L${SRCDIR}/../third_party/duckdb -lduckdb -Wl,-rpath,${SRCDIR}/../third_party/duckdb
#include <duckdb.h>
*/
import "C"
import (
	"unsafe"

	"github.com/vfunc-dev/duckdb-vfunc-go/internal"
)

// Result is a query result read chunk by chunk
type Result struct {
	res    C.duckdb_result
	chunk  *DataChunk
	closed bool
}

// ColumnCount returns the number of result columns
func (r *Result) ColumnCount() int {
	if r.closed {
		return 0
	}
	return int(C.duckdb_column_count(&r.res))
}

// ColumnName returns the name of column col
func (r *Result) ColumnName(col int) string {
	if r.closed || col < 0 || col >= r.ColumnCount() {
		return ""
	}
	return C.GoString(C.duckdb_column_name(&r.res, C.idx_t(col)))
}

// ColumnType returns the type of column col
func (r *Result) ColumnType(col int) TypeID {
	if r.closed || col < 0 || col >= r.ColumnCount() {
		return TypeInvalid
	}
	return TypeID(C.duckdb_column_type(&r.res, C.idx_t(col)))
}

// NextChunk fetches the next chunk of rows. The previous chunk is released,
// so a chunk must not be used after the next call or after Close.
func (r *Result) NextChunk() (*DataChunk, bool) {
	if r.closed {
		return nil, false
	}
	r.releaseChunk()

	ch := C.duckdb_fetch_chunk(r.res)
	if ch == nil {
		return nil, false
	}
	r.chunk = &DataChunk{h: internal.NewOwned(unsafe.Pointer(ch))}
	return r.chunk, true
}

func (r *Result) releaseChunk() {
	if r.chunk == nil {
		return
	}
	r.chunk.destroy()
	r.chunk = nil
}

// Close releases the result and its current chunk
func (r *Result) Close() {
	if r == nil || r.closed {
		return
	}
	r.releaseChunk()
	C.duckdb_destroy_result(&r.res)
	r.closed = true
}
