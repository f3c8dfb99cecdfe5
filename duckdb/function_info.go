package duckdb

/*
#cgo CFLAGS: -I${SRCDIR}/../third_party/duckdb
#cgo LDFLAGS: -L${SRCDIR}/../third_party/duckdb -lduckdb -Wl,-rpath,${SRCDIR}/../third_party/duckdb
#include <duckdb.h>
#include <stdlib.h>
*/
import "C"
import (
	"unsafe"

	"github.com/vfunc-dev/duckdb-vfunc-go/internal"
)

// FunctionInfo is the per-call view over duckdb_function_info
type FunctionInfo struct {
	h       *internal.Handle
	binding *functionBinding
}

func (fi *FunctionInfo) data() C.duckdb_function_info {
	return C.duckdb_function_info(fi.h.Ptr())
}

// Name returns the registered name of the running function, empty once
// the view expired
func (fi *FunctionInfo) Name() string {
	if !fi.h.Live() || fi.binding == nil {
		return ""
	}
	return fi.binding.name
}

// ExtraInfo returns the auxiliary data attached with SetExtraInfo, nil if none
func (fi *FunctionInfo) ExtraInfo() any {
	if !fi.h.Live() || fi.binding == nil || fi.binding.extra == nil {
		return nil
	}
	return fi.binding.extra.value()
}

// ExtraInfoAs returns the auxiliary data as *T
func ExtraInfoAs[T any](fi *FunctionInfo) (*T, bool) {
	data, ok := fi.ExtraInfo().(*T)
	return data, ok
}

// SetError fails the current invocation with msg. Bytes after a NUL in
// msg are dropped by the engine.
func (fi *FunctionInfo) SetError(msg string) {
	if !fi.h.Live() {
		return
	}
	cMsg := C.CString(msg)
	defer C.free(unsafe.Pointer(cMsg))
	C.duckdb_scalar_function_set_error(fi.data(), cMsg)
}
