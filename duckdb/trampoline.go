package duckdb

/*
#cgo CFLAGS: -I${SRCDIR}/../third_party/duckdb
#cgo LDFLAGS: -L${SRCDIR}/../third_party/duckdb -lduckdb -Wl,-rpath,${SRCDIR}/../third_party/duckdb
#include <duckdb.h>
#include <stdlib.h>
*/
import "C"
import (
	"runtime/cgo"
	"unsafe"

	"github.com/vfunc-dev/duckdb-vfunc-go/internal"
)

// Go callbacks called from the C wrappers in trampoline_wrappers.go

//export goScalarFunction
func goScalarFunction(info C.duckdb_function_info, input C.duckdb_data_chunk, output C.duckdb_vector) {
	fi := &FunctionInfo{h: internal.NewBorrowed(unsafe.Pointer(info))}
	in := &DataChunk{h: internal.NewBorrowed(unsafe.Pointer(input))}
	out := &Vector{h: internal.NewBorrowed(unsafe.Pointer(output)), size: in.Size()}

	fi.binding = bindingOf(C.duckdb_scalar_function_get_extra_info(info))
	if fi.binding == nil || fi.binding.fn == nil {
		fi.SetError("scalar function has no Go implementation bound")
		fi.h.Expire()
		return
	}

	err := fi.binding.call(fi, in, out)

	// views die with the call, whatever the function kept
	in.expire()
	out.h.Expire()
	if err != nil {
		fi.SetError(err.Error())
	}
	fi.h.Expire()
}

//export goDeleteFunctionBinding
func goDeleteFunctionBinding(data unsafe.Pointer) {
	if data == nil {
		return
	}
	handle := cgo.Handle(*(*C.uintptr_t)(data))
	if b, ok := handle.Value().(*functionBinding); ok {
		b.drop()
	}
	handle.Delete()
	C.free(data)
}

func bindingOf(extra unsafe.Pointer) *functionBinding {
	if extra == nil {
		return nil
	}
	handle := cgo.Handle(*(*C.uintptr_t)(extra))
	b, _ := handle.Value().(*functionBinding)
	return b
}
