package duckdb

/*
#cgo CFLAGS: -I${SRCDIR}/../third_party/duckdb
#cgo LDFLAGS: -L${SRCDIR}/../third_party/duckdb -lduckdb -Wl,-rpath,${SRCDIR}/../third_party/duckdb
#include <duckdb.h>
#include <stdlib.h>

// Defined in trampoline_wrappers.go
void c_scalar_function(duckdb_function_info info, duckdb_data_chunk input, duckdb_vector output);
void c_delete_function_binding(void *data);
*/
import "C"
import (
	"fmt"
	"runtime/cgo"
	"strings"
	"unsafe"

	"github.com/go-pkgz/lgr"

	"github.com/vfunc-dev/duckdb-vfunc-go/internal"
)

// ScalarFunction is a scalar function descriptor being built for
// registration. It is owned by the caller until RegisterScalarFunction
// succeeds. On any other path the caller must call Destroy.
//
// Setters may be called in any order. A descriptor can be registered once.
type ScalarFunction struct {
	h        *internal.Handle
	binding  *functionBinding
	params   int
	returns  bool
	attached bool
}

// NewScalarFunction creates an empty descriptor
func NewScalarFunction() (*ScalarFunction, error) {
	f := C.duckdb_create_scalar_function()
	if f == nil {
		return nil, &EngineError{Op: "create scalar function", Code: internal.StateError}
	}
	return &ScalarFunction{
		h:       internal.NewOwned(unsafe.Pointer(f)),
		binding: &functionBinding{log: lgr.NoOp},
	}, nil
}

func (f *ScalarFunction) data() C.duckdb_scalar_function {
	return C.duckdb_scalar_function(f.h.Ptr())
}

func (f *ScalarFunction) check() error {
	if f == nil || f.h.Ownership() != internal.Owned {
		return ErrDescriptorReleased
	}
	return nil
}

// SetName sets the SQL name of the function
func (f *ScalarFunction) SetName(name string) error {
	if err := f.check(); err != nil {
		return err
	}
	if err := internal.CheckCString("name", name); err != nil {
		return err
	}

	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	C.duckdb_scalar_function_set_name(f.data(), cName)
	f.binding.name = name
	return nil
}

// AddParameter appends a parameter type. The order of calls is the order
// of the input chunk's columns. The type is borrowed, the caller still
// has to close it.
func (f *ScalarFunction) AddParameter(t *LogicalType) error {
	if err := f.check(); err != nil {
		return err
	}
	if !t.live() {
		return fmt.Errorf("add parameter: %w", ErrClosed)
	}
	C.duckdb_scalar_function_add_parameter(f.data(), t.data())
	f.params++
	return nil
}

// SetReturnType sets the return type, the last call wins. The type is
// borrowed, the caller still has to close it.
func (f *ScalarFunction) SetReturnType(t *LogicalType) error {
	if err := f.check(); err != nil {
		return err
	}
	if !t.live() {
		return fmt.Errorf("set return type: %w", ErrClosed)
	}
	C.duckdb_scalar_function_set_return_type(f.data(), t.data())
	f.returns = true
	return nil
}

// SetFunction sets the Go function invoked for every input chunk
func (f *ScalarFunction) SetFunction(fn ScalarFunc) error {
	if err := f.check(); err != nil {
		return err
	}
	if fn == nil {
		return ErrNilFunction
	}
	f.binding.fn = fn
	f.attach()
	C.duckdb_scalar_function_set_function(f.data(), (*[0]byte)(C.c_scalar_function))
	return nil
}

// SetExtraInfo attaches auxiliary data to the function. release is called
// exactly once, when the engine drops the function or the descriptor is
// destroyed. Setting it again releases the previous data right away.
//
// The data is shared by every invocation, possibly from several engine
// threads at once; guarding it is up to the caller.
func SetExtraInfo[T any](f *ScalarFunction, data *T, release func(*T)) error {
	if err := f.check(); err != nil {
		return err
	}
	if f.binding.extra != nil {
		f.binding.extra.release()
	}
	f.binding.extra = &extraInfo[T]{data: data, free: release}
	f.attach()
	return nil
}

// attach hands the binding to the engine as extra_info, once per descriptor
func (f *ScalarFunction) attach() {
	if f.attached {
		return
	}

	handle := cgo.NewHandle(f.binding)
	handlePtr := C.malloc(C.sizeof_uintptr_t)
	*(*C.uintptr_t)(handlePtr) = C.uintptr_t(handle)

	C.duckdb_scalar_function_set_extra_info(f.data(), handlePtr, (*[0]byte)(C.c_delete_function_binding))
	f.attached = true
}

// Destroy releases a descriptor that was not registered. It is a no-op
// after a successful registration.
func (f *ScalarFunction) Destroy() {
	if f == nil {
		return
	}
	f.h.Free(func(p unsafe.Pointer) {
		sf := C.duckdb_scalar_function(p)
		C.duckdb_destroy_scalar_function(&sf)
	})
}

// RegisterScalarFunction registers f on the connection's database. On
// success the engine owns the function, its extra info is released when
// the engine drops it. On failure f is still owned by the caller.
func (c *Conn) RegisterScalarFunction(f *ScalarFunction) error {
	if !c.h.Live() {
		return ErrClosed
	}
	if err := f.check(); err != nil {
		return err
	}

	f.binding.log = c.log
	name := f.binding.name
	err := f.h.Transfer(func(p unsafe.Pointer) error {
		sf := C.duckdb_scalar_function(p)
		if C.duckdb_register_scalar_function(c.data(), sf) == C.DuckDBError {
			return &EngineError{Op: fmt.Sprintf("register scalar function %q", name), Code: internal.StateError, Message: f.diagnose()}
		}
		// the catalog keeps its own copy, the builder is still ours
		C.duckdb_destroy_scalar_function(&sf)
		return nil
	})
	if err != nil {
		c.log.Logf("[WARN] %v", err)
		return err
	}

	c.log.Logf("[DEBUG] registered scalar function %q with %d parameters", name, f.params)
	return nil
}

// diagnose explains a rejected registration from what is known locally
func (f *ScalarFunction) diagnose() string {
	var missing []string
	if f.binding.name == "" {
		missing = append(missing, "name")
	}
	if !f.returns {
		missing = append(missing, "return type")
	}
	if f.binding.fn == nil {
		missing = append(missing, "function")
	}
	if len(missing) == 0 {
		return ""
	}
	return "missing " + strings.Join(missing, ", ")
}
