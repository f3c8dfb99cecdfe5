package sub

// #include <duckdb.h>
import "C"

func register() {
	f := C.duckdb_create_scalar_function()
	_ = f
	// duckdb_close is mentioned here as well
}
