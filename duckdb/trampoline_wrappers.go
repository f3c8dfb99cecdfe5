package duckdb

// C entry points handed to the engine. They live in their own file because
// a cgo preamble can't define C functions next to //export directives.

/*
#cgo CFLAGS: -I${SRCDIR}/../third_party/duckdb
#include <duckdb.h>

extern void goScalarFunction(duckdb_function_info info, duckdb_data_chunk input, duckdb_vector output);
extern void goDeleteFunctionBinding(void *data);

void c_scalar_function(duckdb_function_info info, duckdb_data_chunk input, duckdb_vector output) {
    goScalarFunction(info, input, output);
}

void c_delete_function_binding(void *data) {
    goDeleteFunctionBinding(data);
}
*/
import "C"
