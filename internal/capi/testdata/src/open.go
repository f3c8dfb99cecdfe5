package src

// #include <duckdb.h>
import "C"

func open() {
	C.duckdb_open(nil, nil)
	C.duckdb_close(nil) ; C.duckdb_close(nil)
}
