// Package duckdb lets Go code register scalar functions with an embedded
// DuckDB engine through its C API.
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
	"sort"
	"unsafe"

	"github.com/go-pkgz/lgr"

	"github.com/vfunc-dev/duckdb-vfunc-go/internal"
)

// Option configures a Database
type Option func(o *options)

type options struct {
	settings map[string]string
	logger   lgr.L
}

// WithSetting passes a configuration option to the engine, e.g. threads=4
func WithSetting(name, value string) Option {
	return func(o *options) {
		o.settings[name] = value
	}
}

// WithLogger sets the logger used by the database and everything registered on it
func WithLogger(l lgr.L) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Database is an open engine instance
type Database struct {
	h   *internal.Handle
	log lgr.L
}

// Open opens a database at path, an empty path opens an in-memory database
func Open(path string, opts ...Option) (*Database, error) {
	o := options{settings: map[string]string{}, logger: lgr.NoOp}
	for _, opt := range opts {
		opt(&o)
	}
	if err := internal.CheckCString("path", path); err != nil {
		return nil, err
	}

	config, err := newConfig(o.settings)
	if err != nil {
		return nil, err
	}
	defer C.duckdb_destroy_config(&config)

	var cPath *C.char
	if path != "" {
		cPath = C.CString(path)
		defer C.free(unsafe.Pointer(cPath))
	}

	var db C.duckdb_database
	var cErr *C.char
	if C.duckdb_open_ext(cPath, &db, config, &cErr) == C.DuckDBError {
		msg := ""
		if cErr != nil {
			msg = C.GoString(cErr)
			C.duckdb_free(unsafe.Pointer(cErr))
		}
		return nil, &EngineError{Op: fmt.Sprintf("open %q", path), Code: internal.StateError, Message: msg}
	}

	o.logger.Logf("[DEBUG] opened database %q with %d settings", path, len(o.settings))
	return &Database{h: internal.NewOwned(unsafe.Pointer(db)), log: o.logger}, nil
}

func newConfig(settings map[string]string) (C.duckdb_config, error) {
	var config C.duckdb_config
	if C.duckdb_create_config(&config) == C.DuckDBError {
		return nil, &EngineError{Op: "create config", Code: internal.StateError}
	}

	names := make([]string, 0, len(settings))
	for name := range settings {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := settings[name]
		if err := internal.CheckCString("setting name", name); err != nil {
			C.duckdb_destroy_config(&config)
			return nil, err
		}
		if err := internal.CheckCString("setting value", value); err != nil {
			C.duckdb_destroy_config(&config)
			return nil, err
		}

		cName := C.CString(name)
		cValue := C.CString(value)
		state := C.duckdb_set_config(config, cName, cValue)
		C.free(unsafe.Pointer(cName))
		C.free(unsafe.Pointer(cValue))

		if state == C.DuckDBError {
			C.duckdb_destroy_config(&config)
			return nil, &EngineError{Op: "set config", Code: internal.StateError, Message: fmt.Sprintf("%s=%s", name, value)}
		}
	}
	return config, nil
}

func (db *Database) data() C.duckdb_database {
	return C.duckdb_database(db.h.Ptr())
}

// Connect opens a new connection to the database
func (db *Database) Connect() (*Conn, error) {
	if !db.h.Live() {
		return nil, ErrClosed
	}
	var con C.duckdb_connection
	if C.duckdb_connect(db.data(), &con) == C.DuckDBError {
		return nil, &EngineError{Op: "connect", Code: internal.StateError}
	}
	return &Conn{h: internal.NewOwned(unsafe.Pointer(con)), log: db.log}, nil
}

// Close releases the database. Registered functions, and their extra
// info, are dropped once the last connection is closed as well.
func (db *Database) Close() {
	db.h.Free(func(p unsafe.Pointer) {
		d := C.duckdb_database(p)
		C.duckdb_close(&d)
	})
}

// Conn is a connection to a Database. It is not safe to close a Conn
// while another goroutine uses it.
type Conn struct {
	h   *internal.Handle
	log lgr.L
}

func (c *Conn) data() C.duckdb_connection {
	return C.duckdb_connection(c.h.Ptr())
}

// Exec runs a statement and discards its result
func (c *Conn) Exec(query string) error {
	res, err := c.Query(query)
	if err != nil {
		return err
	}
	res.Close()
	return nil
}

// Query runs a statement and returns its materialized result
func (c *Conn) Query(query string) (*Result, error) {
	if !c.h.Live() {
		return nil, ErrClosed
	}
	if err := internal.CheckCString("query", query); err != nil {
		return nil, err
	}

	cQuery := C.CString(query)
	defer C.free(unsafe.Pointer(cQuery))

	res := &Result{}
	if C.duckdb_query(c.data(), cQuery, &res.res) == C.DuckDBError {
		msg := C.GoString(C.duckdb_result_error(&res.res))
		C.duckdb_destroy_result(&res.res)
		return nil, &EngineError{Op: "query", Code: internal.StateError, Message: msg}
	}
	return res, nil
}

// Close disconnects
func (c *Conn) Close() {
	c.h.Free(func(p unsafe.Pointer) {
		con := C.duckdb_connection(p)
		C.duckdb_disconnect(&con)
	})
}
