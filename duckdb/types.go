package duckdb

/*
#cgo CFLAGS: -I${SRCDIR}/../third_party/duckdb
#cgo LDFLAGS: -L${SRCDIR}/../third_party/duckdb -lduckdb -Wl,-rpath,${SRCDIR}/../third_party/duckdb
#include <duckdb.h>
*/
import "C"
import (
	"fmt"
	"unsafe"

	"github.com/vfunc-dev/duckdb-vfunc-go/internal"
)

// TypeID mirrors duckdb_type
type TypeID int

const (
	TypeInvalid     TypeID = C.DUCKDB_TYPE_INVALID
	TypeBoolean     TypeID = C.DUCKDB_TYPE_BOOLEAN
	TypeTinyInt     TypeID = C.DUCKDB_TYPE_TINYINT
	TypeSmallInt    TypeID = C.DUCKDB_TYPE_SMALLINT
	TypeInteger     TypeID = C.DUCKDB_TYPE_INTEGER
	TypeBigInt      TypeID = C.DUCKDB_TYPE_BIGINT
	TypeUTinyInt    TypeID = C.DUCKDB_TYPE_UTINYINT
	TypeUSmallInt   TypeID = C.DUCKDB_TYPE_USMALLINT
	TypeUInteger    TypeID = C.DUCKDB_TYPE_UINTEGER
	TypeUBigInt     TypeID = C.DUCKDB_TYPE_UBIGINT
	TypeFloat       TypeID = C.DUCKDB_TYPE_FLOAT
	TypeDouble      TypeID = C.DUCKDB_TYPE_DOUBLE
	TypeTimestamp   TypeID = C.DUCKDB_TYPE_TIMESTAMP
	TypeDate        TypeID = C.DUCKDB_TYPE_DATE
	TypeTime        TypeID = C.DUCKDB_TYPE_TIME
	TypeInterval    TypeID = C.DUCKDB_TYPE_INTERVAL
	TypeHugeInt     TypeID = C.DUCKDB_TYPE_HUGEINT
	TypeUHugeInt    TypeID = C.DUCKDB_TYPE_UHUGEINT
	TypeVarchar     TypeID = C.DUCKDB_TYPE_VARCHAR
	TypeBlob        TypeID = C.DUCKDB_TYPE_BLOB
	TypeDecimal     TypeID = C.DUCKDB_TYPE_DECIMAL
	TypeTimestampS  TypeID = C.DUCKDB_TYPE_TIMESTAMP_S
	TypeTimestampMS TypeID = C.DUCKDB_TYPE_TIMESTAMP_MS
	TypeTimestampNS TypeID = C.DUCKDB_TYPE_TIMESTAMP_NS
	TypeEnum        TypeID = C.DUCKDB_TYPE_ENUM
	TypeList        TypeID = C.DUCKDB_TYPE_LIST
	TypeStruct      TypeID = C.DUCKDB_TYPE_STRUCT
	TypeMap         TypeID = C.DUCKDB_TYPE_MAP
	TypeArray       TypeID = C.DUCKDB_TYPE_ARRAY
	TypeUUID        TypeID = C.DUCKDB_TYPE_UUID
	TypeUnion       TypeID = C.DUCKDB_TYPE_UNION
	TypeBit         TypeID = C.DUCKDB_TYPE_BIT
	TypeTimeTZ      TypeID = C.DUCKDB_TYPE_TIME_TZ
	TypeTimestampTZ TypeID = C.DUCKDB_TYPE_TIMESTAMP_TZ
)

var typeNames = map[TypeID]string{
	TypeInvalid:     "INVALID",
	TypeBoolean:     "BOOLEAN",
	TypeTinyInt:     "TINYINT",
	TypeSmallInt:    "SMALLINT",
	TypeInteger:     "INTEGER",
	TypeBigInt:      "BIGINT",
	TypeUTinyInt:    "UTINYINT",
	TypeUSmallInt:   "USMALLINT",
	TypeUInteger:    "UINTEGER",
	TypeUBigInt:     "UBIGINT",
	TypeFloat:       "FLOAT",
	TypeDouble:      "DOUBLE",
	TypeTimestamp:   "TIMESTAMP",
	TypeDate:        "DATE",
	TypeTime:        "TIME",
	TypeInterval:    "INTERVAL",
	TypeHugeInt:     "HUGEINT",
	TypeUHugeInt:    "UHUGEINT",
	TypeVarchar:     "VARCHAR",
	TypeBlob:        "BLOB",
	TypeDecimal:     "DECIMAL",
	TypeTimestampS:  "TIMESTAMP_S",
	TypeTimestampMS: "TIMESTAMP_MS",
	TypeTimestampNS: "TIMESTAMP_NS",
	TypeEnum:        "ENUM",
	TypeList:        "LIST",
	TypeStruct:      "STRUCT",
	TypeMap:         "MAP",
	TypeArray:       "ARRAY",
	TypeUUID:        "UUID",
	TypeUnion:       "UNION",
	TypeBit:         "BIT",
	TypeTimeTZ:      "TIME WITH TIME ZONE",
	TypeTimestampTZ: "TIMESTAMP WITH TIME ZONE",
}

func (t TypeID) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TYPE(%d)", int(t))
}

// nested and parameterized types need dedicated constructors
func (t TypeID) simple() bool {
	switch t {
	case TypeInvalid, TypeDecimal, TypeEnum, TypeList, TypeStruct, TypeMap, TypeArray, TypeUnion:
		return false
	}
	_, known := typeNames[t]
	return known
}

// LogicalType wraps a duckdb_logical_type created by the caller.
// Attaching it to a ScalarFunction only borrows it, so it must be closed
// by whoever created it.
type LogicalType struct {
	h *internal.Handle
}

// NewLogicalType creates a logical type for a non-nested type id
func NewLogicalType(id TypeID) (*LogicalType, error) {
	if !id.simple() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, id)
	}
	lt := C.duckdb_create_logical_type(C.duckdb_type(id))
	if lt == nil {
		return nil, &EngineError{Op: "create logical type", Code: internal.StateError, Message: id.String()}
	}
	return &LogicalType{h: internal.NewOwned(unsafe.Pointer(lt))}, nil
}

func (t *LogicalType) data() C.duckdb_logical_type {
	return C.duckdb_logical_type(t.h.Ptr())
}

func (t *LogicalType) live() bool {
	return t != nil && t.h.Live()
}

// ID returns the type id, TypeInvalid once closed
func (t *LogicalType) ID() TypeID {
	if !t.live() {
		return TypeInvalid
	}
	return TypeID(C.duckdb_get_type_id(t.data()))
}

// Close releases the logical type
func (t *LogicalType) Close() {
	if t == nil {
		return
	}
	t.h.Free(func(p unsafe.Pointer) {
		lt := C.duckdb_logical_type(p)
		C.duckdb_destroy_logical_type(&lt)
	})
}
