package duckdb

import (
	"fmt"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
)

var arrowTypes = map[TypeID]arrow.DataType{
	TypeBoolean:   arrow.FixedWidthTypes.Boolean,
	TypeTinyInt:   arrow.PrimitiveTypes.Int8,
	TypeSmallInt:  arrow.PrimitiveTypes.Int16,
	TypeInteger:   arrow.PrimitiveTypes.Int32,
	TypeBigInt:    arrow.PrimitiveTypes.Int64,
	TypeUTinyInt:  arrow.PrimitiveTypes.Uint8,
	TypeUSmallInt: arrow.PrimitiveTypes.Uint16,
	TypeUInteger:  arrow.PrimitiveTypes.Uint32,
	TypeUBigInt:   arrow.PrimitiveTypes.Uint64,
	TypeFloat:     arrow.PrimitiveTypes.Float32,
	TypeDouble:    arrow.PrimitiveTypes.Float64,
	TypeVarchar:   arrow.BinaryTypes.String,
}

// QueryRecord runs query and collects its whole result into one Arrow
// record. The caller must Release the record.
func (c *Conn) QueryRecord(query string) (arrow.Record, error) {
	res, err := c.Query(query)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	schema, err := arrowSchema(res)
	if err != nil {
		return nil, err
	}

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	rows := 0
	for chunk, ok := res.NextChunk(); ok; chunk, ok = res.NextChunk() {
		for col := range schema.Fields() {
			vec, err := chunk.Vector(col)
			if err != nil {
				return nil, err
			}
			if err := appendVector(b.Field(col), vec); err != nil {
				return nil, fmt.Errorf("column %q: %w", schema.Field(col).Name, err)
			}
		}
		rows += chunk.Size()
	}

	c.log.Logf("[DEBUG] query produced %d rows in %d columns", rows, len(schema.Fields()))
	return b.NewRecord(), nil
}

func arrowSchema(res *Result) (*arrow.Schema, error) {
	fields := make([]arrow.Field, res.ColumnCount())
	for i := range fields {
		id := res.ColumnType(i)
		dt, ok := arrowTypes[id]
		if !ok {
			return nil, fmt.Errorf("column %q is %s: %w", res.ColumnName(i), id, ErrUnsupportedType)
		}
		fields[i] = arrow.Field{Name: res.ColumnName(i), Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

func appendVector(fb array.Builder, vec *Vector) error {
	switch b := fb.(type) {
	case *array.BooleanBuilder:
		return appendValues[bool](b, vec)
	case *array.Int8Builder:
		return appendValues[int8](b, vec)
	case *array.Int16Builder:
		return appendValues[int16](b, vec)
	case *array.Int32Builder:
		return appendValues[int32](b, vec)
	case *array.Int64Builder:
		return appendValues[int64](b, vec)
	case *array.Uint8Builder:
		return appendValues[uint8](b, vec)
	case *array.Uint16Builder:
		return appendValues[uint16](b, vec)
	case *array.Uint32Builder:
		return appendValues[uint32](b, vec)
	case *array.Uint64Builder:
		return appendValues[uint64](b, vec)
	case *array.Float32Builder:
		return appendValues[float32](b, vec)
	case *array.Float64Builder:
		return appendValues[float64](b, vec)
	case *array.StringBuilder:
		for row := 0; row < vec.Len(); row++ {
			if !vec.IsValid(row) {
				b.AppendNull()
				continue
			}
			s, err := vec.String(row)
			if err != nil {
				return err
			}
			b.Append(s)
		}
		return nil
	}
	return fmt.Errorf("%w: arrow builder %T", ErrUnsupportedType, fb)
}

type appender[T Primitive] interface {
	Append(v T)
	AppendNull()
}

func appendValues[T Primitive](b appender[T], vec *Vector) error {
	values, err := Values[T](vec)
	if err != nil {
		return err
	}
	for row, v := range values {
		if !vec.IsValid(row) {
			b.AppendNull()
			continue
		}
		b.Append(v)
	}
	return nil
}
