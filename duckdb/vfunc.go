package duckdb

import "fmt"

// VFunc is a scalar function implementation together with its signature
type VFunc interface {
	// Func computes output for every row of input
	Func(info *FunctionInfo, input *DataChunk, output *Vector) error
	// ReturnType is the type of output
	ReturnType() TypeID
	// Parameters are the input column types, nil for a zero-arity function
	Parameters() []TypeID
}

// RegisterVFunc registers fn under name
func (c *Conn) RegisterVFunc(name string, fn VFunc) error {
	return c.registerVFunc(name, fn, nil)
}

// RegisterVFuncWithExtraInfo registers fn under name with auxiliary data,
// see SetExtraInfo for the lifetime of data
func RegisterVFuncWithExtraInfo[T any](c *Conn, name string, fn VFunc, data *T, release func(*T)) error {
	return c.registerVFunc(name, fn, func(f *ScalarFunction) error {
		return SetExtraInfo(f, data, release)
	})
}

func (c *Conn) registerVFunc(name string, fn VFunc, configure func(f *ScalarFunction) error) error {
	if fn == nil {
		return ErrNilFunction
	}

	f, err := NewScalarFunction()
	if err != nil {
		return err
	}
	defer f.Destroy() // no-op once registered

	if err := f.SetName(name); err != nil {
		return err
	}

	for i, id := range fn.Parameters() {
		if err := withLogicalType(id, f.AddParameter); err != nil {
			return fmt.Errorf("parameter %d of %q: %w", i, name, err)
		}
	}
	if err := withLogicalType(fn.ReturnType(), f.SetReturnType); err != nil {
		return fmt.Errorf("return type of %q: %w", name, err)
	}

	if err := f.SetFunction(fn.Func); err != nil {
		return err
	}
	if configure != nil {
		if err := configure(f); err != nil {
			return err
		}
	}
	return c.RegisterScalarFunction(f)
}

// withLogicalType lends a fresh logical type to use and releases it after
func withLogicalType(id TypeID, use func(*LogicalType) error) error {
	t, err := NewLogicalType(id)
	if err != nil {
		return err
	}
	defer t.Close()
	return use(t)
}
