package duckdb

import (
	"sync"

	"github.com/go-pkgz/lgr"
)

// ScalarFunc is the body of a scalar function. It must fill every row of
// output for the rows of input and must not keep any of the views.
type ScalarFunc func(info *FunctionInfo, input *DataChunk, output *Vector) error

// releaser erases the type of the auxiliary data while keeping a typed
// release path for every instantiation of extraInfo
type releaser interface {
	release()
	value() any
}

type extraInfo[T any] struct {
	data *T
	free func(*T)
	once sync.Once
}

func (e *extraInfo[T]) release() {
	e.once.Do(func() {
		if e.free != nil && e.data != nil {
			e.free(e.data)
		}
		e.data = nil
	})
}

func (e *extraInfo[T]) value() any {
	return e.data
}

// functionBinding is the Go side of a descriptor, reachable from the
// engine through the descriptor's extra_info
type functionBinding struct {
	name  string
	fn    ScalarFunc
	extra releaser
	log   lgr.L
}

func (b *functionBinding) call(info *FunctionInfo, input *DataChunk, output *Vector) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Logf("[WARN] scalar function %q panicked: %v", b.name, r)
			err = &CallbackError{Function: b.name, Panic: r}
		}
	}()

	if e := b.fn(info, input, output); e != nil {
		return &CallbackError{Function: b.name, Err: e}
	}
	return nil
}

// drop runs once the engine deletes the descriptor or its registered copy
func (b *functionBinding) drop() {
	if b.extra != nil {
		b.extra.release()
	}
	b.log.Logf("[DEBUG] scalar function %q dropped", b.name)
}
