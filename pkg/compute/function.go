package compute

import (
	"fmt"

	"github.com/vecflow/colagg/pkg/chunk"
	"github.com/vecflow/colagg/pkg/common"
)

type scalarEvalFunc func(input *chunk.Vector, count int, result *chunk.Vector)

// ScalarFunc is a resolved scalar function. The eval kernel is bound once
// at resolution and never branches on types afterwards.
type ScalarFunc struct {
	_name    string
	_args    []common.LType
	_retType common.LType
	_scalar  scalarEvalFunc
}

func (fun *ScalarFunc) Name() string {
	return fun._name
}

func (fun *ScalarFunc) RetType() common.LType {
	return fun._retType
}

func GetScalarFunc(name string, argTypes ...common.LType) (*ScalarFunc, error) {
	switch name {
	case FuncUnscaledValue:
		if len(argTypes) != 1 {
			return nil, fmt.Errorf("%s wants 1 arg, got %d", name, len(argTypes))
		}
		return GetUnscaledValueFunc(argTypes[0])
	}
	return nil, fmt.Errorf("%w: no scalar function %q", ErrUnsupportedType, name)
}
