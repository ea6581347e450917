package compute

import (
	"fmt"

	"github.com/vecflow/colagg/pkg/chunk"
	"github.com/vecflow/colagg/pkg/common"
	"github.com/vecflow/colagg/pkg/util"
)

// ExprExec evaluates a projection list against input chunks. All function
// expressions are resolved at construction. ExecuteExprs itself cannot
// fail on types.
type ExprExec struct {
	_exprs []*Expr
}

func NewExprExec(exprs ...*Expr) (*ExprExec, error) {
	for _, e := range exprs {
		if err := bindExpr(e); err != nil {
			return nil, err
		}
	}
	return &ExprExec{_exprs: exprs}, nil
}

func bindExpr(e *Expr) error {
	if e == nil {
		return nil
	}
	for _, child := range e.Children {
		if err := bindExpr(child); err != nil {
			return err
		}
	}
	if e.Typ == ET_Func && e.FunImpl == nil {
		impl, err := GetScalarFunc(e.Svalue, childTypes(e.Children)...)
		if err != nil {
			return err
		}
		e.FunImpl = impl
		e.DataTyp = impl.RetType()
	}
	return nil
}

func childTypes(children []*Expr) []common.LType {
	types := make([]common.LType, 0, len(children))
	for _, child := range children {
		types = append(types, child.DataTyp)
	}
	return types
}

func (exec *ExprExec) ExecuteExprs(input *chunk.Chunk, output *chunk.Chunk) error {
	util.AssertFunc(output.ColumnCount() == len(exec._exprs))
	count := input.Card()
	for i, e := range exec._exprs {
		if err := exec.executeExpr(e, input, count, output.Data[i]); err != nil {
			return err
		}
	}
	output.SetCard(count)
	return nil
}

func (exec *ExprExec) executeExpr(e *Expr, input *chunk.Chunk, count int, result *chunk.Vector) error {
	switch e.Typ {
	case ET_Column:
		result.Reference(input.Data[e.ColRef.column()])
	case ET_IConst, ET_SConst, ET_FConst, ET_BConst, ET_NConst, ET_DecConst:
		val, err := e.constValue()
		if err != nil {
			return err
		}
		result.ReferenceValue(val)
	case ET_Func:
		childVec := chunk.NewEmptyVector(e.Children[0].DataTyp, chunk.PF_FLAT, util.DefaultVectorSize)
		if err := exec.executeExpr(e.Children[0], input, count, childVec); err != nil {
			return err
		}
		e.FunImpl._scalar(childVec, count, result)
	default:
		panic(fmt.Sprintf("usp %d", e.Typ))
	}
	return nil
}

func (e *Expr) constValue() (*chunk.Value, error) {
	switch e.Typ {
	case ET_IConst:
		return &chunk.Value{Typ: e.DataTyp, I64: e.Ivalue}, nil
	case ET_SConst:
		return &chunk.Value{Typ: e.DataTyp, Str: e.Svalue}, nil
	case ET_FConst:
		return &chunk.Value{Typ: e.DataTyp, F64: e.Fvalue}, nil
	case ET_BConst:
		return &chunk.Value{Typ: e.DataTyp, Bool: e.Bvalue}, nil
	case ET_NConst:
		return &chunk.Value{Typ: e.DataTyp, IsNull: true}, nil
	case ET_DecConst:
		return chunk.NewDecimalValue(e.Svalue, e.DataTyp)
	default:
		panic(fmt.Sprintf("usp %d", e.Typ))
	}
}
