package compute

import (
	"fmt"

	"github.com/huandu/go-clone"
	"github.com/xlab/treeprint"

	"github.com/vecflow/colagg/pkg/common"
)

// ColumnBind locates a column as (table index, column index).
type ColumnBind [2]uint64

func (bind ColumnBind) table() uint64 {
	return bind[0]
}

func (bind ColumnBind) column() uint64 {
	return bind[1]
}

func (bind ColumnBind) String() string {
	return fmt.Sprintf("[%d.%d]", bind[0], bind[1])
}

type ET int

const (
	ET_Column ET = iota //column
	ET_Func             //function
	ET_IConst           //integer
	ET_SConst           //string
	ET_FConst           //float
	ET_BConst           //bool
	ET_NConst           //null
	ET_DecConst         //decimal
)

type ET_SubTyp int

const (
	ET_SubInvalid ET_SubTyp = iota
	ET_SubFunc
)

type Expr struct {
	Typ     ET
	SubTyp  ET_SubTyp
	DataTyp common.LType

	Ivalue int64
	Fvalue float64
	Svalue string
	Bvalue bool

	Name     string
	Alias    string
	ColRef   ColumnBind
	Children []*Expr
	FunImpl  *ScalarFunc
}

func (e *Expr) copy() *Expr {
	if e == nil {
		return nil
	}
	return clone.Clone(e).(*Expr)
}

func NewColumnExpr(bind ColumnBind, typ common.LType, name string) *Expr {
	return &Expr{
		Typ:     ET_Column,
		DataTyp: typ,
		Name:    name,
		ColRef:  bind,
	}
}

func NewIConstExpr(v int64) *Expr {
	return &Expr{
		Typ:     ET_IConst,
		DataTyp: common.BigintType(),
		Ivalue:  v,
	}
}

func NewSConstExpr(s string) *Expr {
	return &Expr{
		Typ:     ET_SConst,
		DataTyp: common.VarcharType(),
		Svalue:  s,
	}
}

func NewFConstExpr(f float64) *Expr {
	return &Expr{
		Typ:     ET_FConst,
		DataTyp: common.DoubleType(),
		Fvalue:  f,
	}
}

func NewBConstExpr(b bool) *Expr {
	return &Expr{
		Typ:     ET_BConst,
		DataTyp: common.BooleanType(),
		Bvalue:  b,
	}
}

func NewNullConstExpr(typ common.LType) *Expr {
	return &Expr{
		Typ:     ET_NConst,
		DataTyp: typ,
	}
}

// NewDecConstExpr keeps the literal text. The value is parsed when the
// expression is evaluated.
func NewDecConstExpr(s string, typ common.LType) *Expr {
	return &Expr{
		Typ:     ET_DecConst,
		DataTyp: typ,
		Svalue:  s,
	}
}

// NewFuncExpr resolves the named scalar function over the children types.
// Resolution is the only place a type error can surface.
func NewFuncExpr(name string, children ...*Expr) (*Expr, error) {
	argTypes := make([]common.LType, 0, len(children))
	for _, child := range children {
		argTypes = append(argTypes, child.DataTyp)
	}
	impl, err := GetScalarFunc(name, argTypes...)
	if err != nil {
		return nil, err
	}
	return &Expr{
		Typ:      ET_Func,
		SubTyp:   ET_SubFunc,
		DataTyp:  impl.RetType(),
		Svalue:   name,
		Children: children,
		FunImpl:  impl,
	}, nil
}

func (e *Expr) Format(tree treeprint.Tree) {
	if e == nil {
		return
	}
	switch e.Typ {
	case ET_Column:
		tree.AddNode(fmt.Sprintf("(%s %s %s)", e.Name, e.ColRef, e.DataTyp.String()))
	case ET_Func:
		sub := tree.AddBranch(fmt.Sprintf("%s -> %s", e.Svalue, e.DataTyp.String()))
		for _, child := range e.Children {
			child.Format(sub)
		}
	case ET_IConst:
		tree.AddNode(fmt.Sprintf("(%d %s)", e.Ivalue, e.DataTyp.String()))
	case ET_SConst, ET_DecConst:
		tree.AddNode(fmt.Sprintf("(%s %s)", e.Svalue, e.DataTyp.String()))
	case ET_FConst:
		tree.AddNode(fmt.Sprintf("(%g %s)", e.Fvalue, e.DataTyp.String()))
	case ET_BConst:
		tree.AddNode(fmt.Sprintf("(%v %s)", e.Bvalue, e.DataTyp.String()))
	case ET_NConst:
		tree.AddNode(fmt.Sprintf("(null %s)", e.DataTyp.String()))
	default:
		panic(fmt.Sprintf("usp %d", e.Typ))
	}
}

func (e *Expr) String() string {
	tree := treeprint.NewWithRoot("expr")
	e.Format(tree)
	return tree.String()
}
