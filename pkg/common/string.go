package common

import (
	"bytes"
	"unsafe"

	"github.com/vecflow/colagg/pkg/util"
)

// String is the fixed width varchar cell. The payload bytes live on the
// Go heap and stay reachable through the Data pointer.
type String struct {
	Len  int
	Data unsafe.Pointer
}

// NewString copies s into a fresh heap buffer.
func NewString(s string) String {
	ret := String{Len: len(s)}
	if len(s) > 0 {
		data := util.GAlloc.Alloc(len(s))
		copy(data, s)
		ret.Data = util.BytesSliceToPointer(data)
	}
	return ret
}

func (s *String) DataSlice() []byte {
	return util.PointerToSlice[byte](s.Data, s.Len)
}

func (s *String) DataPtr() unsafe.Pointer {
	return s.Data
}

func (s *String) String() string {
	t := s.DataSlice()
	return string(t)
}

func (s *String) Equal(o *String) bool {
	if s.Len != o.Len {
		return false
	}
	return util.PointerMemcmp(s.Data, o.Data, s.Len) == 0
}

func (s *String) Less(o *String) bool {
	sSlice := util.PointerToSlice[byte](s.Data, s.Len)
	oSlice := util.PointerToSlice[byte](o.Data, o.Len)
	return bytes.Compare(sSlice, oSlice) < 0
}

func (s *String) Length() int {
	return s.Len
}
