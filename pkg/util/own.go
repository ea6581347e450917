package util

import (
	"fmt"
	"sync/atomic"

	"github.com/petermattis/goid"
)

// EnableOwnerChecks arms the single owner assertions. Tests and the bench
// driver set it; release paths pay one bool load.
var EnableOwnerChecks bool

// OwnerGuard detects concurrent entry into sections that the caller
// contract declares single threaded. Ownership is per operation, so
// sequential handoff between goroutines stays legal.
type OwnerGuard struct {
	owner atomic.Int64
}

func (g *OwnerGuard) Acquire() {
	if !EnableOwnerChecks {
		return
	}
	rid := goid.Get()
	if !g.owner.CompareAndSwap(0, rid) {
		panic(fmt.Sprintf(
			"concurrent access: goroutine %d entered state held by goroutine %d",
			rid, g.owner.Load()))
	}
}

func (g *OwnerGuard) Release() {
	if !EnableOwnerChecks {
		return
	}
	g.owner.Store(0)
}
