package ir

import (
	"nikand.dev/go/heap"

	"github.com/slowlang/crux/compiler/set"
)

type worklist struct {
	heap.Heap[Inst]
}

func instLess(d []Inst, i, j int) bool {
	return d[i] < d[j]
}

// Walk calls f once for every instruction reachable from the entry.
// Among pending instructions the lowest handle goes first, so the order is stable
// for a given arena. Walk stops early if f returns false.
func Walk(f *Function, visit func(i Inst) bool) {
	if f.Start == Nil {
		return
	}

	seen := set.MakeBits[Inst](len(f.Code))
	q := worklist{Heap: heap.Heap[Inst]{Less: instLess}}

	seen.Set(f.Start)
	q.Push(f.Start)

	for q.Len() != 0 {
		i := q.Pop()

		if !visit(i) {
			return
		}

		for _, n := range f.Next[i] {
			if n == Nil || seen.IsSet(n) {
				continue
			}

			seen.Set(n)
			q.Push(n)
		}
	}
}

// Reachable is the set of instructions reachable from the entry.
func Reachable(f *Function) set.Bits[Inst] {
	r := set.MakeBits[Inst](len(f.Code))

	Walk(f, func(i Inst) bool {
		r.Set(i)
		return true
	})

	return r
}

// Preds counts incoming edges of every reachable instruction.
// The entry has one implicit incoming edge from the caller.
func Preds(f *Function) []int {
	preds := make([]int, len(f.Code))

	if f.Start == Nil {
		return preds
	}

	preds[f.Start]++

	Walk(f, func(i Inst) bool {
		for _, n := range f.Next[i] {
			if n != Nil {
				preds[n]++
			}
		}

		return true
	})

	return preds
}
