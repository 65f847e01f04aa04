package gateway

import (
	"github.com/google/btree"
)

// ReferenceSet stores the cent amounts currently reserved for pending EFT
// payments and hands out, for a given order total, the smallest amount >= the
// total that is not already reserved. Incoming bank statement lines can then
// be matched back to a single payment by exact amount.
//
// Reserved amounts are kept as intervals of consecutive integers in a B-tree,
// so Reserve, Release and NextFree are O(log n).

type span struct {
	l, r int64
}

func (a span) Less(b btree.Item) bool {
	return a.l < b.(span).l
}

type ReferenceSet struct {
	tree *btree.BTree
}

func NewReferenceSet() *ReferenceSet {
	return &ReferenceSet{
		tree: btree.New(2),
	}
}

// Reserve marks x as taken.
func (s *ReferenceSet) Reserve(x int64) {
	iv := span{x, x}
	// find the closest interval at or below x that can absorb it
	var prev *span
	s.tree.DescendLessOrEqual(iv, func(it btree.Item) bool {
		p := it.(span)
		if p.r+1 >= x {
			prev = &p
		}
		return false
	})

	if prev != nil {
		s.tree.Delete(*prev)
		if x > prev.r {
			prev.r = x
		}
		// merge with the successor if they now touch
		var next *span
		s.tree.AscendGreaterOrEqual(*prev, func(it btree.Item) bool {
			n := it.(span)
			if prev.r+1 >= n.l {
				next = &n
			}
			return false
		})
		if next != nil {
			s.tree.Delete(*next)
			if next.r > prev.r {
				prev.r = next.r
			}
		}
		s.tree.ReplaceOrInsert(*prev)
		return
	}

	var next *span
	s.tree.AscendGreaterOrEqual(iv, func(it btree.Item) bool {
		n := it.(span)
		if n.l <= x+1 {
			next = &n
		}
		return false
	})
	if next != nil {
		s.tree.Delete(*next)
		if x < next.l {
			next.l = x
		}
		if x > next.r {
			next.r = x
		}
		s.tree.ReplaceOrInsert(*next)
	} else {
		s.tree.ReplaceOrInsert(iv)
	}
}

// Release frees a previously reserved amount.
func (s *ReferenceSet) Release(x int64) {
	iv := span{x, x}
	var target *span
	s.tree.DescendLessOrEqual(iv, func(it btree.Item) bool {
		p := it.(span)
		if p.l <= x && x <= p.r {
			target = &p
		}
		return false
	})
	if target == nil {
		return
	}
	s.tree.Delete(*target)
	if target.l < x {
		s.tree.ReplaceOrInsert(span{target.l, x - 1})
	}
	if x < target.r {
		s.tree.ReplaceOrInsert(span{x + 1, target.r})
	}
}

// NextFree returns the smallest amount >= x that is not reserved.
func (s *ReferenceSet) NextFree(x int64) int64 {
	iv := span{x, x}
	var res int64
	found := false
	s.tree.DescendLessOrEqual(iv, func(it btree.Item) bool {
		p := it.(span)
		if p.l <= x && x <= p.r {
			res = p.r + 1
			found = true
		}
		return false
	})
	if found {
		return res
	}
	return x
}
