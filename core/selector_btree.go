package core

import (
	"github.com/google/btree"
	db "github.com/sayden/fqsort"
)

const BTREE_SELECTOR_DEGREE = 8

// btreeSelector keeps the frontier in a B-tree, so each step costs O(log k) whatever the
// number of runs.
type btreeSelector struct {
	tree *btree.BTreeG[Head]
}

func NewBtreeSelector(c db.Comparator) Selector {
	return &btreeSelector{
		tree: btree.NewG[Head](BTREE_SELECTOR_DEGREE, func(a, b Head) bool {
			return compareHeads(c, a, b) < 0
		}),
	}
}

func (s *btreeSelector) Select(frontier ...Head) (int, bool) {
	for _, h := range frontier {
		if h.Record != nil {
			s.tree.ReplaceOrInsert(h)
		}
	}

	min, found := s.tree.DeleteMin()
	if !found {
		return -1, false
	}
	return min.Run, true
}

func (s *btreeSelector) Len() int {
	return s.tree.Len()
}
