package core

import (
	"cmp"
	"fmt"
	"slices"
	"sort"

	db "github.com/sayden/fqsort"
)

// Head is the record a run currently exposes to the merge. A nil Record means the run is
// exhausted.
type Head struct {
	Run    int
	Record db.Record
}

// Selector picks the run holding the smallest head.
//
// The first call receives the whole frontier. Every later call receives only the head of the
// run that won the previous call, after it has been refilled. Exhausted heads are ignored. The
// returned bool is false once no run is left.
type Selector interface {
	Select(frontier ...Head) (int, bool)
	Len() int
}

type SelectorFactory func(db.Comparator) Selector

// NewSelectorFactory returns the constructor of the selector named by cfg.Selector.
func NewSelectorFactory(cfg *db.Config) (SelectorFactory, error) {
	st, ok := db.SelectorTypeReverseMap[cfg.Selector]
	if !ok {
		return nil, fmt.Errorf("unknown selector '%s'", cfg.Selector)
	}

	switch st {
	case db.SELECTOR_TYPE_LIST:
		return NewListSelector, nil
	default:
		return NewBtreeSelector, nil
	}
}

// compareHeads orders by record and then by run index. Blocks are numbered in input order, so
// preferring the lower run on ties keeps the merge stable.
func compareHeads(c db.Comparator, a, b Head) int {
	if r := c(a.Record, b.Record); r != 0 {
		return r
	}
	return cmp.Compare(a.Run, b.Run)
}

// listSelector keeps the heads sorted in descending order so the smallest one is popped from
// the tail. Good enough for the handful of runs a sane memory budget produces.
type listSelector struct {
	cmp     db.Comparator
	heads   []Head
	started bool
}

func NewListSelector(c db.Comparator) Selector {
	return &listSelector{cmp: c}
}

func (s *listSelector) Select(frontier ...Head) (int, bool) {
	if !s.started {
		s.started = true
		s.heads = make([]Head, 0, len(frontier))
		for _, h := range frontier {
			if h.Record != nil {
				s.heads = append(s.heads, h)
			}
		}
		slices.SortFunc(s.heads, func(a, b Head) int {
			return compareHeads(s.cmp, b, a)
		})
	} else {
		for _, h := range frontier {
			if h.Record != nil {
				s.insert(h)
			}
		}
	}

	return s.pop()
}

func (s *listSelector) insert(h Head) {
	i := sort.Search(len(s.heads), func(i int) bool {
		return compareHeads(s.cmp, s.heads[i], h) < 0
	})
	s.heads = slices.Insert(s.heads, i, h)
}

func (s *listSelector) pop() (int, bool) {
	n := len(s.heads)
	if n == 0 {
		return -1, false
	}

	h := s.heads[n-1]
	s.heads = s.heads[:n-1]
	return h.Run, true
}

func (s *listSelector) Len() int {
	return len(s.heads)
}
