package core

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	db "github.com/sayden/fqsort"
)

// Merger k-way merges sorted blocks into a single sorted stream.
type Merger struct {
	fs          db.Filesystem
	cmp         db.Comparator
	unit        int
	newSelector SelectorFactory
}

func NewMerger(fs db.Filesystem, cmp db.Comparator, unit int, newSelector SelectorFactory) *Merger {
	if newSelector == nil {
		newSelector = NewBtreeSelector
	}

	return &Merger{
		fs:          fs,
		cmp:         cmp,
		unit:        unit,
		newSelector: newSelector,
	}
}

// Merge writes the merge of blocks to the file output and returns the number of records
// written. Every run and the output are closed before returning.
func (m *Merger) Merge(blocks []*db.Block, output string, bufSize int) (n int, err error) {
	f, err := os.Create(output)
	if err != nil {
		return 0, errors.Join(fmt.Errorf("error creating output '%s'", output), err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	var total int64
	for _, b := range blocks {
		total += b.Size
	}

	w := bufio.NewWriterSize(f, clampBuffer(bufSize, total))
	if n, err = m.MergeTo(w, blocks, bufSize); err != nil {
		return n, err
	}

	return n, w.Flush()
}

// MergeTo is Merge over any writer. w is not flushed nor closed.
func (m *Merger) MergeTo(w io.Writer, blocks []*db.Block, bufSize int) (n int, err error) {
	runs, err := OpenRunBuffers(m.fs, blocks, bufSize, m.unit)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := runs.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if err = runs.Fill(); err != nil {
		return 0, err
	}

	selector := m.newSelector(m.cmp)
	frontier := runs.Frontier()
	refilled := make([]Head, 1)

	for runs.More() {
		i, ok := selector.Select(frontier...)
		if !ok {
			return n, db.ErrSelectorDrained
		}

		if _, err = w.Write(runs.Take(i)); err != nil {
			return n, errors.Join(errors.New("error writing merged record"), err)
		}
		n++

		if err = runs.Refill(i); err != nil {
			return n, err
		}
		refilled[0] = runs.Head(i)
		frontier = refilled
	}

	return n, nil
}
