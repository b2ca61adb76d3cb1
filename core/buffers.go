package core

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	db "github.com/sayden/fqsort"
)

type run struct {
	block     *db.Block
	rc        io.ReadCloser
	reader    *db.RecordReader
	head      db.Record
	exhausted bool
}

// RunBuffers holds the one record lookahead of every run of a merge, indexed by run.
type RunBuffers struct {
	runs      []*run
	exhausted int
}

// OpenRunBuffers opens every block with a read-ahead buffer of bufSize bytes, capped to the
// block size.
func OpenRunBuffers(fs db.Filesystem, blocks []*db.Block, bufSize, unit int) (*RunBuffers, error) {
	b := &RunBuffers{runs: make([]*run, 0, len(blocks))}

	for _, block := range blocks {
		rc, err := fs.Open(block.Name)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("error opening block '%s'", block.Name), err, b.Close())
		}

		br := bufio.NewReaderSize(rc, clampBuffer(bufSize, block.Size))
		b.runs = append(b.runs, &run{
			block:  block,
			rc:     rc,
			reader: db.NewRecordReader(br, unit, db.PartialReject),
		})
	}

	return b, nil
}

// Fill loads the first record of every run.
func (b *RunBuffers) Fill() error {
	for i := range b.runs {
		if err := b.Refill(i); err != nil {
			return err
		}
	}
	return nil
}

// Refill reads the next record of run i into its empty slot. Reaching the end of the block
// marks the run as exhausted.
func (b *RunBuffers) Refill(i int) error {
	r := b.runs[i]
	if r.exhausted {
		return nil
	}
	if r.head != nil {
		return fmt.Errorf("run %d refilled before its head was taken", i)
	}

	rec, err := r.reader.Read()
	if err == io.EOF {
		r.exhausted = true
		b.exhausted++
		return nil
	}
	if err != nil {
		return errors.Join(fmt.Errorf("error reading block '%s'", r.block.Name), err)
	}

	r.head = rec
	return nil
}

// More is false once every run is exhausted.
func (b *RunBuffers) More() bool {
	return b.exhausted < len(b.runs)
}

// Take empties the slot of run i and returns its record.
func (b *RunBuffers) Take(i int) db.Record {
	rec := b.runs[i].head
	b.runs[i].head = nil
	return rec
}

func (b *RunBuffers) Head(i int) Head {
	return Head{Run: i, Record: b.runs[i].head}
}

// Frontier returns the heads of all runs, exhausted ones included.
func (b *RunBuffers) Frontier() []Head {
	heads := make([]Head, 0, len(b.runs))
	for i := range b.runs {
		heads = append(heads, b.Head(i))
	}
	return heads
}

func (b *RunBuffers) Len() int {
	return len(b.runs)
}

func (b *RunBuffers) Close() error {
	errs := make([]error, 0)
	for _, r := range b.runs {
		if err := r.rc.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// minBufferSize is the smallest buffer bufio hands out.
const minBufferSize = 16

// clampBuffer avoids allocating read-ahead beyond what there is to read. Sizes under
// minBufferSize are raised to it.
func clampBuffer(size int, limit int64) int {
	if limit < int64(size) {
		size = int(limit)
	}
	if size < minBufferSize {
		size = minBufferSize
	}
	return size
}
