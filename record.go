package fqsort

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/thehivecorporation/log"
)

// Record is a group of UnitSize consecutive lines, terminators included. Records are compared
// and moved as a whole; their inner line order is never changed.
type Record []byte

// Header returns the first line of the record without its terminator. For FASTQ reads this is
// the '@' identifier line.
func (r Record) Header() []byte {
	if i := bytes.IndexByte(r, '\n'); i >= 0 {
		return r[:i]
	}
	return r
}

// RecordReader reads whole units of lines from a stream.
type RecordReader struct {
	r      *bufio.Reader
	unit   int
	policy PartialPolicy
	lines  int64
}

// NewRecordReader wraps r. If r is already a *bufio.Reader it is used as is, so callers control
// the read-ahead size.
func NewRecordReader(r io.Reader, unit int, policy PartialPolicy) *RecordReader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}

	return &RecordReader{r: br, unit: unit, policy: policy}
}

// Lines returns the number of lines consumed so far.
func (rr *RecordReader) Lines() int64 {
	return rr.lines
}

// Read returns the next record or io.EOF once the stream is exhausted. A last line without a
// terminator gets one appended, otherwise it would be glued to whatever record follows it in
// the output.
func (rr *RecordReader) Read() (Record, error) {
	var rec Record

	for i := 0; i < rr.unit; i++ {
		line, err := rr.r.ReadBytes('\n')
		if len(line) > 0 {
			if line[len(line)-1] != '\n' {
				line = append(line, '\n')
			}
			if rec == nil && rr.unit == 1 {
				rec = line
			} else {
				rec = append(rec, line...)
			}
			rr.lines++
		}

		if err == nil {
			continue
		}
		if err != io.EOF {
			return nil, err
		}

		read := i
		if len(line) > 0 {
			read++
		}
		switch {
		case read == 0:
			return nil, io.EOF
		case read == rr.unit:
			return rec, nil
		}

		return nil, rr.partial(read)
	}

	return rec, nil
}

func (rr *RecordReader) partial(read int) error {
	if rr.policy == PartialDrop {
		log.WithFields(log.Fields{"lines": read, "unit": rr.unit, "line": rr.lines}).
			Warn("dropping truncated trailing unit")
		return io.EOF
	}

	return errors.Join(ErrTruncatedUnit,
		fmt.Errorf("got %d of %d lines at the end of input (line %d)", read, rr.unit, rr.lines))
}
