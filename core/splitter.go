package core

import (
	"errors"
	"fmt"
	"io"
	"slices"

	db "github.com/sayden/fqsort"
	"github.com/thehivecorporation/log"
)

// Splitter cuts a stream into sorted blocks of roughly budget bytes.
type Splitter struct {
	fs      db.Filesystem
	namer   db.BlockNamer
	cmp     db.Comparator
	unit    int
	budget  int64
	partial db.PartialPolicy
}

func NewSplitter(cfg *db.Config, fs db.Filesystem, namer db.BlockNamer, cmp db.Comparator) (*Splitter, error) {
	if cfg.UnitSize < 1 {
		return nil, errors.Join(db.ErrInvalidUnitSize, fmt.Errorf("got %d", cfg.UnitSize))
	}
	if cfg.BlockSize <= 0 {
		return nil, errors.Join(db.ErrInvalidBudget, fmt.Errorf("got %d bytes", cfg.BlockSize))
	}

	return &Splitter{
		fs:      fs,
		namer:   namer,
		cmp:     cmp,
		unit:    cfg.UnitSize,
		budget:  cfg.BlockSize,
		partial: cfg.Partial,
	}, nil
}

// Split reads source until EOF and writes one sorted block per budget worth of records. The
// record that crosses the budget stays in the block it crossed, so blocks can be slightly
// larger than the budget.
//
// The blocks created before a failure are returned together with the error so the caller can
// remove them.
func (s *Splitter) Split(source io.Reader) ([]*db.Block, error) {
	rr := db.NewRecordReader(source, s.unit, s.partial)
	blocks := make([]*db.Block, 0)

	for i := 0; ; i++ {
		records, err := s.readGroup(rr)
		if err != nil {
			return blocks, err
		}
		if len(records) == 0 {
			log.WithFields(log.Fields{"lines": rr.Lines(), "blocks": len(blocks)}).Debug("Split finished")
			break
		}

		slices.SortStableFunc(records, s.cmp)

		block, err := db.WriteBlock(s.fs, s.namer, i, records)
		if block != nil {
			blocks = append(blocks, block)
		}
		if err != nil {
			return blocks, err
		}
	}

	return blocks, nil
}

func (s *Splitter) readGroup(rr *db.RecordReader) ([]db.Record, error) {
	var (
		records = make([]db.Record, 0)
		size    int64
	)

	for size < s.budget {
		rec, err := rr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		records = append(records, rec)
		size += int64(len(rec))
	}

	return records, nil
}
