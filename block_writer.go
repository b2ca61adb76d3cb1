package fqsort

import (
	"bufio"
	"errors"
	"fmt"

	"github.com/thehivecorporation/log"
)

// WriteBlock stores records, in the given order, as block index of fs.
func WriteBlock(fs Filesystem, namer BlockNamer, index int, records []Record) (*Block, error) {
	block := &Block{
		Index:     index,
		Name:      namer(index),
		ItemCount: len(records),
	}

	w, err := fs.Create(block.Name)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("error creating block '%s'", block.Name), err)
	}

	bw := bufio.NewWriter(w)
	for _, r := range records {
		n, err := bw.Write(r)
		block.Size += int64(n)
		if err != nil {
			w.Close()
			return block, errors.Join(fmt.Errorf("error writing block '%s'", block.Name), err)
		}
	}

	if err = bw.Flush(); err != nil {
		w.Close()
		return block, errors.Join(fmt.Errorf("error flushing block '%s'", block.Name), err)
	}
	if err = w.Close(); err != nil {
		return block, errors.Join(fmt.Errorf("error closing block '%s'", block.Name), err)
	}

	log.Debugf("Created block %s", block)

	return block, nil
}
