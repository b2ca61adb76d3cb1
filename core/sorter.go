package core

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	db "github.com/sayden/fqsort"
	"github.com/thehivecorporation/log"
)

// Stats summarises one sort.
type Stats struct {
	Input           string        `json:"input"`
	Output          string        `json:"output"`
	InputSize       int64         `json:"input_size"`
	EstimatedBlocks int           `json:"estimated_blocks"`
	Blocks          int           `json:"blocks"`
	Records         int           `json:"records"`
	Bytes           int64         `json:"bytes"`
	RunBufferSize   int           `json:"run_buffer_size"`
	Elapsed         time.Duration `json:"elapsed"`
}

// ExternalSort sorts files bigger than memory: the input is split in sorted blocks of
// cfg.BlockSize bytes that are then k-way merged into "<input><cfg.OutputSuffix>".
//
// A single ExternalSort runs one sort at a time per call, but calls never share blocks: each
// sort stores its blocks under its own unique prefix.
type ExternalSort struct {
	cfg         *db.Config
	fs          db.Filesystem
	cmp         db.Comparator
	newSelector SelectorFactory
}

func NewExternalSort(cfg *db.Config, fs db.Filesystem) (*ExternalSort, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cmp, err := db.NewComparator(cfg)
	if err != nil {
		return nil, err
	}

	newSelector, err := NewSelectorFactory(cfg)
	if err != nil {
		return nil, err
	}

	return &ExternalSort{
		cfg:         cfg,
		fs:          fs,
		cmp:         cmp,
		newSelector: newSelector,
	}, nil
}

// Sort sorts filename with the configured comparator.
func (e *ExternalSort) Sort(filename string) (*Stats, error) {
	return e.SortWith(filename, e.cmp)
}

// SortWith sorts filename with cmp. Blocks are removed before returning whatever the outcome;
// a removal failure is only reported when the sort itself succeeded. The input file is never
// modified and the output is only replaced once the merge has succeeded.
func (e *ExternalSort) SortWith(filename string, cmp db.Comparator) (stats *Stats, err error) {
	start := time.Now()

	info, err := os.Stat(filename)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("error reading input '%s'", filename), err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("input '%s' is a directory", filename)
	}

	stats = &Stats{
		Input:           filename,
		Output:          filename + e.cfg.OutputSuffix,
		InputSize:       info.Size(),
		EstimatedBlocks: EstimateBlocks(info.Size(), e.cfg.BlockSize),
	}
	log.WithFields(log.Fields{"size": stats.InputSize, "budget": e.cfg.BlockSize, "estimated_blocks": stats.EstimatedBlocks}).
		Debugf("Sorting '%s'", filename)

	src, err := os.Open(filename)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("error opening input '%s'", filename), err)
	}
	defer src.Close()

	id := uuid.NewString()
	namer := db.SequentialNamer(fmt.Sprintf("fqsort-%s-", id))
	splitter, err := NewSplitter(e.cfg, e.fs, namer, cmp)
	if err != nil {
		return nil, err
	}

	var blocks []*db.Block
	defer func() {
		err = e.cleanup(blocks, err)
		if err != nil {
			stats = nil
		}
	}()

	blocks, err = splitter.Split(src)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("error splitting '%s'", filename), err)
	}

	stats.Blocks = len(blocks)
	for _, b := range blocks {
		stats.Records += b.ItemCount
		stats.Bytes += b.Size
	}

	if stats.RunBufferSize, err = RunBufferSize(e.cfg.BlockSize, len(blocks), e.cfg.SafetyFactor); err != nil {
		return nil, err
	}

	// merge next to the output and rename, so an existing output survives a failed sort
	tmp := fmt.Sprintf("%s.%s.tmp", stats.Output, id)
	merger := NewMerger(e.fs, cmp, e.cfg.UnitSize, e.newSelector)
	written, err := merger.Merge(blocks, tmp, stats.RunBufferSize)
	if err == nil && written != stats.Records {
		err = fmt.Errorf("merged %d records out of %d", written, stats.Records)
	}
	if err == nil {
		err = os.Rename(tmp, stats.Output)
	}
	if err != nil {
		if rerr := os.Remove(tmp); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			log.WithFields(log.Fields{"output": tmp, "error": rerr.Error()}).Warn("could not remove partial output")
		}
		return nil, errors.Join(fmt.Errorf("error merging '%s'", filename), err)
	}

	stats.Elapsed = time.Since(start)
	log.WithFields(log.Fields{"blocks": stats.Blocks, "records": stats.Records, "elapsed": stats.Elapsed.String()}).
		Debugf("Sorted '%s' into '%s'", filename, stats.Output)

	return stats, nil
}

// SortAll sorts every file independently. With keepGoing a failing file does not stop the
// batch and all errors are returned joined; otherwise the first error stops it.
func (e *ExternalSort) SortAll(filenames []string, keepGoing bool) ([]*Stats, error) {
	all := make([]*Stats, 0, len(filenames))
	errs := make([]error, 0)

	for _, filename := range filenames {
		stats, err := e.Sort(filename)
		if err != nil {
			if !keepGoing {
				return all, err
			}
			log.WithError(err).Error("sort failed, continuing with next file")
			errs = append(errs, err)
			continue
		}
		all = append(all, stats)
	}

	return all, errors.Join(errs...)
}

// cleanup removes blocks. sortErr is returned untouched when set; removal errors only surface
// when there is nothing else to report.
func (e *ExternalSort) cleanup(blocks []*db.Block, sortErr error) error {
	errs := make([]error, 0)
	for _, b := range blocks {
		if err := e.fs.Remove(b.Name); err != nil {
			errs = append(errs, errors.Join(fmt.Errorf("error removing block '%s'", b.Name), err))
		}
	}

	if sortErr != nil {
		for _, err := range errs {
			log.WithFields(log.Fields{"error": err.Error()}).Warn("leaving orphaned block behind")
		}
		return sortErr
	}

	return errors.Join(errs...)
}

// EstimateBlocks is the expected number of blocks for an input of size bytes.
func EstimateBlocks(size, budget int64) int {
	if budget <= 0 {
		return 0
	}
	return int(size / budget)
}

// RunBufferSize divides the memory the budget stands for among the blocks merge reads plus
// the output writer. The budget was already scaled by safety when derived from the memory
// string, dividing by it again gives back the unscaled share. Readers never go below bufio's
// 16 byte minimum, so very small budgets over many blocks may use slightly more.
func RunBufferSize(budget int64, blocks int, safety float64) (int, error) {
	if safety <= 0 {
		return 0, errors.Join(db.ErrDegenerateBuffer, fmt.Errorf("safety factor %v", safety))
	}
	if blocks < 0 {
		return 0, errors.Join(db.ErrDegenerateBuffer, fmt.Errorf("%d blocks", blocks))
	}

	size := float64(budget) / float64(blocks+1) / safety
	if size < 1 {
		return 0, errors.Join(db.ErrDegenerateBuffer,
			fmt.Errorf("budget of %d bytes over %d blocks leaves %.2f bytes per run", budget, blocks, size))
	}
	if size > math.MaxInt32 {
		size = math.MaxInt32
	}

	return int(size), nil
}
