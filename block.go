package fqsort

import "fmt"

const BLOCK_FILENAME_FORMAT = "block_%d.dat"

// Block describes one sorted chunk written by the splitter.
type Block struct {
	Index     int
	Name      string
	ItemCount int
	Size      int64
}

func (b *Block) String() string {
	return fmt.Sprintf("%s (%d records, %d bytes)", b.Name, b.ItemCount, b.Size)
}

// BlockNamer maps a block index to the name it is stored under.
type BlockNamer func(index int) string

// SequentialNamer names blocks "<prefix>block_<n>.dat". Distinct prefixes keep concurrent
// sorts sharing a filesystem apart.
func SequentialNamer(prefix string) BlockNamer {
	return func(index int) string {
		return prefix + fmt.Sprintf(BLOCK_FILENAME_FORMAT, index)
	}
}
