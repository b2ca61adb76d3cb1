package fqsort

import (
	"errors"
	"io"
)

var ErrUnknownFilesystemType = errors.New("unknown filesystem type")

// Filesystem stores the intermediate blocks of a sort. Names are flat keys; implementations
// decide where they live (a local directory, memory, an S3 bucket).
type Filesystem interface {
	// Create returns a writer for a new block. The block is only guaranteed to be readable
	// after the writer has been closed without error.
	Create(name string) (io.WriteCloser, error)
	// Open returns a reader over a block previously created. It returns ErrBlockNotFound when
	// the name is unknown.
	Open(name string) (io.ReadCloser, error)
	Remove(name string) error
	// List returns the names of the stored blocks that start with prefix.
	List(prefix string) ([]string, error)
}
