package fs

import (
	db "github.com/sayden/fqsort"
	local "github.com/sayden/fqsort/fs/local"
	memory "github.com/sayden/fqsort/fs/memory"
	fss3 "github.com/sayden/fqsort/fs/s3"
)

// NewFilesystem returns the block filesystem selected by c.Filesystem.
func NewFilesystem(c *db.Config) (db.Filesystem, error) {
	fsType, ok := db.FilesystemTypeReverseMap[c.Filesystem]
	if !ok {
		return nil, db.ErrUnknownFilesystemType
	}

	switch fsType {
	case db.FILESYSTEM_TYPE_S3:
		return fss3.InitS3(c)
	case db.FILESYSTEM_TYPE_MEMORY:
		return memory.NewMemoryFs(), nil
	default:
		return local.InitLocal(c.WorkDir)
	}
}
