package fslocal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	db "github.com/sayden/fqsort"
	"github.com/thehivecorporation/log"
)

// InitLocal returns a filesystem that keeps blocks as plain files in rootPath. The folder is
// created if required. Relative paths are resolved against the working directory.
func InitLocal(rootPath string) (db.Filesystem, error) {
	if rootPath == "" {
		rootPath = os.TempDir()
	}

	if !filepath.IsAbs(rootPath) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		rootPath = filepath.Join(cwd, rootPath)
	}

	if err := os.MkdirAll(rootPath, 0755); err != nil {
		return nil, errors.Join(fmt.Errorf("error creating block folder '%s'", rootPath), err)
	}

	return &localFs{rootPath: rootPath}, nil
}

type localFs struct {
	rootPath string
}

func (f *localFs) path(name string) string {
	return filepath.Join(f.rootPath, filepath.Base(name))
}

func (f *localFs) Create(name string) (io.WriteCloser, error) {
	return os.Create(f.path(name))
}

func (f *localFs) Open(name string) (io.ReadCloser, error) {
	file, err := os.Open(f.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.Join(db.ErrBlockNotFound, err)
	}
	return file, err
}

func (f *localFs) Remove(name string) error {
	log.Debugf("Removing block data in '%s'", f.path(name))
	return os.Remove(f.path(name))
}

func (f *localFs) List(prefix string) ([]string, error) {
	files, err := os.ReadDir(f.rootPath)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0)
	for _, file := range files {
		if file.IsDir() || !strings.HasPrefix(file.Name(), prefix) {
			continue
		}
		names = append(names, file.Name())
	}
	sort.Strings(names)

	return names, nil
}
