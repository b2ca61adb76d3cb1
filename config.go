package fqsort

import (
	"errors"
	"fmt"
	"os"
)

type FILESYSTEM_TYPE int

const (
	FILESYSTEM_TYPE_LOCAL FILESYSTEM_TYPE = iota
	FILESYSTEM_TYPE_MEMORY
	FILESYSTEM_TYPE_S3
)

var FilesystemTypeMap = map[FILESYSTEM_TYPE]string{
	FILESYSTEM_TYPE_LOCAL:  "local",
	FILESYSTEM_TYPE_MEMORY: "memory",
	FILESYSTEM_TYPE_S3:     "s3",
}

var FilesystemTypeReverseMap = map[string]FILESYSTEM_TYPE{
	"local":  FILESYSTEM_TYPE_LOCAL,
	"memory": FILESYSTEM_TYPE_MEMORY,
	"s3":     FILESYSTEM_TYPE_S3,
}

type SELECTOR_TYPE int

const (
	SELECTOR_TYPE_LIST SELECTOR_TYPE = iota
	SELECTOR_TYPE_BTREE
)

var SelectorTypeMap = map[SELECTOR_TYPE]string{
	SELECTOR_TYPE_LIST:  "list",
	SELECTOR_TYPE_BTREE: "btree",
}

var SelectorTypeReverseMap = map[string]SELECTOR_TYPE{
	"list":  SELECTOR_TYPE_LIST,
	"btree": SELECTOR_TYPE_BTREE,
}

type KEY_TYPE int

const (
	KEY_TYPE_RECORD KEY_TYPE = iota
	KEY_TYPE_HEADER
	KEY_TYPE_HASH
)

var KeyTypeMap = map[KEY_TYPE]string{
	KEY_TYPE_RECORD: "record",
	KEY_TYPE_HEADER: "header",
	KEY_TYPE_HASH:   "hash",
}

var KeyTypeReverseMap = map[string]KEY_TYPE{
	"record": KEY_TYPE_RECORD,
	"header": KEY_TYPE_HEADER,
	"hash":   KEY_TYPE_HASH,
}

// PartialPolicy decides what happens to a trailing unit with fewer than UnitSize lines.
type PartialPolicy string

const (
	PartialReject PartialPolicy = "reject"
	PartialDrop   PartialPolicy = "drop"
)

const (
	DEFAULT_MEMORY        = "500M"
	DEFAULT_UNIT_SIZE     = 4
	DEFAULT_SAFETY_FACTOR = 0.4
	DEFAULT_OUTPUT_SUFFIX = ".out"
	DEFAULT_SERVER_ADDR   = ":8080"
	DEFAULT_SERVER_ROOT   = "."
)

type Config struct {
	// Memory is the human readable memory budget, e.g. "500M". It is only used to derive
	// BlockSize when BlockSize is zero.
	Memory string
	// BlockSize is the byte budget of a single in-memory block.
	BlockSize    int64
	UnitSize     int
	SafetyFactor float64
	WorkDir      string
	Filesystem   string
	Selector     string
	Key          string
	HashSeed     uint32
	Partial      PartialPolicy
	OutputSuffix string
	S3Config     S3Config
	Server       ServerConfig
}

// S3Config locates blocks in a bucket. AccessKey and SecretKey are only needed when the default
// AWS credential chain does not apply, e.g. a minio endpoint.
type S3Config struct {
	Region    string
	Bucket    string
	Endpoint  string
	Prefix    string
	AccessKey string
	SecretKey string
}

type ServerConfig struct {
	Addr string
	// Root is the data directory requested files are resolved against. Nothing outside it is
	// read or written.
	Root string
}

func NewDefaultConfig() *Config {
	return &Config{
		Memory:       DEFAULT_MEMORY,
		UnitSize:     DEFAULT_UNIT_SIZE,
		SafetyFactor: DEFAULT_SAFETY_FACTOR,
		WorkDir:      os.TempDir(),
		Filesystem:   FilesystemTypeMap[FILESYSTEM_TYPE_LOCAL],
		Selector:     SelectorTypeMap[SELECTOR_TYPE_BTREE],
		Key:          KeyTypeMap[KEY_TYPE_RECORD],
		Partial:      PartialReject,
		OutputSuffix: DEFAULT_OUTPUT_SUFFIX,
		S3Config: S3Config{
			Region: "us-east-1",
		},
		Server: ServerConfig{
			Addr: DEFAULT_SERVER_ADDR,
			Root: DEFAULT_SERVER_ROOT,
		},
	}
}

// Validate fills derived values and rejects configurations the sorter cannot run with.
func (c *Config) Validate() error {
	if c.SafetyFactor <= 0 || c.SafetyFactor > 1 {
		return fmt.Errorf("safety factor must be in (0, 1], got %v", c.SafetyFactor)
	}

	if c.BlockSize == 0 {
		size, err := ParseMemory(c.Memory, c.SafetyFactor)
		if err != nil {
			return errors.Join(fmt.Errorf("invalid memory budget '%s'", c.Memory), err)
		}
		c.BlockSize = size
	}
	if c.BlockSize <= 0 {
		return errors.Join(ErrInvalidBudget, fmt.Errorf("got %d bytes", c.BlockSize))
	}

	if c.UnitSize < 1 {
		return errors.Join(ErrInvalidUnitSize, fmt.Errorf("got %d", c.UnitSize))
	}

	if _, ok := FilesystemTypeReverseMap[c.Filesystem]; !ok {
		return fmt.Errorf("unknown filesystem '%s'", c.Filesystem)
	}
	if _, ok := SelectorTypeReverseMap[c.Selector]; !ok {
		return fmt.Errorf("unknown selector '%s'", c.Selector)
	}
	if _, ok := KeyTypeReverseMap[c.Key]; !ok {
		return fmt.Errorf("unknown key '%s'", c.Key)
	}

	switch c.Partial {
	case PartialReject, PartialDrop:
	case "":
		c.Partial = PartialReject
	default:
		return fmt.Errorf("unknown partial unit policy '%s'", c.Partial)
	}

	if c.OutputSuffix == "" {
		c.OutputSuffix = DEFAULT_OUTPUT_SUFFIX
	}

	if FilesystemTypeReverseMap[c.Filesystem] == FILESYSTEM_TYPE_S3 {
		if c.S3Config.Bucket == "" {
			return errors.New("s3 filesystem requires a bucket")
		}
		if (c.S3Config.AccessKey == "") != (c.S3Config.SecretKey == "") {
			return errors.New("s3 access key and secret key must be set together")
		}
	}

	return nil
}
