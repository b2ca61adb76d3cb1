package fqsort

import (
	"bytes"
	"cmp"
	"fmt"

	"github.com/spaolacci/murmur3"
)

// Comparator is a total order over records. It returns a negative number when a sorts before b,
// zero when they are equal and a positive number otherwise.
type Comparator func(a, b Record) int

// KeyFunc extracts the bytes a record is ordered by.
type KeyFunc func(Record) []byte

// CompareRecords orders records by their raw bytes.
func CompareRecords(a, b Record) int {
	return bytes.Compare(a, b)
}

// HeaderKey uses the first line of the record as its key.
func HeaderKey(r Record) []byte {
	return r.Header()
}

// ByKey orders records lexicographically by the extracted key.
func ByKey(key KeyFunc) Comparator {
	return func(a, b Record) int {
		return bytes.Compare(key(a), key(b))
	}
}

// ByHash orders records by a seeded murmur3 hash of their key, which shuffles the input while
// keeping records with equal keys next to each other.
func ByHash(key KeyFunc, seed uint32) Comparator {
	return func(a, b Record) int {
		ka, kb := key(a), key(b)
		if c := cmp.Compare(murmur3.Sum64WithSeed(ka, seed), murmur3.Sum64WithSeed(kb, seed)); c != 0 {
			return c
		}
		return bytes.Compare(ka, kb)
	}
}

// NewComparator builds the comparator named by cfg.Key.
func NewComparator(cfg *Config) (Comparator, error) {
	kt, ok := KeyTypeReverseMap[cfg.Key]
	if !ok {
		return nil, fmt.Errorf("unknown key '%s'", cfg.Key)
	}

	switch kt {
	case KEY_TYPE_HEADER:
		return ByKey(HeaderKey), nil
	case KEY_TYPE_HASH:
		return ByHash(HeaderKey, cfg.HashSeed), nil
	default:
		return CompareRecords, nil
	}
}
