package fqsort

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
)

// ParseMemory converts a human memory string like "500M" into the byte budget of a block,
// already scaled by the safety factor. Bare k/m/g/t suffixes are 1024 based; explicit units
// such as "MB" or "MiB" are handled by humanize.
func ParseMemory(s string, safety float64) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty memory string")
	}
	if safety <= 0 || safety > 1 {
		return 0, fmt.Errorf("safety factor must be in (0, 1], got %v", safety)
	}

	last := rune(s[len(s)-1])
	if strings.ContainsRune("kKmMgGtT", last) && len(s) > 1 && !unicode.IsLetter(rune(s[len(s)-2])) {
		s += "i"
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}

	budget := int64(float64(n) * safety)
	if budget <= 0 {
		return 0, errors.Join(ErrInvalidBudget, fmt.Errorf("'%s' leaves %d bytes", s, budget))
	}

	return budget, nil
}
