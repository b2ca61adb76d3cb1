package core

import (
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	db "github.com/sayden/fqsort"
	"github.com/stretchr/testify/require"
)

func testConfig(budget int64, unit int) *db.Config {
	cfg := db.NewDefaultConfig()
	cfg.BlockSize = budget
	cfg.UnitSize = unit
	cfg.Filesystem = db.FilesystemTypeMap[db.FILESYSTEM_TYPE_MEMORY]
	return cfg
}

func writeInput(t *testing.T, content string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func readFile(t *testing.T, p string) string {
	t.Helper()

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(data)
}

func readBlock(t *testing.T, fs db.Filesystem, name string) string {
	t.Helper()

	r, err := fs.Open(name)
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func writeBlocks(t *testing.T, fs db.Filesystem, contents ...[]string) []*db.Block {
	t.Helper()

	namer := db.SequentialNamer("test-")
	blocks := make([]*db.Block, 0, len(contents))
	for i, c := range contents {
		records := make([]db.Record, 0, len(c))
		for _, r := range c {
			records = append(records, db.Record(r))
		}
		b, err := db.WriteBlock(fs, namer, i, records)
		require.NoError(t, err)
		blocks = append(blocks, b)
	}

	return blocks
}

// sortInMemory is the one pass reference the external sort must match.
func sortInMemory(t *testing.T, content string, unit int, cmp db.Comparator) string {
	t.Helper()

	rr := db.NewRecordReader(strings.NewReader(content), unit, db.PartialReject)
	records := make([]db.Record, 0)
	for {
		rec, err := rr.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		records = append(records, rec)
	}

	slices.SortStableFunc(records, cmp)

	var sb strings.Builder
	for _, r := range records {
		sb.Write(r)
	}
	return sb.String()
}

func randomWord(rnd *rand.Rand, alphabet string, maxLen int) string {
	n := 1 + rnd.Intn(maxLen)
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rnd.Intn(len(alphabet))]
	}
	return string(b)
}

func randomLines(seed int64, n int) string {
	rnd := rand.New(rand.NewSource(seed))

	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString(randomWord(rnd, "abcd", 6))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// randomFastq returns n reads whose headers repeat often, so key ties are common.
func randomFastq(seed int64, n int) string {
	rnd := rand.New(rand.NewSource(seed))

	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString("@" + randomWord(rnd, "ab", 2) + "\n")
		sb.WriteString(randomWord(rnd, "ACGT", 8) + "\n")
		sb.WriteString("+\n")
		sb.WriteString(randomWord(rnd, "#!I", 8) + "\n")
	}
	return sb.String()
}
