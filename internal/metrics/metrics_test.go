package metrics

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVFlushWritesClosedSegments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perf.csv")
	rec := NewCSV(path)

	h1 := rec.Start("compile_query")
	rec.End(h1)
	h2 := rec.Start("execute_query") // left open on purpose

	require.NoError(t, rec.Flush())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = ';'
	rows, err := r.ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, []string{"name", "start", "end", "duration"}, rows[0])
	assert.Equal(t, "compile_query", rows[1][0])

	// The open segment flushes once closed, without a second header.
	rec.End(h2)
	require.NoError(t, rec.Flush())
	f2, err := os.Open(path)
	require.NoError(t, err)
	defer f2.Close()
	r2 := csv.NewReader(f2)
	r2.Comma = ';'
	rows, err = r2.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "execute_query", rows[2][0])
}

func TestCSVSameNameSegmentsStayApart(t *testing.T) {
	rec := NewCSV(filepath.Join(t.TempDir(), "perf.csv"))
	h1 := rec.Start("execute_query")
	h2 := rec.Start("execute_query")
	assert.NotEqual(t, h1, h2)
}

func TestNoopIsSilent(t *testing.T) {
	var rec Recorder = Noop{}
	rec.End(rec.Start("anything"))
	assert.NoError(t, rec.Flush())
}
