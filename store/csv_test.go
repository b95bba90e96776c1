package store

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVStoreHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.csv")
	st, err := NewCSV(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	r := csv.NewReader(strings.NewReader(string(data)))
	header, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, eventHeader, header)
}

func TestCSVStoreSaveRun(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.csv")
	st, err := NewCSV(path)
	require.NoError(t, err)

	require.NoError(t, st.SaveRun(sampleResult()))
	require.NoError(t, st.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	r := csv.NewReader(strings.NewReader(string(data)))
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	row := rows[1]
	assert.Equal(t, "EV1", row[0])
	assert.Equal(t, "2024", row[2])
	assert.Equal(t, "trade", row[3])
	assert.Equal(t, "BTC", row[4])
	assert.Equal(t, "14800", row[10]) // gain
	assert.Equal(t, "fifo", row[12])
}
