package projectconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAppendAndReadLog(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	e1, err := NewLogEntry(now, OpResourceCreate, "dec_1", map[string]string{"title": "First"})
	require.NoError(t, err, "unexpected error building entry")
	require.NoError(t, AppendLog(root, 1, e1), "append failed")

	e2, err := NewLogEntry(now.Add(time.Minute), OpResourceUpdate, "dec_1", nil)
	require.NoError(t, err, "unexpected error building entry")
	require.NoError(t, AppendLog(root, 1, e2), "append failed")

	entries, err := ReadLog(root, 1)
	require.NoError(t, err, "read failed")
	require.Len(t, entries, 2)
	require.Equal(t, OpResourceCreate, entries[0].Operation)
	require.Equal(t, OpResourceUpdate, entries[1].Operation)
	require.NotEmpty(t, entries[0].ID)
	require.NotEqual(t, entries[0].ID, entries[1].ID, "expected distinct ids")
}

func TestReadLogMissingFileIsEmpty(t *testing.T) {
	root := t.TempDir()
	entries, err := ReadLog(root, 1)
	require.NoError(t, err, "unexpected error for missing log")
	require.Nil(t, entries)
}
