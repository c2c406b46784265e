package bench

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs", "nested")
	sl, err := NewSessionLogger(dir, "session")
	require.NoError(t, err)

	// The file exists, empty, before the first record.
	records, err := ReadSession(sl.Path())
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, sl.Log(Record{Name: "cpu", Status: StatusPass, NsPerOp: 1500, GFLOPS: 0.25}))
	require.NoError(t, sl.Log(Record{Name: "tiled-tn", Status: StatusMismatch, Error: "1/4 values differ"}))

	records, err = ReadSession(sl.Path())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "cpu", records[0].Name)
	assert.Equal(t, int64(1500), records[0].NsPerOp)
	assert.False(t, records[0].Timestamp.IsZero())
	assert.Equal(t, StatusMismatch, records[1].Status)
	assert.Equal(t, sl.Records(), records)
}

func TestReadSessionErrors(t *testing.T) {
	_, err := ReadSession(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, err = ReadSession(bad)
	assert.Error(t, err)
}

func TestNewSessionLoggerBadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err := NewSessionLogger(filepath.Join(file, "sub"), "session")
	assert.Error(t, err)
}
