package scratch

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_WriteAndRelease(t *testing.T) {
	counter := NewCounter()
	m := NewManager(t.TempDir(), counter, nil)

	f, err := m.Write([]byte("payload"), ".mp4")
	require.NoError(t, err)
	assert.Equal(t, 1, counter.Open())

	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.Contains(t, f.Path(), ".mp4")

	require.NoError(t, f.Release())
	require.NoError(t, f.Release())
	assert.Equal(t, 0, counter.Open())

	acquired, released := counter.Totals()
	assert.Equal(t, 1, acquired)
	assert.Equal(t, 1, released)

	_, err = os.Stat(f.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestManager_ReleaseAfterExternalRemoval(t *testing.T) {
	counter := NewCounter()
	m := NewManager(t.TempDir(), counter, nil)

	f, err := m.Write(nil, ".wav")
	require.NoError(t, err)
	require.NoError(t, os.Remove(f.Path()))

	assert.NoError(t, f.Release())
	assert.Equal(t, 0, counter.Open())
}

func TestManager_DefaultDir(t *testing.T) {
	m := NewManager("", nil, nil)
	assert.Equal(t, os.TempDir(), m.Dir())
}
