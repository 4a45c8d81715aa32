package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/moodlight-community/moodlight-agent/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorePersists(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "store.yaml")
	s, err := store.Open(path)
	require.NoError(t, err)

	_, err = s.GetBlob("alarms", 0)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SetBlob("alarms", []byte{0, 1, 2, 0xff}))
	require.NoError(t, s.SetBlob("scene", []byte("sunrise")))

	reopened, err := store.Open(path)
	require.NoError(t, err)

	got, err := reopened.GetBlob("alarms", 16)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 0xff}, got)

	got, err = reopened.GetBlob("scene", 0)
	require.NoError(t, err)
	assert.Equal(t, "sunrise", string(got))

	_, err = reopened.GetBlob("scene", 3)
	assert.ErrorIs(t, err, store.ErrTooLarge)
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "store.yaml")
	require.NoError(t, os.WriteFile(path, []byte("blobs:\n  a: \"***\"\n"), 0o600))

	_, err := store.Open(path)
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	m := store.NewMemory()
	buf := []byte("abc")
	require.NoError(t, m.SetBlob("k", buf))
	buf[0] = 'x'

	got, err := m.GetBlob("k", 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	_, err = m.GetBlob("missing", 0)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
