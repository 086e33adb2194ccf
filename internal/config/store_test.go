package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type sampleDoc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.json")

	store, err := NewStore[sampleDoc](path)
	require.NoError(t, err)
	require.Equal(t, sampleDoc{}, store.Load())

	require.NoError(t, store.Save(sampleDoc{Name: "alpha", Count: 3}))
	require.Equal(t, sampleDoc{Name: "alpha", Count: 3}, store.Load())

	reopened, err := NewStore[sampleDoc](path)
	require.NoError(t, err)
	require.Equal(t, sampleDoc{Name: "alpha", Count: 3}, reopened.Load())
}

func TestStore_Mutate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.json")
	store, err := NewStore[sampleDoc](path)
	require.NoError(t, err)

	err = store.Mutate(func(cur sampleDoc) (sampleDoc, error) {
		cur.Count++
		return cur, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, store.Load().Count)
}

func TestStore_MissingFileStartsAtZeroValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	store, err := NewStore[sampleDoc](path)
	require.NoError(t, err)
	require.Zero(t, store.Load())
}
