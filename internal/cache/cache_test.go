package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sample struct {
	Name string `json:"name"`
	Cost int64  `json:"cost"`
}

func TestSetGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	store := New(path, zap.NewNop())

	store.Set("k1", sample{Name: "Park kieszonkowy", Cost: 15000})

	var got sample
	require.True(t, store.Has("k1"))
	require.True(t, store.Get("k1", &got))
	require.Equal(t, "Park kieszonkowy", got.Name)
	require.EqualValues(t, 15000, got.Cost)
	require.False(t, store.Has("k2"))
}

func TestSurvivesProcessRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	first := New(path, zap.NewNop())
	keys := []string{"a", "b", "c", "d", "e"}
	for i, k := range keys {
		first.Set(k, sample{Name: k, Cost: int64(i)})
	}

	// A fresh Store on the same path simulates a new process.
	second := New(path, zap.NewNop())
	require.Equal(t, len(keys), second.Len())
	for _, k := range keys {
		require.True(t, second.Has(k))
	}
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store := New(path, zap.NewNop())
	require.Equal(t, 0, store.Len())

	// Still usable after the reset.
	store.Set("k", sample{Name: "ok"})
	require.True(t, store.Has("k"))
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	store := New(path, zap.NewNop())
	store.Set("k", sample{Name: "x"})

	store.Clear()
	require.Equal(t, 0, store.Len())

	reloaded := New(path, zap.NewNop())
	require.Equal(t, 0, reloaded.Len())
}
