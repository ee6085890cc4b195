package fsync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"shopsync/internal/models"
	"shopsync/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAssetStore records asset-state writes in memory.
type fakeAssetStore struct {
	products []models.Product
	states   map[string]store.AssetState
}

func (f *fakeAssetStore) ListProducts(_ context.Context, _ store.ListOptions) ([]models.Product, error) {
	return f.products, nil
}

func (f *fakeAssetStore) UpdateAssetState(_ context.Context, sku string, state store.AssetState) (bool, error) {
	if f.states == nil {
		f.states = make(map[string]store.AssetState)
	}
	f.states[sku] = state
	return true, nil
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
}

func TestScanSelectsAssetsDeterministically(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, filepath.Join(root, "SKU001"),
		"b.jpg", "a.PNG", "c.gif", "leiras.txt", "extra.md", "notes.pdf")

	fake := &fakeAssetStore{products: []models.Product{{SKU: "SKU001"}}}
	rec := New(fake)

	stats, err := rec.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 3, stats.Images)
	assert.Equal(t, 2, stats.Descriptions)

	state := fake.states["SKU001"]
	assert.True(t, state.HasImage)
	assert.True(t, state.HasDescription)
	assert.Equal(t, "a.PNG", state.MainImageFilename)
	assert.Equal(t, models.StringSlice{"b.jpg", "c.gif"}, state.ExtraImageFilenames)
	assert.Equal(t, "extra.md", state.DescriptionFilename)
}

func TestScanIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, filepath.Join(root, "SKU001"), "a.jpg", "b.jpg", "desc.txt")

	fake := &fakeAssetStore{products: []models.Product{{SKU: "SKU001"}}}
	rec := New(fake)

	first, err := rec.Scan(context.Background(), root)
	require.NoError(t, err)
	firstState := fake.states["SKU001"]

	second, err := rec.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstState, fake.states["SKU001"])
}

func TestScanClearsFlagsForMissingFolder(t *testing.T) {
	root := t.TempDir()

	fake := &fakeAssetStore{products: []models.Product{{SKU: "GONE"}}}
	rec := New(fake)

	stats, err := rec.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)

	state := fake.states["GONE"]
	assert.False(t, state.HasImage)
	assert.False(t, state.HasDescription)
	assert.Empty(t, state.MainImageFilename)
	assert.Empty(t, state.ExtraImageFilenames)
	assert.Empty(t, state.DescriptionFilename)
}

func TestScanMissingRootIsNotFatal(t *testing.T) {
	fake := &fakeAssetStore{products: []models.Product{{SKU: "SKU001"}}}
	rec := New(fake)

	stats, err := rec.Scan(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Equal(t, models.ScanStats{}, stats)
	assert.Empty(t, fake.states)
}
