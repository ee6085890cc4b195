// Package fsync reconciles per-SKU asset folders with the record store.
package fsync

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"shopsync/internal/models"
	"shopsync/internal/store"
	"shopsync/internal/util"

	"go.uber.org/zap"
)

// imageExtensions and descriptionExtensions are the recognized asset file
// types, matched case-insensitively on the extension.
var (
	imageExtensions = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	}
	descriptionExtensions = map[string]bool{
		".txt": true, ".html": true, ".md": true,
	}
)

// AssetStore is the slice of the record store the reconciler writes through.
type AssetStore interface {
	ListProducts(ctx context.Context, opts store.ListOptions) ([]models.Product, error)
	UpdateAssetState(ctx context.Context, sku string, state store.AssetState) (bool, error)
}

// Reconciler folds filesystem state back into the record store. It owns the
// has_image / has_description flags and the asset filename pointers.
type Reconciler struct {
	store  AssetStore
	logger *zap.Logger
}

// New creates a filesystem reconciler
func New(assetStore AssetStore) *Reconciler {
	return &Reconciler{
		store:  assetStore,
		logger: util.GetLogger(),
	}
}

// Scan probes <root>/<sku>/ for every stored product and writes the
// findings back. A missing root is a zero-effect result, not an error;
// a missing product folder clears that record's flags.
func (r *Reconciler) Scan(ctx context.Context, root string) (models.ScanStats, error) {
	stats := models.ScanStats{}

	if _, err := os.Stat(root); err != nil {
		r.logger.Warn("Products root not found, skipping scan", zap.String("root", root))
		return stats, nil
	}

	products, err := r.store.ListProducts(ctx, store.ListOptions{})
	if err != nil {
		return stats, err
	}

	for _, product := range products {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		state, found := scanFolder(filepath.Join(root, product.SKU))
		stats.Images += found.images
		stats.Descriptions += found.descriptions

		if _, err := r.store.UpdateAssetState(ctx, product.SKU, state); err != nil {
			r.logger.Error("Failed to update asset state",
				zap.String("sku", product.SKU),
				zap.Error(err))
			continue
		}
		stats.Updated++
	}

	r.logger.Info("Filesystem scan complete",
		zap.Int("updated", stats.Updated),
		zap.Int("images", stats.Images),
		zap.Int("descriptions", stats.Descriptions))

	return stats, nil
}

type folderCounts struct {
	images       int
	descriptions int
}

// scanFolder collects asset matches from the top level of one product
// folder. os.ReadDir returns entries sorted by filename, so the first
// match is stable across runs: the lexicographically-first image becomes
// the main image, the rest the ordered extras.
func scanFolder(dir string) (store.AssetState, folderCounts) {
	var state store.AssetState
	var counts folderCounts

	entries, err := os.ReadDir(dir)
	if err != nil {
		// Absent folder: flags stay false, pointers stay cleared.
		return state, counts
	}

	var images []string
	var descriptions []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		switch {
		case imageExtensions[ext]:
			images = append(images, entry.Name())
		case descriptionExtensions[ext]:
			descriptions = append(descriptions, entry.Name())
		}
	}

	counts.images = len(images)
	counts.descriptions = len(descriptions)

	if len(images) > 0 {
		state.HasImage = true
		state.MainImageFilename = images[0]
		if len(images) > 1 {
			state.ExtraImageFilenames = models.StringSlice(images[1:])
		}
	}
	if len(descriptions) > 0 {
		state.HasDescription = true
		state.DescriptionFilename = descriptions[0]
	}

	return state, counts
}
