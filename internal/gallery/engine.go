package gallery

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"scan-gallery/internal/dispatch"
	"scan-gallery/internal/logging"
	"scan-gallery/internal/metadata"
	"scan-gallery/internal/metrics"
	"scan-gallery/internal/notify"
	"scan-gallery/internal/thumbs"
	"scan-gallery/internal/workers"

	"golang.org/x/sync/errgroup"
)

// Cache-root subdirectories. Each is independently cleared by ClearCache.
const (
	thumbsDirName   = "thumbs"
	previewsDirName = "previews"
	pdfDirName      = "pdf"
)

// pdfNameLayout names staged PDF exports by wall-clock time.
const pdfNameLayout = "2006-01-02_15-04-05"

// Config configures an Engine.
type Config struct {
	// GalleryDir is the flat folder of scanned images.
	GalleryDir string
	// CacheRoot holds the thumbs, previews and pdf subdirectories.
	CacheRoot string
	// Format is the output format for newly written scans.
	Format OutputFormat
	// CacheMaxCost and CacheMaxEntries bound the in-memory thumbnail
	// cache; zero selects the defaults.
	CacheMaxCost    int64
	CacheMaxEntries int
	// ThumbConcurrency bounds simultaneous thumbnail generations; zero
	// selects one at a time.
	ThumbConcurrency int
	// Throttle, when non-nil, gates scan post-processing on memory
	// pressure.
	Throttle Throttle
}

// Throttle delays heavy post-processing work. Wait blocks until work may
// proceed and reports false when the process is shutting down.
type Throttle interface {
	Wait() bool
}

// Engine is the gallery engine: it owns the canonical item index, the
// thumbnail cache and generator, the metadata cache, and the change
// watcher. Construct one per gallery folder at the composition root and
// pass it by handle; all methods are safe from any goroutine.
type Engine struct {
	cfg      Config
	store    *ImageStore
	index    *Index
	watcher  *Watcher
	notifier notify.Notifier
	disp     *dispatch.Dispatcher

	cache     *thumbs.Cache
	generator *thumbs.Generator
	previewer *thumbs.Previewer
	meta      *metadata.Cache
}

// NewEngine creates the engine: it prepares the gallery folder and the
// cache subdirectories (failure here is fatal, there is no gallery without
// its folders), clears stale PDF staging, performs the initial refresh, and
// starts consuming the notifier.
func NewEngine(cfg Config, notifier notify.Notifier, meta *metadata.Cache) (*Engine, error) {
	for _, dir := range []string{
		filepath.Join(cfg.CacheRoot, thumbsDirName),
		filepath.Join(cfg.CacheRoot, previewsDirName),
		filepath.Join(cfg.CacheRoot, pdfDirName),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &IOError{Op: "create cache dir", Path: dir, Err: err}
		}
	}

	store, err := NewImageStore(cfg.GalleryDir, filepath.Join(cfg.CacheRoot, thumbsDirName), cfg.Format)
	if err != nil {
		return nil, err
	}

	disp := dispatch.New()
	e := &Engine{
		cfg:       cfg,
		store:     store,
		index:     NewIndex(disp),
		notifier:  notifier,
		disp:      disp,
		cache:     thumbs.NewCache(cfg.CacheMaxCost, cfg.CacheMaxEntries),
		generator: thumbs.NewGenerator(disp, cfg.ThumbConcurrency),
		previewer: thumbs.NewPreviewer(filepath.Join(cfg.CacheRoot, previewsDirName)),
		meta:      meta,
	}
	e.index.SetOnRemoved(e.dropDerived)
	e.watcher = NewWatcher(store.Folder(), e.index, func() { e.refresh("watcher") })

	// previous runs may have left staged exports behind
	e.clearDir(e.PDFStagingDir())

	if err := e.refresh("startup"); err != nil {
		return nil, err
	}
	if notifier != nil {
		if err := notifier.Start(e.watcher); err != nil {
			logging.Warn("Engine: watcher unavailable, relying on manual refresh: %v", err)
		}
	}
	return e, nil
}

// Close stops the notifier and the dispatcher. Queued notifications drain
// before Close returns.
func (e *Engine) Close() {
	if e.notifier != nil {
		if err := e.notifier.Close(); err != nil {
			logging.Warn("Engine: notifier close: %v", err)
		}
	}
	e.disp.Close()
}

// GalleryDir returns the resolved gallery folder.
func (e *Engine) GalleryDir() string { return e.store.Folder() }

// Items returns the canonical ordered item list.
func (e *Engine) Items() []Item { return e.index.Items() }

// Groups returns the current temporal display groups.
func (e *Engine) Groups() []Group { return e.index.Groups() }

// ItemAt returns the index entry for a location, or ErrNotFound.
func (e *Engine) ItemAt(location string) (Item, error) {
	for _, it := range e.index.Items() {
		if it.Location == location {
			return it, nil
		}
	}
	return Item{}, ErrNotFound
}

// Subscribe registers a subscriber; see Index.Subscribe.
func (e *Engine) Subscribe(fn Subscriber) *Subscription { return e.index.Subscribe(fn) }

// Unsubscribe removes a subscription.
func (e *Engine) Unsubscribe(sub *Subscription) { e.index.Unsubscribe(sub) }

// Refresh re-lists the gallery folder and rebuilds the item list from
// scratch. This is the correctness backstop for any watcher
// mis-classification.
func (e *Engine) Refresh() error { return e.refresh("manual") }

func (e *Engine) refresh(trigger string) error {
	start := time.Now()
	items, err := e.store.ListImages()
	if err != nil {
		metrics.IndexRefreshTotal.WithLabelValues(trigger, "error").Inc()
		logging.Error("Refresh failed: %v", err)
		return err
	}
	e.index.SetItems(items)
	metrics.IndexRefreshTotal.WithLabelValues(trigger, "success").Inc()
	metrics.IndexRefreshDuration.Observe(time.Since(start).Seconds())
	return nil
}

// SaveScans persists a batch of encoded scan images, appends the new items
// to the index in write order, and eagerly generates their thumbnails and
// low-resolution previews. The returned items are in write order. A failed
// write never adds an item.
func (e *Engine) SaveScans(scans [][]byte) ([]Item, error) {
	if len(scans) == 0 {
		return nil, nil
	}
	logging.Debug("Engine: adding %d scans", len(scans))

	items, err := e.store.WriteScans(scans)
	// append whatever was written before a failure, then report it
	e.index.Append(items...)

	var g errgroup.Group
	g.SetLimit(workers.ForPostProcessing(8))
	for _, item := range items {
		it := item
		g.Go(func() error {
			if e.cfg.Throttle != nil && !e.cfg.Throttle.Wait() {
				return nil
			}
			e.generator.Generate(it.Location, it.ThumbnailLocation, nil)
			e.previewer.GenerateIfNeeded(it.Location)
			return nil
		})
	}
	if werr := g.Wait(); werr != nil {
		logging.Warn("Engine: scan post-processing: %v", werr)
	}

	if err != nil {
		return items, err
	}
	logging.Info("Engine: added %d scans", len(items))
	return items, nil
}

// DeleteItem removes the item's backing files and drops it from the index.
// A failed delete leaves the index unchanged so the item remains visible.
func (e *Engine) DeleteItem(item Item) error {
	if !e.index.Contains(item.Location) {
		return ErrNotFound
	}
	if err := e.store.Delete(item); err != nil {
		return err
	}
	logging.Info("Engine: removed gallery item %s", item.Location)
	e.index.Remove(item)
	return nil
}

// dropDerived invalidates cached derived state for removed items: the
// in-memory thumbnail, the low-res preview file, and cached metadata.
func (e *Engine) dropDerived(removed []Item) {
	ctx := context.Background()
	for _, item := range removed {
		e.cache.Remove(item.Location)
		e.previewer.Remove(item.Location)
		if e.meta != nil {
			e.meta.Invalidate(ctx, item.Location)
		}
	}
}

// Thumbnail obtains the thumbnail for an item and delivers it through the
// engine dispatcher. Cache hits complete synchronously; misses go through
// the single-flight generator and populate the cache.
func (e *Engine) Thumbnail(item Item, completion func(image.Image)) {
	if img, ok := e.cache.Get(item.Location); ok {
		completion(img)
		return
	}
	e.generator.Generate(item.Location, item.ThumbnailLocation, func(img image.Image) {
		if img != nil {
			e.cache.Put(item.Location, img, thumbs.EstimateCost(img))
		}
		completion(img)
	})
}

// ImageSize returns the pixel dimensions of an item's full-resolution
// image, served from the metadata cache when warm.
func (e *Engine) ImageSize(ctx context.Context, item Item) (int, int, error) {
	if e.meta == nil {
		return 0, 0, fmt.Errorf("metadata cache not configured")
	}
	info, err := e.meta.Lookup(ctx, item.Location)
	if err != nil {
		return 0, 0, err
	}
	return info.Width, info.Height, nil
}

// PreviewPath returns the low-resolution preview location for an item. The
// file may not exist; callers fall back to the full image.
func (e *Engine) PreviewPath(item Item) string {
	return e.previewer.PreviewPath(item.Location)
}

// PDFStagingDir returns the staging directory for PDF exports.
func (e *Engine) PDFStagingDir() string {
	return filepath.Join(e.cfg.CacheRoot, pdfDirName)
}

// TempPDFPath returns a fresh timestamped destination in the PDF staging
// directory.
func (e *Engine) TempPDFPath() string {
	name := fmt.Sprintf("scan-gallery_%s.pdf", time.Now().Format(pdfNameLayout))
	return filepath.Join(e.PDFStagingDir(), name)
}

// ClearCache empties the thumbnails, previews and PDF staging directories.
// The in-memory cache is dropped as well so stale thumbnails cannot be
// served.
func (e *Engine) ClearCache() {
	for _, item := range e.index.Items() {
		e.cache.Remove(item.Location)
	}
	e.clearDir(filepath.Join(e.cfg.CacheRoot, thumbsDirName))
	e.clearDir(filepath.Join(e.cfg.CacheRoot, previewsDirName))
	e.clearDir(e.PDFStagingDir())
	logging.Info("Engine: cache cleared")
}

func (e *Engine) clearDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logging.Warn("Engine: cannot list cache dir %s: %v", dir, err)
		return
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			logging.Warn("Engine: cannot clear %s: %v", entry.Name(), err)
		}
	}
}
