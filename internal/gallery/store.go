package gallery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scan-gallery/internal/logging"
	"scan-gallery/internal/metrics"
)

// OutputFormat selects the on-disk format for newly written scans.
type OutputFormat string

const (
	// FormatJPEG writes scans as JPEG files
	FormatJPEG OutputFormat = "jpg"
	// FormatPNG writes scans as PNG files
	FormatPNG OutputFormat = "png"
)

// supportedExtensions is the allow-list of raster formats recognized in the
// gallery folder. Anything else is invisible to the index.
var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".heic": true,
	".webp": true,
}

// thumbSuffix replaces the source extension when deriving the persisted
// thumbnail filename, e.g. scan001.jpg -> scan001.thumbs.jpg.
const thumbSuffix = ".thumbs.jpg"

// scanNameLayout names newly written scans by wall-clock time.
const scanNameLayout = "2006-01-02_15-04-05"

// ImageStore is a thin wrapper over the gallery folder: it lists supported
// image files, writes new scans atomically, and deletes images together
// with their derived thumbnails.
type ImageStore struct {
	folder    string
	thumbsDir string
	format    OutputFormat
}

// NewImageStore creates the gallery folder if needed and returns a store
// rooted at it. A folder that cannot be created or read is fatal to the
// engine, so the error must not be ignored.
func NewImageStore(folder, thumbsDir string, format OutputFormat) (*ImageStore, error) {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, &IOError{Op: "create folder", Path: folder, Err: err}
	}
	// resolve symlinks once so path-prefix checks against watcher events
	// compare canonical forms
	resolved, err := filepath.EvalSymlinks(folder)
	if err != nil {
		return nil, &IOError{Op: "resolve folder", Path: folder, Err: err}
	}
	if format != FormatJPEG && format != FormatPNG {
		format = FormatJPEG
	}
	return &ImageStore{folder: resolved, thumbsDir: thumbsDir, format: format}, nil
}

// Folder returns the resolved gallery folder path.
func (s *ImageStore) Folder() string { return s.folder }

// ThumbPath derives the persisted thumbnail location for an image path.
// The derivation is deterministic: same base name, thumbnail suffix,
// thumbnails directory.
func (s *ImageStore) ThumbPath(location string) string {
	base := filepath.Base(location)
	ext := filepath.Ext(base)
	return filepath.Join(s.thumbsDir, strings.TrimSuffix(base, ext)+thumbSuffix)
}

// ItemAt builds the gallery item for an image path, reading its creation
// timestamp from the filesystem. When stat fails the timestamp falls back
// to the epoch rather than failing the caller.
func (s *ImageStore) ItemAt(location string) Item {
	created := time.Unix(0, 0).UTC()
	if info, err := os.Stat(location); err == nil {
		created = info.ModTime()
	}
	return Item{
		Location:          location,
		ThumbnailLocation: s.ThumbPath(location),
		CreationTime:      created,
	}
}

// ListImages lists the gallery folder non-recursively, filtered to
// supported image files and sorted ascending by creation timestamp.
// Entries whose timestamp cannot be read are excluded. Timestamp ties keep
// directory enumeration order.
func (s *ImageStore) ListImages() ([]Item, error) {
	entries, err := os.ReadDir(s.folder)
	if err != nil {
		return nil, &IOError{Op: "list", Path: s.folder, Err: err}
	}

	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			logging.Debug("ImageStore: skipping %s, stat failed: %v", entry.Name(), err)
			continue
		}
		location := filepath.Join(s.folder, entry.Name())
		items = append(items, Item{
			Location:          location,
			ThumbnailLocation: s.ThumbPath(location),
			CreationTime:      info.ModTime(),
		})
	}
	sortByCreationTime(items)
	return items, nil
}

// WriteScans persists a batch of encoded scan images to the gallery folder
// and returns the written items in order. Filenames are timestamp-based;
// batches of more than one image get a numeric suffix. Each write is
// atomic: bytes land in a temporary file that is renamed into place, so a
// failed write never leaves a partial image behind.
func (s *ImageStore) WriteScans(scans [][]byte) ([]Item, error) {
	now := time.Now()
	items := make([]Item, 0, len(scans))
	for i, data := range scans {
		name := now.Format(scanNameLayout)
		if len(scans) > 1 {
			name += fmt.Sprintf("_%03d", i)
		}
		location := filepath.Join(s.folder, name+"."+string(s.format))
		if err := atomicWrite(location, data); err != nil {
			metrics.StoreWritesTotal.WithLabelValues("error").Inc()
			return items, &IOError{Op: "write", Path: location, Err: err}
		}
		metrics.StoreWritesTotal.WithLabelValues("success").Inc()
		logging.Debug("ImageStore: wrote scan %s (%d bytes)", location, len(data))
		items = append(items, s.ItemAt(location))
	}
	return items, nil
}

// Delete removes the item's full-resolution file and its thumbnail file.
// Missing files are not an error, so Delete is idempotent.
func (s *ImageStore) Delete(item Item) error {
	if err := removeIfExists(item.Location); err != nil {
		metrics.StoreDeletesTotal.WithLabelValues("error").Inc()
		return &IOError{Op: "delete", Path: item.Location, Err: err}
	}
	if err := removeIfExists(item.ThumbnailLocation); err != nil {
		// the full-resolution file is already gone; log and report
		logging.Warn("ImageStore: failed to delete thumbnail %s: %v", item.ThumbnailLocation, err)
	}
	metrics.StoreDeletesTotal.WithLabelValues("success").Inc()
	return nil
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".scan-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
