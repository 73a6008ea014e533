package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"os"
	"time"

	"scan-gallery/internal/logging"
	"scan-gallery/internal/metrics"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/sync/singleflight"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const defaultTimeout = 5 * time.Second

// Info holds the cached metadata for one image file.
type Info struct {
	Width   int
	Height  int
	TakenAt time.Time // zero when the file carries no EXIF capture time
}

// Cache is a SQLite-backed metadata cache. Safe for concurrent use.
type Cache struct {
	db *sql.DB
	sf singleflight.Group
}

// New opens (or creates) the metadata database at dbPath. The parent
// directory must exist.
func New(ctx context.Context, dbPath string) (*Cache, error) {
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to metadata database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	c := &Cache{db: db}
	if err := c.initialize(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata schema: %w", err)
	}
	logging.Info("Metadata database ready at %s", dbPath)
	return c, nil
}

func (c *Cache) initialize(ctx context.Context) error {
	start := time.Now()
	schema := `
	CREATE TABLE IF NOT EXISTS image_meta (
		path     TEXT NOT NULL PRIMARY KEY,
		mtime    INTEGER NOT NULL,
		width    INTEGER NOT NULL,
		height   INTEGER NOT NULL,
		taken_at INTEGER
	);
	`
	_, err := c.db.ExecContext(ctx, schema)
	observe("initialize_schema", start, err)
	return err
}

// Lookup returns the metadata for the image at path, probing the file and
// updating the cache when the stored row is missing or stale. Concurrent
// lookups for the same path share one probe.
func (c *Cache) Lookup(ctx context.Context, path string) (Info, error) {
	v, err, _ := c.sf.Do(path, func() (interface{}, error) {
		return c.lookup(ctx, path)
	})
	if err != nil {
		return Info{}, err
	}
	return v.(Info), nil
}

func (c *Cache) lookup(ctx context.Context, path string) (Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	mtime := fi.ModTime().UnixNano()

	start := time.Now()
	var info Info
	var storedMtime int64
	var takenAt sql.NullInt64
	row := c.db.QueryRowContext(ctx,
		`SELECT mtime, width, height, taken_at FROM image_meta WHERE path = ?`, path)
	err = row.Scan(&storedMtime, &info.Width, &info.Height, &takenAt)
	observe("get_dimensions", start, err)
	if err == nil && storedMtime == mtime {
		if takenAt.Valid {
			info.TakenAt = time.Unix(0, takenAt.Int64)
		}
		return info, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		logging.Warn("Metadata lookup failed for %s: %v", path, err)
	}

	info, err = probe(path)
	if err != nil {
		return Info{}, err
	}

	start = time.Now()
	var stored interface{}
	if !info.TakenAt.IsZero() {
		stored = info.TakenAt.UnixNano()
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO image_meta (path, mtime, width, height, taken_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   mtime = excluded.mtime,
		   width = excluded.width,
		   height = excluded.height,
		   taken_at = excluded.taken_at`,
		path, mtime, info.Width, info.Height, stored)
	observe("upsert", start, err)
	if err != nil {
		// cache update failure is not a lookup failure
		logging.Warn("Metadata upsert failed for %s: %v", path, err)
	}
	return info, nil
}

// Invalidate drops the cached row for path. Used when an item is deleted.
func (c *Cache) Invalidate(ctx context.Context, path string) {
	start := time.Now()
	_, err := c.db.ExecContext(ctx, `DELETE FROM image_meta WHERE path = ?`, path)
	observe("invalidate", start, err)
	if err != nil {
		logging.Warn("Metadata invalidation failed for %s: %v", path, err)
	}
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// probe reads the image header for its pixel dimensions and, for formats
// that carry EXIF, the capture time. The capture time never participates in
// gallery ordering; it is auxiliary display metadata.
func probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return Info{}, fmt.Errorf("cannot decode image header of %s: %w", path, err)
	}
	info := Info{Width: cfg.Width, Height: cfg.Height}

	if _, err := f.Seek(0, 0); err == nil {
		if meta, err := exif.Decode(f); err == nil {
			if t, err := meta.DateTime(); err == nil && !t.IsZero() {
				info.TakenAt = t.UTC()
			}
		}
	}
	return info, nil
}

func observe(op string, start time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		status = "error"
	}
	metrics.MetadataQueriesTotal.WithLabelValues(op, status).Inc()
	metrics.MetadataQueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
