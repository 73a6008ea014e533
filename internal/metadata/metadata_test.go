package metadata

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(context.Background(), filepath.Join(t.TempDir(), "metadata.db"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func writeTestImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := imaging.New(w, h, image.White.C)
	if err := imaging.Save(img, path, imaging.JPEGQuality(80)); err != nil {
		t.Fatal(err)
	}
}

func TestLookupReadsDimensions(t *testing.T) {
	c := newTestCache(t)
	path := filepath.Join(t.TempDir(), "scan.jpg")
	writeTestImage(t, path, 320, 240)

	info, err := c.Lookup(context.Background(), path)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if info.Width != 320 || info.Height != 240 {
		t.Errorf("dimensions = %dx%d, want 320x240", info.Width, info.Height)
	}
	if !info.TakenAt.IsZero() {
		t.Errorf("synthetic image reported capture time %v", info.TakenAt)
	}
}

func TestLookupServesCachedRow(t *testing.T) {
	c := newTestCache(t)
	path := filepath.Join(t.TempDir(), "scan.jpg")
	writeTestImage(t, path, 320, 240)

	if _, err := c.Lookup(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	// corrupt the file without touching its mtime: a cached row must
	// keep serving
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	mtime := info.ModTime()
	if err := os.WriteFile(path, []byte("no longer an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	got, err := c.Lookup(context.Background(), path)
	if err != nil {
		t.Fatalf("cached lookup failed: %v", err)
	}
	if got.Width != 320 || got.Height != 240 {
		t.Errorf("cached dimensions = %dx%d, want 320x240", got.Width, got.Height)
	}
}

func TestLookupReprobesStaleRow(t *testing.T) {
	c := newTestCache(t)
	path := filepath.Join(t.TempDir(), "scan.jpg")
	writeTestImage(t, path, 320, 240)

	if _, err := c.Lookup(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	// rewrite with new dimensions and a strictly newer mtime
	writeTestImage(t, path, 640, 480)
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	info, err := c.Lookup(context.Background(), path)
	if err != nil {
		t.Fatalf("re-probe failed: %v", err)
	}
	if info.Width != 640 || info.Height != 480 {
		t.Errorf("dimensions = %dx%d, want 640x480", info.Width, info.Height)
	}
}

func TestLookupMissingFile(t *testing.T) {
	c := newTestCache(t)

	if _, err := c.Lookup(context.Background(), filepath.Join(t.TempDir(), "absent.jpg")); err == nil {
		t.Fatal("Lookup succeeded for a missing file")
	}
}

func TestInvalidateDropsRow(t *testing.T) {
	c := newTestCache(t)
	path := filepath.Join(t.TempDir(), "scan.jpg")
	writeTestImage(t, path, 320, 240)

	if _, err := c.Lookup(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	c.Invalidate(context.Background(), path)

	// corrupt the file; with the row gone a lookup must re-probe and fail
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	mtime := info.ModTime()
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Lookup(context.Background(), path); err == nil {
		t.Error("invalidated row still served stale data")
	}
}
