package thumbs

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scan-gallery/internal/dispatch"
	"scan-gallery/internal/metrics"

	"github.com/disintegration/imaging"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func writeSourceImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := imaging.New(w, h, image.White.C)
	if err := imaging.Save(img, path, imaging.JPEGQuality(80)); err != nil {
		t.Fatal(err)
	}
}

func await(t *testing.T, ch <-chan image.Image) image.Image {
	t.Helper()
	select {
	case img := <-ch:
		return img
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for completion")
		return nil
	}
}

func TestGenerateProducesBoundedThumbnail(t *testing.T) {
	disp := dispatch.New()
	defer disp.Close()
	dir := t.TempDir()
	source := filepath.Join(dir, "scan.jpg")
	thumbPath := filepath.Join(dir, "scan.thumbs.jpg")
	writeSourceImage(t, source, 640, 480)

	g := NewGenerator(disp, 1)
	done := make(chan image.Image, 1)
	g.Generate(source, thumbPath, func(img image.Image) { done <- img })

	img := await(t, done)
	if img == nil {
		t.Fatal("generation returned nil for a valid source")
	}
	bounds := img.Bounds()
	if bounds.Dx() > ThumbMaxEdge || bounds.Dy() > ThumbMaxEdge {
		t.Errorf("thumbnail is %dx%d, want max edge %d", bounds.Dx(), bounds.Dy(), ThumbMaxEdge)
	}
	if bounds.Dx() != ThumbMaxEdge && bounds.Dy() != ThumbMaxEdge {
		t.Errorf("thumbnail is %dx%d, expected one edge at %d", bounds.Dx(), bounds.Dy(), ThumbMaxEdge)
	}
	if _, err := os.Stat(thumbPath); err != nil {
		t.Errorf("thumbnail was not persisted: %v", err)
	}
}

func TestGenerateCoalescesRequestsForSameLocation(t *testing.T) {
	disp := dispatch.New()
	defer disp.Close()
	dir := t.TempDir()
	source := filepath.Join(dir, "scan.jpg")
	thumbPath := filepath.Join(dir, "scan.thumbs.jpg")
	writeSourceImage(t, source, 640, 480)

	g := NewGenerator(disp, 1)

	// occupy the only worker slot so requests pile up deterministically
	g.mu.Lock()
	g.running = 1
	g.mu.Unlock()

	coalescedBefore := testutil.ToFloat64(metrics.ThumbnailCoalescedTotal)

	done := make(chan image.Image, 3)
	for i := 0; i < 3; i++ {
		g.Generate(source, thumbPath, func(img image.Image) { done <- img })
	}

	g.mu.Lock()
	if len(g.queue) != 1 {
		t.Errorf("queue holds %d requests, want 1", len(g.queue))
	}
	if len(g.pending[source]) != 3 {
		t.Errorf("ledger holds %d callbacks, want 3", len(g.pending[source]))
	}
	// release the worker slot
	g.running = 0
	g.startLocked()
	g.mu.Unlock()

	if got := testutil.ToFloat64(metrics.ThumbnailCoalescedTotal) - coalescedBefore; got != 2 {
		t.Errorf("coalesced counter grew by %v, want 2", got)
	}

	first := await(t, done)
	for i := 0; i < 2; i++ {
		if next := await(t, done); next != first {
			t.Error("coalesced callbacks received different images")
		}
	}
}

func TestGenerateServesMostRecentRequestFirst(t *testing.T) {
	disp := dispatch.New()
	defer disp.Close()
	dir := t.TempDir()
	older := filepath.Join(dir, "older.jpg")
	newer := filepath.Join(dir, "newer.jpg")
	writeSourceImage(t, older, 300, 300)
	writeSourceImage(t, newer, 300, 300)

	g := NewGenerator(disp, 1)
	g.mu.Lock()
	g.running = 1
	g.mu.Unlock()

	order := make(chan string, 2)
	g.Generate(older, filepath.Join(dir, "older.thumbs.jpg"), func(image.Image) { order <- "older" })
	g.Generate(newer, filepath.Join(dir, "newer.thumbs.jpg"), func(image.Image) { order <- "newer" })

	g.mu.Lock()
	g.running = 0
	g.startLocked()
	g.mu.Unlock()

	deadline := time.After(10 * time.Second)
	var got []string
	for len(got) < 2 {
		select {
		case name := <-order:
			got = append(got, name)
		case <-deadline:
			t.Fatal("timed out waiting for completions")
		}
	}
	if got[0] != "newer" || got[1] != "older" {
		t.Errorf("completion order = %v, want [newer older]", got)
	}
}

func TestGenerateDeliversNilForUndecodableSource(t *testing.T) {
	disp := dispatch.New()
	defer disp.Close()
	dir := t.TempDir()
	source := filepath.Join(dir, "broken.jpg")
	if err := os.WriteFile(source, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	g := NewGenerator(disp, 1)
	done := make(chan image.Image, 1)
	g.Generate(source, filepath.Join(dir, "broken.thumbs.jpg"), func(img image.Image) { done <- img })

	if img := await(t, done); img != nil {
		t.Error("undecodable source produced a non-nil thumbnail")
	}
}

func TestGenerateUsesPersistedThumbnail(t *testing.T) {
	disp := dispatch.New()
	defer disp.Close()
	dir := t.TempDir()
	thumbPath := filepath.Join(dir, "scan.thumbs.jpg")
	writeSourceImage(t, thumbPath, 150, 100)

	diskHitsBefore := testutil.ToFloat64(metrics.ThumbnailDiskHitsTotal)

	// the source path does not exist; only the persisted thumbnail does
	g := NewGenerator(disp, 1)
	done := make(chan image.Image, 1)
	g.Generate(filepath.Join(dir, "scan.jpg"), thumbPath, func(img image.Image) { done <- img })

	img := await(t, done)
	if img == nil {
		t.Fatal("disk hit returned nil")
	}
	if img.Bounds().Dx() != 150 {
		t.Errorf("disk hit width = %d, want 150", img.Bounds().Dx())
	}
	if got := testutil.ToFloat64(metrics.ThumbnailDiskHitsTotal) - diskHitsBefore; got != 1 {
		t.Errorf("disk hit counter grew by %v, want 1", got)
	}
}

func TestGenerateRegeneratesUnreadablePersistedThumbnail(t *testing.T) {
	disp := dispatch.New()
	defer disp.Close()
	dir := t.TempDir()
	source := filepath.Join(dir, "scan.jpg")
	thumbPath := filepath.Join(dir, "scan.thumbs.jpg")
	writeSourceImage(t, source, 640, 480)
	if err := os.WriteFile(thumbPath, []byte("corrupted"), 0o644); err != nil {
		t.Fatal(err)
	}

	g := NewGenerator(disp, 1)
	done := make(chan image.Image, 1)
	g.Generate(source, thumbPath, func(img image.Image) { done <- img })

	img := await(t, done)
	if img == nil {
		t.Fatal("regeneration after corrupt disk thumbnail returned nil")
	}
	if img.Bounds().Dx() > ThumbMaxEdge || img.Bounds().Dy() > ThumbMaxEdge {
		t.Error("regenerated thumbnail exceeds bounds")
	}
}
