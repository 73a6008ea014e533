package thumbs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPreviewPathDerivation(t *testing.T) {
	p := NewPreviewer("/cache/previews")

	path := p.PreviewPath("/gallery/2026-03-14_10-00-00.jpg")
	if path != "/cache/previews/2026-03-14_10-00-00.lowres.jpg" {
		t.Errorf("unexpected preview path %s", path)
	}
}

func TestGenerateIfNeededDownscalesLargeSources(t *testing.T) {
	dir := t.TempDir()
	p := NewPreviewer(dir)
	source := filepath.Join(dir, "big.jpg")
	writeSourceImage(t, source, 2000, 1500)

	p.GenerateIfNeeded(source)

	preview := p.PreviewPath(source)
	info, err := os.Stat(preview)
	if err != nil {
		t.Fatalf("preview was not written: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("preview file is empty")
	}

	// existing previews are not regenerated
	before := info.ModTime()
	p.GenerateIfNeeded(source)
	after, err := os.Stat(preview)
	if err != nil {
		t.Fatal(err)
	}
	if !after.ModTime().Equal(before) {
		t.Error("existing preview was rewritten")
	}
}

func TestGenerateIfNeededSkipsSmallSources(t *testing.T) {
	dir := t.TempDir()
	p := NewPreviewer(dir)
	source := filepath.Join(dir, "small.jpg")
	writeSourceImage(t, source, 800, 600)

	p.GenerateIfNeeded(source)

	if _, err := os.Stat(p.PreviewPath(source)); !os.IsNotExist(err) {
		t.Error("small source got an upscaled preview")
	}
}

func TestPreviewerRemove(t *testing.T) {
	dir := t.TempDir()
	p := NewPreviewer(dir)
	source := filepath.Join(dir, "big.jpg")
	writeSourceImage(t, source, 2000, 1500)
	p.GenerateIfNeeded(source)

	p.Remove(source)

	if _, err := os.Stat(p.PreviewPath(source)); !os.IsNotExist(err) {
		t.Error("preview survived Remove")
	}

	// removing again is a no-op
	p.Remove(source)
}

func TestPreviewSuffixAvoidsSourceCollisions(t *testing.T) {
	p := NewPreviewer("/cache/previews")
	if !strings.HasSuffix(p.PreviewPath("/gallery/a.png"), ".lowres.jpg") {
		t.Error("preview must always be a jpg")
	}
}
